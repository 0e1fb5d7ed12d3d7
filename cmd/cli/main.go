package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rolplay-assistant-be/internal/bootstrap"
	"rolplay-assistant-be/internal/cli"
	"rolplay-assistant-be/internal/config"
	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/conversation"
	"rolplay-assistant-be/pkg/events"
	pktNats "rolplay-assistant-be/pkg/nats"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Logs go to the file only so they do not interleave with answers.
	log := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	container, err := bootstrap.NewContainer(ctx, cfg, bootstrap.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("bootstrapping: %w", err)
	}
	defer container.Close()

	go func() {
		if err := container.EventForwarder.Run(ctx); err != nil {
			log.Warn("CLI", "event forwarder stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	app := &cli.App{
		Assistant: container.Assistant,
		Stats:     container.Engine,
		SessionID: conversation.DefaultSession,
	}
	if cfg.App.NatsURL != "" {
		app.TailEvents = func(ctx context.Context, handler pktNats.EventHandler) error {
			sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, log)
			if err != nil {
				return err
			}
			defer sub.Close()
			return sub.Subscribe(ctx, events.TypeTurnProcessed, "rolplay-cli-tail", handler)
		}
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
