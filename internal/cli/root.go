package cli

import (
	"context"

	"github.com/spf13/cobra"

	"rolplay-assistant-be/pkg/analytics"
	pktNats "rolplay-assistant-be/pkg/nats"
)

type Assistant interface {
	HandleTurn(ctx context.Context, sessionID, query string) string
}

type StatsSource interface {
	GeneralStats() analytics.Envelope
}

// App holds what the commands need. TailEvents is nil when no broker is
// configured.
type App struct {
	Assistant  Assistant
	Stats      StatsSource
	SessionID  string
	TailEvents func(ctx context.Context, handler pktNats.EventHandler) error
}

func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "rolplay",
		Short:         "Natural-language questions over role-play training results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.SessionID, "session", app.SessionID, "conversation session id")

	root.AddCommand(
		newReplCmd(app),
		newAskCmd(app),
		newStatsCmd(app),
		newEventsCmd(app),
	)
	return root
}
