package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"rolplay-assistant-be/internal/config"
	"rolplay-assistant-be/internal/controller"
	"rolplay-assistant-be/internal/handler"
	"rolplay-assistant-be/internal/metrics"
	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/internal/repository/contract"
	"rolplay-assistant-be/internal/repository/memory"
	"rolplay-assistant-be/internal/repository/redisrepo"
	"rolplay-assistant-be/internal/service"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/database"
	"rolplay-assistant-be/pkg/dataset"
	"rolplay-assistant-be/pkg/dispatch"
	"rolplay-assistant-be/pkg/events"
	"rolplay-assistant-be/pkg/intent"
	"rolplay-assistant-be/pkg/llm"
	"rolplay-assistant-be/pkg/llm/factory"
	pktNats "rolplay-assistant-be/pkg/nats"
	"rolplay-assistant-be/pkg/response"
	"rolplay-assistant-be/pkg/search"
)

type Container struct {
	// Transport
	QueryController controller.IQueryController
	QueryWSHandler  *handler.QueryWSHandler

	// Core
	Assistant service.IAssistantService
	Engine    *analytics.Engine
	Dataset   *dataset.Dataset

	// Background services (run by main)
	EventForwarder service.IEventForwarder

	Logger  logger.ILogger
	closers []func()
}

// Options lets a caller swap pieces that normally come from config.
type Options struct {
	Registerer prometheus.Registerer
	Loader     dataset.Loader
	Provider   llm.LLMProvider
	Logger     logger.ILogger
}

// NewContainer builds every component. Optional infrastructure (NATS, a
// model) degrades with a warning; the dataset and context store must work.
func NewContainer(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{}

	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	}
	c.Logger = sysLogger
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	cfg.LogSummary(sysLogger)

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := metrics.New(reg)

	// 1. Dataset
	loader := opts.Loader
	if loader == nil {
		l, closeDB, err := newLoader(cfg)
		if err != nil {
			return nil, err
		}
		loader = l
		c.addCloser(closeDB)
	}
	ds, err := loader.Load(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "dataset loaded", map[string]interface{}{
		"records": ds.Len(),
		"source":  cfg.Dataset.Source,
	})
	c.Dataset = ds
	c.Engine = analytics.NewEngine(ds)

	// 2. LLM provider
	provider := opts.Provider
	if provider == nil {
		provider, err = factory.NewLLMProvider(factory.Params{
			Provider: cfg.Ai.LLMProvider,
			Model:    cfg.Ai.LLMModel,
			BaseURL:  providerBaseURL(cfg.Ai),
			APIKey:   cfg.Ai.OpenAIAPIKey,
			Timeout:  cfg.Ai.Timeout,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
	}
	sysLogger.Info("BOOTSTRAP", "using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Context store
	contexts, err := c.newContextRepository(ctx, cfg, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 4. Turn pipeline
	remote := intent.NewRemoteStage(provider, intent.Config{
		MaxAttempts:    cfg.Ai.IntentMaxAttempts,
		InitialBackoff: cfg.Ai.IntentBackoff,
		MaxBackoff:     cfg.Ai.IntentMaxBackoff,
		AttemptTimeout: cfg.Ai.Timeout,
		Temperature:    intent.DefaultConfig().Temperature,
	}, llmLogger, m)
	classifier := intent.NewClassifier(remote, sysLogger)

	index := search.NewIndex(ds, provider, search.Config{
		TopK:        cfg.Search.TopK,
		Temperature: search.DefaultConfig().Temperature,
	}, sysLogger)

	dispatcher, err := dispatch.New(c.Engine, index, contexts, sysLogger, m)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to build dispatcher: %w", err)
	}

	renderer := response.NewRenderer(provider, sysLogger).WithTemperature(cfg.Ai.RenderTemperature)

	// 5. Events
	bus := events.NewBus()
	c.addCloser(func() { _ = bus.Close() })

	var sink service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "failed to connect to NATS, turn events stay in-process", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			sink = natsPub
			c.addCloser(natsPub.Close)
		}
	}
	c.EventForwarder = service.NewEventForwarder(bus, sink, sysLogger)

	c.Assistant = service.NewAssistantService(classifier, dispatcher, renderer, contexts, m, bus, sysLogger)

	// 6. Transport
	c.QueryController = controller.NewQueryController(c.Assistant, cfg.App.JWTSecret)
	c.QueryWSHandler = handler.NewQueryWSHandler(c.Assistant, cfg.App.JWTSecret, sysLogger)

	return c, nil
}

func newLoader(cfg *config.Config) (dataset.Loader, func(), error) {
	switch cfg.Dataset.Source {
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Dataset.Connection, cfg.App.DebugMode)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to GORM DB: %w", err)
		}
		return dataset.NewPostgresLoader(db), func() { _ = database.Close(db) }, nil
	case "excel", "":
		return dataset.NewExcelLoader(cfg.Dataset.FilePath, cfg.Dataset.Sheet), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dataset source: %s", cfg.Dataset.Source)
	}
}

func providerBaseURL(ai config.AIConfig) string {
	if ai.LLMProvider == "ollama" {
		return ai.OllamaBaseURL
	}
	return ai.OpenAIBaseURL
}

func (c *Container) newContextRepository(ctx context.Context, cfg *config.Config, log logger.ILogger) (contract.ContextRepository, error) {
	switch cfg.Context.Store {
	case "redis":
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Warn("BOOTSTRAP", "failed to parse Redis URL, using it as address", map[string]interface{}{
				"error": err.Error(),
			})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.addCloser(func() { _ = rdb.Close() })
		return redisrepo.NewContextRepository(rdb, cfg.Context.TTL), nil
	case "memory", "":
		return memory.NewContextRepository(cfg.Context.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported context store: %s", cfg.Context.Store)
	}
}

func (c *Container) addCloser(f func()) { c.closers = append(c.closers, f) }

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
