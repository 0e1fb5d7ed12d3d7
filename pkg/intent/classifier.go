package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/extract"
	"rolplay-assistant-be/pkg/llm"
)

const module = "INTENT"

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
	Temperature    float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		AttemptTimeout: 30 * time.Second,
		Temperature:    0.3,
	}
}

// Observer is told about every attempt and every fallback.
type Observer interface {
	OnAttempt(outcome string)
	OnFallback()
}

type noopObserver struct{}

func (noopObserver) OnAttempt(string) {}
func (noopObserver) OnFallback()      {}

// RemoteStage asks the model for a classification with bounded attempts.
type RemoteStage struct {
	provider llm.LLMProvider
	cfg      Config
	log      logger.ILogger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewRemoteStage(provider llm.LLMProvider, cfg Config, log logger.ILogger, observer Observer) *RemoteStage {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &RemoteStage{provider: provider, cfg: cfg, log: log, observer: observer, sleep: sleepCtx}
}

// Classify returns the parsed intent and the number of attempts used. The
// error wraps llm.ErrRetryExhausted once every attempt has failed.
func (s *RemoteStage) Classify(ctx context.Context, normalized string) (Intent, int, error) {
	history := []llm.Message{llm.System(systemPrompt), llm.User(normalized)}

	var lastErr error
	used := 0
	delay := s.cfg.InitialBackoff
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		used = attempt
		in, err := s.attempt(ctx, history)
		if err == nil {
			s.observer.OnAttempt("success")
			return in, attempt, nil
		}
		lastErr = err

		outcome := "error"
		if errors.Is(err, llm.ErrInvalidOutput) {
			outcome = "invalid_output"
		}
		s.observer.OnAttempt(outcome)
		s.log.Warn(module, "classification attempt failed", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": s.cfg.MaxAttempts,
			"error":        err.Error(),
		})

		if ctx.Err() != nil {
			return Intent{}, attempt, fmt.Errorf("%w: %v", llm.ErrTimeout, ctx.Err())
		}
		// Retrying cannot configure a missing model.
		if errors.Is(err, llm.ErrNotConfigured) {
			break
		}
		if attempt < s.cfg.MaxAttempts {
			if err := s.sleep(ctx, delay); err != nil {
				return Intent{}, attempt, fmt.Errorf("%w: %v", llm.ErrTimeout, err)
			}
			delay *= 2
			if s.cfg.MaxBackoff > 0 && delay > s.cfg.MaxBackoff {
				delay = s.cfg.MaxBackoff
			}
		}
	}

	return Intent{}, used, fmt.Errorf("%w: %v", llm.ErrRetryExhausted, lastErr)
}

func (s *RemoteStage) attempt(ctx context.Context, history []llm.Message) (Intent, error) {
	if s.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()
	}

	if s.provider == nil {
		return Intent{}, llm.ErrNotConfigured
	}
	raw, err := s.provider.Chat(ctx, history, llm.WithTemperature(s.cfg.Temperature), llm.WithJSON())
	if err != nil {
		return Intent{}, err
	}
	return parseResponse(raw)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result is a classification plus how it was obtained.
type Result struct {
	Intent   Intent
	Entities extract.Entities
	Fallback bool
	Attempts int
}

// Classifier composes extraction, the remote stage and the fallback.
type Classifier struct {
	remote   *RemoteStage
	log      logger.ILogger
	observer Observer
}

func NewClassifier(remote *RemoteStage, log logger.ILogger) *Classifier {
	return &Classifier{remote: remote, log: log, observer: remote.observer}
}

// Classify never fails; a remote failure yields the keyword fallback.
func (c *Classifier) Classify(ctx context.Context, raw string) Result {
	entities := extract.Extract(raw)

	in, attempts, err := c.remote.Classify(ctx, entities.Normalized)
	if err != nil {
		c.observer.OnFallback()
		fb := Fallback(entities)
		c.log.Warn(module, "remote classification exhausted, using keyword fallback", map[string]interface{}{
			"attempts":   attempts,
			"query_type": fb.QueryType,
			"error":      err.Error(),
		})
		return Result{Intent: fb, Entities: entities, Fallback: true, Attempts: attempts}
	}

	in = enrich(in, entities)
	c.log.Debug(module, "intent classified", map[string]interface{}{
		"query_type":    in.QueryType,
		"requires_data": in.RequiresData,
		"use_context":   in.UseContext,
		"attempts":      attempts,
	})
	return Result{Intent: in, Entities: entities, Attempts: attempts}
}
