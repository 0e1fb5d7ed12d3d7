package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/internal/repository/contract"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/conversation"
	"rolplay-assistant-be/pkg/dispatch"
	"rolplay-assistant-be/pkg/events"
	"rolplay-assistant-be/pkg/intent"
)

const module = "TURN"

// IAssistantService answers one user turn at a time.
type IAssistantService interface {
	HandleTurn(ctx context.Context, sessionID, query string) string
	Context(ctx context.Context, sessionID string) (conversation.Context, error)
	ResetContext(ctx context.Context, sessionID string) error
}

type IntentClassifier interface {
	Classify(ctx context.Context, raw string) intent.Result
}

type TurnDispatcher interface {
	Dispatch(ctx context.Context, sessionID string, in intent.Intent, raw string) dispatch.Result
}

type ReplyRenderer interface {
	Conversation(ctx context.Context, query string) string
	Render(ctx context.Context, query string, env analytics.Envelope, qt intent.QueryType) (string, error)
}

type TurnObserver interface {
	ObserveTurn(d time.Duration, fallback bool)
}

type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type assistantService struct {
	classifier IntentClassifier
	dispatcher TurnDispatcher
	renderer   ReplyRenderer
	contexts   contract.ContextRepository
	observer   TurnObserver
	publisher  EventPublisher
	log        logger.ILogger
	now        func() time.Time
}

// NewAssistantService wires one turn pipeline. observer and publisher may be nil.
func NewAssistantService(
	classifier IntentClassifier,
	dispatcher TurnDispatcher,
	renderer ReplyRenderer,
	contexts contract.ContextRepository,
	observer TurnObserver,
	publisher EventPublisher,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		classifier: classifier,
		dispatcher: dispatcher,
		renderer:   renderer,
		contexts:   contexts,
		observer:   observer,
		publisher:  publisher,
		log:        log,
		now:        time.Now,
	}
}

type turnOutcome struct {
	queryType string
	fallback  bool
	failed    bool
}

// HandleTurn never fails: every error becomes a user-facing message.
func (s *assistantService) HandleTurn(ctx context.Context, sessionID, query string) (reply string) {
	if sessionID == "" {
		sessionID = conversation.DefaultSession
	}

	ctx, span := otel.Tracer("rolplay/service").Start(ctx, "handle_turn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("session_id", sessionID)),
	)
	defer span.End()

	started := s.now()
	outcome := turnOutcome{}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error(module, "turn panicked", map[string]interface{}{
				"session_id": sessionID,
				"query":      query,
				"panic":      fmt.Sprint(r),
			})
			outcome.failed = true
			reply = apperror.GenericMessage
		}
		span.SetAttributes(
			attribute.String("query_type", outcome.queryType),
			attribute.Bool("fallback", outcome.fallback),
			attribute.Bool("failed", outcome.failed),
		)
		s.finish(ctx, sessionID, outcome, s.now().Sub(started))
	}()

	return s.turn(ctx, sessionID, query, &outcome)
}

func (s *assistantService) turn(ctx context.Context, sessionID, query string, outcome *turnOutcome) string {
	classified := s.classifier.Classify(ctx, query)
	outcome.fallback = classified.Fallback

	result := s.dispatcher.Dispatch(ctx, sessionID, classified.Intent, query)
	if result.Conversational {
		outcome.queryType = string(intent.Conversation)
		return s.renderer.Conversation(ctx, query)
	}
	outcome.queryType = string(result.QueryType)
	outcome.failed = result.Envelope.Failed()

	reply, err := s.renderer.Render(ctx, query, result.Envelope, result.QueryType)
	if err != nil {
		outcome.failed = true
		details := map[string]interface{}{
			"session_id": sessionID,
			"query_type": result.QueryType,
			"kind":       apperror.KindOf(err).String(),
			"error":      err.Error(),
		}
		if apperror.KindOf(err) == apperror.KindInternal {
			s.log.Error(module, "turn failed", details)
		} else {
			s.log.Warn(module, "turn answered with canned message", details)
		}
		return apperror.FriendlyMessage(err)
	}
	return reply
}

func (s *assistantService) finish(ctx context.Context, sessionID string, o turnOutcome, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveTurn(d, o.fallback)
	}
	s.log.Info(module, "turn processed", map[string]interface{}{
		"session_id":  sessionID,
		"query_type":  o.queryType,
		"fallback":    o.fallback,
		"failed":      o.failed,
		"duration_ms": d.Milliseconds(),
	})
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.TurnProcessed{
		SessionID:  sessionID,
		QueryType:  o.queryType,
		Fallback:   o.fallback,
		Failed:     o.failed,
		Duration:   d,
		OccurredAt: s.now(),
	})
	if err != nil {
		s.log.Warn(module, "failed to publish turn event", map[string]interface{}{"error": err.Error()})
	}
}

func (s *assistantService) Context(ctx context.Context, sessionID string) (conversation.Context, error) {
	return s.contexts.Get(ctx, sessionID)
}

func (s *assistantService) ResetContext(ctx context.Context, sessionID string) error {
	return s.contexts.Delete(ctx, sessionID)
}
