package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/internal/repository/memory"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/conversation"
	"rolplay-assistant-be/pkg/dispatch"
	"rolplay-assistant-be/pkg/events"
	"rolplay-assistant-be/pkg/intent"
)

type stubClassifier struct {
	result intent.Result
}

func (c stubClassifier) Classify(context.Context, string) intent.Result { return c.result }

type stubDispatcher struct {
	result    dispatch.Result
	panicWith any
	sessions  []string
}

func (d *stubDispatcher) Dispatch(_ context.Context, sessionID string, _ intent.Intent, _ string) dispatch.Result {
	d.sessions = append(d.sessions, sessionID)
	if d.panicWith != nil {
		panic(d.panicWith)
	}
	return d.result
}

type stubRenderer struct {
	reply string
	err   error
}

func (r stubRenderer) Conversation(context.Context, string) string { return "¡Hola!" }

func (r stubRenderer) Render(context.Context, string, analytics.Envelope, intent.QueryType) (string, error) {
	return r.reply, r.err
}

type turnRecorder struct {
	mu        sync.Mutex
	fallbacks []bool
	events    []events.Event
}

func (o *turnRecorder) ObserveTurn(_ time.Duration, fallback bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, fallback)
}

func (o *turnRecorder) Publish(_ context.Context, e events.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	return nil
}

func (o *turnRecorder) last() events.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

func newService(d *stubDispatcher, r stubRenderer, c intent.Result, rec *turnRecorder) IAssistantService {
	return NewAssistantService(stubClassifier{result: c}, d, r, memory.NewContextRepository(0), rec, rec, logger.NewNopLogger())
}

func TestHandleTurnConversational(t *testing.T) {
	rec := &turnRecorder{}
	d := &stubDispatcher{result: dispatch.Result{Conversational: true}}

	got := newService(d, stubRenderer{}, intent.Result{}, rec).HandleTurn(t.Context(), "s1", "hola")

	assert.Equal(t, "¡Hola!", got)
	assert.Equal(t, "conversation", rec.last().Payload()["query_type"])
	assert.Equal(t, false, rec.last().Payload()["failed"])
}

func TestHandleTurnRendersData(t *testing.T) {
	rec := &turnRecorder{}
	d := &stubDispatcher{result: dispatch.Result{
		QueryType: intent.BranchRanking,
		Envelope:  analytics.Envelope{Message: "ok", Data: map[string]int{"n": 1}},
	}}

	got := newService(d, stubRenderer{reply: "La Sucursal A lidera."}, intent.Result{Fallback: true}, rec).
		HandleTurn(t.Context(), "s1", "mejor sucursal")

	assert.Equal(t, "La Sucursal A lidera.", got)
	assert.Equal(t, []bool{true}, rec.fallbacks)
	assert.Equal(t, "branch_ranking", rec.last().Payload()["query_type"])
	assert.Equal(t, true, rec.last().Payload()["fallback"])
}

func TestHandleTurnMapsTypedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"sucursal", apperror.Value("sucursal", "Sucursal no válida"),
			"No pude identificar correctamente la sucursal mencionada. Por favor, especifica el número de sucursal claramente."},
		{"missing key", apperror.MissingKey("region"),
			"Lo siento, no encuentro información sobre region. ¿Podrías verificar si el dato es correcto?"},
		{"empty", apperror.Empty("sin datos"),
			"No encontré suficientes datos para responder a tu consulta. ¿Podrías reformularla o ser más específico?"},
		{"untyped", errors.New("boom"), apperror.GenericMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &turnRecorder{}
			d := &stubDispatcher{result: dispatch.Result{
				QueryType: intent.BranchPerformance,
				Envelope:  analytics.Failure("branch_performance", tc.err),
			}}

			got := newService(d, stubRenderer{err: tc.err}, intent.Result{}, rec).HandleTurn(t.Context(), "s1", "q")

			assert.Equal(t, tc.want, got)
			assert.Equal(t, true, rec.last().Payload()["failed"])
		})
	}
}

func TestHandleTurnRecoversPanics(t *testing.T) {
	rec := &turnRecorder{}
	d := &stubDispatcher{panicWith: "index out of range"}

	var got string
	require.NotPanics(t, func() {
		got = newService(d, stubRenderer{}, intent.Result{}, rec).HandleTurn(t.Context(), "s1", "q")
	})

	assert.Equal(t, apperror.GenericMessage, got)
	assert.Len(t, rec.fallbacks, 1)
	assert.Equal(t, true, rec.last().Payload()["failed"])
}

func TestHandleTurnDefaultsSession(t *testing.T) {
	d := &stubDispatcher{result: dispatch.Result{Conversational: true}}

	newService(d, stubRenderer{}, intent.Result{}, &turnRecorder{}).HandleTurn(t.Context(), "", "hola")

	assert.Equal(t, []string{conversation.DefaultSession}, d.sessions)
}

func TestContextAccessors(t *testing.T) {
	repo := memory.NewContextRepository(0)
	svc := NewAssistantService(stubClassifier{}, &stubDispatcher{}, stubRenderer{}, repo, nil, nil, logger.NewNopLogger())

	_, err := repo.Update(t.Context(), "s1", "user_performance", conversation.Values{Usuario: "Juan"})
	require.NoError(t, err)

	got, err := svc.Context(t.Context(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Juan", got.Usuario)

	require.NoError(t, svc.ResetContext(t.Context(), "s1"))
	got, err = svc.Context(t.Context(), "s1")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
