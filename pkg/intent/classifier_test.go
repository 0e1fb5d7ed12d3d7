package intent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/extract"
	"rolplay-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	content string
	err     error
}

type scriptedProvider struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	last    []llm.Message
}

func (p *scriptedProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = history
	idx := p.calls
	p.calls++
	if idx >= len(p.replies) {
		return "", errors.New("no scripted reply")
	}
	return p.replies[idx].content, p.replies[idx].err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{llm.User(prompt)}, opts...)
}

type countingObserver struct {
	outcomes  []string
	fallbacks int
}

func (o *countingObserver) OnAttempt(outcome string) { o.outcomes = append(o.outcomes, outcome) }
func (o *countingObserver) OnFallback()              { o.fallbacks++ }

func newTestClassifier(p llm.LLMProvider, obs Observer) *Classifier {
	stage := NewRemoteStage(p, DefaultConfig(), logger.NewNopLogger(), obs)
	stage.sleep = func(context.Context, time.Duration) error { return nil }
	return NewClassifier(stage, logger.NewNopLogger())
}

const trendJSON = `{"requires_data": true, "query_type": "trend", "parameters": {"usuario": null, "periodo": "week"}, "use_context": false}`

func TestClassifyRetriesBeforeFallback(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: errors.New("connection reset")},
		{content: "no es json"},
		{content: trendJSON},
	}}
	obs := &countingObserver{}

	res := newTestClassifier(p, obs).Classify(t.Context(), "¿Cómo evolucionan las notas?")

	assert.False(t, res.Fallback)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, Trend, res.Intent.QueryType)
	assert.Equal(t, "week", res.Intent.Parameters.Periodo)
	assert.Equal(t, []string{"error", "invalid_output", "success"}, obs.outcomes)
	assert.Zero(t, obs.fallbacks)
}

func TestClassifyFallbackAfterExhaustion(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: llm.ErrUnavailable}, {err: llm.ErrUnavailable}, {err: llm.ErrUnavailable}, {content: trendJSON},
	}}
	obs := &countingObserver{}

	res := newTestClassifier(p, obs).Classify(t.Context(), "¿Cómo va Juan?")

	require.True(t, res.Fallback)
	assert.Equal(t, 3, p.calls, "fourth reply must never be requested")
	assert.Equal(t, UserPerformance, res.Intent.QueryType)
	assert.True(t, res.Intent.RequiresData)
	assert.Empty(t, res.Intent.Parameters.Usuario)
	assert.False(t, res.Intent.UseContext)
	assert.Equal(t, 1, obs.fallbacks)
}

func TestClassifyWithoutModelFallsBackAtOnce(t *testing.T) {
	obs := &countingObserver{}

	res := newTestClassifier(nil, obs).Classify(t.Context(), "ranking de sucursales")
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, res.Attempts)

	p := &scriptedProvider{replies: []reply{{err: llm.ErrNotConfigured}, {content: trendJSON}}}
	res = newTestClassifier(p, obs).Classify(t.Context(), "ranking de sucursales")
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 2, obs.fallbacks)
}

func TestClassifySendsNormalizedQuery(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{content: trendJSON}}}

	newTestClassifier(p, nil).Classify(t.Context(), "  ¿Cómo  VAN las Sucursales?")

	require.Len(t, p.last, 2)
	assert.Equal(t, "system", p.last[0].Role)
	assert.Equal(t, "¿como van las sucursales?", p.last[1].Content)
}

func TestClassifyDateLiteralWins(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{content: `{"requires_data": true, "query_type": "specific_date", "parameters": {"fecha": "20240315"}, "use_context": false}`}}}

	res := newTestClassifier(p, nil).Classify(t.Context(), "resultados del 15/03/24")

	assert.Equal(t, "15/03/24", res.Intent.Parameters.Fecha)
}

func TestClassifyCompactDateReformatted(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{content: `{"requires_data": true, "query_type": "specific_date", "parameters": {"fecha": "20240315"}, "use_context": false}`}}}

	res := newTestClassifier(p, nil).Classify(t.Context(), "resultados del quince de marzo")

	assert.Equal(t, "15/03/2024", res.Intent.Parameters.Fecha)
}

func TestClassifyEnrichesFromExtraction(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{content: `{"requires_data": true, "query_type": "user_performance", "parameters": {"usuario": null, "sucursal": "Sucursal 2"}, "use_context": false}`}}}

	res := newTestClassifier(p, nil).Classify(t.Context(), `¿Y ese "Representante 9" en "Sucursal 4"?`)

	assert.True(t, res.Intent.UseContext, "context reference overrides the model")
	assert.Equal(t, "Representante 9", res.Intent.Parameters.Usuario)
	assert.Equal(t, "Sucursal 2", res.Intent.Parameters.Sucursal, "extractor never overrides the model")
}

func TestClassifyStopsOnCancelledContext(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{err: context.Canceled}, {content: trendJSON}}}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res := newTestClassifier(p, nil).Classify(ctx, "tendencia general")

	assert.True(t, res.Fallback)
	assert.Equal(t, 1, p.calls)
}

func TestFallbackPriority(t *testing.T) {
	tests := []struct {
		query string
		want  QueryType
	}{
		{"resultados del 15/03/24 del usuario 4", SpecificDate},
		{"¿cómo le fue al usuario 4?", UserPerformance},
		{"progreso del usuario 4", ExploratoryAnalysis},
		{"¿qué tal la sucursal 5?", BranchPerformance},
		{"lista de sucursales", ExploratoryAnalysis},
		{"detalle de la actividad de cierre", ActivityAnalysis},
		{"la mejor actividad", ExploratoryAnalysis},
		{"hola", ExploratoryAnalysis},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(extract.Extract(tt.query)).QueryType)
		})
	}
}

func TestFallbackCarriesExtractedParameters(t *testing.T) {
	in := Fallback(extract.Extract(`¿Y en esa "Ronda 3" del 01/02/2024?`))

	assert.Equal(t, SpecificDate, in.QueryType)
	assert.Equal(t, "Ronda 3", in.Parameters.Actividad)
	assert.Equal(t, "01/02/2024", in.Parameters.Fecha)
	assert.True(t, in.UseContext)
}
