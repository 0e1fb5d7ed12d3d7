package response

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/intent"
	"rolplay-assistant-be/pkg/llm"
)

type recordingProvider struct {
	reply   string
	err     error
	history []llm.Message
	opts    llm.Options
}

func (p *recordingProvider) Chat(_ context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.history = history
	p.opts = llm.Apply(llm.Options{}, opts...)
	return p.reply, p.err
}

func (p *recordingProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{llm.User(prompt)}, opts...)
}

func renderer(p llm.LLMProvider) *Renderer {
	return NewRenderer(p, logger.NewNopLogger())
}

func TestConversationUsesConversationalPrompt(t *testing.T) {
	p := &recordingProvider{reply: " ¡Hola! "}

	got := renderer(p).Conversation(t.Context(), "hola")

	assert.Equal(t, "¡Hola!", got)
	require.Len(t, p.history, 2)
	assert.Contains(t, p.history[0].Content, "Eres un asistente conversacional que:")
	assert.Contains(t, p.history[0].Content, "   - Recomendaciones personalizadas para usuarios")
	assert.Equal(t, llm.User("hola"), p.history[1])
	assert.Equal(t, 0.3, p.opts.Temperature)
}

func TestConversationWithoutModel(t *testing.T) {
	got := renderer(nil).Conversation(t.Context(), "hola")

	assert.True(t, strings.HasPrefix(got, "¡Hola! Puedo ayudarte"))
	assert.Contains(t, got, "- Rankings de sucursales")
}

func TestRenderErrorEnvelope(t *testing.T) {
	p := &recordingProvider{reply: "**No** encontré esa fecha."}
	env := analytics.Failure("exact_activity_result", apperror.Value("fecha", "Fecha no válida: ayer"))

	got, err := renderer(p).Render(t.Context(), "resultados de ayer", env, intent.SpecificDate)

	require.NoError(t, err)
	assert.Equal(t, "**No** encontré esa fecha.", got)
	assert.Contains(t, p.history[0].Content, "Responde SIEMPRE en **Markdown**")
	assert.Equal(t,
		"Error al procesar la consulta: Error de valor en exact_activity_result: Fecha no válida: ayer\nConsulta original: resultados de ayer",
		p.history[1].Content)
}

func TestRenderErrorEnvelopeWithoutModelReturnsTypedCause(t *testing.T) {
	cause := apperror.Value("sucursal", "Sucursal no válida")
	env := analytics.Failure("branch_performance", cause)

	_, err := renderer(&recordingProvider{err: llm.ErrTimeout}).Render(t.Context(), "q", env, intent.BranchPerformance)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperror.KindValue, apperror.KindOf(err))
}

func TestRenderDataEnvelope(t *testing.T) {
	p := &recordingProvider{reply: "La sucursal A lidera."}
	env := analytics.Envelope{Message: "Ranking listo", Data: map[string]any{"mejor": "Sucursal A <1>"}}

	got, err := renderer(p).Render(t.Context(), "¿cuál es la mejor sucursal?", env, intent.BranchRanking)

	require.NoError(t, err)
	assert.Equal(t, "La sucursal A lidera.", got)
	assert.Contains(t, p.history[0].Content, "9. Si los datos contienen recomendaciones")
	assert.NotContains(t, p.history[0].Content, "10.")
	assert.Equal(t,
		`Consulta: ¿cuál es la mejor sucursal?`+"\n"+`Datos disponibles: {"message":"Ranking listo","data":{"mejor":"Sucursal A <1>"}}`,
		p.history[1].Content)
}

func TestRenderAddsProvenanceRuleWhenAsked(t *testing.T) {
	p := &recordingProvider{reply: "Usé 3 registros."}
	env := analytics.Envelope{Message: "ok", Data: map[string]any{"datos_utilizados": []int{1, 2, 3}}}

	_, err := renderer(p).Render(t.Context(), "¿Qué datos usaste?", env, intent.UserPerformance)
	require.NoError(t, err)
	assert.Contains(t, p.history[0].Content, "10. Ya que el usuario pregunta por los datos utilizados")

	_, err = renderer(p).Render(t.Context(), "¿Cómo va?", env, intent.UserPerformance)
	require.NoError(t, err)
	assert.NotContains(t, p.history[0].Content, "10. Ya que")

	noData := analytics.Envelope{Message: "ok", Data: map[string]any{"x": 1}}
	_, err = renderer(p).Render(t.Context(), "¿Qué datos usaste?", noData, intent.UserPerformance)
	require.NoError(t, err)
	assert.NotContains(t, p.history[0].Content, "10. Ya que")
}

func TestRenderDataWithoutModelFallsBackToPlain(t *testing.T) {
	env := analytics.Envelope{Message: "Estadísticas generales", Data: map[string]int{"total": 3}}

	got, err := renderer(&recordingProvider{err: errors.New("offline")}).Render(t.Context(), "stats", env, intent.GeneralStats)

	require.NoError(t, err)
	assert.Equal(t, "**Estadísticas generales**\n\n```json\n{\n  \"total\": 3\n}\n```", got)
}

func TestPlainTruncatesLargeData(t *testing.T) {
	env := analytics.Envelope{Message: "m", Data: strings.Repeat("á", maxFallbackData)}

	got := Plain(env)

	assert.Contains(t, got, "\n…\n```")
	assert.Less(t, len(got), maxFallbackData+50)
	assert.Equal(t, "**solo mensaje**", Plain(analytics.Envelope{Message: "solo mensaje"}))
}
