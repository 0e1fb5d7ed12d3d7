// Package response turns a dispatch result into the assistant's reply.
package response

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/intent"
	"rolplay-assistant-be/pkg/llm"
)

const module = "RENDER"

const (
	defaultTemperature = 0.3
	// maxFallbackData bounds the JSON shown when no model is reachable.
	maxFallbackData = 3000
)

type Renderer struct {
	provider    llm.LLMProvider
	log         logger.ILogger
	temperature float64
}

func NewRenderer(provider llm.LLMProvider, log logger.ILogger) *Renderer {
	return &Renderer{provider: provider, log: log, temperature: defaultTemperature}
}

// WithTemperature sets the sampling temperature of every reply.
func (r *Renderer) WithTemperature(t float64) *Renderer {
	r.temperature = t
	return r
}

// Conversation answers a turn that needs no data. Without a model it lists
// what the assistant can look up.
func (r *Renderer) Conversation(ctx context.Context, query string) string {
	reply, err := r.chat(ctx, conversationMessages(query))
	if err != nil {
		r.log.Warn(module, "conversation reply failed, using canned reply", map[string]interface{}{
			"error": err.Error(),
		})
		return cannedConversation()
	}
	return reply
}

// Render writes the reply for a data turn. The returned error carries the
// envelope's typed cause when the model is unavailable for an error
// envelope, so the caller can pick the canned message for its kind.
func (r *Renderer) Render(ctx context.Context, query string, env analytics.Envelope, qt intent.QueryType) (string, error) {
	if env.Failed() {
		reply, err := r.chat(ctx, errorMessages(query, env))
		if err != nil {
			r.log.Warn(module, "error explanation failed", map[string]interface{}{
				"query_type": qt,
				"error":      err.Error(),
			})
			if env.Err != nil {
				return "", env.Err
			}
			return "", apperror.Internal(err, "%s", env.Error)
		}
		return reply, nil
	}

	payload, err := marshal(env)
	if err != nil {
		return "", apperror.Internal(err, "no se pudo serializar el resultado de %s", qt)
	}

	reply, err := r.chat(ctx, analystMessages(query, payload))
	if err != nil {
		r.log.Warn(module, "analyst reply failed, rendering plain result", map[string]interface{}{
			"query_type": qt,
			"error":      err.Error(),
		})
		return Plain(env), nil
	}
	r.log.Debug(module, "reply rendered", map[string]interface{}{
		"query_type":    qt,
		"payload_bytes": len(payload),
	})
	return reply, nil
}

func (r *Renderer) chat(ctx context.Context, messages []llm.Message) (string, error) {
	if r.provider == nil {
		return "", llm.ErrNotConfigured
	}
	reply, err := r.provider.Chat(ctx, messages, llm.WithTemperature(r.temperature))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", llm.ErrInvalidOutput)
	}
	return reply, nil
}

// Plain renders a successful envelope without a model: the message, then
// the data as indented JSON, cut short when large.
func Plain(env analytics.Envelope) string {
	var b strings.Builder
	if env.Message != "" {
		b.WriteString("**")
		b.WriteString(env.Message)
		b.WriteString("**")
	}
	if env.Data == nil {
		return b.String()
	}

	raw, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		return b.String()
	}
	body := string(raw)
	if len(body) > maxFallbackData {
		body = truncateUTF8(body, maxFallbackData) + "\n…"
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("```json\n")
	b.WriteString(body)
	b.WriteString("\n```")
	return b.String()
}

func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func cannedConversation() string {
	var b strings.Builder
	b.WriteString("¡Hola! Puedo ayudarte a consultar los resultados de las actividades de role-play. Por ejemplo:\n")
	for _, c := range capabilities {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
