package ollama

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rolplay-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{Model: got.Model, Message: llm.Message{Role: "assistant", Content: "hola"}, Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", time.Second)
	out, err := p.Chat(t.Context(), []llm.Message{llm.System("sys"), {Role: "model", Content: "prev"}}, llm.WithTemperature(0.3), llm.WithJSON())

	require.NoError(t, err)
	assert.Equal(t, "hola", out)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.InDelta(t, 0.3, got.Options.Temperature, 1e-9)
}

func TestOllamaChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "x", time.Second).Generate(t.Context(), "hola")
	assert.ErrorContains(t, err, "status 404")
}
