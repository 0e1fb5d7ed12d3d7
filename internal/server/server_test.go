package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/internal/bootstrap"
	"rolplay-assistant-be/internal/config"
	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/dataset"
)

type staticLoader struct{}

func (staticLoader) Load(context.Context) (*dataset.Dataset, error) {
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return dataset.New([]dataset.Record{
		{Usuario: "user1", UsuarioNombre: "Representante 1", Sucursal: "Sucursal 1", ActividadNombre: "Ronda Inicial", FechaHora: at, Calificacion: 90, PuntosTotales: 900},
	}), nil
}

func newServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{CorsAllowedOrigins: "*", LLMLogFilePath: filepath.Join(t.TempDir(), "llm.log")},
		Ai:      config.AIConfig{LLMProvider: "openai", IntentMaxAttempts: 1, Timeout: time.Second},
		Context: config.ContextConfig{Store: "memory"},
		Search:  config.SearchConfig{TopK: 5},
	}
	c, err := bootstrap.NewContainer(t.Context(), cfg, bootstrap.Options{
		Registerer: prometheus.NewRegistry(),
		Loader:     staticLoader{},
		Logger:     logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return New(cfg, c)
}

func TestHealth(t *testing.T) {
	resp, err := newServer(t).GetApp().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, float64(1), out["records"])
}

func TestQueryRoundTrip(t *testing.T) {
	req := httptest.NewRequest("POST", "/query", strings.NewReader(`{"query":"hola"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := newServer(t).GetApp().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out["response"])
}

func TestMetricsEndpoint(t *testing.T) {
	resp, err := newServer(t).GetApp().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
