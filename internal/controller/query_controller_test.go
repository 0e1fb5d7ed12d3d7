package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/internal/pkg/serverutils"
	"rolplay-assistant-be/pkg/conversation"
)

type fakeAssistant struct {
	sessions []string
	queries  []string
	contexts map[string]conversation.Context
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{contexts: map[string]conversation.Context{}}
}

func (f *fakeAssistant) HandleTurn(_ context.Context, sessionID, query string) string {
	f.sessions = append(f.sessions, sessionID)
	f.queries = append(f.queries, query)
	return "respuesta a " + query
}

func (f *fakeAssistant) Context(_ context.Context, sessionID string) (conversation.Context, error) {
	return f.contexts[sessionID], nil
}

func (f *fakeAssistant) ResetContext(_ context.Context, sessionID string) error {
	delete(f.contexts, sessionID)
	return nil
}

func newApp(a *fakeAssistant, secret string) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewQueryController(a, secret).RegisterRoutes(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestLegacyQuery(t *testing.T) {
	a := newFakeAssistant()
	app := newApp(a, "")

	status, out := do(t, app, http.MethodPost, "/query", `{"query":"¿Cuál es la mejor sucursal?"}`, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "respuesta a ¿Cuál es la mejor sucursal?", out["response"])
	assert.Equal(t, []string{conversation.DefaultSession}, a.sessions)
}

func TestLegacyQueryRequiresQuery(t *testing.T) {
	for _, body := range []string{`{}`, `{"query":"   "}`, `not json`} {
		status, out := do(t, newApp(newFakeAssistant(), ""), http.MethodPost, "/query", body, nil)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Query is required", out["error"])
	}
}

func TestQueryUsesHeaderSession(t *testing.T) {
	a := newFakeAssistant()

	status, out := do(t, newApp(a, ""), http.MethodPost, "/api/query/v1",
		`{"query":"hola","session_id":"from-body"}`, map[string]string{"X-Session-ID": "from-header"})

	assert.Equal(t, fiber.StatusOK, status)
	data := out["data"].(map[string]any)
	assert.Equal(t, "from-header", data["session_id"])
	assert.Equal(t, "respuesta a hola", data["response"])
}

func TestQueryIssuesSessionWhenMissing(t *testing.T) {
	a := newFakeAssistant()

	_, out := do(t, newApp(a, ""), http.MethodPost, "/api/query/v1", `{"query":"hola"}`, nil)

	issued := out["data"].(map[string]any)["session_id"].(string)
	assert.Len(t, issued, 36)
	assert.Equal(t, []string{issued}, a.sessions)
}

func TestQueryValidatesBody(t *testing.T) {
	status, out := do(t, newApp(newFakeAssistant(), ""), http.MethodPost, "/api/query/v1", `{"query":""}`, nil)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, out["success"])
}

func token(t *testing.T, secret, session string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"session_id": session}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestQueryTakesSessionFromToken(t *testing.T) {
	a := newFakeAssistant()
	app := newApp(a, "s3cret")

	status, _ := do(t, app, http.MethodPost, "/api/query/v1", `{"query":"hola"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, out := do(t, app, http.MethodPost, "/api/query/v1", `{"query":"hola"}`, map[string]string{
		"Authorization": token(t, "s3cret", "tok-session"),
		"X-Session-ID":  "ignored",
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "tok-session", out["data"].(map[string]any)["session_id"])
}

func TestContextEndpoints(t *testing.T) {
	a := newFakeAssistant()
	a.contexts["s1"] = conversation.Context{Usuario: "Juan", TipoConsulta: "user_performance"}
	app := newApp(a, "")

	status, out := do(t, app, http.MethodGet, "/api/context/v1/s1", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	ctx := out["data"].(map[string]any)["context"].(map[string]any)
	assert.Equal(t, "Juan", ctx["usuario"])

	status, _ = do(t, app, http.MethodDelete, "/api/context/v1/s1", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, a.contexts, "s1")
}

func TestContextEndpointsRejectForeignSession(t *testing.T) {
	app := newApp(newFakeAssistant(), "s3cret")

	status, _ := do(t, app, http.MethodGet, "/api/context/v1/other", "", map[string]string{
		"Authorization": token(t, "s3cret", "mine"),
	})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestContextEndpointsRejectTokenWithoutSession(t *testing.T) {
	a := newFakeAssistant()
	a.contexts["victim"] = conversation.Context{Usuario: "Juan"}
	app := newApp(a, "s3cret")

	bare, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "viewer"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	headers := map[string]string{"Authorization": "Bearer " + bare}

	status, _ := do(t, app, http.MethodGet, "/api/context/v1/victim", "", headers)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = do(t, app, http.MethodDelete, "/api/context/v1/victim", "", headers)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Contains(t, a.contexts, "victim")
}

func TestContextEndpointsAllowOwnSession(t *testing.T) {
	a := newFakeAssistant()
	a.contexts["mine"] = conversation.Context{Usuario: "Ana"}
	app := newApp(a, "s3cret")

	status, _ := do(t, app, http.MethodGet, "/api/context/v1/mine", "", map[string]string{
		"Authorization": token(t, "s3cret", "mine"),
	})
	assert.Equal(t, fiber.StatusOK, status)
}
