package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/internal/pkg/serverutils"
	"rolplay-assistant-be/internal/service"
	internalWS "rolplay-assistant-be/internal/websocket"
)

type QueryWSHandler struct {
	assistant service.IAssistantService
	jwtSecret string
	logger    logger.ILogger
}

func NewQueryWSHandler(assistant service.IAssistantService, jwtSecret string, log logger.ILogger) *QueryWSHandler {
	return &QueryWSHandler{assistant: assistant, jwtSecret: jwtSecret, logger: log}
}

// ServeWs binds the socket to a session: the token's claim when JWT_SECRET
// is set, else the "session" query parameter, else a fresh id.
func (h *QueryWSHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	session, err := h.session(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WS", "query socket opened", map[string]interface{}{"session_id": session})
		internalWS.ServeWs(context.Background(), conn, session, h.assistant.HandleTurn, h.logger)
		h.logger.Info("WS", "query socket closed", map[string]interface{}{"session_id": session})
	})(c)
}

func (h *QueryWSHandler) session(c *fiber.Ctx) (string, error) {
	if h.jwtSecret != "" {
		// Browsers cannot set headers on the handshake, so the token may
		// arrive as a query parameter.
		tokenStr := c.Query("token")
		if tokenStr == "" {
			if auth := c.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
				tokenStr = auth[7:]
			}
		}
		if tokenStr == "" {
			return "", fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}
		claims, err := serverutils.ParseToken(tokenStr, h.jwtSecret)
		if err != nil {
			return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		if s := serverutils.SessionFromClaims(claims); s != "" {
			return s, nil
		}
	}
	if s := c.Query("session"); s != "" {
		return s, nil
	}
	return uuid.NewString(), nil
}

func (h *QueryWSHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/query", h.ServeWs)
}
