package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"

	"rolplay-assistant-be/internal/pkg/logger"
)

// ServeWs runs the socket until the peer disconnects.
func ServeWs(ctx context.Context, c *websocket.Conn, sessionID string, answer AnswerFunc, log logger.ILogger) {
	client := &Client{
		Conn:      c,
		SessionID: sessionID,
		Send:      make(chan []byte, 16),
		answer:    answer,
		log:       log,
	}

	go client.writePump()
	client.readPump(ctx)
}
