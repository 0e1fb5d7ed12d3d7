package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"

	"rolplay-assistant-be/internal/dto"
	"rolplay-assistant-be/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// AnswerFunc answers one turn of a session.
type AnswerFunc func(ctx context.Context, sessionID, query string) string

// Client is one query socket bound to a conversation session.
type Client struct {
	Conn      *websocket.Conn
	SessionID string
	Send      chan []byte

	answer AnswerFunc
	log    logger.ILogger
}

// readPump answers frames in order so each turn sees the previous turn's
// context.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		close(c.Send)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("WS", "unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		c.Send <- c.reply(ctx, raw)
	}
}

func (c *Client) reply(ctx context.Context, raw []byte) []byte {
	var in dto.WSQueryMessage
	if err := json.Unmarshal(raw, &in); err != nil || strings.TrimSpace(in.Query) == "" {
		return encode(dto.WSReplyMessage{Type: "error", Error: "Query is required"})
	}
	return encode(dto.WSReplyMessage{Type: "reply", Response: c.answer(ctx, c.SessionID, in.Query)})
}

func encode(m dto.WSReplyMessage) []byte {
	raw, _ := json.Marshal(m)
	return raw
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
