package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rolplay-assistant-be/internal/dto"
	"rolplay-assistant-be/internal/pkg/serverutils"
	"rolplay-assistant-be/internal/service"
	"rolplay-assistant-be/pkg/conversation"
)

const sessionHeader = "X-Session-ID"

type IQueryController interface {
	RegisterRoutes(app fiber.Router)
}

type queryController struct {
	assistant service.IAssistantService
	jwtSecret string
}

func NewQueryController(assistant service.IAssistantService, jwtSecret string) IQueryController {
	return &queryController{assistant: assistant, jwtSecret: jwtSecret}
}

func (c *queryController) RegisterRoutes(app fiber.Router) {
	app.Post("/query", c.LegacyQuery)

	auth := serverutils.JwtMiddleware(c.jwtSecret)
	api := app.Group("/api", auth)
	api.Post("/query/v1", c.Query)
	api.Get("/context/v1/:session", c.GetContext)
	api.Delete("/context/v1/:session", c.ResetContext)
}

// LegacyQuery answers {"query": "..."} on the default session.
func (c *queryController) LegacyQuery(ctx *fiber.Ctx) error {
	var req dto.LegacyQueryRequest
	if err := ctx.BodyParser(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query is required"})
	}

	reply := c.assistant.HandleTurn(ctx.UserContext(), conversation.DefaultSession, req.Query)
	return ctx.JSON(dto.QueryResponse{Response: reply})
}

// Query answers a turn for the caller's session. The session comes from the
// token, then the X-Session-ID header, then the body; a new one is issued
// when none is given.
func (c *queryController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	session := resolveSession(ctx, req.SessionID)
	reply := c.assistant.HandleTurn(ctx.UserContext(), session, req.Query)

	return ctx.JSON(serverutils.SuccessResponse("Query answered", dto.QueryResult{
		SessionID: session,
		Response:  reply,
	}))
}

func (c *queryController) GetContext(ctx *fiber.Ctx) error {
	session, err := c.ownedSession(ctx)
	if err != nil {
		return err
	}

	cur, err := c.assistant.Context(ctx.UserContext(), session)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Context retrieved", dto.ContextResponse{
		SessionID: session,
		Context:   cur,
	}))
}

func (c *queryController) ResetContext(ctx *fiber.Ctx) error {
	session, err := c.ownedSession(ctx)
	if err != nil {
		return err
	}

	if err := c.assistant.ResetContext(ctx.UserContext(), session); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Context cleared", nil))
}

// ownedSession rejects access to another session when tokens are required. A
// token without a session claim owns no session.
func (c *queryController) ownedSession(ctx *fiber.Ctx) (string, error) {
	session := ctx.Params("session")
	if c.jwtSecret == "" {
		return session, nil
	}
	if claimed, _ := ctx.Locals(serverutils.SessionLocal).(string); claimed == "" || claimed != session {
		return "", fiber.NewError(fiber.StatusForbidden, "session does not belong to caller")
	}
	return session, nil
}

func resolveSession(ctx *fiber.Ctx, fromBody string) string {
	if claimed, ok := ctx.Locals(serverutils.SessionLocal).(string); ok && claimed != "" {
		return claimed
	}
	if h := strings.TrimSpace(ctx.Get(sessionHeader)); h != "" {
		return h
	}
	if fromBody != "" {
		return fromBody
	}
	return uuid.NewString()
}
