package contract

import (
	"context"

	"rolplay-assistant-be/pkg/conversation"
)

// ContextRepository stores the conversational context per session. Update
// applies conversation.Context.Merge atomically for its session.
type ContextRepository interface {
	Get(ctx context.Context, sessionID string) (conversation.Context, error)
	Update(ctx context.Context, sessionID, queryType string, values conversation.Values) (conversation.Context, error)
	Delete(ctx context.Context, sessionID string) error
}
