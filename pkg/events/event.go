package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the subject suffix for this event (e.g., "turn.processed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the decoded form of any event read back from a bus.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const TypeTurnProcessed = "turn.processed"

// TurnProcessed is emitted once per answered turn.
type TurnProcessed struct {
	SessionID  string
	QueryType  string
	Fallback   bool
	Failed     bool
	Duration   time.Duration
	OccurredAt time.Time
}

func (e TurnProcessed) EventType() string { return TypeTurnProcessed }

func (e TurnProcessed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"query_type":  e.QueryType,
		"fallback":    e.Fallback,
		"failed":      e.Failed,
		"duration_ms": e.Duration.Milliseconds(),
	}
}

func (e TurnProcessed) Timestamp() time.Time { return e.OccurredAt }

// Encode serializes an event with its type and timestamp so it can be
// decoded without knowing the concrete type.
func Encode(e Event) ([]byte, error) {
	raw, err := json.Marshal(BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.EventType(), err)
	}
	return raw, nil
}

func Decode(raw []byte) (BaseEvent, error) {
	var e BaseEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return BaseEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" {
		return BaseEvent{}, fmt.Errorf("failed to decode event: missing type")
	}
	return e, nil
}
