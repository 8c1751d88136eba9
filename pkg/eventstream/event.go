package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after a conversation turn is persisted.
	EventTypeTurnPersisted = "ragline.turn.persisted"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted turn.
type TurnPersistedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`

	// SourceIDs lists the retrieved chunk ids in rank order.
	SourceIDs []string `json:"source_ids"`

	Streaming  bool  `json:"streaming"`
	DurationMs int64 `json:"duration_ms"`
}

// NewTurnPersistedEvent fills in the envelope fields of a v1 event.
func NewTurnPersistedEvent(conversationID uuid.UUID, question, answer string, sourceIDs []string) *TurnPersistedEvent {
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	return &TurnPersistedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeTurnPersisted,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		SourceIDs:      sourceIDs,
	}
}
