package query

import (
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// Request is a question, optionally continuing an existing conversation.
type Request struct {
	Question string `json:"question"`

	// ConversationID is empty for a new conversation.
	ConversationID string `json:"conversation_id,omitempty"`
}

// Response is the result of a blocking Answer.
type Response struct {
	Answer         string          `json:"answer"`
	Sources        []vector.Result `json:"sources"`
	ConversationID uuid.UUID       `json:"conversation_id"`
}

// ParseConversationID validates a caller supplied id. An empty id starts a
// new conversation.
func ParseConversationID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.New(), nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, failed(StageValidating, ErrValidation, err)
	}
	return id, nil
}

func (r Request) validate() (uuid.UUID, string, error) {
	id, err := ParseConversationID(r.ConversationID)
	if err != nil {
		return uuid.Nil, "", err
	}

	question := strings.TrimSpace(r.Question)
	if question == "" {
		return uuid.Nil, "", failed(StageValidating, ErrValidation, errEmptyQuestion)
	}

	return id, question, nil
}
