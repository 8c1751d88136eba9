package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HistoryResponse is the body of GET /v1/history/:conversation_id.
type HistoryResponse struct {
	ConversationID string         `json:"conversation_id"`
	Turns          []TurnResponse `json:"turns"`
}

// TurnResponse is one question/answer exchange.
type TurnResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// handleHistory returns a conversation's turns, oldest first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	id := c.Params("conversation_id")

	turns, err := s.engine.History(c.UserContext(), id)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := HistoryResponse{
		ConversationID: id,
		Turns:          make([]TurnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, TurnResponse{
			Question:  t.Question,
			Answer:    t.Answer,
			CreatedAt: t.CreatedAt,
		})
	}

	return c.JSON(resp)
}
