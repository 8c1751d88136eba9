package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	historyToolName    = "history"
	historyDescription = "List the questions and answers of a conversation, oldest first."
)

// HistoryInput represents the input arguments for the history tool.
type HistoryInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"the conversation id (UUID)"`
}

// Turn represents a single turn in a conversation.
type Turn struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

// HistoryOutput represents the output of the history tool.
type HistoryOutput struct {
	ConversationID string `json:"conversation_id"`
	Turns          []Turn `json:"turns"`
	Count          int    `json:"count"`
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	turns, err := s.config.Engine.History(ctx, input.ConversationID)
	if err != nil {
		return errorResult("Failed to read history: %v", err), HistoryOutput{}, nil
	}

	output := HistoryOutput{
		ConversationID: input.ConversationID,
		Turns:          make([]Turn, 0, len(turns)),
		Count:          len(turns),
	}
	for _, t := range turns {
		output.Turns = append(output.Turns, Turn{
			Question:  t.Question,
			Answer:    t.Answer,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	result, err := textResult(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal history output", "error", err)
		return errorResult("Failed to serialize history: %v", err), HistoryOutput{}, nil
	}

	return result, output, nil
}
