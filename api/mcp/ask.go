package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/utils"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question from the indexed documents. Pass conversation_id to continue an earlier conversation; the answer's conversation_id can be reused for follow-up questions."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to continue (UUID); omit to start a new one"`
}

// Source is a document chunk the answer was grounded on.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	Similarity float64 `json:"similarity"`
	Preview    string  `json:"preview"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	ConversationID string   `json:"conversation_id"`
}

const previewLen = 200

// handleAsk runs the blocking query flow.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP ask request",
		"conversation_id", input.ConversationID,
	)

	resp, err := s.config.Engine.Answer(ctx, query.Request{
		Question:       input.Question,
		ConversationID: input.ConversationID,
	})
	if err != nil {
		return errorResult("Failed to answer question: %v", err), AskOutput{}, nil
	}

	output := AskOutput{
		Answer:         resp.Answer,
		Sources:        make([]Source, 0, len(resp.Sources)),
		ConversationID: resp.ConversationID.String(),
	}
	for _, src := range resp.Sources {
		output.Sources = append(output.Sources, Source{
			ChunkID:    src.ChunkID,
			Similarity: src.Similarity,
			Preview:    utils.Truncate(src.Content, previewLen),
		})
	}

	result, err := textResult(output)
	if err != nil {
		logger.Error("failed to marshal ask output", "error", err)
		return errorResult("Failed to serialize answer: %v", err), AskOutput{}, nil
	}

	return result, output, nil
}
