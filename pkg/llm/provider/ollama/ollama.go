// Package ollama is the wire codec for Ollama's /api/chat endpoint.
package ollama

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/ragline/pkg/llm"
)

// provider implements the Provider interface for Ollama's chat API.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "ollama"
}

func (o *provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	body := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Stream,
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		body.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	return json.Marshal(body)
}

func (o *provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	resp, err := decode(payload)
	if err != nil {
		return nil, err
	}

	var usage *llm.Usage
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		usage = &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		}
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    resp.Message.Role,
			Content: resp.Message.Content,
		},
		StopReason: stopReason(resp),
		Usage:      usage,
		CreatedAt:  resp.CreatedAt,
	}, nil
}

// ParseStreamChunk parses one NDJSON line. Blank lines are skipped.
func (o *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}

	resp, err := decode(payload)
	if err != nil {
		return nil, err
	}

	return &llm.StreamChunk{
		Model:      resp.Model,
		Content:    resp.Message.Content,
		Done:       resp.Done,
		StopReason: stopReason(resp),
	}, nil
}

func decode(payload []byte) (*ollamaResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", llm.ErrProviderError, resp.Error)
	}
	return &resp, nil
}

func stopReason(resp *ollamaResponse) string {
	if !resp.Done {
		return ""
	}
	if resp.DoneReason != "" {
		return resp.DoneReason
	}
	return "stop"
}
