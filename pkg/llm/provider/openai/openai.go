// Package openai is the wire codec for the OpenAI chat completions API and
// compatible servers.
package openai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/pkg/llm"
)

// doneMarker terminates an OpenAI SSE stream.
const doneMarker = "[DONE]"

// provider implements the Provider interface for OpenAI's Chat Completions API.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "openai"
}

func (o *provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	messages := make([]openaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	return json.Marshal(openaiRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	})
}

func (o *provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp openaiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s (type: %s)", llm.ErrProviderError, resp.Error.Message, resp.Error.Type)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]

	var usage *llm.Usage
	if resp.Usage != nil {
		usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		},
		StopReason: choice.FinishReason,
		Usage:      usage,
		CreatedAt:  time.Unix(resp.Created, 0),
	}, nil
}

// ParseStreamChunk parses the data field of one SSE event. The "[DONE]"
// sentinel yields a final chunk with no content.
func (o *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	data := strings.TrimSpace(string(payload))
	if data == "" {
		return nil, nil
	}
	if data == doneMarker {
		return &llm.StreamChunk{Done: true}, nil
	}

	var chunk openaiStreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}

	if chunk.Error != nil {
		return nil, fmt.Errorf("%w: %s (type: %s)", llm.ErrProviderError, chunk.Error.Message, chunk.Error.Type)
	}

	result := &llm.StreamChunk{Model: chunk.Model}
	if len(chunk.Choices) > 0 {
		c := chunk.Choices[0]
		result.Content = c.Delta.Content
		if c.FinishReason != nil {
			result.StopReason = *c.FinishReason
		}
	}

	return result, nil
}
