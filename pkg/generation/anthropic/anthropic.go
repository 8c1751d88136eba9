// Package anthropic implements pkg/generation's Generator with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/papercomputeco/ragline/pkg/generation"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxTokens is used when no limit is configured, since the
	// Messages API requires one.
	DefaultMaxTokens = 1024
)

// GeneratorConfig holds configuration for the Anthropic generator.
type GeneratorConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	Model string

	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens int
}

// Generator calls Messages.New and Messages.NewStreaming.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewGenerator creates an Anthropic generator. SDK retries are disabled.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Generator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}, nil
}

func (g *Generator) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

// Complete returns the concatenated text blocks of the response.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, g.params(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %w", generation.ErrUpstream, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from anthropic", generation.ErrUpstream)
	}

	return text.String(), nil
}

// Stream yields the text deltas of a streaming message.
func (g *Generator) Stream(ctx context.Context, prompt string) (generation.Stream, error) {
	return &stream{s: g.client.Messages.NewStreaming(ctx, g.params(prompt))}, nil
}

// Close is a no-op; the SDK client holds no closable resources.
func (g *Generator) Close() error {
	return nil
}

type stream struct {
	s *ssestream.Stream[anthropic.MessageStreamEventUnion]

	sawStop   bool
	closeOnce sync.Once
}

func (s *stream) Next() (string, error) {
	for s.s.Next() {
		switch ev := s.s.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				return delta.Text, nil
			}
		case anthropic.MessageStopEvent:
			s.sawStop = true
		}
	}

	if err := s.s.Err(); err != nil {
		return "", fmt.Errorf("%w: anthropic stream: %w", generation.ErrUpstream, err)
	}
	if !s.sawStop {
		return "", fmt.Errorf("%w: stream ended before message_stop", generation.ErrUpstream)
	}
	return "", io.EOF
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.s.Close()
	})
	return err
}

var _ generation.Generator = (*Generator)(nil)
