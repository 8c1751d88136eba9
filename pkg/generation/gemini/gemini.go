// Package gemini implements pkg/generation's Generator with the Google Gen AI
// SDK.
package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/papercomputeco/ragline/pkg/generation"
)

// DefaultModel is the default chat model.
const DefaultModel = "gemini-2.5-flash"

// GeneratorConfig holds configuration for the Gemini generator.
type GeneratorConfig struct {
	// APIKey falls back to GEMINI_API_KEY / GOOGLE_API_KEY when empty.
	APIKey string

	// BaseURL overrides the Gemini API endpoint.
	BaseURL string

	Model string

	// MaxTokens is sent as MaxOutputTokens when positive.
	MaxTokens int
}

// Generator calls Models.GenerateContent and Models.GenerateContentStream.
type Generator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGenerator creates a Gemini generator.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (*Generator, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing genai client: %w", err)
	}

	var config *genai.GenerateContentConfig
	if cfg.MaxTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: int32(cfg.MaxTokens)}
	}

	return &Generator{
		client: client,
		model:  model,
		config: config,
	}, nil
}

// Complete generates the whole answer in one call.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", generation.ErrUpstream, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response from gemini", generation.ErrUpstream)
	}

	return text, nil
}

// Stream adapts the SDK's range-over-func iterator to a pull-based Stream.
func (g *Generator) Stream(ctx context.Context, prompt string) (generation.Stream, error) {
	seq := g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.config)
	next, stop := iter.Pull2(seq)

	return &stream{next: next, stop: stop}, nil
}

// Close is a no-op; the genai client holds no closable resources.
func (g *Generator) Close() error {
	return nil
}

type stream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()

	done     bool
	stopOnce sync.Once
}

func (s *stream) Next() (string, error) {
	for !s.done {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			return "", fmt.Errorf("%w: gemini stream: %w", generation.ErrUpstream, err)
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
	return "", io.EOF
}

func (s *stream) Close() error {
	s.stopOnce.Do(s.stop)
	return nil
}

var _ generation.Generator = (*Generator)(nil)
