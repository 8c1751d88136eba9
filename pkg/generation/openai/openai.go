// Package openai implements pkg/generation's Generator for the OpenAI chat
// completions API and compatible servers.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/llm"
	"github.com/papercomputeco/ragline/pkg/llm/provider"
	"github.com/papercomputeco/ragline/pkg/llm/provider/openai"
	"github.com/papercomputeco/ragline/pkg/sse"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"
)

// GeneratorConfig holds configuration for the OpenAI generator.
type GeneratorConfig struct {
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// MaxTokens is sent as max_tokens when positive.
	MaxTokens int

	HTTPClient *http.Client
}

// Generator calls {BaseURL}/chat/completions.
type Generator struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	codec      provider.Provider
	httpClient *http.Client
}

// NewGenerator creates an OpenAI generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Generator{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		maxTokens:  cfg.MaxTokens,
		codec:      openai.New(),
		httpClient: client,
	}, nil
}

func (g *Generator) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	chatReq := &llm.ChatRequest{
		Model:    g.model,
		Messages: llm.UserPrompt(prompt),
		Stream:   stream,
	}
	if g.maxTokens > 0 {
		chatReq.MaxTokens = &g.maxTokens
	}

	body, err := g.codec.EncodeRequest(chatReq)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", generation.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", generation.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	return req, nil
}

// Complete sends a non-streaming request and returns the first choice.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	req, err := g.newRequest(ctx, prompt, false)
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %w", generation.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", generation.ErrUpstream, err)
	}

	chatResp, err := g.codec.ParseResponse(respBody)
	if err != nil {
		return "", fmt.Errorf("%w: openai returned status %d: %w", generation.ErrUpstream, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: openai returned status %d", generation.ErrUpstream, resp.StatusCode)
	}

	return chatResp.Message.Content, nil
}

// Stream sends a streaming request and returns a Stream over the SSE body.
func (g *Generator) Stream(ctx context.Context, prompt string) (generation.Stream, error) {
	req, err := g.newRequest(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", generation.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: openai returned status %d: %s", generation.ErrUpstream, resp.StatusCode, string(body))
	}

	return &stream{
		body:   resp.Body,
		reader: sse.NewReader(resp.Body),
		codec:  g.codec,
	}, nil
}

// Close releases idle connections.
func (g *Generator) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

// stream reads "data:" events until the [DONE] marker.
type stream struct {
	body   io.ReadCloser
	reader *sse.Reader
	codec  provider.Provider

	done      bool
	closeOnce sync.Once
}

func (s *stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		ev, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			// The body ended without [DONE].
			return "", fmt.Errorf("%w: stream ended before completion", generation.ErrUpstream)
		}
		if err != nil {
			return "", fmt.Errorf("%w: reading stream: %w", generation.ErrUpstream, err)
		}

		chunk, err := s.codec.ParseStreamChunk([]byte(ev.Data))
		if err != nil {
			return "", fmt.Errorf("%w: parsing stream chunk: %w", generation.ErrUpstream, err)
		}
		if chunk == nil {
			continue
		}
		if chunk.Done {
			s.done = true
			return "", io.EOF
		}
		if chunk.Content != "" {
			return chunk.Content, nil
		}
	}
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

var _ generation.Generator = (*Generator)(nil)
