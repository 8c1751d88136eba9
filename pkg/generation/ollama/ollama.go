// Package ollama implements pkg/generation's Generator for Ollama's /api/chat
// endpoint. Streaming responses are newline-delimited JSON.
package ollama

import (
	"bufio"
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
	"github.com/papercomputeco/ragline/pkg/llm/provider/ollama"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// GeneratorConfig holds configuration for the Ollama generator.
type GeneratorConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// MaxTokens is sent as options.num_predict when positive.
	MaxTokens int

	HTTPClient *http.Client
}

// Generator wraps Ollama's chat API.
type Generator struct {
	baseURL    string
	model      string
	maxTokens  int
	codec      provider.Provider
	httpClient *http.Client
}

// NewGenerator creates an Ollama generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
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
		baseURL:    baseURL,
		model:      model,
		maxTokens:  cfg.MaxTokens,
		codec:      ollama.New(),
		httpClient: client,
	}, nil
}

func (g *Generator) do(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", generation.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", generation.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", generation.ErrUpstream, resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// Complete sends a non-streaming chat request.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.do(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", generation.ErrUpstream, err)
	}

	chatResp, err := g.codec.ParseResponse(respBody)
	if err != nil {
		return "", fmt.Errorf("%w: parsing response: %w", generation.ErrUpstream, err)
	}

	return chatResp.Message.Content, nil
}

// Stream sends a streaming chat request and returns a Stream over the
// NDJSON body.
func (g *Generator) Stream(ctx context.Context, prompt string) (generation.Stream, error) {
	resp, err := g.do(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &stream{
		body:    resp.Body,
		scanner: scanner,
		codec:   g.codec,
	}, nil
}

// Close releases idle connections.
func (g *Generator) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

// stream reads one JSON object per line until "done": true.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	codec   provider.Provider

	done      bool
	closeOnce sync.Once
}

func (s *stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		chunk, err := s.codec.ParseStreamChunk(s.scanner.Bytes())
		if err != nil {
			return "", fmt.Errorf("%w: parsing stream chunk: %w", generation.ErrUpstream, err)
		}
		if chunk == nil {
			continue
		}
		if chunk.Done {
			s.done = true
			if chunk.Content != "" {
				return chunk.Content, nil
			}
			return "", io.EOF
		}
		if chunk.Content != "" {
			return chunk.Content, nil
		}
	}

	if err := s.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: reading stream: %w", generation.ErrUpstream, err)
	}

	return "", fmt.Errorf("%w: stream ended before completion", generation.ErrUpstream)
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

var _ generation.Generator = (*Generator)(nil)
