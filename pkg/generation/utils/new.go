// Package generationutils builds the configured generation backend.
package generationutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/generation/anthropic"
	"github.com/papercomputeco/ragline/pkg/generation/gemini"
	"github.com/papercomputeco/ragline/pkg/generation/ollama"
	"github.com/papercomputeco/ragline/pkg/generation/openai"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	MaxTokens    int
}

func NewGenerator(ctx context.Context, o *NewGeneratorOpts) (generation.Generator, error) {
	switch o.ProviderType {
	case "openai":
		return openai.NewGenerator(openai.GeneratorConfig{
			APIKey:    o.APIKey,
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
		})
	case "ollama":
		return ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
		})
	case "gemini":
		return gemini.NewGenerator(ctx, gemini.GeneratorConfig{
			APIKey:    o.APIKey,
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
		})
	case "anthropic":
		return anthropic.NewGenerator(anthropic.GeneratorConfig{
			APIKey:    o.APIKey,
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
