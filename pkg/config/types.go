package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent ragline configuration stored as config.toml
// in the .ragline/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	API        APIConfig        `toml:"api"`
	Client     ClientConfig     `toml:"client"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Generation GenerationConfig `toml:"generation"`
	History    HistoryConfig    `toml:"history"`
	Events     EventsConfig     `toml:"events"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// API server (ragline ask, ragline history). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// RetrievalConfig selects the document store that chunks are retrieved from.
type RetrievalConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Table      string `toml:"table,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	TopK       uint   `toml:"top_k,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
}

// GenerationConfig holds generative model settings.
type GenerationConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	MaxTokens uint   `toml:"max_tokens,omitempty"`
	Timeout   string `toml:"timeout,omitempty"`
}

// HistoryConfig selects the conversation history backend.
type HistoryConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	TTL      string `toml:"ttl,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
}

// EventsConfig selects where persisted-turn events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// ParseDuration parses a duration setting such as "10s". Empty or invalid
// values yield fallback.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"retrieval.provider":   stringKey(func(c *Config) *string { return &c.Retrieval.Provider }),
	"retrieval.target":     stringKey(func(c *Config) *string { return &c.Retrieval.Target }),
	"retrieval.table":      stringKey(func(c *Config) *string { return &c.Retrieval.Table }),
	"retrieval.collection": stringKey(func(c *Config) *string { return &c.Retrieval.Collection }),
	"retrieval.api_key":    stringKey(func(c *Config) *string { return &c.Retrieval.APIKey }),
	"retrieval.top_k":      uintKey("retrieval.top_k", func(c *Config) *uint { return &c.Retrieval.TopK }),
	"retrieval.timeout":    durationKey("retrieval.timeout", func(c *Config) *string { return &c.Retrieval.Timeout }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.timeout":    durationKey("embedding.timeout", func(c *Config) *string { return &c.Embedding.Timeout }),

	"generation.provider":   stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.target":     stringKey(func(c *Config) *string { return &c.Generation.Target }),
	"generation.model":      stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.api_key":    stringKey(func(c *Config) *string { return &c.Generation.APIKey }),
	"generation.max_tokens": uintKey("generation.max_tokens", func(c *Config) *uint { return &c.Generation.MaxTokens }),
	"generation.timeout":    durationKey("generation.timeout", func(c *Config) *string { return &c.Generation.Timeout }),

	"history.provider": stringKey(func(c *Config) *string { return &c.History.Provider }),
	"history.target":   stringKey(func(c *Config) *string { return &c.History.Target }),
	"history.ttl":      durationKey("history.ttl", func(c *Config) *string { return &c.History.TTL }),
	"history.timeout":  durationKey("history.timeout", func(c *Config) *string { return &c.History.Timeout }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}

// orderedKeys lists config keys in TOML section order.
var orderedKeys = []string{
	"api.listen",
	"client.api_target",
	"retrieval.provider",
	"retrieval.target",
	"retrieval.table",
	"retrieval.collection",
	"retrieval.api_key",
	"retrieval.top_k",
	"retrieval.timeout",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"embedding.timeout",
	"generation.provider",
	"generation.target",
	"generation.model",
	"generation.api_key",
	"generation.max_tokens",
	"generation.timeout",
	"history.provider",
	"history.target",
	"history.ttl",
	"history.timeout",
	"events.provider",
	"events.brokers",
	"events.topic",
}

// secretKeys are masked by "ragline config list".
var secretKeys = map[string]bool{
	"retrieval.api_key":  true,
	"embedding.api_key":  true,
	"generation.api_key": true,
}

// IsSecretKey reports whether the key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
