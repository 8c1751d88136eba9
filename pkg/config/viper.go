package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/ragline/pkg/dotdir"
)

// EnvPrefix is the environment variable prefix bound by InitViper.
const EnvPrefix = "RAGLINE"

// InitViper creates and returns a configured *viper.Viper.
// It loads .env files, sets defaults from NewDefaultConfig(), reads the
// config.toml file (if found via dotdir resolution), and binds environment
// variables with the RAGLINE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RAGLINE_API_LISTEN, RAGLINE_RETRIEVAL_TOP_K, etc.)
//     including values loaded from .env
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
		if err := LoadDotEnv(filepath.Join(target, ".env")); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped and variables already present in
// the environment are left untouched.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("loading %s: %w", p, err)
	}
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for key, info := range configKeys {
		v.SetDefault(key, info.get(d))
	}

	// Numeric keys keep their native type.
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
}

// FromViper decodes the resolved viper state into a Config.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{}
	for key, info := range configKeys {
		// Malformed values leave the zero value for applyDefaults.
		_ = info.set(cfg, v.GetString(key))
	}
	cfg.Version = v.GetInt("version")
	applyDefaults(cfg)
	return cfg
}
