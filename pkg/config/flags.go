package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on both "ragline ask" and "ragline history").
type Flag struct {
	// Name is the long flag name (e.g. "top-k").
	Name string

	// Shorthand is the one-letter short flag (e.g. "k"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "retrieval.top_k").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen      = "api-listen"
	FlagAPITarget      = "api-target"
	FlagRetrievalProv  = "retrieval-provider"
	FlagRetrievalTgt   = "retrieval-target"
	FlagRetrievalTable = "retrieval-table"
	FlagTopK           = "top-k"
	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagEmbeddingDims  = "embedding-dimensions"
	FlagGenerationProv = "generation-provider"
	FlagGenerationTgt  = "generation-target"
	FlagGenerationMdl  = "generation-model"
	FlagHistoryProv    = "history-provider"
	FlagHistoryTgt     = "history-target"
	FlagEventsProv     = "events-provider"
	FlagEventsBrokers  = "events-brokers"
)

// ServeFlags is the registry shared by "ragline serve" and raglineapi.
var ServeFlags = FlagSet{
	FlagAPIListen:      {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagRetrievalProv:  {Name: "retrieval-provider", ViperKey: "retrieval.provider", Description: "Document store (pgvector, sqlite, qdrant, memory)"},
	FlagRetrievalTgt:   {Name: "retrieval-target", ViperKey: "retrieval.target", Description: "Document store DSN, path or address"},
	FlagRetrievalTable: {Name: "retrieval-table", ViperKey: "retrieval.table", Description: "Table holding document chunks"},
	FlagTopK:           {Name: "top-k", Shorthand: "k", ViperKey: "retrieval.top_k", Description: "Number of chunks retrieved per question"},
	FlagEmbeddingProv:  {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama, gemini)"},
	FlagEmbeddingTgt:   {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider base URL"},
	FlagEmbeddingModel: {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:  {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagGenerationProv: {Name: "generation-provider", ViperKey: "generation.provider", Description: "Generation provider (openai, ollama, gemini, anthropic)"},
	FlagGenerationTgt:  {Name: "generation-target", ViperKey: "generation.target", Description: "Generation provider base URL"},
	FlagGenerationMdl:  {Name: "model", Shorthand: "m", ViperKey: "generation.model", Description: "Generation model name"},
	FlagHistoryProv:    {Name: "history-provider", ViperKey: "history.provider", Description: "History store (postgres, redis, memory)"},
	FlagHistoryTgt:     {Name: "history-target", ViperKey: "history.target", Description: "History store DSN or address"},
	FlagEventsProv:     {Name: "events-provider", ViperKey: "events.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagEventsBrokers:  {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated kafka brokers"},
}

// ClientFlags is the registry for commands that call a running API server.
var ClientFlags = FlagSet{
	FlagAPITarget: {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "ragline API server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
