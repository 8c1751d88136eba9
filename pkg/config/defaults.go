package config

const (
	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultRetrievalProvider   = "pgvector"
	defaultRetrievalTarget     = "postgres://localhost:5432/ragline"
	defaultRetrievalTable      = "documents"
	defaultRetrievalCollection = "documents"
	defaultTopK                = 5
	defaultRetrievalTimeout    = "10s"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com/v1"
	defaultEmbeddingModel      = "text-embedding-ada-002"
	defaultEmbeddingDimensions = 1536
	defaultEmbeddingTimeout    = "5s"

	defaultGenerationProvider  = "openai"
	defaultGenerationTarget    = "https://api.openai.com/v1"
	defaultGenerationModel     = "gpt-3.5-turbo"
	defaultGenerationMaxTokens = 1024
	defaultGenerationTimeout   = "20s"

	defaultHistoryProvider = "postgres"
	defaultHistoryTarget   = "postgres://localhost:5432/ragline"
	defaultHistoryTimeout  = "5s"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "ragline.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Retrieval: RetrievalConfig{
			Provider:   defaultRetrievalProvider,
			Target:     defaultRetrievalTarget,
			Table:      defaultRetrievalTable,
			Collection: defaultRetrievalCollection,
			TopK:       defaultTopK,
			Timeout:    defaultRetrievalTimeout,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			Timeout:    defaultEmbeddingTimeout,
		},
		Generation: GenerationConfig{
			Provider:  defaultGenerationProvider,
			Target:    defaultGenerationTarget,
			Model:     defaultGenerationModel,
			MaxTokens: defaultGenerationMaxTokens,
			Timeout:   defaultGenerationTimeout,
		},
		History: HistoryConfig{
			Provider: defaultHistoryProvider,
			Target:   defaultHistoryTarget,
			Timeout:  defaultHistoryTimeout,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
