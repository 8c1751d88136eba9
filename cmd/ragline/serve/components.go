package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/ragline/pkg/embeddings/utils"
	"github.com/papercomputeco/ragline/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/ragline/pkg/eventstream/utils"
	"github.com/papercomputeco/ragline/pkg/generation"
	generationutils "github.com/papercomputeco/ragline/pkg/generation/utils"
	"github.com/papercomputeco/ragline/pkg/history"
	historyutils "github.com/papercomputeco/ragline/pkg/history/utils"
	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/vector"
	vectorutils "github.com/papercomputeco/ragline/pkg/vector/utils"
)

// Components are the engine and the clients it owns.
type Components struct {
	Engine *query.Engine

	retriever vector.Retriever
	embedder  embeddings.Embedder
	generator generation.Generator
	history   history.Store
	publisher eventstream.Publisher
}

// NewComponents builds every client named by cfg and wires them into a
// query.Engine. Clients created before a failure are closed.
func NewComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	retriever, err := vectorutils.NewRetriever(ctx, &vectorutils.NewRetrieverOpts{
		ProviderType: cfg.Retrieval.Provider,
		Target:       cfg.Retrieval.Target,
		Table:        cfg.Retrieval.Table,
		Collection:   cfg.Retrieval.Collection,
		APIKey:       cfg.Retrieval.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}
	c.retriever = retriever

	embedder, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	c.embedder = embedder

	generator, err := generationutils.NewGenerator(ctx, &generationutils.NewGeneratorOpts{
		ProviderType: cfg.Generation.Provider,
		TargetURL:    cfg.Generation.Target,
		Model:        cfg.Generation.Model,
		APIKey:       cfg.Generation.APIKey,
		MaxTokens:    int(cfg.Generation.MaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	c.generator = generator

	store, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
		ProviderType: cfg.History.Provider,
		Target:       cfg.History.Target,
		TTL:          config.ParseDuration(cfg.History.TTL, 0),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating history store: %w", err)
	}
	c.history = store

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	c.publisher = publisher

	c.Engine, err = query.NewEngine(query.Config{
		Embedder:        embedder,
		Retriever:       retriever,
		History:         store,
		Generator:       generator,
		Publisher:       publisher,
		TopK:            int(cfg.Retrieval.TopK),
		EmbedTimeout:    config.ParseDuration(cfg.Embedding.Timeout, query.DefaultEmbedTimeout),
		RetrieveTimeout: config.ParseDuration(cfg.Retrieval.Timeout, query.DefaultRetrieveTimeout),
		GenerateTimeout: config.ParseDuration(cfg.Generation.Timeout, query.DefaultGenerateTimeout),
		HistoryTimeout:  config.ParseDuration(cfg.History.Timeout, query.DefaultHistoryTimeout),
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating query engine: %w", err)
	}

	logger.Info("query engine ready",
		"retrieval", cfg.Retrieval.Provider,
		"embedding", cfg.Embedding.Provider,
		"generation", cfg.Generation.Provider,
		"model", cfg.Generation.Model,
		"history", cfg.History.Provider,
		"events", cfg.Events.Provider,
		"top_k", cfg.Retrieval.TopK,
	)

	return c, nil
}

// Close releases every client, the publisher first so pending events are
// flushed.
func (c *Components) Close() error {
	var errs []error
	for _, closer := range []interface{ Close() error }{
		c.publisher, c.generator, c.embedder, c.history, c.retriever,
	} {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
