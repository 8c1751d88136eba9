package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/inmemory"
	"github.com/papercomputeco/ragline/pkg/vector/pgvector"
	"github.com/papercomputeco/ragline/pkg/vector/qdrant"
	"github.com/papercomputeco/ragline/pkg/vector/sqlitevec"
)

type NewRetrieverOpts struct {
	ProviderType string
	Target       string
	Table        string
	Collection   string
	APIKey       string
	Dimensions   uint
	Logger       *slog.Logger
}

// NewRetriever constructs the configured document store.
func NewRetriever(ctx context.Context, o *NewRetrieverOpts) (vector.Retriever, error) {
	switch o.ProviderType {
	case "pgvector", "postgres":
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.Target,
			Table:      o.Table,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case "sqlite", "sqlitevec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Addr:       o.Target,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case "memory", "inmemory":
		return inmemory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported retrieval provider: %s", o.ProviderType)
	}
}
