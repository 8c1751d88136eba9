package historyutils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/ragline/pkg/history"
	"github.com/papercomputeco/ragline/pkg/history/inmemory"
	"github.com/papercomputeco/ragline/pkg/history/postgres"
	"github.com/papercomputeco/ragline/pkg/history/redis"
)

type NewStoreOpts struct {
	ProviderType string
	Target       string
	TTL          time.Duration
	Logger       *slog.Logger
}

// NewStore constructs the configured history store. The postgres store has
// its schema created before it is returned.
func NewStore(ctx context.Context, o *NewStoreOpts) (history.Store, error) {
	switch o.ProviderType {
	case "postgres", "postgresql":
		d, err := postgres.NewDriver(ctx, o.Target, o.Logger)
		if err != nil {
			return nil, err
		}
		if err := d.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, err
		}
		return d, nil

	case "redis":
		return redis.Dial(ctx, o.Target, o.TTL)

	case "memory", "inmemory":
		return inmemory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported history provider: %s", o.ProviderType)
	}
}
