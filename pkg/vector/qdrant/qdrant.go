// Package qdrant provides a vector.Retriever backed by a Qdrant collection
// configured with cosine distance.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/ragline/pkg/vector"
)

var (
	_ vector.Retriever = (*Driver)(nil)
	_ vector.Writer    = (*Driver)(nil)
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// DefaultCollection is used when Config.Collection is empty.
	DefaultCollection = "documents"

	contentKey = "content"
	chunkIDKey = "chunk_id"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Addr is "host" or "host:port" of the gRPC endpoint.
	Addr string

	APIKey string
	UseTLS bool

	// Collection holds the chunk points. The payload carries the chunk text
	// under "content" and the original chunk id under "chunk_id".
	Collection string

	// Dimensions is used by EnsureCollection.
	Dimensions uint
}

// Driver queries a Qdrant collection.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver creates a Qdrant gRPC client.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Addr == "" {
		return nil, errors.New("qdrant address is required")
	}

	host, port, err := splitAddr(c.Addr)
	if err != nil {
		return nil, err
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	logger.Info("qdrant retriever initialized",
		"host", host,
		"port", port,
		"collection", collection,
	)

	return &Driver{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port given
		return addr, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}

	return host, port, nil
}

// EnsureCollection creates the cosine collection if it does not exist.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	if d.dimensions == 0 {
		return errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", d.collection, err)
	}

	return nil
}

// Retrieve runs a nearest-neighbor query. Qdrant scores cosine collections by
// similarity directly.
func (d *Driver) Retrieve(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	results := make([]vector.Result, 0, len(points))
	for _, p := range points {
		results = append(results, toResult(p))
	}

	d.logger.Debug("queried qdrant", "results", len(results))

	return vector.Rank(results, k), nil
}

func toResult(p *qdrant.ScoredPoint) vector.Result {
	payload := make(map[string]any, len(p.GetPayload()))
	for k, v := range p.GetPayload() {
		payload[k] = valueToAny(v)
	}

	r := vector.Result{
		ChunkID:    pointIDString(p.GetId()),
		Similarity: float64(p.GetScore()),
	}

	if s, ok := payload[contentKey].(string); ok {
		r.Content = s
	}
	if s, ok := payload[chunkIDKey].(string); ok && s != "" {
		r.ChunkID = s
	}

	delete(payload, contentKey)
	delete(payload, chunkIDKey)
	if len(payload) > 0 {
		r.Metadata = payload
	}

	return r
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}

	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.GetFields()))
		for key, f := range k.StructValue.GetFields() {
			out[key] = valueToAny(f)
		}
		return out
	case *qdrant.Value_ListValue:
		values := k.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}

// PointID maps a chunk id onto a Qdrant point id. UUID chunk ids are used as
// is; anything else gets a stable name-based UUID.
func PointID(chunkID string) string {
	if u, err := uuid.Parse(chunkID); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragline:chunk:"+chunkID)).String()
}

// Add upserts chunks as points.
func (d *Driver) Add(ctx context.Context, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		fields := maps.Clone(c.Metadata)
		if fields == nil {
			fields = map[string]any{}
		}
		fields[contentKey] = c.Content
		fields[chunkIDKey] = c.ID

		payload, err := qdrant.TryValueMap(fields)
		if err != nil {
			return fmt.Errorf("encoding payload for chunk %s: %w", c.ID, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: payload,
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
