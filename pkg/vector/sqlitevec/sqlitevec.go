// Package sqlitevec provides a SQLite-backed vector.Retriever using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/ragline/pkg/vector"
)

var (
	_ vector.Retriever = (*SQLiteVecDriver)(nil)
	_ vector.Lister    = (*SQLiteVecDriver)(nil)
	_ vector.Writer    = (*SQLiteVecDriver)(nil)
)

// SQLiteVecDriver stores chunk text and metadata in a mapping table and the
// embeddings in a cosine vec0 virtual table.
type SQLiteVecDriver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *slog.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", vector.ErrConnection, err)
	}

	// Every pooled connection to ":memory:" would get its own database.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so chunk ids, text and
	// metadata live in a mapping table keyed by the same rowid.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec retriever initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func (d *SQLiteVecDriver) checkDimensions(v []float32) error {
	if uint(len(v)) != d.dimensions {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(v), d.dimensions)
	}
	return nil
}

// Add stores chunks with their embeddings.
// If a chunk with the same ID already exists, it is replaced.
func (d *SQLiteVecDriver) Add(ctx context.Context, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		if err := d.checkDimensions(c.Embedding); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}

		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for chunk %s: %w", c.ID, err)
		}
		if c.Metadata == nil {
			meta = []byte("{}")
		}

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, c.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET content = ?, metadata = ? WHERE rowid = ?`,
				c.Content, string(meta), rowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", c.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", c.ID, err)
			}

		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(chunk_id, content, metadata) VALUES (?, ?, ?)`,
				c.ID, c.Content, string(meta),
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
			}

			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", c.ID, err)
			}

		default:
			return fmt.Errorf("checking for existing chunk %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(c.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added chunks to sqlite-vec", "count", len(chunks))

	return nil
}

// maxKNN is the largest k a vec0 KNN query accepts.
const maxKNN = 4096

// Retrieve runs a KNN query against the vec0 table. sqlite-vec reports cosine
// distance, so similarity is 1 - distance.
//
// vec0 cuts at k without regard to chunk id, so chunks tied at the k-th
// distance may be dropped arbitrarily. The query is widened until the
// candidate set extends past the boundary, then vector.Rank applies the
// ordering and the cut.
func (d *SQLiteVecDriver) Retrieve(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}
	if err := d.checkDimensions(query); err != nil {
		return nil, err
	}

	blob := serializeFloat32(query)
	fetch := k + 1
	if k >= maxKNN {
		fetch = k
	}

	for {
		results, err := d.knn(ctx, blob, fetch)
		if err != nil {
			return nil, err
		}

		if len(results) < fetch || len(results) <= k ||
			results[fetch-1].Similarity < results[k-1].Similarity ||
			fetch >= maxKNN {
			d.logger.Debug("queried sqlite-vec", "results", len(results), "candidates", fetch)
			return vector.Rank(results, k), nil
		}

		fetch = min(fetch*2, maxKNN)
	}
}

// knn returns the n nearest chunks ordered by distance.
func (d *SQLiteVecDriver) knn(ctx context.Context, blob []byte, n int) ([]vector.Result, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.content,
			c.metadata,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance, c.chunk_id
	`, blob, n)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := make([]vector.Result, 0, n)
	for rows.Next() {
		var (
			r        vector.Result
			meta     string
			distance float64
		)
		if err := rows.Scan(&r.ChunkID, &r.Content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		if r.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.ChunkID, err)
		}
		r.Similarity = 1 - distance

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	return results, nil
}

// List pages through chunks in insertion order.
func (d *SQLiteVecDriver) List(ctx context.Context, offset, limit int) ([]vector.Chunk, error) {
	if limit <= 0 {
		return []vector.Chunk{}, nil
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT rowid, chunk_id, content, metadata
		FROM vec_chunks
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	// Collect rows first so the cursor is closed before the embedding
	// lookups (the pool holds a single connection).
	type chunkRow struct {
		rowID int64
		chunk vector.Chunk
	}
	var chunkRows []chunkRow

	for rows.Next() {
		var (
			cr   chunkRow
			meta string
		)
		if err := rows.Scan(&cr.rowID, &cr.chunk.ID, &cr.chunk.Content, &meta); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if cr.chunk.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", cr.chunk.ID, err)
		}
		chunkRows = append(chunkRows, cr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	rows.Close()

	chunks := make([]vector.Chunk, 0, len(chunkRows))
	for _, cr := range chunkRows {
		var blob []byte
		err := d.db.QueryRowContext(ctx,
			`SELECT embedding FROM vec_embeddings WHERE rowid = ?`, cr.rowID,
		).Scan(&blob)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reading embedding for chunk %s: %w", cr.chunk.ID, err)
		}
		if len(blob) > 0 {
			if cr.chunk.Embedding, err = deserializeFloat32(blob); err != nil {
				return nil, fmt.Errorf("chunk %s: %w", cr.chunk.ID, err)
			}
		}
		chunks = append(chunks, cr.chunk)
	}

	return chunks, nil
}

func decodeMetadata(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" || raw == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}
