// Package redis provides a Redis-backed history.Store. Each conversation is a
// list of JSON-encoded turns, appended with RPUSH and read back with LRANGE.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/ragline/pkg/history"
)

var _ history.Store = (*Store)(nil)

const keyPrefix = "ragline:history:"

// Store implements history.Store using Redis lists.
type Store struct {
	client *redis.Client

	// ttl refreshes the conversation key on every append when positive.
	ttl time.Duration
}

type storedTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Dial connects to target, which is either a redis:// URL or a host:port
// address, and verifies the connection with PING.
func Dial(ctx context.Context, target string, ttl time.Duration) (*Store, error) {
	if target == "" {
		return nil, errors.New("redis target is required")
	}

	opts := &redis.Options{Addr: target}
	if strings.HasPrefix(target, "redis://") || strings.HasPrefix(target, "rediss://") {
		var err error
		opts, err = redis.ParseURL(target)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewStore(client, ttl), nil
}

func conversationKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (s *Store) Get(ctx context.Context, conversationID uuid.UUID) ([]history.Turn, error) {
	raw, err := s.client.LRange(ctx, conversationKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]history.Turn, 0, len(raw))
	for _, r := range raw {
		var st storedTurn
		if err := json.Unmarshal([]byte(r), &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, history.Turn{
			ConversationID: conversationID,
			Question:       st.Question,
			Answer:         st.Answer,
			CreatedAt:      st.CreatedAt,
		})
	}

	return turns, nil
}

func (s *Store) Append(ctx context.Context, conversationID uuid.UUID, question, answer string) error {
	data, err := json.Marshal(storedTurn{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := conversationKey(conversationID)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
