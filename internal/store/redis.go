package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aptitude-service/internal/models"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

var ErrConflict = errors.New("too many concurrent modifications")

// RedisStore keeps each test as a JSON document under prefix+id.
// Mutations run inside WATCH/MULTI so concurrent writers retry instead of
// overwriting each other.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Backend() string {
	return "redis"
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Save(ctx context.Context, test *models.Test) error {
	if test == nil || test.ID == "" {
		return ErrInvalidTest
	}
	doc := test.Clone()
	if doc.Responses == nil {
		doc.Responses = map[string][]models.Response{}
	}
	val, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding test %s: %w", doc.ID, err)
	}
	if err := s.client.Set(ctx, s.key(doc.ID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("error saving test %s: %w", doc.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Test, error) {
	return s.load(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, id string) (*models.Test, error) {
	raw, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading test %s: %w", id, err)
	}
	var test models.Test
	if err := json.Unmarshal(raw, &test); err != nil {
		return nil, fmt.Errorf("error decoding test %s: %w", id, err)
	}
	return &test, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, u models.TestUpdate) (*models.Test, error) {
	return s.mutate(ctx, id, func(t *models.Test) {
		t.Apply(u)
	})
}

func (s *RedisStore) AppendResponse(ctx context.Context, testID, userID string, r models.Response) error {
	_, err := s.mutate(ctx, testID, func(t *models.Test) {
		if t.Responses == nil {
			t.Responses = map[string][]models.Response{}
		}
		t.Responses[userID] = append(t.Responses[userID], r)
	})
	return err
}

func (s *RedisStore) mutate(ctx context.Context, id string, fn func(*models.Test)) (*models.Test, error) {
	key := s.key(id)
	var result *models.Test

	txf := func(tx *redis.Tx) error {
		test, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		fn(test)
		val, err := json.Marshal(test)
		if err != nil {
			return fmt.Errorf("error encoding test %s: %w", id, err)
		}
		ttl, err := tx.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = s.ttl
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, ttl)
			return nil
		})
		if err == nil {
			result = test
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("test %s: %w", id, ErrConflict)
}
