package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "coursespaces:doc:"

// RedisDocumentStore keeps each document under a single Redis key. SET is
// atomic on the server side; Update cycles are additionally serialised with
// a per-document mutex so concurrent writers in this process cannot
// interleave GET and SET.
type RedisDocumentStore struct {
	client *redis.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRedisDocumentStore wraps an already-connected client.
func NewRedisDocumentStore(client *redis.Client) *RedisDocumentStore {
	return &RedisDocumentStore{
		client: client,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Load reads the named document, returning (nil, nil) when it does not exist.
func (s *RedisDocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return raw, nil
}

// Save replaces the named document.
func (s *RedisDocumentStore) Save(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}

// Update applies transform to the document while holding its lock.
func (s *RedisDocumentStore) Update(ctx context.Context, name string, transform func(raw []byte) ([]byte, error)) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	raw, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	next, err := transform(raw)
	if err != nil {
		return err
	}
	return s.Save(ctx, name, next)
}

func (s *RedisDocumentStore) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}
