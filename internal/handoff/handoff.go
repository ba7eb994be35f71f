// Package handoff keeps the latest structured result per kiosk so the
// narration layer can pick it up after a scan. Entries expire; nothing here
// outlives a visit.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL is how long a result stays available.
const TTL = 10 * time.Minute

var ErrNotFound = errors.New("handoff: no result for kiosk")

// Entry is what a kiosk published last.
type Entry struct {
	Mode      string          `json:"mode"`
	ProductID string          `json:"product_id"`
	Result    json.RawMessage `json:"result"`
	At        time.Time       `json:"at"`
}

// Store should be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, kiosk string, e Entry) error
	Latest(ctx context.Context, kiosk string) (Entry, error)
}

// ------------------------------------------------------------------------------

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, kiosk string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kiosk] = memoryEntry{entry: e, expires: s.now().Add(TTL)}
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, kiosk string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	me, ok := s.entries[kiosk]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if s.now().After(me.expires) {
		delete(s.entries, kiosk)
		return Entry{}, ErrNotFound
	}
	return me.entry, nil
}

// ------------------------------------------------------------------------------

type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to url (redis://host:port/db) and checks the server.
func NewRedisStore(ctx context.Context, url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, namespace: namespace}, nil
}

func createKey(namespace, kiosk string) string {
	return fmt.Sprintf("%s:result:%s", namespace, kiosk)
}

func (s *RedisStore) Put(ctx context.Context, kiosk string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, createKey(s.namespace, kiosk), data, TTL).Err()
}

func (s *RedisStore) Latest(ctx context.Context, kiosk string) (Entry, error) {
	data, err := s.client.Get(ctx, createKey(s.namespace, kiosk)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("corrupt handoff entry: %w", err)
	}
	return e, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
