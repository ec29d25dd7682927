// Package cache keeps upstream API responses for a bounded time so repeated
// reads of the same day's content do not hit the rate-limited APIs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketResponses = []byte("responses")

type entry struct {
	ExpiresAt time.Time `json:"expires_at"`
	Body      []byte    `json:"body"`
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is a TTL cache of raw response bodies. With a file path it persists
// to BoltDB; without one it lives in memory only.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	memory map[string]entry
}

// Open opens the cache at path, creating parent directories as needed. An
// empty path gives a memory-only store.
func Open(path string, ttl time.Duration) (*Store, error) {
	s := &Store{ttl: ttl, now: time.Now, memory: make(map[string]entry)}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	s.db = db
	return s, nil
}

// Close releases the underlying database, if any.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the body stored under key if it has not expired.
func (s *Store) Get(key string) ([]byte, bool) {
	now := s.now()

	s.mu.RLock()
	e, ok := s.memory[key]
	s.mu.RUnlock()
	if ok {
		if e.expired(now) {
			return nil, false
		}
		return e.Body, true
	}

	if s.db == nil {
		return nil, false
	}

	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketResponses).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}
	if err := json.Unmarshal(data, &e); err != nil || e.expired(now) {
		return nil, false
	}

	// Promote to memory
	s.mu.Lock()
	s.memory[key] = e
	s.mu.Unlock()

	return e.Body, true
}

// Set stores body under key for the store's TTL.
func (s *Store) Set(key string, body []byte) error {
	e := entry{ExpiresAt: s.now().Add(s.ttl), Body: body}

	s.mu.Lock()
	s.memory[key] = e
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Put([]byte(key), data)
	})
}

// Len reports the number of entries held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}

// Prune removes expired entries and returns how many were deleted from the
// persistent store, or from memory when there is none.
func (s *Store) Prune() (int, error) {
	now := s.now()

	s.mu.Lock()
	memDeleted := 0
	for k, e := range s.memory {
		if e.expired(now) {
			delete(s.memory, k)
			memDeleted++
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return memDeleted, nil
	}

	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil || e.expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune responses: %w", err)
	}
	return deleted, nil
}

// StartPruneJob runs Prune on every tick until ctx is cancelled.
func (s *Store) StartPruneJob(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Prune()
			if err != nil {
				logger.Error("failed to prune response cache", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("pruned response cache", "deleted", deleted)
			}
		}
	}
}
