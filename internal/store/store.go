// Package store holds the application state that outlives a single request:
// the last scanned product with its recent history, and the user's preferences.
// Each container loads its document once at startup and writes it back on every
// mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/franckalain/eatsmarty/internal/database"
)

// Persister stores opaque documents by key
type Persister interface {
	LoadDocument(ctx context.Context, key string) ([]byte, error)
	SaveDocument(ctx context.Context, key string, body []byte) error
}

var _ Persister = (*database.SQLiteDB)(nil)

// loadJSON decodes the document under key into v. It reports false when no
// document exists.
func loadJSON(ctx context.Context, p Persister, key string, v any) (bool, error) {
	body, err := p.LoadDocument(ctx, key)
	if errors.Is(err, database.ErrNoDocument) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, p Persister, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := p.SaveDocument(ctx, key, body); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// subscribers is a set of change listeners
type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers[T]) notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
