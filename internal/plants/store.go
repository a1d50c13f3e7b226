// Package plants stores the latest moisture reading reported for each plant.
package plants

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/couchcryptid/crop-water-service/internal/domain"
)

// ErrNotFound is returned by Get for an unknown plant id.
var ErrNotFound = errors.New("plant not found")

// Store keeps one reading per plant id. A Put replaces the previous reading.
type Store interface {
	Get(ctx context.Context, id string) (domain.PlantReading, error)
	Put(ctx context.Context, id string, reading domain.PlantReading) error
	List(ctx context.Context) (map[string]domain.PlantReading, error)
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	readings map[string]domain.PlantReading
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{readings: make(map[string]domain.PlantReading)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.PlantReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.readings[id]
	if !ok {
		return domain.PlantReading{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) Put(_ context.Context, id string, reading domain.PlantReading) error {
	if id == "" {
		return errors.New("plant id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[id] = reading
	return nil
}

// List returns a snapshot; callers may modify it freely.
func (s *MemoryStore) List(_ context.Context) (map[string]domain.PlantReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.readings), nil
}
