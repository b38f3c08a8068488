package store

import (
	"context"
	"sync"

	"aptitude-service/internal/models"
)

type MemoryStore struct {
	mu    sync.RWMutex
	tests map[string]*models.Test
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tests: make(map[string]*models.Test)}
}

func (s *MemoryStore) Backend() string {
	return "memory"
}

func (s *MemoryStore) Save(ctx context.Context, test *models.Test) error {
	if test == nil || test.ID == "" {
		return ErrInvalidTest
	}
	c := test.Clone()
	if c.Responses == nil {
		c.Responses = map[string][]models.Response{}
	}
	s.mu.Lock()
	s.tests[c.ID] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, ErrTestNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, u models.TestUpdate) (*models.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, ErrTestNotFound
	}
	t.Apply(u)
	return t.Clone(), nil
}

func (s *MemoryStore) AppendResponse(ctx context.Context, testID, userID string, r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[testID]
	if !ok {
		return ErrTestNotFound
	}
	if t.Responses == nil {
		t.Responses = map[string][]models.Response{}
	}
	t.Responses[userID] = append(t.Responses[userID], r)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tests)
}
