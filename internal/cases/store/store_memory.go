package store

import (
	"context"
	"fmt"
	"sync"

	"casedesk/internal/cases/models"
	"casedesk/pkg/platform/sentinel"
)

// InMemory keeps cases in process memory. Records are stored and returned as
// deep copies; writes are compare-and-swap on Version so concurrent writers
// to the same case cannot silently overwrite each other.
type InMemory struct {
	mu    sync.RWMutex
	cases map[string]*models.Case
	order []string
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[string]*models.Case)}
}

// Create persists a new case. The case's Version is set to 1.
func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return fmt.Errorf("case %s already exists: %w", c.ID, sentinel.ErrConflict)
	}
	c.Version = 1
	s.cases[c.ID] = c.Clone()
	s.order = append(s.order, c.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID string) ([]*models.Case, error) {
	return s.List(ctx, models.Filter{OwnerID: ownerID})
}

// List returns matching cases in creation order.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Case, 0, len(s.order))
	for _, id := range s.order {
		c := s.cases[id]
		if c.Matches(filter) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Update replaces the stored case if its version still equals c.Version,
// then advances c.Version.
func (s *InMemory) Update(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != c.Version {
		return fmt.Errorf("case %s at version %d, write based on %d: %w",
			c.ID, current.Version, c.Version, sentinel.ErrConflict)
	}
	c.Version++
	s.cases[c.ID] = c.Clone()
	return nil
}
