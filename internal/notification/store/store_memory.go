package store

import (
	"context"
	"sync"

	"casedesk/internal/notification/models"
	"casedesk/pkg/platform/sentinel"
)

// InMemory keeps notifications in process memory, one record per id.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[string]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[string]*models.Notification)}
}

func (s *InMemory) Save(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// ListByUser returns the user's notifications in no particular order.
func (s *InMemory) ListByUser(_ context.Context, userID string) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) MarkRead(_ context.Context, id string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (s *InMemory) MarkAllRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flipped := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			flipped++
		}
	}
	return flipped, nil
}

func (s *InMemory) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}
