package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casedesk/internal/cases/models"
	"casedesk/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newTestCase(ownerID string, status models.Status) *models.Case {
	now := time.Now()
	c := &models.Case{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		TypeName:  "Permit",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
		Documents: []models.Document{},
	}
	c.AppendHistory(models.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Status:    string(models.StatusInitiated),
		Comment:   "case initiated",
		ActorID:   ownerID,
	})
	return c
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	s.Run("assigns version 1 and returns copies", func() {
		c := newTestCase("u1", models.StatusInitiated)
		s.Require().NoError(s.store.Create(s.ctx, c))
		s.Equal(int64(1), c.Version)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.ID, found.ID)
		s.Len(found.History, 1)

		found.History = append(found.History, models.HistoryEntry{ID: "mutated"})
		again, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Len(again.History, 1, "caller mutation must not leak into the store")
	})

	s.Run("rejects duplicate id", func() {
		c := newTestCase("u1", models.StatusInitiated)
		s.Require().NoError(s.store.Create(s.ctx, c))
		s.Require().ErrorIs(s.store.Create(s.ctx, c.Clone()), sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestList() {
	first := newTestCase("u1", models.StatusInitiated)
	second := newTestCase("u2", models.StatusInReview)
	third := newTestCase("u1", models.StatusApproved)
	for _, c := range []*models.Case{first, second, third} {
		s.Require().NoError(s.store.Create(s.ctx, c))
	}

	s.Run("by owner keeps creation order", func() {
		got, err := s.store.ListByOwner(s.ctx, "u1")
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(first.ID, got[0].ID)
		s.Equal(third.ID, got[1].ID)
	})

	s.Run("unknown owner yields empty slice", func() {
		got, err := s.store.ListByOwner(s.ctx, "nobody")
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})

	s.Run("filters by status", func() {
		got, err := s.store.List(s.ctx, models.Filter{
			Statuses: []models.Status{models.StatusInReview, models.StatusApproved},
		})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("search matches owner case-insensitively", func() {
		got, err := s.store.List(s.ctx, models.Filter{Search: "U2"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(second.ID, got[0].ID)
	})
}

func (s *InMemoryStoreSuite) TestUpdateCompareAndSwap() {
	s.Run("advances version on success", func() {
		c := newTestCase("u1", models.StatusInitiated)
		s.Require().NoError(s.store.Create(s.ctx, c))

		c.Status = models.StatusInReview
		s.Require().NoError(s.store.Update(s.ctx, c))
		s.Equal(int64(2), c.Version)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusInReview, found.Status)
		s.Equal(int64(2), found.Version)
	})

	s.Run("stale write is rejected", func() {
		c := newTestCase("u1", models.StatusInitiated)
		s.Require().NoError(s.store.Create(s.ctx, c))

		a, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		b, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)

		a.Status = models.StatusInReview
		s.Require().NoError(s.store.Update(s.ctx, a))

		b.Status = models.StatusRejected
		s.Require().ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrConflict)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusInReview, found.Status)
	})

	s.Run("unknown case", func() {
		c := newTestCase("u1", models.StatusInitiated)
		s.Require().ErrorIs(s.store.Update(s.ctx, c), sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentWritersSameVersion() {
	c := newTestCase("u1", models.StatusInitiated)
	s.Require().NoError(s.store.Create(s.ctx, c))

	const writers = 20
	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := c.Clone()
			w.Status = models.StatusInReview
			if err := s.store.Update(s.ctx, w); err == nil {
				ok.Add(1)
			} else {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load(), "exactly one writer based on version 1 wins")
	s.Equal(int32(writers-1), conflicts.Load())
}
