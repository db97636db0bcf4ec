//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"casedesk/internal/cases/models"
	"casedesk/internal/cases/store"
	"casedesk/pkg/platform/sentinel"
	"casedesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "case_history", "case_documents", "cases")
	s.Require().NoError(err)
}

func newPersistedCase(ownerID string) *models.Case {
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &models.Case{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		TypeName:  "Permit",
		Status:    models.StatusInitiated,
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

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	c := newPersistedCase("u1")
	s.Require().NoError(s.store.Create(ctx, c))

	now := time.Now().UTC().Truncate(time.Microsecond)
	c.Documents = append(c.Documents, models.Document{
		ID:           uuid.NewString(),
		Name:         "form.pdf",
		Reference:    "ref-1",
		DocumentType: "application_form",
		Status:       models.DocumentPending,
		UploadedAt:   now,
	})
	c.Status = models.StatusDocumentsUploaded
	c.UpdatedAt = now
	c.AppendHistory(models.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Status:    string(models.StatusDocumentsUploaded),
		Comment:   "documents uploaded by applicant",
		ActorID:   "u1",
	})
	s.Require().NoError(s.store.Update(ctx, c))
	s.Equal(int64(2), c.Version)

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDocumentsUploaded, found.Status)
	s.Equal(int64(2), found.Version)
	s.Require().Len(found.Documents, 1)
	s.Equal("form.pdf", found.Documents[0].Name)
	s.Require().Len(found.History, 2)
	s.Equal(string(models.StatusInitiated), found.History[0].Status)
	s.Equal(string(models.StatusDocumentsUploaded), found.History[1].Status)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(context.Background(), uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Update(context.Background(), newPersistedCase("u1"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	a := newPersistedCase("u1")
	b := newPersistedCase("u2")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	b.Status = models.StatusInReview
	s.Require().NoError(s.store.Update(ctx, b))

	owned, err := s.store.ListByOwner(ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(owned, 1)
	s.Equal(a.ID, owned[0].ID)

	reviewing, err := s.store.List(ctx, models.Filter{Statuses: []models.Status{models.StatusInReview}})
	s.Require().NoError(err)
	s.Require().Len(reviewing, 1)
	s.Equal(b.ID, reviewing[0].ID)

	none, err := s.store.ListByOwner(ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestConcurrentUpdatesSameVersion() {
	ctx := context.Background()
	c := newPersistedCase("u1")
	s.Require().NoError(s.store.Create(ctx, c))

	const writers = 10
	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := c.Clone()
			w.Status = models.StatusInReview
			w.AppendHistory(models.HistoryEntry{
				ID:        uuid.NewString(),
				Timestamp: time.Now().UTC(),
				Status:    string(models.StatusInReview),
				ActorID:   "staff",
			})
			switch err := s.store.Update(ctx, w); {
			case err == nil:
				ok.Add(1)
			default:
				s.ErrorIs(err, sentinel.ErrConflict)
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(writers-1), conflicts.Load())

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Len(found.History, 2)
}
