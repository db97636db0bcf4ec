package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"casedesk/internal/cases/models"
	"casedesk/pkg/platform/sentinel"
	txcontext "casedesk/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var caseColumns = []string{
	"id", "owner_id", "type_name", "description", "status",
	"assignee", "version", "created_at", "updated_at",
}

// PostgresStore persists cases across three tables: cases, case_documents and
// the append-only case_history. Updates are compare-and-swap on cases.version.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

type caseRow struct {
	ID          string         `db:"id"`
	OwnerID     string         `db:"owner_id"`
	TypeName    string         `db:"type_name"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	Assignee    sql.NullString `db:"assignee"`
	Version     int64          `db:"version"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type documentRow struct {
	ID           string    `db:"id"`
	CaseID       string    `db:"case_id"`
	Position     int       `db:"position"`
	Name         string    `db:"name"`
	Reference    string    `db:"reference"`
	DocumentType string    `db:"document_type"`
	Status       string    `db:"status"`
	Comment      string    `db:"comment"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

type historyRow struct {
	ID         string    `db:"id"`
	CaseID     string    `db:"case_id"`
	Seq        int       `db:"seq"`
	OccurredAt time.Time `db:"occurred_at"`
	Status     string    `db:"status"`
	Comment    string    `db:"comment"`
	ActorID    string    `db:"actor_id"`
}

// Create inserts the case with its documents and seed history in one transaction.
func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO cases (id, owner_id, type_name, description, status, assignee, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`,
			c.ID, c.OwnerID, c.TypeName, c.Description, string(c.Status),
			nullString(c.Assignee), c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("case %s already exists: %w", c.ID, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert case: %w", err)
		}
		if err := s.upsertDocuments(ctx, c); err != nil {
			return err
		}
		if err := s.insertHistory(ctx, c, 0); err != nil {
			return err
		}
		c.Version = 1
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Case, error) {
	query, args, err := psql.Select(caseColumns...).From("cases").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find case query: %w", err)
	}
	var row caseRow
	if err := sqlscan.Get(ctx, s.execer(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find case by id: %w", err)
	}
	cases, err := s.hydrate(ctx, []caseRow{row})
	if err != nil {
		return nil, err
	}
	return cases[0], nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Case, error) {
	return s.List(ctx, models.Filter{OwnerID: ownerID})
}

// List returns matching cases ordered by creation time.
func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Case, error) {
	q := psql.Select(caseColumns...).From("cases").OrderBy("created_at", "id")
	if filter.OwnerID != "" {
		q = q.Where(squirrel.Eq{"owner_id": filter.OwnerID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status = ANY(?)", pq.Array(statuses))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"id": pattern},
			squirrel.ILike{"type_name": pattern},
			squirrel.ILike{"owner_id": pattern},
		})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list cases query: %w", err)
	}
	var rows []caseRow
	if err := sqlscan.Select(ctx, s.execer(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return s.hydrate(ctx, rows)
}

// Update writes c if the stored version still equals c.Version. Documents are
// upserted and history entries beyond those already stored are inserted.
func (s *PostgresStore) Update(ctx context.Context, c *models.Case) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := s.execer(ctx).ExecContext(ctx, `
			UPDATE cases
			SET description = $1, status = $2, assignee = $3, updated_at = $4, version = version + 1
			WHERE id = $5 AND version = $6`,
			c.Description, string(c.Status), nullString(c.Assignee), c.UpdatedAt, c.ID, c.Version,
		)
		if err != nil {
			return fmt.Errorf("update case: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update case rows affected: %w", err)
		}
		if affected == 0 {
			return s.missOrConflict(ctx, c.ID)
		}

		var stored int
		if err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT COUNT(*) FROM case_history WHERE case_id = $1`, c.ID,
		).Scan(&stored); err != nil {
			return fmt.Errorf("count case history: %w", err)
		}
		if stored > len(c.History) {
			return fmt.Errorf("case %s history would shrink from %d to %d: %w",
				c.ID, stored, len(c.History), sentinel.ErrInvalidState)
		}
		if err := s.upsertDocuments(ctx, c); err != nil {
			return err
		}
		if err := s.insertHistory(ctx, c, stored); err != nil {
			return err
		}
		c.Version++
		return nil
	})
}

func (s *PostgresStore) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check case existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("case %s: %w", id, sentinel.ErrConflict)
}

func (s *PostgresStore) upsertDocuments(ctx context.Context, c *models.Case) error {
	for i, d := range c.Documents {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO case_documents (id, case_id, position, name, reference, document_type, status, comment, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, comment = EXCLUDED.comment`,
			d.ID, c.ID, i, d.Name, d.Reference, d.DocumentType, string(d.Status), d.Comment, d.UploadedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) insertHistory(ctx context.Context, c *models.Case, from int) error {
	for seq := from; seq < len(c.History); seq++ {
		h := c.History[seq]
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO case_history (id, case_id, seq, occurred_at, status, comment, actor_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			h.ID, c.ID, seq, h.Timestamp, h.Status, h.Comment, h.ActorID,
		)
		if err != nil {
			return fmt.Errorf("insert history entry %s: %w", h.ID, err)
		}
	}
	return nil
}

// hydrate loads documents and history for rows, preserving row order.
func (s *PostgresStore) hydrate(ctx context.Context, rows []caseRow) ([]*models.Case, error) {
	if len(rows) == 0 {
		return []*models.Case{}, nil
	}
	ids := make([]string, len(rows))
	byID := make(map[string]*models.Case, len(rows))
	out := make([]*models.Case, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		out[i] = toCase(r)
		byID[r.ID] = out[i]
	}

	var docs []documentRow
	if err := sqlscan.Select(ctx, s.execer(ctx), &docs, `
		SELECT id, case_id, position, name, reference, document_type, status, comment, uploaded_at
		FROM case_documents WHERE case_id = ANY($1) ORDER BY case_id, position`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("load case documents: %w", err)
	}
	for _, d := range docs {
		c := byID[d.CaseID]
		c.Documents = append(c.Documents, models.Document{
			ID:           d.ID,
			Name:         d.Name,
			Reference:    d.Reference,
			DocumentType: d.DocumentType,
			Status:       models.DocumentStatus(d.Status),
			UploadedAt:   d.UploadedAt,
			Comment:      d.Comment,
		})
	}

	var history []historyRow
	if err := sqlscan.Select(ctx, s.execer(ctx), &history, `
		SELECT id, case_id, seq, occurred_at, status, comment, actor_id
		FROM case_history WHERE case_id = ANY($1) ORDER BY case_id, seq`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("load case history: %w", err)
	}
	for _, h := range history {
		c := byID[h.CaseID]
		c.History = append(c.History, models.HistoryEntry{
			ID:        h.ID,
			CaseID:    h.CaseID,
			Timestamp: h.OccurredAt,
			Status:    h.Status,
			Comment:   h.Comment,
			ActorID:   h.ActorID,
		})
	}
	return out, nil
}

func toCase(r caseRow) *models.Case {
	c := &models.Case{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		TypeName:    r.TypeName,
		Description: r.Description,
		Status:      models.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Documents:   []models.Document{},
		History:     []models.HistoryEntry{},
		Version:     r.Version,
	}
	if r.Assignee.Valid {
		assignee := r.Assignee.String
		c.Assignee = &assignee
	}
	return c
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
