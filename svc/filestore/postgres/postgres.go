package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocloudhq/fieldstore/pkg/pg"
	"github.com/geocloudhq/fieldstore/svc/filestore"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code serves both pooled and transactional access.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProjectRepository persists project bookkeeping in the projects table.
type ProjectRepository struct {
	db querier
}

// NewProjectRepository returns a repository backed by the pool.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (filestore.Project, error) {
	const query = `
		SELECT id, owner_id, filename, storage_bytes, attachment_dirs
		FROM projects
		WHERE id = $1`

	var p filestore.Project
	err := r.db.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.OwnerID, &p.Filename, &p.StorageBytes, &p.AttachmentDirs)
	if pg.IsNotFoundError(err) {
		return filestore.Project{}, fmt.Errorf("%w: project %s", filestore.ErrNotFound, id)
	}
	if err != nil {
		return filestore.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

func (r *ProjectRepository) SaveStorageBytes(ctx context.Context, id uuid.UUID, total int64) error {
	return r.update(ctx, id,
		`UPDATE projects SET storage_bytes = $2 WHERE id = $1`, total)
}

func (r *ProjectRepository) SaveFilename(ctx context.Context, id uuid.UUID, filename string) error {
	return r.update(ctx, id,
		`UPDATE projects SET filename = $2 WHERE id = $1`, filename)
}

func (r *ProjectRepository) update(ctx context.Context, id uuid.UUID, query string, arg any) error {
	tag, err := r.db.Exec(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("update project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s", filestore.ErrNotFound, id)
	}
	return nil
}

// AuditLog appends audit entries to the audit_log table. Changes are
// stored as a jsonb object mapping the changed field to an [old, new]
// pair, null marking absence.
type AuditLog struct {
	db querier
}

// NewAuditLog returns an audit log backed by the pool.
func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{db: pool}
}

func (l *AuditLog) Record(ctx context.Context, entry filestore.AuditEntry) error {
	changes := make(map[string][2]*string, len(entry.Changes))
	for field, change := range entry.Changes {
		changes[field] = [2]*string{change.Old, change.New}
	}
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}

	const query = `
		INSERT INTO audit_log (id, project_id, action, changes, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := l.db.Exec(ctx, query,
		entry.ID, entry.ProjectID, entry.Action, payload, entry.CreatedAt); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// TxManager runs bookkeeping transactions on a pgx pool. The transaction
// commits only when the callback returns nil.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager returns a TxRunner backed by the pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx filestore.Tx) error) error {
	return pgx.BeginFunc(ctx, m.pool, func(pgtx pgx.Tx) error {
		return fn(ctx, txPorts{tx: pgtx})
	})
}

// txPorts exposes the repositories re-bound to one open transaction.
type txPorts struct {
	tx pgx.Tx
}

func (t txPorts) Projects() filestore.ProjectRepository { return &ProjectRepository{db: t.tx} }
func (t txPorts) Audit() filestore.AuditLog             { return &AuditLog{db: t.tx} }
