package filestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory ProjectRepository, AuditLog and TxRunner. It
// backs single-process deployments and tests; anything multi-instance
// uses the postgres implementations instead.
type MemStore struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]Project
	entries  []AuditEntry
}

// NewMemStore creates the store pre-seeded with the given projects.
func NewMemStore(projects ...Project) *MemStore {
	m := &MemStore{projects: make(map[uuid.UUID]Project, len(projects))}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

// AddProject inserts or replaces a project record.
func (m *MemStore) AddProject(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *MemStore) Get(_ context.Context, id uuid.UUID) (Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	return p, nil
}

func (m *MemStore) SaveStorageBytes(ctx context.Context, id uuid.UUID, total int64) error {
	return m.update(ctx, id, func(p *Project) { p.StorageBytes = total })
}

func (m *MemStore) SaveFilename(ctx context.Context, id uuid.UUID, filename string) error {
	return m.update(ctx, id, func(p *Project) { p.Filename = filename })
}

func (m *MemStore) update(_ context.Context, id uuid.UUID, apply func(*Project)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	apply(&p)
	m.projects[id] = p
	return nil
}

func (m *MemStore) Record(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// AuditEntries returns a copy of all recorded entries, in insertion order.
func (m *MemStore) AuditEntries() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// WithinTx stages all writes made through the Tx and applies them
// atomically when fn succeeds. If fn errors, nothing is applied.
func (m *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{store: m, staged: make(map[uuid.UUID]Project)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range tx.staged {
		m.projects[id] = p
	}
	m.entries = append(m.entries, tx.entries...)
	return nil
}

// memTx buffers writes until commit. Reads see the transaction's own
// staged state first.
type memTx struct {
	store   *MemStore
	staged  map[uuid.UUID]Project
	entries []AuditEntry
}

func (t *memTx) Projects() ProjectRepository { return t }
func (t *memTx) Audit() AuditLog             { return t }

func (t *memTx) Get(ctx context.Context, id uuid.UUID) (Project, error) {
	if p, ok := t.staged[id]; ok {
		return p, nil
	}
	return t.store.Get(ctx, id)
}

func (t *memTx) SaveStorageBytes(ctx context.Context, id uuid.UUID, total int64) error {
	return t.stage(ctx, id, func(p *Project) { p.StorageBytes = total })
}

func (t *memTx) SaveFilename(ctx context.Context, id uuid.UUID, filename string) error {
	return t.stage(ctx, id, func(p *Project) { p.Filename = filename })
}

func (t *memTx) stage(ctx context.Context, id uuid.UUID, apply func(*Project)) error {
	p, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	apply(&p)
	t.staged[id] = p
	return nil
}

func (t *memTx) Record(_ context.Context, entry AuditEntry) error {
	t.entries = append(t.entries, entry)
	return nil
}
