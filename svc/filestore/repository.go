package filestore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is the aggregate this core keeps bookkeeping for. The record
// itself is owned externally; only StorageBytes and Filename are mutated
// here.
type Project struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	// Filename is the relative path of the QGIS project file, empty when
	// none has been uploaded yet.
	Filename string
	// StorageBytes is the sum of the sizes of the latest versions only,
	// recomputed from storage after every structural change.
	StorageBytes int64
	// AttachmentDirs are project-relative directory prefixes whose files
	// are treated as attachments.
	AttachmentDirs []string
}

// AttachmentDirPrefix returns the attachment dir the filename belongs to,
// or the empty string if it matches none.
func (p Project) AttachmentDirPrefix(filename string) string {
	for _, dir := range p.AttachmentDirs {
		if strings.HasPrefix(filename, dir) {
			return dir
		}
	}
	return ""
}

// ProjectRepository persists project bookkeeping fields. Implementations
// back onto whatever persistence the host application uses; the core only
// depends on this interface.
type ProjectRepository interface {
	Get(ctx context.Context, id uuid.UUID) (Project, error)
	// SaveStorageBytes persists the recomputed stored-bytes total.
	SaveStorageBytes(ctx context.Context, id uuid.UUID, total int64) error
	// SaveFilename persists the project file name; empty clears it.
	SaveFilename(ctx context.Context, id uuid.UUID, filename string) error
}

// FieldChange records an audited before/after pair. Nil means absent, so a
// permanent deletion is (old digest -> nil).
type FieldChange struct {
	Old *string
	New *string
}

// AuditEntry is one audit-log record.
type AuditEntry struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Action    string
	Changes   map[string]FieldChange
	CreatedAt time.Time
}

// Audit actions used by this core.
const (
	AuditActionDelete = "delete"
)

// AuditLog records audit entries alongside the bookkeeping they describe.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Tx exposes transaction-scoped bookkeeping ports.
type Tx interface {
	Projects() ProjectRepository
	Audit() AuditLog
}

// TxRunner runs fn inside one transaction. If fn returns an error, no
// bookkeeping written through the Tx is committed. Blob deletions are
// irreversible either way, which is why every deletion is validated before
// fn touches the backing store.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
