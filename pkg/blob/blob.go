package blob

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Info describes a single stored object.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage is an abstract key/value byte-blob namespace with prefix
// enumeration. Keys use "/" separators regardless of backend. Operations
// are atomic at single-key granularity; nothing stronger is guaranteed.
type Storage interface {
	// Write stores the stream under key, creating any missing intermediate
	// namespace, and returns the number of bytes written.
	Write(ctx context.Context, key string, r io.Reader) (int64, error)
	// Read opens the object for reading. The caller closes the result.
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes a single object. Deleting a missing key fails with
	// ErrNotFound.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object under a "/"-terminated prefix and
	// returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// List enumerates all objects under prefix, recursively, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Stat returns size and modification time for a single object.
	Stat(ctx context.Context, key string) (Info, error)
}

// Backend selects a Storage implementation at construction time.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// Config selects and configures the backing store. All values arrive
// explicitly; nothing is read from ambient process state at use time.
type Config struct {
	Backend Backend `env:"STORAGE_BACKEND" envDefault:"local"`

	// Local backend.
	LocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./data/projects"`

	// S3 backend.
	S3Bucket         string `env:"STORAGE_S3_BUCKET"`
	S3Region         string `env:"STORAGE_S3_REGION"`
	S3AccessKeyID    string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"STORAGE_S3_SECRET_KEY"`
	S3Endpoint       string `env:"STORAGE_S3_ENDPOINT"`         // optional, for S3-compatible services
	S3ForcePathStyle bool   `env:"STORAGE_S3_FORCE_PATH_STYLE"` // MinIO and friends
}

// New constructs the Storage implementation named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal:
		return NewLocal(cfg.LocalDir)
	case BackendS3:
		return NewS3(ctx, S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
