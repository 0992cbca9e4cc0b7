package blob

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local implements Storage on a local directory tree. Keys map to file
// paths under baseDir; all operations are confined to baseDir to prevent
// path traversal.
type Local struct {
	baseDir string
}

// NewLocal creates a filesystem-backed store rooted at baseDir. The
// directory is resolved to an absolute path and created if missing.
func NewLocal(baseDir string) (*Local, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrInvalidConfig)
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDir, err)
	}

	return &Local{baseDir: absBaseDir}, nil
}

func (s *Local) Write(ctx context.Context, key string, r io.Reader) (int64, error) {
	absPath, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFailedToCreateDir, err)
	}

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}
	defer func() { _ = dst.Close() }()

	// Buffered copy with context checks so large uploads can be cancelled.
	// Partial files are removed; a half-written version must never surface.
	written := int64(0)
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			_ = dst.Close()
			_ = os.Remove(absPath)
			return 0, ctx.Err()
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			if writeErr != nil {
				_ = dst.Close()
				_ = os.Remove(absPath)
				return 0, fmt.Errorf("%w: %v", ErrFailedToWrite, writeErr)
			}
			written += int64(nw)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = dst.Close()
			_ = os.Remove(absPath)
			return 0, fmt.Errorf("%w: %v", ErrFailedToRead, readErr)
		}
	}

	return written, nil
}

func (s *Local) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	absPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToRead, err)
	}

	return f, nil
}

func (s *Local) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("%w: %v", ErrFailedToStat, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is not an object", ErrInvalidKey, key)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDelete, err)
	}

	// Drop container directories left empty so an emptied logical file is
	// indistinguishable from one that never existed.
	s.pruneEmptyDirs(filepath.Dir(absPath))

	return nil
}

func (s *Local) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if !strings.HasSuffix(prefix, "/") {
		return 0, fmt.Errorf("%w: prefix %q must end with a separator", ErrInvalidKey, prefix)
	}

	infos, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return 0, nil
	}

	absPath, err := s.resolve(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return 0, err
	}

	if err := os.RemoveAll(absPath); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFailedToDelete, err)
	}
	s.pruneEmptyDirs(filepath.Dir(absPath))

	return len(infos), nil
}

func (s *Local) List(ctx context.Context, prefix string) ([]Info, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	root, err := s.resolve(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil // missing prefix means no objects, not an error
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToStat, err)
	}

	var infos []Info
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		infos = append(infos, Info{
			Key:          filepath.ToSlash(rel),
			Size:         fi.Size(),
			LastModified: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToList, err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Local) Stat(ctx context.Context, key string) (Info, error) {
	select {
	case <-ctx.Done():
		return Info{}, ctx.Err()
	default:
	}

	absPath, err := s.resolve(key)
	if err != nil {
		return Info{}, err
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Info{}, fmt.Errorf("%w: %v", ErrFailedToStat, err)
	}
	if fi.IsDir() {
		return Info{}, fmt.Errorf("%w: %s is not an object", ErrInvalidKey, key)
	}

	return Info{Key: key, Size: fi.Size(), LastModified: fi.ModTime()}, nil
}

// resolve maps a key to an absolute path and verifies it stays inside
// baseDir.
func (s *Local) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	absPath, err := filepath.Abs(filepath.Join(s.baseDir, cleaned))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) && absPath != s.baseDir {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	return absPath, nil
}

// pruneEmptyDirs removes now-empty parents of a deleted object, stopping at
// baseDir or the first non-empty directory.
func (s *Local) pruneEmptyDirs(dir string) {
	for strings.HasPrefix(dir, s.baseDir+string(filepath.Separator)) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
