package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Repository defines persistence operations for produced artifacts.
type Repository interface {
	Load(ctx context.Context, path string) ([]byte, error)
	Save(ctx context.Context, path string, data []byte) error
}

// FileRepository persists artifacts on the local filesystem.
type FileRepository struct {
	// mode is the permission of written files.
	mode os.FileMode
	// mu serializes writes issued through this repository.
	mu sync.Mutex
}

const (
	// DefaultFileMode is the permission of published artifacts.
	DefaultFileMode os.FileMode = 0o644

	// defaultDirMode is the permission of created parent directories.
	defaultDirMode os.FileMode = 0o755
)

// ErrNotFound is returned when the artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// NewFileRepository creates a repository writing files with mode; zero means DefaultFileMode.
func NewFileRepository(mode os.FileMode) *FileRepository {
	if mode == 0 {
		mode = DefaultFileMode
	}

	return &FileRepository{
		mode: mode,
	}
}

// Load reads the artifact at path.
func (r *FileRepository) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}

		return nil, fmt.Errorf("read artifact: %w", err)
	}

	return contents, nil
}

// Save replaces the artifact at path with data, creating parent directories.
func (r *FileRepository) Save(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	// Removing after a successful rename fails harmlessly.
	defer os.Remove(temp.Name()) //nolint:errcheck // Best-effort cleanup.

	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()

		return fmt.Errorf("write artifact: %w", err)
	}

	if err = temp.Chmod(r.mode); err != nil {
		_ = temp.Close()

		return fmt.Errorf("set artifact permissions: %w", err)
	}

	if err = temp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}

	if err = os.Rename(temp.Name(), path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}

	return nil
}
