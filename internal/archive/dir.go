package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

var (
	errRootRequired = errors.New("root directory must be provided")
	errOutsideRoot  = errors.New("path is outside the root directory")
)

// ReadDir loads every regular file under root, keyed by its slash-separated relative path.
func ReadDir(root string) (domain.Files, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errRootRequired)
	}

	root = filepath.Clean(root)
	files := make(domain.Files)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		files[filepath.ToSlash(relative)] = contents

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", root, err)
	}

	return files, nil
}

// ReadFiles loads exactly the given paths, each relative to root.
func ReadFiles(root string, paths []string) (domain.Files, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errRootRequired)
	}

	root = filepath.Clean(root)
	files := make(domain.Files, len(paths))

	for _, name := range paths {
		if filepath.IsAbs(name) || !filepath.IsLocal(name) {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrValidation, errOutsideRoot, name)
		}

		contents, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		files[filepath.ToSlash(filepath.Clean(name))] = contents
	}

	return files, nil
}
