package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

// entryModTime is stamped on every entry so that archives are reproducible.
//
//nolint:gochecknoglobals // Constant value, time.Time cannot be a const.
var entryModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	errEmptyArchive = errors.New("archive is empty")
	errBadEntryName = errors.New("invalid entry name")
	errDuplicate    = errors.New("duplicate entry")
)

// Builder turns file sets into ZIP buffers and back.
type Builder struct {
	// level is the deflate compression level.
	level int
}

// NewBuilder returns a Builder using the best deflate compression.
func NewBuilder() *Builder {
	return &Builder{
		level: flate.BestCompression,
	}
}

// Build writes files into a ZIP buffer in lexical entry order.
func (b *Builder) Build(files domain.Files) ([]byte, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, errEmptyArchive)
	}

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, b.level)
	})

	for _, name := range files.Names() {
		if err := validateName(name); err != nil {
			return nil, err
		}

		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: entryModTime,
		}

		entry, err := writer.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", name, err)
		}

		if _, err = entry.Write(files[name]); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

// Parse reads a ZIP buffer back into a file set. Directory entries are skipped.
func (b *Builder) Parse(data []byte) (domain.Files, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, errEmptyArchive)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", domain.ErrValidation, err)
	}

	files := make(domain.Files, len(reader.File))

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		if err = validateName(file.Name); err != nil {
			return nil, err
		}

		if _, seen := files[file.Name]; seen {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrValidation, errDuplicate, file.Name)
		}

		contents, err := readEntry(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}

		files[file.Name] = contents
	}

	return files, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", file.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	contents, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", file.Name, err)
	}

	return contents, nil
}

// validateName rejects entry names that would escape the extension root.
func validateName(name string) error {
	switch {
	case name == "",
		strings.HasPrefix(name, "/"),
		strings.Contains(name, "\\"),
		path.Clean(name) != name,
		name == "..",
		strings.HasPrefix(name, "../"):
		return fmt.Errorf("%w: %w: %q", domain.ErrValidation, errBadEntryName, name)
	}

	return nil
}
