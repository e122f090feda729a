package packager

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/extension"
	"github.com/oshokin/crx-packager/internal/repository/artifact"
	"github.com/oshokin/crx-packager/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// DefaultChecksumFunction is used to calculate package and file hashes.
const DefaultChecksumFunction crypto.Hash = crypto.SHA512

var (
	errHashUnavailable  = errors.New("hash function unavailable")
	errSizeMismatch     = errors.New("package size does not match description")
	errChecksumMismatch = errors.New("package checksum does not match description")
	errDigestMismatch   = errors.New("package digest does not match description")
)

// Description contains metadata about a produced package.
type Description struct {
	// Name is the extension name from manifest.json.
	Name string `yaml:"name"`
	// VersionNumber is the version advertised in update.xml.
	VersionNumber string `yaml:"version"`
	// AppID is the package identifier.
	AppID string `yaml:"app_id"`
	// Package is the base name of the .crx file.
	Package string `yaml:"package"`
	// Size is the length of the .crx file in bytes.
	Size int `yaml:"size"`
	// Checksum is the base64-encoded SHA-512 of the .crx file.
	Checksum string `yaml:"sha512"`
	// Digest is the hex-encoded BLAKE3 digest of the .crx file.
	Digest string `yaml:"blake3"`
	// Codebase is the download URL, if any.
	Codebase string `yaml:"codebase,omitempty"`
	// Files maps archive entries to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
	// Packager names the tool that produced the package.
	Packager string `yaml:"packager"`
}

// NewDescription describes the packed container data produced by ext.
func NewDescription(ext *extension.Extension, id, packageName string, data []byte) (*Description, error) {
	checksum, err := Checksum(data)
	if err != nil {
		return nil, err
	}

	desc := &Description{
		VersionNumber: ext.Version(),
		AppID:         id,
		Package:       packageName,
		Size:          len(data),
		Checksum:      base64.StdEncoding.EncodeToString(checksum),
		Digest:        Digest(data),
		Codebase:      ext.Config().Codebase,
		Packager:      version.Tool(),
	}

	if manifest := ext.Manifest(); manifest != nil {
		desc.Name = manifest.Name
	}

	desc.Files, err = fileChecksums(ext.Files())
	if err != nil {
		return nil, err
	}

	return desc, nil
}

// ReadDescription loads a description produced by a pack run.
// A missing file yields artifact.ErrNotFound.
func ReadDescription(ctx context.Context, repository artifact.Repository, path string) (*Description, error) {
	contents, err := repository.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	var desc Description
	if err = yaml.Unmarshal(contents, &desc); err != nil {
		return nil, fmt.Errorf("parse description %s: %w", path, err)
	}

	return &desc, nil
}

// Encode renders the description as YAML.
func (d *Description) Encode() ([]byte, error) {
	contents, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal description: %w", err)
	}

	return contents, nil
}

// Verify reports whether data is the package this description was made for.
func (d *Description) Verify(data []byte) error {
	if len(data) != d.Size {
		return fmt.Errorf("%w: %w: got %d bytes, want %d", domain.ErrValidation, errSizeMismatch, len(data), d.Size)
	}

	expected, err := base64.StdEncoding.DecodeString(d.Checksum)
	if err != nil {
		return fmt.Errorf("%w: decode checksum: %w", domain.ErrValidation, err)
	}

	actual, err := Checksum(data)
	if err != nil {
		return err
	}

	if !bytes.Equal(expected, actual) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errChecksumMismatch)
	}

	if d.Digest != "" && d.Digest != Digest(data) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errDigestMismatch)
	}

	return nil
}

// Checksum returns checksum bytes for data using DefaultChecksumFunction.
func Checksum(data []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// Digest returns the hex-encoded BLAKE3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)

	return hex.EncodeToString(sum[:])
}

func fileChecksums(files domain.Files) (map[string]string, error) {
	result := make(map[string]string, len(files))

	for _, name := range files.Names() {
		checksum, err := Checksum(files[name])
		if err != nil {
			return nil, fmt.Errorf("checksum for %s: %w", name, err)
		}

		result[name] = base64.StdEncoding.EncodeToString(checksum)
	}

	return result, nil
}
