package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/crx-packager/internal/appid"
	"github.com/oshokin/crx-packager/internal/archive"
	"github.com/oshokin/crx-packager/internal/container"
	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/keys"
	"github.com/oshokin/crx-packager/internal/logger"
	"github.com/oshokin/crx-packager/internal/repository/artifact"
	"github.com/oshokin/crx-packager/internal/service/packager"
)

var errPathRequired = errors.New("package path must be provided")

// Options contains inputs for inspection.
type Options struct {
	// Path is the .crx file to read.
	Path string
	// Description is an optional build description to check the package against.
	Description string
}

// Entry is one archive member.
type Entry struct {
	// Name is the slash-separated path inside the archive.
	Name string `yaml:"name"`
	// Size is the uncompressed length in bytes.
	Size int `yaml:"size"`
}

// Report summarizes a package.
type Report struct {
	// AppID is derived from the embedded public key.
	AppID string `yaml:"app_id"`
	// Name is the extension name from manifest.json, if present.
	Name string `yaml:"name,omitempty"`
	// Version is the version from manifest.json, if present.
	Version string `yaml:"version,omitempty"`
	// UpdateURL is the update_url from manifest.json, if present.
	UpdateURL string `yaml:"update_url,omitempty"`
	// Size is the length of the whole package in bytes.
	Size int `yaml:"size"`
	// PublicKeySize is the length of the DER public key block.
	PublicKeySize int `yaml:"public_key_size"`
	// SignatureSize is the length of the signature block.
	SignatureSize int `yaml:"signature_size"`
	// ArchiveSize is the length of the ZIP payload.
	ArchiveSize int `yaml:"archive_size"`
	// Digest is the hex-encoded BLAKE3 digest of the package.
	Digest string `yaml:"blake3"`
	// Files lists archive members sorted by name.
	Files []Entry `yaml:"files"`
}

// Run reads the package, verifies its signature and writes a YAML report to out.
func Run(ctx context.Context, opts *Options, out io.Writer) (*Report, error) {
	ctx = logger.WithName(ctx, "crx-inspect")

	if opts.Path == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errPathRequired)
	}

	ctx = logger.WithKV(ctx, "path", opts.Path)
	repository := artifact.NewFileRepository(artifact.DefaultFileMode)

	data, err := repository.Load(ctx, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("read package: %w", err)
	}

	report, err := Inspect(data)
	if err != nil {
		return nil, err
	}

	if opts.Description != "" {
		desc, err := packager.ReadDescription(ctx, repository, opts.Description)
		if err != nil {
			return nil, err
		}

		if err = desc.Verify(data); err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Package matches description", "description", opts.Description)
	}

	logger.DebugKV(ctx, "Package inspected", "app_id", report.AppID)

	if out != nil {
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)

		if err = encoder.Encode(report); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}

		if err = encoder.Close(); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}

	return report, nil
}

// Inspect parses container bytes, verifies the signature and lists the archive.
func Inspect(data []byte) (*Report, error) {
	pkg, err := container.Parse(data)
	if err != nil {
		return nil, err
	}

	if err = keys.Verify(pkg.PublicKey, pkg.Archive, pkg.Signature); err != nil {
		return nil, err
	}

	files, err := archive.NewBuilder().Parse(pkg.Archive)
	if err != nil {
		return nil, err
	}

	report := &Report{
		AppID:         appid.Derive(pkg.PublicKey),
		Size:          len(data),
		PublicKeySize: len(pkg.PublicKey),
		SignatureSize: len(pkg.Signature),
		ArchiveSize:   len(pkg.Archive),
		Digest:        packager.Digest(data),
		Files:         make([]Entry, 0, len(files)),
	}

	for _, name := range files.Names() {
		report.Files = append(report.Files, Entry{Name: name, Size: len(files[name])})
	}

	if manifest, err := domain.ManifestFrom(files); err == nil {
		report.Name = manifest.Name
		report.Version = manifest.Version
		report.UpdateURL = manifest.UpdateURL
	}

	return report, nil
}
