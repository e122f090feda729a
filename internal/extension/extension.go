package extension

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/oshokin/crx-packager/internal/appid"
	"github.com/oshokin/crx-packager/internal/archive"
	"github.com/oshokin/crx-packager/internal/container"
	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/keys"
	"github.com/oshokin/crx-packager/internal/logger"
	"github.com/oshokin/crx-packager/internal/repository/artifact"
	"github.com/oshokin/crx-packager/internal/updatexml"
)

// DefaultFileMode is applied to written containers.
const DefaultFileMode os.FileMode = artifact.DefaultFileMode

var (
	errNotLoaded      = errors.New("extension is not loaded")
	errNotPacked      = errors.New("extension is not packed")
	errOutputRequired = errors.New("output path must be provided")
	errEmptyArchive   = errors.New("archive buffer is empty")
	errNoCodebase     = errors.New("no URL provided for update.xml")
	errNoPrivateKey   = errors.New("no private key configured and key generation is disabled")
)

// ArchiveBuilder converts between file sets and archive buffers.
type ArchiveBuilder interface {
	Build(files domain.Files) ([]byte, error)
	Parse(data []byte) (domain.Files, error)
}

// Option configures an Extension.
type Option func(*Extension)

// WithArchiveBuilder replaces the default ZIP builder.
func WithArchiveBuilder(builder ArchiveBuilder) Option {
	return func(e *Extension) {
		if builder != nil {
			e.builder = builder
		}
	}
}

// WithRepository replaces the store WriteFile saves containers through.
func WithRepository(repository artifact.Repository) Option {
	return func(e *Extension) {
		if repository != nil {
			e.artifacts = repository
		}
	}
}

// state is the position of a session in its lifecycle.
type state int

const (
	stateUnloaded state = iota
	stateLoaded
	statePacked
)

// String returns the state name used in errors and logs.
func (s state) String() string {
	switch s {
	case stateUnloaded:
		return "unloaded"
	case stateLoaded:
		return "loaded"
	case statePacked:
		return "packed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Extension is one packaging session.
type Extension struct {
	// cfg is the private copy of the session configuration.
	cfg Config
	// keys resolves and caches the key pair on first use.
	keys *keys.Manager
	// builder produces and parses archive buffers.
	builder ArchiveBuilder
	// artifacts stores written containers.
	artifacts artifact.Repository

	// state is the lifecycle position.
	state state
	// files is the loaded file set.
	files domain.Files
	// manifest is the parsed manifest.json of files.
	manifest *domain.Manifest

	// archive is the archive block of the current container.
	archive []byte
	// container is the assembled package.
	container []byte
	// appID is memoized once the public key is known.
	appID string
}

// New validates cfg and creates a session. Nil or empty configurations fail.
func New(cfg *Config, opts ...Option) (*Extension, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Extension{
		cfg:       cfg.clone(),
		builder:   archive.NewBuilder(),
		artifacts: artifact.NewFileRepository(DefaultFileMode),
		state:     stateUnloaded,
	}

	var keyOptions []keys.Option

	switch {
	case len(e.cfg.PrivateKey) > 0:
		keyOptions = append(keyOptions, keys.WithPrivateKey(e.cfg.PrivateKey))
	case len(e.cfg.PublicKey) > 0:
		keyOptions = append(keyOptions, keys.WithPublicKey(e.cfg.PublicKey))
	}

	if e.cfg.GenerateKey {
		keyOptions = append(keyOptions, keys.WithGeneration(e.cfg.KeyBits))
	}

	e.keys = keys.NewManager(keyOptions...)

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Load reads every file under the configured root directory.
func (e *Extension) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Loading extension directory", "root", e.cfg.RootDirectory)

	files, err := archive.ReadDir(e.cfg.RootDirectory)
	if err != nil {
		return err
	}

	return e.commitLoad(ctx, files)
}

// LoadFiles reads exactly the given paths, relative to the configured root directory.
func (e *Extension) LoadFiles(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Loading extension files", "root", e.cfg.RootDirectory, "count", len(paths))

	files, err := archive.ReadFiles(e.cfg.RootDirectory, paths)
	if err != nil {
		return err
	}

	return e.commitLoad(ctx, files)
}

// LoadArchive treats data as a pre-built archive and loads its entries.
func (e *Extension) LoadArchive(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errEmptyArchive)
	}

	logger.DebugKV(ctx, "Loading prebuilt archive", "size", len(data))

	files, err := e.builder.Parse(data)
	if err != nil {
		return err
	}

	return e.commitLoad(ctx, files)
}

// commitLoad validates files and replaces the session contents with them.
func (e *Extension) commitLoad(ctx context.Context, files domain.Files) error {
	manifest, err := domain.ManifestFrom(files)
	if err != nil {
		return err
	}

	e.files = files
	e.manifest = manifest
	e.archive = nil
	e.container = nil
	e.state = stateLoaded

	logger.DebugKV(ctx, "Extension loaded",
		"name", manifest.Name,
		"version", manifest.Version,
		"files", len(files),
		"bytes", files.Size(),
	)

	return nil
}

// Pack builds the archive, signs it and assembles the container.
// Calling Pack again on the same loaded contents yields identical bytes.
func (e *Extension) Pack(ctx context.Context) ([]byte, error) {
	if e.state < stateLoaded {
		return nil, fmt.Errorf("%w: pack while %s: %w", domain.ErrState, e.state, errNotLoaded)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archiveBytes, err := e.builder.Build(e.files)
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}

	public, err := e.publicKey()
	if err != nil {
		return nil, err
	}

	id := e.appID
	if id == "" {
		id = appid.Derive(public)
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	signature, err := e.keys.Sign(archiveBytes)
	if err != nil {
		return nil, err
	}

	data, err := container.Assemble(archiveBytes, public, signature)
	if err != nil {
		return nil, err
	}

	e.archive = archiveBytes
	e.container = data
	e.appID = id
	e.state = statePacked

	logger.DebugKV(ctx, "Extension packed", "app_id", id, "size", len(data))

	return slices.Clone(data), nil
}

// LoadContents returns the archive block of the packed container.
func (e *Extension) LoadContents() ([]byte, error) {
	if e.state < statePacked {
		return nil, fmt.Errorf("%w: load contents while %s: %w", domain.ErrState, e.state, errNotPacked)
	}

	return slices.Clone(e.archive), nil
}

// GeneratePublicKey resolves the key pair and returns the DER-encoded public key.
// Sessions configured with a public key only, and no generation policy, fail with ErrKey.
func (e *Extension) GeneratePublicKey(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(e.cfg.PrivateKey) == 0 && !e.cfg.GenerateKey {
		return nil, fmt.Errorf("%w: %w", domain.ErrKey, errNoPrivateKey)
	}

	return e.publicKey()
}

// GenerateUpdateXML renders update.xml for the packed container.
func (e *Extension) GenerateUpdateXML() ([]byte, error) {
	if e.cfg.Codebase == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errNoCodebase)
	}

	if e.state < statePacked {
		return nil, fmt.Errorf("%w: generate update.xml: %w", domain.ErrState, errNotPacked)
	}

	return updatexml.Generate(e.cfg.Codebase, e.Version(), e.appID)
}

// WriteFile writes the packed container to path. There is no default location.
// The file is replaced atomically, so readers see either the old or the new container.
func (e *Extension) WriteFile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errOutputRequired)
	}

	if e.state < statePacked {
		return fmt.Errorf("%w: write %s: %w", domain.ErrState, path, errNotPacked)
	}

	if err := e.artifacts.Save(context.Background(), path, e.container); err != nil {
		return fmt.Errorf("write package: %w", err)
	}

	return nil
}

// ID returns the package identifier memoized by Pack.
func (e *Extension) ID() (string, error) {
	if e.state < statePacked {
		return "", fmt.Errorf("%w: identifier: %w", domain.ErrState, errNotPacked)
	}

	return e.appID, nil
}

// Version is the configured version, or the version from manifest.json.
func (e *Extension) Version() string {
	if e.cfg.Version != "" {
		return e.cfg.Version
	}

	if e.manifest != nil {
		return e.manifest.Version
	}

	return ""
}

// Manifest returns the parsed manifest.json, or nil before a load.
func (e *Extension) Manifest() *domain.Manifest {
	if e.manifest == nil {
		return nil
	}

	manifest := *e.manifest

	return &manifest
}

// Files returns a copy of the loaded file set.
func (e *Extension) Files() domain.Files {
	return e.files.Clone()
}

// Config returns a copy of the session configuration.
func (e *Extension) Config() Config {
	return e.cfg.clone()
}

// publicKey resolves the key pair on first use.
func (e *Extension) publicKey() ([]byte, error) {
	if err := e.keys.Resolve(); err != nil {
		return nil, err
	}

	return e.keys.PublicKeyBytes()
}
