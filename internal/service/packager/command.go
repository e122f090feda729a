package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/crx-packager/internal/config"
	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/extension"
	"github.com/oshokin/crx-packager/internal/keys"
	"github.com/oshokin/crx-packager/internal/logger"
	"github.com/oshokin/crx-packager/internal/repository/artifact"
	"github.com/oshokin/crx-packager/internal/service/keygen"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is the settings file; a missing file means flags only.
	ConfigPath string
	// Overrides holds values given on the command line. Non-zero fields win over the file.
	Overrides *config.Config
	// Force lets Init replace an existing settings file.
	Force bool
}

// packager holds the state of one pack run.
// Callers use Run, which performs setup and validation.
type packager struct {
	// cfg is the merged and validated configuration.
	cfg *config.Config
	// ext is the packaging session.
	ext *extension.Extension
	// artifacts stores the package, update.xml and the build description.
	artifacts artifact.Repository
	// ephemeralKey is set when the signing key exists only in memory.
	ephemeralKey bool
}

var errSettingsExist = errors.New("settings file already exists")

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "crx-packager")

	cfg, err := resolveConfig(ctx, opts)
	if err != nil {
		return err
	}

	pkg, err := newPackager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	if err = pkg.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// Init validates the command-line settings and saves them to the settings file.
func Init(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "crx-packager")

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fmt.Errorf("%w: %s: %w", domain.ErrConfig, path, errSettingsExist)
	}

	cfg := new(config.Config)
	cfg.Apply(opts.Overrides)

	if err := config.Save(path, cfg); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Settings saved", "path", path)

	return nil
}

// resolveConfig merges the settings file with the overrides and validates the result.
func resolveConfig(ctx context.Context, opts *Options) (*config.Config, error) {
	cfg, err := config.Read(opts.ConfigPath)

	switch {
	case errors.Is(err, config.ErrNotFound):
		logger.DebugKV(ctx, "Settings file not found, using command-line values", "path", opts.ConfigPath)

		cfg = new(config.Config)
	case err != nil:
		return nil, err
	}

	cfg.Apply(opts.Overrides)

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newPackager reads or creates the signing key and opens the packaging session.
func newPackager(ctx context.Context, cfg *config.Config) (*packager, error) {
	keyData, err := signingKey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	artifacts := artifact.NewFileRepository(artifact.DefaultFileMode)

	ext, err := extension.New(&extension.Config{
		PrivateKey:    keyData,
		GenerateKey:   cfg.GenerateKey,
		KeyBits:       cfg.KeyBits,
		RootDirectory: cfg.RootDirectory,
		OutputPath:    cfg.Output,
		Codebase:      cfg.Codebase,
		Version:       cfg.Version,
	}, extension.WithRepository(artifacts))
	if err != nil {
		return nil, err
	}

	return &packager{
		cfg:          cfg,
		ext:          ext,
		artifacts:    artifacts,
		ephemeralKey: len(keyData) == 0,
	}, nil
}

// signingKey returns the configured key material. A missing key file is created
// when generation is enabled; with no key file at all the session generates
// an in-memory key.
func signingKey(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if cfg.PrivateKeyFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Clean(cfg.PrivateKeyFile))

	switch {
	case err == nil:
		return keys.Open(data, cfg.KeyPassphrase)
	case errors.Is(err, os.ErrNotExist) && cfg.GenerateKey:
		logger.InfoKV(ctx, "Key file not found, generating a new key",
			"path", cfg.PrivateKeyFile,
			"bits", cfg.KeyBits,
		)

		result, err := keygen.Write(cfg.PrivateKeyFile, cfg.KeyBits, cfg.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		return result.PEM, nil
	default:
		return nil, fmt.Errorf("read private key: %w", err)
	}
}

// Run loads, packs and writes all requested artifacts.
func (p *packager) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Loading extension sources", "root", p.cfg.RootDirectory)

	if err := p.ext.Load(ctx); err != nil {
		return err
	}

	data, err := p.ext.Pack(ctx)
	if err != nil {
		return err
	}

	if err = p.ext.WriteFile(p.cfg.Output); err != nil {
		return err
	}

	id, err := p.ext.ID()
	if err != nil {
		return err
	}

	ctx = logger.WithFields(ctx, map[string]any{
		"app_id":  id,
		"version": p.ext.Version(),
	})

	logger.InfoKV(ctx, "Package written", "path", p.cfg.Output, "size", len(data))

	if p.ephemeralKey {
		logger.WarnKV(ctx, "Signing key was generated for this run only, the package id will change next time")
	}

	if err = p.writeUpdateXML(ctx); err != nil {
		return err
	}

	if err = p.writeDescription(ctx, id, data); err != nil {
		return err
	}

	p.printNextSteps(ctx)

	return nil
}

// writeUpdateXML writes update.xml when a path is configured.
func (p *packager) writeUpdateXML(ctx context.Context) error {
	if p.cfg.UpdateXML == "" {
		return nil
	}

	document, err := p.ext.GenerateUpdateXML()
	if err != nil {
		return err
	}

	if err = p.artifacts.Save(ctx, p.cfg.UpdateXML, document); err != nil {
		return fmt.Errorf("write update.xml: %w", err)
	}

	logger.InfoKV(ctx, "Update manifest written", "path", p.cfg.UpdateXML)

	return nil
}

// writeDescription writes the build description when a path is configured.
func (p *packager) writeDescription(ctx context.Context, id string, data []byte) error {
	if p.cfg.Description == "" {
		return nil
	}

	desc, err := NewDescription(p.ext, id, filepath.Base(p.cfg.Output), data)
	if err != nil {
		return err
	}

	contents, err := desc.Encode()
	if err != nil {
		return err
	}

	if err = p.artifacts.Save(ctx, p.cfg.Description, contents); err != nil {
		return fmt.Errorf("write description: %w", err)
	}

	logger.InfoKV(ctx, "Build description written", "path", p.cfg.Description)

	return nil
}

// printNextSteps logs human-readable guidance for publishing the produced files.
func (p *packager) printNextSteps(ctx context.Context) {
	var builder strings.Builder

	builder.WriteString("Next steps:\n")

	if p.cfg.Codebase != "" {
		builder.WriteString("upload ")
		builder.WriteString(p.cfg.Output)
		builder.WriteString(" so that it is served at ")
		builder.WriteString(p.cfg.Codebase)
	} else {
		builder.WriteString("distribute ")
		builder.WriteString(p.cfg.Output)
	}

	if p.cfg.UpdateXML != "" {
		builder.WriteString(",\npublish ")
		builder.WriteString(p.cfg.UpdateXML)
		builder.WriteString(" and point update_url in manifest.json to it")

		if manifest := p.ext.Manifest(); manifest != nil && manifest.UpdateURL == "" {
			builder.WriteString(" (manifest.json has no update_url yet)")
		}
	}

	logger.Info(ctx, builder.String())
}
