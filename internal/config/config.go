package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

// Config holds the settings of one packaging run.
type Config struct {
	// RootDirectory is the extension source directory.
	RootDirectory string `yaml:"root_directory"`
	// PrivateKeyFile is the PEM or DER key used for signing, optionally age-sealed.
	PrivateKeyFile string `yaml:"private_key_file,omitempty"`
	// GenerateKey allows packing with a freshly generated key when PrivateKeyFile is empty.
	GenerateKey bool `yaml:"generate_key,omitempty"`
	// KeyBits is the size of generated keys.
	KeyBits int `yaml:"key_bits,omitempty"`
	// Output is the path of the produced .crx file.
	Output string `yaml:"output"`
	// UpdateXML is the optional path of the produced update.xml.
	UpdateXML string `yaml:"update_xml,omitempty"`
	// Description is the optional path of the YAML build description.
	Description string `yaml:"description,omitempty"`
	// Codebase is the URL the .crx is served from.
	Codebase string `yaml:"codebase,omitempty"`
	// Version overrides the version from manifest.json.
	Version string `yaml:"version,omitempty"`
	// KeyPassphrase unlocks a sealed key file. It is read from
	// PassphraseEnv at runtime and never persisted.
	KeyPassphrase string `yaml:"-"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "crx-packager.yaml"

	// DefaultKeyBits is the size of generated keys when none is configured.
	DefaultKeyBits = 1024

	// DefaultFilePermissions is the permission of settings and key files.
	DefaultFilePermissions = 0o600

	// PassphraseEnv names the environment variable holding the key passphrase.
	PassphraseEnv = "CRX_KEY_PASSPHRASE"
)

var (
	// ErrNotFound is returned by Read when the settings file does not exist.
	ErrNotFound = errors.New("settings file not found")

	errConfigIsNotSet       = errors.New("configuration is not set")
	errRootRequired         = errors.New("root directory must be provided")
	errOutputRequired       = errors.New("output path must be provided")
	errKeyRequired          = errors.New("private key file must be provided unless key generation is enabled")
	errCodebaseForUpdateXML = errors.New("update.xml requires a codebase URL")
)

// Read loads settings from path without validating them.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal settings: %w", domain.ErrConfig, err)
	}

	return &cfg, nil
}

// Load reads settings from path and validates them.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errConfigIsNotSet)
	}

	if cfg.RootDirectory == "" {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errRootRequired)
	}

	if cfg.Output == "" {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errOutputRequired)
	}

	if cfg.PrivateKeyFile == "" && !cfg.GenerateKey {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errKeyRequired)
	}

	if cfg.KeyBits <= 0 {
		cfg.KeyBits = DefaultKeyBits
	}

	if cfg.UpdateXML != "" && cfg.Codebase == "" {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errCodebaseForUpdateXML)
	}

	if cfg.Codebase == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.Codebase); err != nil {
		return fmt.Errorf("%w: invalid codebase URL: %w", domain.ErrConfig, err)
	}

	return nil
}

// Apply overwrites fields of c with the non-zero fields of overrides.
func (c *Config) Apply(overrides *Config) {
	if overrides == nil {
		return
	}

	setString(&c.RootDirectory, overrides.RootDirectory)
	setString(&c.PrivateKeyFile, overrides.PrivateKeyFile)
	setString(&c.Output, overrides.Output)
	setString(&c.UpdateXML, overrides.UpdateXML)
	setString(&c.Description, overrides.Description)
	setString(&c.Codebase, overrides.Codebase)
	setString(&c.Version, overrides.Version)
	setString(&c.KeyPassphrase, overrides.KeyPassphrase)

	if overrides.GenerateKey {
		c.GenerateKey = true
	}

	if overrides.KeyBits > 0 {
		c.KeyBits = overrides.KeyBits
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
