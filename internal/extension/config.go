package extension

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

// Config is the session configuration. It is copied by New and never mutated afterwards.
type Config struct {
	// PrivateKey is PEM or DER private key material. Optional until signing.
	PrivateKey []byte
	// PublicKey is PEM or DER public key material for sessions that never sign.
	PublicKey []byte
	// GenerateKey allows creating a fresh key pair when PrivateKey is empty.
	GenerateKey bool
	// KeyBits is the size of generated keys; zero means keys.DefaultBits.
	KeyBits int
	// RootDirectory holds the extension sources read by Load and LoadFiles.
	RootDirectory string
	// OutputPath is where the caller intends to write the container. The session never
	// writes there on its own; WriteFile always takes an explicit path.
	OutputPath string
	// Codebase is the download URL advertised in update.xml.
	Codebase string
	// Version overrides the version read from manifest.json.
	Version string
}

var (
	errConfigIsNotSet = errors.New("configuration is not set")
	errConfigIsEmpty  = errors.New("configuration is empty")
)

// validate rejects nil and all-zero configurations and malformed codebase URLs.
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errConfigIsNotSet)
	}

	if c.isEmpty() {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errConfigIsEmpty)
	}

	if c.Codebase != "" {
		if _, err := url.ParseRequestURI(c.Codebase); err != nil {
			return fmt.Errorf("%w: invalid codebase URL: %w", domain.ErrConfig, err)
		}
	}

	if c.KeyBits < 0 {
		return fmt.Errorf("%w: negative key size %d", domain.ErrConfig, c.KeyBits)
	}

	return nil
}

func (c *Config) isEmpty() bool {
	return len(c.PrivateKey) == 0 &&
		len(c.PublicKey) == 0 &&
		!c.GenerateKey &&
		c.KeyBits == 0 &&
		c.RootDirectory == "" &&
		c.OutputPath == "" &&
		c.Codebase == "" &&
		c.Version == ""
}

// clone returns a copy that shares no buffers with c.
func (c *Config) clone() Config {
	cloned := *c
	cloned.PrivateKey = slices.Clone(c.PrivateKey)
	cloned.PublicKey = slices.Clone(c.PublicKey)

	return cloned
}
