package keygen

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/crx-packager/internal/appid"
	"github.com/oshokin/crx-packager/internal/config"
	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/keys"
	"github.com/oshokin/crx-packager/internal/logger"
)

var (
	errKeyFileExists  = errors.New("key file already exists")
	errOutputRequired = errors.New("key file path must be provided")
)

// Options contains inputs for key generation.
type Options struct {
	// Output is the key file to create.
	Output string
	// Bits is the RSA modulus size; zero means keys.DefaultBits.
	Bits int
	// Passphrase seals the key file when not empty.
	Passphrase string
	// Force allows replacing an existing key file.
	Force bool
}

// Result describes a written key.
type Result struct {
	// Key is the generated private key.
	Key *rsa.PrivateKey
	// PEM is the unsealed PKCS#8 encoding of Key.
	PEM []byte
	// AppID is the identifier of packages signed with Key.
	AppID string
	// Sealed reports whether the file on disk is passphrase protected.
	Sealed bool
}

// Run generates a key according to opts and logs its identifier.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "crx-keygen")

	if opts.Output == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errOutputRequired)
	}

	if _, err := os.Stat(opts.Output); err == nil && !opts.Force {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfig, opts.Output, errKeyFileExists)
	}

	result, err := Write(opts.Output, opts.Bits, opts.Passphrase)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Key written",
		"path", opts.Output,
		"bits", result.Key.N.BitLen(),
		"sealed", result.Sealed,
		"app_id", result.AppID,
	)

	if !result.Sealed {
		logger.WarnKV(ctx, "Key file is not passphrase protected, keep it private",
			"passphrase_env", config.PassphraseEnv,
		)
	}

	return result, nil
}

// Write generates a key of the given size and saves it to path, sealing it
// when passphrase is not empty. Existing files are replaced.
func Write(path string, bits int, passphrase string) (*Result, error) {
	key, err := keys.Generate(bits)
	if err != nil {
		return nil, err
	}

	encoded, err := keys.EncodePrivateKey(key)
	if err != nil {
		return nil, err
	}

	manager := keys.NewManager(keys.WithPrivateKey(encoded))
	if err = manager.Resolve(); err != nil {
		return nil, err
	}

	public, err := manager.PublicKeyBytes()
	if err != nil {
		return nil, err
	}

	contents := encoded
	if passphrase != "" {
		if contents, err = keys.Seal(encoded, passphrase); err != nil {
			return nil, err
		}
	}

	path = filepath.Clean(path)

	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	if err = os.WriteFile(path, contents, config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}

	return &Result{
		Key:    key,
		PEM:    encoded,
		AppID:  appid.Derive(public),
		Sealed: passphrase != "",
	}, nil
}
