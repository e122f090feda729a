package keys

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

// defaultWorkFactor is the scrypt log2(N) used when sealing key files.
const defaultWorkFactor = 18

var errPassphraseRequired = errors.New("key file is sealed but no passphrase was provided")

// IsSealed reports whether data is an armored age file.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header))
}

// Seal encrypts plaintext to an armored age file protected by passphrase.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	return seal(plaintext, passphrase, defaultWorkFactor)
}

func seal(plaintext []byte, passphrase string, workFactor int) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrKey, errPassphraseRequired)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: create recipient: %w", domain.ErrKey, err)
	}

	recipient.SetWorkFactor(workFactor)

	var buf bytes.Buffer

	armored := armor.NewWriter(&buf)

	encrypted, err := age.Encrypt(armored, recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt key: %w", domain.ErrKey, err)
	}

	if _, err = encrypted.Write(plaintext); err != nil {
		return nil, fmt.Errorf("%w: encrypt key: %w", domain.ErrKey, err)
	}

	if err = encrypted.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize encryption: %w", domain.ErrKey, err)
	}

	if err = armored.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize armor: %w", domain.ErrKey, err)
	}

	return buf.Bytes(), nil
}

// Open decrypts a sealed key file. Unsealed input is returned unchanged.
func Open(data []byte, passphrase string) ([]byte, error) {
	if !IsSealed(data) {
		return data, nil
	}

	if passphrase == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrKey, errPassphraseRequired)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: create identity: %w", domain.ErrKey, err)
	}

	decrypted, err := age.Decrypt(armor.NewReader(bytes.NewReader(data)), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt key: %w", domain.ErrKey, err)
	}

	plaintext, err := io.ReadAll(decrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: read decrypted key: %w", domain.ErrKey, err)
	}

	return plaintext, nil
}
