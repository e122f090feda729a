package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // CRX2 signatures are defined over SHA-1.
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

const (
	// DefaultBits is the RSA modulus size of generated keys.
	// A 1024-bit key yields a 162-byte DER public key.
	DefaultBits = 1024

	// pemPrivateKeyType is the PEM block type written by EncodePrivateKey.
	pemPrivateKeyType = "PRIVATE KEY"
)

var (
	errNoKeyMaterial = errors.New("no private key configured and key generation is disabled")
	errNotResolved   = errors.New("key pair is not resolved")
	errNoPrivateKey  = errors.New("private key is not available")
	errNotRSA        = errors.New("key is not an RSA key")
	errEmptyKey      = errors.New("key data is empty")
	errUnparsableKey = errors.New("unsupported format or invalid key data")
)

// Manager resolves, caches and uses the key pair of one session.
// It is not safe for concurrent use.
type Manager struct {
	// privateKeyData is the configured private key material (PEM or DER).
	privateKeyData []byte
	// publicKeyData is the configured public key material for public-key-only sessions.
	publicKeyData []byte
	// generateBits is the key size used when no material is configured; zero disables generation.
	generateBits int

	// private is the resolved private key, nil for public-key-only sessions.
	private *rsa.PrivateKey
	// public is the DER-encoded SubjectPublicKeyInfo.
	public []byte
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrivateKey sets PEM or DER private key material.
func WithPrivateKey(data []byte) Option {
	return func(m *Manager) {
		m.privateKeyData = data
	}
}

// WithPublicKey sets PEM or DER public key material. Such a manager can report
// the public key but cannot sign.
func WithPublicKey(data []byte) Option {
	return func(m *Manager) {
		m.publicKeyData = data
	}
}

// WithGeneration enables generating a key of the given size when no material is set.
// Non-positive sizes fall back to DefaultBits.
func WithGeneration(bits int) Option {
	return func(m *Manager) {
		if bits <= 0 {
			bits = DefaultBits
		}

		m.generateBits = bits
	}
}

// NewManager creates a Manager. No key work happens until Resolve.
func NewManager(opts ...Option) *Manager {
	m := new(Manager)
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Resolve parses or generates the key pair. The result is cached, so repeated
// calls are cheap and return the same key.
func (m *Manager) Resolve() error {
	if m.public != nil {
		return nil
	}

	switch {
	case len(m.privateKeyData) > 0:
		key, err := ParsePrivateKey(m.privateKeyData)
		if err != nil {
			return err
		}

		return m.adopt(key)
	case len(m.publicKeyData) > 0:
		public, err := parsePublicKey(m.publicKeyData)
		if err != nil {
			return err
		}

		m.public = public

		return nil
	case m.generateBits > 0:
		key, err := Generate(m.generateBits)
		if err != nil {
			return err
		}

		return m.adopt(key)
	default:
		return fmt.Errorf("%w: %w", domain.ErrKey, errNoKeyMaterial)
	}
}

// PublicKeyBytes returns the DER-encoded public key.
func (m *Manager) PublicKeyBytes() ([]byte, error) {
	if m.public == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrKey, errNotResolved)
	}

	return append([]byte(nil), m.public...), nil
}

// Sign hashes data with SHA-1 and signs the digest with RSASSA-PKCS1-v1_5.
// The scheme is deterministic: the same key and data give the same signature.
func (m *Manager) Sign(data []byte) ([]byte, error) {
	if m.private == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrKey, errNoPrivateKey)
	}

	digest := sha1.Sum(data) //nolint:gosec // See import.

	signature, err := rsa.SignPKCS1v15(rand.Reader, m.private, crypto.SHA1, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: sign archive: %w", domain.ErrKey, err)
	}

	return signature, nil
}

// Verify checks a SHA-1 RSASSA-PKCS1-v1_5 signature over data against a DER public key.
func Verify(publicKey, data, signature []byte) error {
	parsed, err := x509.ParsePKIXPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("%w: parse public key: %w", domain.ErrKey, err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: %w: got %T", domain.ErrKey, errNotRSA, parsed)
	}

	digest := sha1.Sum(data) //nolint:gosec // See import.

	if err = rsa.VerifyPKCS1v15(key, crypto.SHA1, digest[:], signature); err != nil {
		return fmt.Errorf("%w: verify signature: %w", domain.ErrKey, err)
	}

	return nil
}

// adopt caches key and its derived public key.
func (m *Manager) adopt(key *rsa.PrivateKey) error {
	public, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: encode public key: %w", domain.ErrKey, err)
	}

	m.private = key
	m.public = public

	return nil
}

// Generate creates a new RSA private key.
func Generate(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultBits
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate %d-bit key: %w", domain.ErrKey, bits, err)
	}

	return key, nil
}

// EncodePrivateKey renders key as a PKCS#8 PEM block.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: encode private key: %w", domain.ErrKey, err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKeyType, Bytes: der}), nil
}

// ParsePrivateKey parses a PEM or DER RSA private key, trying PKCS#8 first and PKCS#1 second.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	der, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %w: got %T", domain.ErrKey, errNotRSA, key)
		}

		return rsaKey, nil
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	return nil, fmt.Errorf("%w: parse private key: %w", domain.ErrKey, errUnparsableKey)
}

// parsePublicKey validates PEM or DER public key material and returns it as PKIX DER.
func parsePublicKey(data []byte) ([]byte, error) {
	der, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %w", domain.ErrKey, err)
	}

	if _, ok := key.(*rsa.PublicKey); !ok {
		return nil, fmt.Errorf("%w: %w: got %T", domain.ErrKey, errNotRSA, key)
	}

	return der, nil
}

// decodePEM returns the DER payload of a PEM block, or data itself when it is not PEM.
func decodePEM(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrKey, errEmptyKey)
	}

	if block, _ := pem.Decode(data); block != nil {
		return block.Bytes, nil
	}

	return data, nil
}
