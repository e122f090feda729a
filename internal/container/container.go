package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

const (
	// Magic opens every container.
	Magic = "Cr24"
	// FormatVersion is the only container version produced and accepted.
	FormatVersion uint32 = 2
	// HeaderSize is the size of the fixed header preceding the key block.
	HeaderSize = 16
)

var (
	errEmptyBlock    = errors.New("block is empty")
	errBlockTooLarge = errors.New("block exceeds the representable length")
	errBadMagic      = errors.New("bad magic")
	errBadVersion    = errors.New("unsupported format version")
	errTruncated     = errors.New("buffer is truncated")
)

// Package is a parsed container.
type Package struct {
	// PublicKey is the DER-encoded public key block.
	PublicKey []byte
	// Signature is the signature over Archive.
	Signature []byte
	// Archive is the ZIP payload.
	Archive []byte
}

// Assemble lays out the header, the public key, the signature and the archive.
func Assemble(archive, publicKey, signature []byte) ([]byte, error) {
	blocks := []struct {
		name string
		data []byte
	}{
		{"archive", archive},
		{"public key", publicKey},
		{"signature", signature},
	}
	for _, block := range blocks {
		if len(block.data) == 0 {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrFormat, block.name, errEmptyBlock)
		}

		if uint64(len(block.data)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrFormat, block.name, errBlockTooLarge)
		}
	}

	out := make([]byte, 0, HeaderSize+len(publicKey)+len(signature)+len(archive))
	out = append(out, Magic...)
	out = binary.LittleEndian.AppendUint32(out, FormatVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(publicKey))) //nolint:gosec // Checked above.
	out = binary.LittleEndian.AppendUint32(out, uint32(len(signature))) //nolint:gosec // Checked above.
	out = append(out, publicKey...)
	out = append(out, signature...)
	out = append(out, archive...)

	return out, nil
}

// Parse validates the header and slices data into its blocks.
// The returned blocks alias data.
func Parse(data []byte) (*Package, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: header: %w", domain.ErrFormat, errTruncated)
	}

	if !bytes.Equal(data[:4], []byte(Magic)) {
		return nil, fmt.Errorf("%w: %w: %q", domain.ErrFormat, errBadMagic, data[:4])
	}

	if version := binary.LittleEndian.Uint32(data[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: %w: %d", domain.ErrFormat, errBadVersion, version)
	}

	keyLength := uint64(binary.LittleEndian.Uint32(data[8:12]))
	signatureLength := uint64(binary.LittleEndian.Uint32(data[12:16]))

	if keyLength == 0 {
		return nil, fmt.Errorf("%w: public key: %w", domain.ErrFormat, errEmptyBlock)
	}

	if signatureLength == 0 {
		return nil, fmt.Errorf("%w: signature: %w", domain.ErrFormat, errEmptyBlock)
	}

	body := uint64(len(data) - HeaderSize)
	if keyLength+signatureLength > body {
		return nil, fmt.Errorf("%w: blocks: %w", domain.ErrFormat, errTruncated)
	}

	if keyLength+signatureLength == body {
		return nil, fmt.Errorf("%w: archive: %w", domain.ErrFormat, errEmptyBlock)
	}

	keyEnd := HeaderSize + int(keyLength)         //nolint:gosec // Bounded by len(data).
	signatureEnd := keyEnd + int(signatureLength) //nolint:gosec // Bounded by len(data).

	return &Package{
		PublicKey: data[HeaderSize:keyEnd],
		Signature: data[keyEnd:signatureEnd],
		Archive:   data[signatureEnd:],
	}, nil
}
