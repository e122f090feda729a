// Package appid derives the extension identifier from a DER-encoded public key.
//
// The identifier is the first 16 bytes of the SHA-256 digest of the key, with
// every 4-bit nibble written as one of the letters 'a' through 'p'. The result
// is always 32 lowercase letters.
package appid

import "crypto/sha256"

const (
	// Length is the number of characters in an identifier.
	Length = 32

	// prefixBytes is how much of the digest contributes to the identifier.
	prefixBytes = Length / 2
)

// Derive computes the identifier of publicKey.
func Derive(publicKey []byte) string {
	digest := sha256.Sum256(publicKey)

	id := make([]byte, 0, Length)
	for _, b := range digest[:prefixBytes] {
		id = append(id, 'a'+b>>4, 'a'+b&0x0f)
	}

	return string(id)
}

// Valid reports whether id has the shape of a derived identifier.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}

	for i := range len(id) {
		if id[i] < 'a' || id[i] > 'p' {
			return false
		}
	}

	return true
}
