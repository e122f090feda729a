// Package keys owns the RSA key pair of a packaging session.
//
// A Manager parses configured key material (PKCS#8 or PKCS#1, PEM or raw
// DER), or generates a fresh key when a generation policy is set, exposes the
// DER-encoded SubjectPublicKeyInfo and signs buffers with SHA-1 and
// RSASSA-PKCS1-v1_5, the scheme CRX2 containers use.
//
// Private key files may be sealed with a passphrase using age (see Seal and
// Open).
package keys
