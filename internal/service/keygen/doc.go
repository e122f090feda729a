// Package keygen creates signing keys for extension packages.
//
// A key is written as a PKCS#8 PEM file, sealed with a passphrase when one is
// supplied. The identifier of every package signed with the key is derived
// from it and reported on creation.
package keygen
