// Package container assembles and parses CRX2 packages.
//
// Layout, all integers little-endian uint32:
//
//	magic "Cr24" | version 2 | public key length | signature length |
//	public key (DER) | signature | ZIP archive (rest of the buffer)
//
// Assembled containers carry no timestamps or padding, so identical inputs
// always give identical bytes.
package container
