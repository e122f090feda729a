// Package inspect reads a packed .crx file and reports what it contains.
//
// Run parses the container, verifies the archive signature against the
// embedded public key, derives the package identifier and lists the archive
// members. When a build description is given, the package must also match its
// size and checksums. The report is written as YAML.
package inspect
