// Package config defines the packaging settings used by the CLI and provides
// helpers to read, validate, merge and save them in YAML format.
//
// The Config type names the extension root, the key material, the output
// files and the update codebase URL.
package config
