// Package version exposes build metadata of crx-packager.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
// The values are printed by the `version` command and recorded in every
// build description.
package version
