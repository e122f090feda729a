// Package packager runs the pack workflow behind the CLI.
//
// It merges the settings file with command-line overrides, loads the
// extension, writes the signed .crx, and optionally writes update.xml and a
// YAML build description with checksums of the produced package.
package packager
