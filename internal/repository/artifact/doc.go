// Package artifact stores the files produced by a pack run.
//
// The FileRepository replaces files atomically, so a web server publishing
// the output directory never serves a partially written update.xml or package.
package artifact
