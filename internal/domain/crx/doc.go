// Package crx contains core domain types shared by the packaging pipeline.
//
// It defines Files (the in-memory archive contents), Manifest (the parsed
// manifest.json of an extension) and the error taxonomy every package wraps
// its failures with, so callers can classify them with errors.Is.
package crx
