// Package archive converts between an in-memory file set and a ZIP buffer.
//
// Output is deterministic: entries are written in lexical order with a fixed
// modification time and a fixed deflate level, so the same file set always
// yields the same bytes. The package also reads file sets from disk, either a
// whole directory tree or an explicit list of relative paths.
package archive
