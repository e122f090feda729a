// Package extension coordinates one packaging session.
//
// An Extension moves through three states. Load, LoadFiles or LoadArchive
// fill the in-memory file set and validate its manifest.json; Pack builds the
// archive, resolves the key pair, derives the identifier, signs the archive
// and assembles the container; GenerateUpdateXML and WriteFile then work
// from the packed container.
//
// Every operation either completes and moves the session forward or fails
// and leaves it unchanged. An Extension is not safe for concurrent use:
// sessions are cheap, so concurrent work should use one session per task.
package extension
