// Package logger wraps zap with a global sugared console logger and context helpers.
//
// Packaging steps receive a context and log through it, so a command can name
// its logger once (WithName) or attach fields (WithKV) and every step below
// inherits them. Output goes to stderr, leaving stdout to command results.
package logger
