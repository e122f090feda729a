package crx

import "errors"

var (
	// ErrConfig reports missing or invalid configuration.
	ErrConfig = errors.New("configuration error")
	// ErrValidation reports loaded content that fails structural expectations.
	ErrValidation = errors.New("validation error")
	// ErrKey reports missing or malformed key material.
	ErrKey = errors.New("key error")
	// ErrFormat reports a malformed container buffer or an oversized block.
	ErrFormat = errors.New("format error")
	// ErrState reports an operation invoked before its required predecessor.
	ErrState = errors.New("state error")
)
