// Package updatexml renders the gupdate document an extension auto-updater polls.
//
// The output is a fixed template: attribute order, quoting and indentation
// never change, so the same inputs always give byte-identical documents.
package updatexml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	domain "github.com/oshokin/crx-packager/internal/domain/crx"
)

// Filename is the conventional name of the generated document.
const Filename = "update.xml"

var (
	errNoCodebase = errors.New("no URL provided for update.xml")
	errNoAppID    = errors.New("package identifier is not derived yet")
	errNoVersion  = errors.New("version is required")
)

// Generate renders the update document for one package.
func Generate(codebase, version, appID string) ([]byte, error) {
	if codebase == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errNoCodebase)
	}

	if appID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrState, errNoAppID)
	}

	if version == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, errNoVersion)
	}

	var buf bytes.Buffer

	buf.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	buf.WriteString("<gupdate xmlns='http://www.google.com/update2/response' protocol='2.0'>\n")
	buf.WriteString("  <app appid='")
	writeEscaped(&buf, appID)
	buf.WriteString("'>\n    <updatecheck codebase='")
	writeEscaped(&buf, codebase)
	buf.WriteString("' version='")
	writeEscaped(&buf, version)
	buf.WriteString("' />\n  </app>\n</gupdate>")

	return buf.Bytes(), nil
}

// writeEscaped writes value with XML special characters escaped.
func writeEscaped(buf *bytes.Buffer, value string) {
	// Writes to a bytes.Buffer never fail.
	_ = xml.EscapeText(buf, []byte(value))
}
