package crx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
)

// ManifestFilename is the fixed path of the extension manifest inside the archive.
const ManifestFilename = "manifest.json"

// Manifest holds the manifest.json fields the packager relies on.
type Manifest struct {
	// ManifestVersion is the manifest schema version (2 or 3).
	ManifestVersion int `json:"manifest_version"`
	// Name is the human-readable extension name.
	Name string `json:"name"`
	// Version is the extension version advertised in update.xml.
	Version string `json:"version"`
	// Description is an optional short summary.
	Description string `json:"description,omitempty"`
	// UpdateURL is the optional update_url the browser polls.
	UpdateURL string `json:"update_url,omitempty"`
}

// ParseManifest decodes manifest.json contents.
// Comments and trailing commas are tolerated the same way browsers tolerate them.
func ParseManifest(contents []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(jsonc.ToJSON(contents), &manifest); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrValidation, ManifestFilename, err)
	}

	manifest.Name = strings.TrimSpace(manifest.Name)
	manifest.Version = strings.TrimSpace(manifest.Version)

	if manifest.Name == "" {
		return nil, fmt.Errorf("%w: %s has no name", ErrValidation, ManifestFilename)
	}

	if manifest.Version == "" {
		return nil, fmt.Errorf("%w: %s has no version", ErrValidation, ManifestFilename)
	}

	return &manifest, nil
}

// ManifestFrom finds and parses the manifest entry of a file set.
func ManifestFrom(files Files) (*Manifest, error) {
	contents, ok := files[ManifestFilename]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", ErrValidation, ManifestFilename)
	}

	return ParseManifest(contents)
}
