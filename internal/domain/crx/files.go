package crx

import (
	"maps"
	"slices"
)

// Files maps slash-separated paths relative to the extension root to their contents.
type Files map[string][]byte

// Names returns the entry names in lexical order.
func (f Files) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Clone returns a deep copy of the file set.
func (f Files) Clone() Files {
	if f == nil {
		return nil
	}

	cloned := make(Files, len(f))
	for name, contents := range f {
		cloned[name] = slices.Clone(contents)
	}

	return cloned
}

// Size returns the total number of content bytes.
func (f Files) Size() int64 {
	var total int64
	for _, contents := range f {
		total += int64(len(contents))
	}

	return total
}
