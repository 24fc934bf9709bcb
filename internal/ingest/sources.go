package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// SourceMap maps document names to the URL the model card was taken from
type SourceMap map[string]string

// LoadSourceMap reads a JSON object of name -> URL.
// A missing file is not an error and yields an empty map.
func LoadSourceMap(path string) (SourceMap, error) {
	if path == "" {
		return SourceMap{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return SourceMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read source map: %w", err)
	}

	var m SourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse source map %s: %w", path, err)
	}
	if m == nil {
		m = SourceMap{}
	}
	return m, nil
}

// URL returns the origin URL for a document, or nil when unknown
func (m SourceMap) URL(name string) *string {
	u, ok := m[name]
	if !ok || u == "" {
		return nil
	}
	return &u
}
