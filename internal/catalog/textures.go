package catalog

import (
	"encoding/json"
	"fmt"
)

// Textures maps logical texture names to their resource paths.
type Textures struct {
	paths map[string]string
}

// ParseTextures decodes a texture catalog document: a flat mapping from
// logical name to resource path.
func ParseTextures(data []byte) (*Textures, error) {
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode texture catalog: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("texture catalog is empty")
	}
	for name, path := range doc {
		if name == "" || path == "" {
			return nil, fmt.Errorf("texture catalog entry %q -> %q is incomplete", name, path)
		}
	}
	return &Textures{paths: doc}, nil
}

// Path resolves a logical texture name.
func (t *Textures) Path(name string) (string, bool) {
	p, ok := t.paths[name]
	return p, ok
}

// Len reports the number of catalog entries.
func (t *Textures) Len() int { return len(t.paths) }
