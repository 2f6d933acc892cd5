// Package catalog parses the designer-authored element-type and texture
// catalogs consumed by the event engine. Absent part fields get their
// defaults exactly once here, at load time: offsets default to 0, sizes
// to 1, and the background flag to false.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Part is one drawable piece of an element type, fully resolved.
type Part struct {
	Texture    string  `json:"texture"`
	OffsetX    float64 `json:"offsetX"`
	OffsetY    float64 `json:"offsetY"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Background bool    `json:"background"`
}

// ElementType describes how one element kind is assembled from parts.
type ElementType struct {
	Name  string `json:"name"`
	Parts []Part `json:"parts"`
}

// Elements is the resolved element-type catalog keyed by type name.
type Elements struct {
	types map[string]ElementType
}

// PartDoc models the JSON contract for a drawable part as authored.
// Pointer fields distinguish absent values from explicit zeros so the
// loader can apply defaults.
type PartDoc struct {
	Texture    string   `json:"texture" jsonschema:"title=Texture name,description=Logical texture name resolved through the texture catalog"`
	OffsetX    *float64 `json:"offsetX,omitempty" jsonschema:"description=Horizontal offset from the element origin; defaults to 0"`
	OffsetY    *float64 `json:"offsetY,omitempty" jsonschema:"description=Vertical offset from the element origin; defaults to 0"`
	Width      *float64 `json:"width,omitempty" jsonschema:"description=Part width in world units; defaults to 1"`
	Height     *float64 `json:"height,omitempty" jsonschema:"description=Part height in world units; defaults to 1"`
	Background *bool    `json:"background,omitempty" jsonschema:"description=Whether the part renders behind other parts; defaults to false"`
}

// FileElements represents the contents of the element-type catalog
// file: a mapping from type name to its part list.
type FileElements map[string][]PartDoc

// ParseElements decodes and resolves an element-type catalog document.
func ParseElements(data []byte) (*Elements, error) {
	var doc FileElements
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode element catalog: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("element catalog is empty")
	}

	types := make(map[string]ElementType, len(doc))
	for name, partDocs := range doc {
		if name == "" {
			return nil, fmt.Errorf("element catalog contains an unnamed type")
		}
		if len(partDocs) == 0 {
			return nil, fmt.Errorf("element type %q has no parts", name)
		}
		parts := make([]Part, 0, len(partDocs))
		for i, pd := range partDocs {
			if pd.Texture == "" {
				return nil, fmt.Errorf("element type %q part %d has no texture", name, i)
			}
			parts = append(parts, resolvePart(pd))
		}
		types[name] = ElementType{Name: name, Parts: parts}
	}
	return &Elements{types: types}, nil
}

func resolvePart(doc PartDoc) Part {
	part := Part{
		Texture: doc.Texture,
		Width:   1,
		Height:  1,
	}
	if doc.OffsetX != nil {
		part.OffsetX = *doc.OffsetX
	}
	if doc.OffsetY != nil {
		part.OffsetY = *doc.OffsetY
	}
	if doc.Width != nil {
		part.Width = *doc.Width
	}
	if doc.Height != nil {
		part.Height = *doc.Height
	}
	if doc.Background != nil {
		part.Background = *doc.Background
	}
	return part
}

// Lookup returns the element type for name.
func (e *Elements) Lookup(name string) (ElementType, bool) {
	t, ok := e.types[name]
	return t, ok
}

// Has reports whether name is a known element type.
func (e *Elements) Has(name string) bool {
	_, ok := e.types[name]
	return ok
}

// Names returns all type names, sorted.
func (e *Elements) Names() []string {
	names := make([]string, 0, len(e.types))
	for name := range e.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON renders the resolved catalog, keyed by type name.
func (e *Elements) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.types)
}
