// Command schema exports the JSON schema that validates
// designer-authored element-type catalog files. Without --out the
// schema is written to stdout; with it, the file is replaced
// atomically.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"tankdown/client/internal/catalog"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema; stdout when omitted")
	flag.Parse()

	if err := run(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(catalog.FileElements))
	schema.Title = "Tankdown Element Catalog"
	schema.Description = "Validates designer-authored entries in the element-type catalog"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return replaceFile(outPath, data)
}

// replaceFile writes via a temp file and rename so a partially written
// schema never lands at the target path.
func replaceFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
