package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema/modpack.schema.json
var modpackSchema []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, compileErr = compiler.Compile(modpackSchema)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile modpack schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks a JSON manifest document against the modpack schema and
// rejects duplicate mod filenames.
func Validate(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("schema validation failed: %v", err)
	}
	result := schema.Validate(instance)
	if !result.IsValid() {
		return fmt.Errorf("schema validation failed: %v", result.Errors)
	}

	var doc struct {
		Mods []struct {
			Filename string `json:"filename"`
		} `json:"mods"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	seen := make(map[string]bool, len(doc.Mods))
	for _, m := range doc.Mods {
		if seen[m.Filename] {
			return fmt.Errorf("duplicate mod filename %q", m.Filename)
		}
		seen[m.Filename] = true
	}
	return nil
}
