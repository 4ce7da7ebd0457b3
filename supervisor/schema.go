package supervisor

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const manifestSchemaFile = "manifest.schema.json"

// ManifestSchema is the json schema of the run manifest.
const ManifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "localnet run manifest",
  "type": "object",
  "required": ["run_id", "started_at", "profile", "binary", "nodes"],
  "properties": {
    "run_id": {"type": "string", "minLength": 1},
    "started_at": {"type": "string", "format": "date-time"},
    "profile": {"enum": ["network", "port"]},
    "binary": {"type": "string", "minLength": 1},
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["index", "data_dir", "pid", "args"],
        "properties": {
          "index": {"type": "integer", "minimum": 0},
          "data_dir": {"type": "string", "minLength": 1},
          "listen": {"type": "string"},
          "external": {"type": "string"},
          "bootstrap": {"type": "string"},
          "port": {"type": "integer", "minimum": 1, "maximum": 65535},
          "pid": {"type": "integer", "minimum": 0},
          "args": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// manifestSchema is compiled on first use. Formats such as date-time are asserted.
var manifestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(manifestSchemaFile, strings.NewReader(ManifestSchema)); err != nil {
		return nil, fmt.Errorf("add manifest json schema: %w", err)
	}
	sch, err := c.Compile(manifestSchemaFile)
	if err != nil {
		return nil, fmt.Errorf("compile manifest json schema: %w", err)
	}
	return sch, nil
})

// ValidateManifest checks m against ManifestSchema.
func ValidateManifest(m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return validateManifestData(data)
}

func validateManifestData(data []byte) error {
	sch, err := manifestSchema()
	if err != nil {
		return err
	}
	var v any
	if err = json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal manifest: %w", err)
	}
	if err = sch.Validate(v); err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	return nil
}
