// Package toolregistry resolves named tools to invokable units with a typed
// argument schema and a uniform invocation contract, per spec.md 4.B.
package toolregistry

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Field describes one argument: its JSON Schema type, whether it is
// required, an optional default, and an optional enum constraint.
type Field struct {
	Name     string
	Type     string // "string", "number", "boolean", "integer", "object", "array"
	Required bool
	Default  interface{}
	Enum     []string
}

// ArgSchema is the ordered collection of typed fields a tool declares, used
// both for incoming validation and for advertising the tool to a backend's
// tool-binding channel.
type ArgSchema struct {
	Fields   []Field
	compiled *jsonschema.Schema
}

// Compile builds the jsonschema.Schema backing Validate. Called once at
// registration time so invocation-time validation never pays parse cost.
func (s *ArgSchema) Compile() error {
	raw := s.jsonSchemaDocument()
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("toolregistry: encode schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", mustUnmarshal(encoded)); err != nil {
		return fmt.Errorf("toolregistry: add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("toolregistry: compile schema: %w", err)
	}
	s.compiled = compiled
	return nil
}

func mustUnmarshal(b []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		panic(err)
	}
	return v
}

// JSONSchema returns the JSON Schema document describing s, for advertising
// the tool's argument shape to a backend's native tool-binding format.
func (s *ArgSchema) JSONSchema() map[string]interface{} {
	return s.jsonSchemaDocument()
}

func (s *ArgSchema) jsonSchemaDocument() map[string]interface{} {
	properties := map[string]interface{}{}
	var required []string
	for _, f := range s.Fields {
		prop := map[string]interface{}{"type": f.Type}
		if len(f.Enum) > 0 {
			enum := make([]interface{}, len(f.Enum))
			for i, v := range f.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

// ValidationResult reports whether normalized args pass the schema, per
// spec.md 4.B's tie-break policy. MissingFields lists only required fields
// that are absent; a field with a wrong type or value is not listed.
type ValidationResult struct {
	Valid         bool
	MissingFields []string
}

// Validate runs args (already normalized) against the compiled schema. Its
// caller owns turning a non-valid result into the typed
// tool-validation-failed observation spec.md 4.E describes.
func (s *ArgSchema) Validate(args map[string]interface{}) ValidationResult {
	if s.compiled == nil {
		return ValidationResult{Valid: true}
	}
	if err := s.compiled.Validate(args); err != nil {
		return ValidationResult{Valid: false, MissingFields: missingRequired(s.Fields, args)}
	}
	return ValidationResult{Valid: true}
}

func missingRequired(fields []Field, args map[string]interface{}) []string {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if _, ok := args[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
