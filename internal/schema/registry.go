package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// requiredFields are the top-level keys a complete invoice record carries.
var requiredFields = []string{"invoice_number", "invoice_date", "total_amount"}

// Registry gives the pipeline and its consumers access to the invoice
// descriptor and the required-field check. Required keys come from the
// compiled presence schema; each key also gets its own single-key schema so
// missing keys can be reported individually.
type Registry struct {
	presence *jsonschema.Schema
	keys     []keySchema
}

type keySchema struct {
	name   string
	schema *jsonschema.Schema
}

// NewRegistry compiles the presence schema for the invoice descriptor.
func NewRegistry() (*Registry, error) {
	doc, err := presenceDocument(requiredFields)
	if err != nil {
		return nil, err
	}
	return NewRegistryFromSchema(doc)
}

// NewRegistryFromSchema builds a registry from a JSON schema document. The
// schema's top-level "required" list defines the required keys.
func NewRegistryFromSchema(doc []byte) (*Registry, error) {
	presence, err := compileSchema("invoice.json", doc)
	if err != nil {
		return nil, err
	}
	r := &Registry{presence: presence}
	for i, name := range presence.Required {
		keyDoc, err := presenceDocument([]string{name})
		if err != nil {
			return nil, err
		}
		s, err := compileSchema(fmt.Sprintf("required-%d.json", i), keyDoc)
		if err != nil {
			return nil, fmt.Errorf("required key %q: %w", name, err)
		}
		r.keys = append(r.keys, keySchema{name: name, schema: s})
	}
	return r, nil
}

// Descriptor returns a fresh copy of the invoice descriptor.
func (r *Registry) Descriptor() Descriptor {
	return Invoice()
}

// RequiredFields returns a copy of the required top-level keys.
func (r *Registry) RequiredFields() []string {
	names := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		names = append(names, k.name)
	}
	return names
}

// Describe renders the descriptor as indented JSON for the prompt.
func (r *Registry) Describe() (string, error) {
	return Describe(Invoice())
}

// Describe renders d as JSON indented by two spaces.
func Describe(d Descriptor) (string, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", fmt.Errorf("schema: indent descriptor: %w", err)
	}
	return out.String(), nil
}

// MissingRequired lists the required keys absent from record, in
// declaration order. A key that is present with a null value counts as
// present.
func (r *Registry) MissingRequired(record map[string]any) []string {
	if r.Validate(record) == nil {
		return nil
	}
	if record == nil {
		record = map[string]any{}
	}
	var missing []string
	for _, k := range r.keys {
		if err := k.schema.Validate(record); err != nil {
			missing = append(missing, k.name)
		}
	}
	return missing
}

// Validate runs the presence schema against record.
func (r *Registry) Validate(record map[string]any) error {
	if record == nil {
		record = map[string]any{}
	}
	if err := r.presence.Validate(record); err != nil {
		return fmt.Errorf("invoice record incomplete: %w", err)
	}
	return nil
}

// presenceDocument builds a JSON schema that only requires the given keys on
// an object. Property types are not constrained.
func presenceDocument(required []string) ([]byte, error) {
	b, err := json.Marshal(map[string]any{
		"type":     "object",
		"required": required,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return b, nil
}

func compileSchema(name string, doc []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}
