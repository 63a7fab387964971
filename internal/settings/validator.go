package settings

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names one family of admin-editable settings.
type Kind string

const (
	KindROI      Kind = "roi"
	KindReinvest Kind = "reinvest"
	KindTax      Kind = "tax"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrValidation can be used with errors.Is to detect rejected setting payloads.
var ErrValidation = errors.New("validation failed")

// ErrUnknownKind is returned for a settings kind with no schema.
var ErrUnknownKind = errors.New("unknown settings kind")

type Validator struct {
	schemas map[Kind]*jsonschema.Schema
}

// NewValidator compiles every embedded schema, keyed by file name.
func NewValidator() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	schemas := make(map[Kind]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		kind := Kind(strings.TrimSuffix(name, ".json"))
		s, err := jsonschema.CompileString("https://minerledger.dev/schemas/settings/"+name, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", kind, err)
		}
		schemas[kind] = s
	}
	return &Validator{schemas: schemas}, nil
}

// Validate checks payload against the schema of kind.
func (v *Validator) Validate(kind Kind, payload json.RawMessage) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
