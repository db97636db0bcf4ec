// Package catalog is the read-only directory of case types and the documents
// each one requires. It is loaded once at startup and never mutated.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	dErrors "casedesk/pkg/domain-errors"
)

// ErrTypeNotFound is returned when a case type id or name is unknown.
var ErrTypeNotFound = errors.New("case type not found")

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog holds case type definitions in their declared order.
type Catalog struct {
	types  []CaseTypeDefinition
	byID   map[string]int
	byName map[string]int
}

type document struct {
	Types []CaseTypeDefinition `yaml:"types"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and checks that ids and names are unique.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Types)
}

// New builds a catalog from definitions.
func New(types []CaseTypeDefinition) (*Catalog, error) {
	c := &Catalog{
		types:  make([]CaseTypeDefinition, 0, len(types)),
		byID:   make(map[string]int, len(types)),
		byName: make(map[string]int, len(types)),
	}
	for _, t := range types {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("catalog entry missing id or name: %+v", t)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate case type id %q", t.ID)
		}
		key := strings.ToLower(t.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate case type name %q", t.Name)
		}
		c.byID[t.ID] = len(c.types)
		c.byName[key] = len(c.types)
		c.types = append(c.types, t.clone())
	}
	return c, nil
}

// ListTypes returns every case type in catalog order.
func (c *Catalog) ListTypes() []CaseTypeDefinition {
	out := make([]CaseTypeDefinition, len(c.types))
	for i, t := range c.types {
		out[i] = t.clone()
	}
	return out
}

// GetType returns the case type with the given id.
func (c *Catalog) GetType(id string) (CaseTypeDefinition, error) {
	idx, ok := c.byID[id]
	if !ok {
		return CaseTypeDefinition{}, dErrors.Wrap(ErrTypeNotFound, dErrors.CodeNotFound, "case type not found")
	}
	return c.types[idx].clone(), nil
}

// FindByName returns the case type with the given display name, case-insensitively.
// Cases record the type by name, so this is the lookup used when inspecting one.
func (c *Catalog) FindByName(name string) (CaseTypeDefinition, error) {
	idx, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return CaseTypeDefinition{}, dErrors.Wrap(ErrTypeNotFound, dErrors.CodeNotFound, "case type not found")
	}
	return c.types[idx].clone(), nil
}

// MissingRequired returns the required document names of typeName for which
// uploadedTypes has no entry. Membership is informational only.
func (c *Catalog) MissingRequired(typeName string, uploadedTypes []string) ([]string, error) {
	def, err := c.FindByName(typeName)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(uploadedTypes))
	for _, t := range uploadedTypes {
		have[t] = struct{}{}
	}
	var missing []string
	for _, name := range def.RequiredNames() {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
