package querylanguage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/querygen/dialect/sql"
	sqlschema "github.com/syssam/querygen/dialect/sql/schema"
	"github.com/syssam/querygen/schema"
)

// Document is a parsed descriptor file.
type Document struct {
	// Dialect and Timezone override the defaults of the caller when set.
	Dialect    string      `yaml:"dialect"`
	Timezone   string      `yaml:"timezone"`
	Models     []ModelSpec `yaml:"models"`
	Operations []Operation `yaml:"operations"`

	models map[string]*schema.Model
}

// Parse decodes a descriptor document and links its models. Unknown keys
// are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("querylanguage: %w", err)
	}
	models, err := buildModels(doc.Models)
	if err != nil {
		return nil, fmt.Errorf("querylanguage: %w", err)
	}
	doc.models = models
	for i := range doc.Operations {
		o := &doc.Operations[i]
		o.models = models
		if err := o.validate(); err != nil {
			return nil, fmt.Errorf("querylanguage: operation %s: %w", o.label(i), err)
		}
	}
	return &doc, nil
}

// ParseFile reads and parses the descriptor at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Model returns the declared model with the given name.
func (d *Document) Model(name string) (*schema.Model, bool) {
	m, ok := d.models[name]
	return m, ok
}

// Compile compiles every operation in document order. Compilation stops
// at the first failing operation and no statement is returned.
func (d *Document) Compile(g *sql.Generator) ([]Statement, error) {
	c := &compiler{g: g, e: sqlschema.New(g), models: d.models}
	stmts := make([]Statement, 0, len(d.Operations))
	for i := range d.Operations {
		o := &d.Operations[i]
		query, err := c.compile(o)
		if err != nil {
			return nil, fmt.Errorf("querylanguage: operation %s: %w", o.label(i), err)
		}
		stmts = append(stmts, Statement{Name: o.Name, Op: o.Op(), SQL: query})
	}
	return stmts, nil
}

// label names an operation in error messages.
func (o *Operation) label(i int) string {
	if o.Name != "" {
		return fmt.Sprintf("%q", o.Name)
	}
	return fmt.Sprintf("#%d (%s)", i, o.Kind())
}
