// Package schema describes record layouts and binds them to the TSV codec.
//
// A schema is a YAML document:
//
//	name: orders
//	fields:
//	  - name: id
//	    type: long
//	  - name: note
//	    type: text
//	    nullable: true
//
// Field types are the value kind names: boolean, byte, short, int, long,
// float, double, decimal, text, date and datetime. Fields are not nullable
// unless marked so.
package schema

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

var (
	// ErrInvalidSchema is returned when a schema document is malformed.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrNullViolation is returned when a non-nullable field holds null.
	ErrNullViolation = errors.New("null value in non-nullable field")
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one column of a schema.
type Field struct {
	Name     string     `yaml:"name" json:"name"`
	Type     value.Kind `yaml:"type" json:"type"`
	Nullable bool       `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// Schema is an ordered list of fields.
type Schema struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Parse decodes and validates a YAML schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks names and types.
func (s *Schema) Validate() error {
	if !namePattern.MatchString(s.Name) {
		return fmt.Errorf("%w: bad schema name %q", ErrInvalidSchema, s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: schema %s has no fields", ErrInvalidSchema, s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if !namePattern.MatchString(f.Name) {
			return fmt.Errorf("%w: field %d has bad name %q", ErrInvalidSchema, i, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = true
		if _, err := value.New(f.Type); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidSchema, f.Name, err)
		}
	}
	return nil
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Compatible reports whether records of other have the same cell types in
// the same order, so they encode to the same layout.
func (s *Schema) Compatible(other *Schema) bool {
	if s == other {
		return true
	}
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f.Type != other.Fields[i].Type {
			return false
		}
	}
	return true
}

// Marshal encodes the schema as YAML.
func (s *Schema) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// NewRecord returns a record of this schema with every cell null.
func (s *Schema) NewRecord() *Record {
	cells := make([]value.Option, len(s.Fields))
	for i, f := range s.Fields {
		cells[i], _ = value.New(f.Type)
	}
	return &Record{schema: s, cells: cells}
}
