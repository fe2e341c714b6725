// Package schema defines the static inspection form: its sections, their fields
// and the conditional-visibility rules between fields of the same section.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed sections.yaml
var sectionsYAML []byte

// FieldType is the input widget of a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
)

// Dependency makes a field visible only while another field of the same
// section holds Value.
type Dependency struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value" json:"value"`
}

// Field is one form input.
type Field struct {
	ID          string      `yaml:"id" json:"id"`
	Label       string      `yaml:"label" json:"label"`
	Type        FieldType   `yaml:"type" json:"type"`
	Options     []string    `yaml:"options,omitempty" json:"options,omitempty"`
	Placeholder string      `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	DependsOn   *Dependency `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// Section is an ordered group of fields, optionally asking for one photo.
type Section struct {
	ID            string  `yaml:"id" json:"id"`
	Title         string  `yaml:"title" json:"title"`
	Fields        []Field `yaml:"fields" json:"fields"`
	PhotoRequired bool    `yaml:"photoRequired,omitempty" json:"photoRequired,omitempty"`
	PhotoLabel    string  `yaml:"photoLabel,omitempty" json:"photoLabel,omitempty"`
}

// Schema is the ordered list of sections.
type Schema struct {
	Sections []Section `yaml:"sections" json:"sections"`

	index map[string]int
}

// Key identifies a field by section and field id.
type Key struct {
	Section string `json:"section"`
	Field   string `json:"field"`
}

// String renders the key as "section.field".
func (k Key) String() string {
	return k.Section + "." + k.Field
}

// ParseKey parses a "section.field" key.
func ParseKey(s string) (Key, error) {
	section, field, ok := strings.Cut(s, ".")
	if !ok || section == "" || field == "" || strings.Contains(field, ".") {
		return Key{}, fmt.Errorf("invalid field key %q: want section.field", s)
	}
	return Key{Section: section, Field: field}, nil
}

// Values resolves stored field values. ok is false when nothing is stored.
type Values interface {
	Value(k Key) (string, bool)
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// Default returns the embedded inspection form. It panics if the embedded
// document is invalid, which is a build defect.
func Default() *Schema {
	defaultOnce.Do(func() {
		s, err := Load(sectionsYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded inspection schema: %v", err))
		}
		defaultSchema = s
	})
	return defaultSchema
}

// Load parses and checks a schema document.
func Load(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) check() error {
	if len(s.Sections) == 0 {
		return fmt.Errorf("schema has no sections")
	}

	s.index = make(map[string]int, len(s.Sections))
	for i, sec := range s.Sections {
		if sec.ID == "" {
			return fmt.Errorf("section %d has no id", i)
		}
		if _, dup := s.index[sec.ID]; dup {
			return fmt.Errorf("duplicate section id %q", sec.ID)
		}
		s.index[sec.ID] = i

		fields := make(map[string]bool, len(sec.Fields))
		for _, f := range sec.Fields {
			if f.ID == "" || strings.Contains(f.ID, ".") {
				return fmt.Errorf("section %s: invalid field id %q", sec.ID, f.ID)
			}
			if fields[f.ID] {
				return fmt.Errorf("section %s: duplicate field id %q", sec.ID, f.ID)
			}
			fields[f.ID] = true

			switch f.Type {
			case FieldText, FieldDate, FieldNumber, FieldTextarea:
			case FieldSelect:
				if len(f.Options) == 0 {
					return fmt.Errorf("field %s.%s: select without options", sec.ID, f.ID)
				}
			default:
				return fmt.Errorf("field %s.%s: unknown type %q", sec.ID, f.ID, f.Type)
			}
		}

		// dependencies may only point at fields of the same section
		for _, f := range sec.Fields {
			if f.DependsOn == nil {
				continue
			}
			if f.DependsOn.Field == f.ID || !fields[f.DependsOn.Field] {
				return fmt.Errorf("field %s.%s depends on unknown field %q", sec.ID, f.ID, f.DependsOn.Field)
			}
		}
	}
	return nil
}

// Section returns the section with the given id.
func (s *Schema) Section(id string) (Section, bool) {
	i, ok := s.index[id]
	if !ok {
		return Section{}, false
	}
	return s.Sections[i], true
}

// Field returns the field addressed by k.
func (s *Schema) Field(k Key) (Field, bool) {
	sec, ok := s.Section(k.Section)
	if !ok {
		return Field{}, false
	}
	return sec.Field(k.Field)
}

// Keys returns every field key in form order.
func (s *Schema) Keys() []Key {
	var keys []Key
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			keys = append(keys, Key{Section: sec.ID, Field: f.ID})
		}
	}
	return keys
}

// TotalInputs counts fields plus sections that ask for a photo.
func (s *Schema) TotalInputs() int {
	total := 0
	for _, sec := range s.Sections {
		total += len(sec.Fields)
		if sec.PhotoRequired {
			total++
		}
	}
	return total
}

// Field returns the field with the given id.
func (sec Section) Field(id string) (Field, bool) {
	for _, f := range sec.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Key returns the key of field id in this section.
func (sec Section) Key(id string) Key {
	return Key{Section: sec.ID, Field: id}
}
