package importers

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/mrlokans/feedimport/internal/entities"
)

// CompoundDelimiter joins the names of nested form fields, e.g. "author.name".
const CompoundDelimiter = "."

// ImportableField is one mappable property of a target form.
type ImportableField struct {
	name     string
	Label    string
	Position int
	Options  entities.FieldOptions
}

func NewImportableField(name, label string, position int) *ImportableField {
	if label == "" {
		label = name
	}
	return &ImportableField{name: name, Label: label, Position: position}
}

func (f *ImportableField) Name() string {
	return f.name
}

// FieldSet is an ordered collection of importable fields with unique names.
type FieldSet struct {
	fields map[string]*ImportableField
}

func NewFieldSet(fields ...*ImportableField) (*FieldSet, error) {
	set := &FieldSet{fields: make(map[string]*ImportableField, len(fields))}
	for _, field := range fields {
		if err := set.Add(field); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (s *FieldSet) Add(field *ImportableField) error {
	if _, ok := s.fields[field.name]; ok {
		return fmt.Errorf("duplicate importable field %q", field.name)
	}
	s.fields[field.name] = field
	return nil
}

func (s *FieldSet) Get(name string) (*ImportableField, bool) {
	field, ok := s.fields[name]
	return field, ok
}

func (s *FieldSet) Len() int {
	return len(s.fields)
}

// Fields returns the fields ordered by position, then name.
func (s *FieldSet) Fields() []*ImportableField {
	fields := make([]*ImportableField, 0, len(s.fields))
	for _, field := range s.fields {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Position != fields[j].Position {
			return fields[i].Position < fields[j].Position
		}
		return fields[i].name < fields[j].name
	})
	return fields
}

func (s *FieldSet) Names() []string {
	fields := s.Fields()
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.name)
	}
	return names
}

// WithOptions returns a copy of the set with per-task field options applied.
// Options for unknown fields are ignored.
func (s *FieldSet) WithOptions(options map[string]entities.FieldOptions) *FieldSet {
	clone := &FieldSet{fields: make(map[string]*ImportableField, len(s.fields))}
	for name, field := range s.fields {
		copied := *field
		if opts, ok := options[name]; ok {
			copied.Options = opts
		}
		clone.fields[name] = &copied
	}
	return clone
}

var timeType = reflect.TypeOf(time.Time{})

// FieldsFromStruct derives importable fields from the `form` tags of a
// struct. Nested structs contribute compound names. An optional `label`
// tag sets the human readable label.
func FieldsFromStruct(v any) (*FieldSet, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("importable fields need a struct, got %T", v)
	}

	set := &FieldSet{fields: make(map[string]*ImportableField)}
	position := 0
	if err := collectFields(set, t, nil, &position); err != nil {
		return nil, err
	}
	return set, nil
}

func collectFields(set *FieldSet, t reflect.Type, prefix []string, position *int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("form")
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}
		name := strings.Split(tag, ",")[0]
		path := append(append([]string{}, prefix...), name)

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != timeType {
			if err := collectFields(set, ft, path, position); err != nil {
				return err
			}
			continue
		}

		*position++
		field := NewImportableField(strings.Join(path, CompoundDelimiter), sf.Tag.Get("label"), *position)
		if err := set.Add(field); err != nil {
			return err
		}
	}
	return nil
}
