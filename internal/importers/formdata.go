package importers

import "strings"

// FormData holds the values resolved for every importable field of one record.
type FormData struct {
	names  []string
	values map[string]any
	patch  bool
}

// BuildFormData resolves every field of the set against a record.
func BuildFormData(fields *FieldSet, record map[string]any) *FormData {
	form := &FormData{values: make(map[string]any, fields.Len())}
	for _, field := range fields.Fields() {
		form.names = append(form.names, field.Name())
		form.values[field.Name()] = ImportedValue(record, field.Name(), field.Options)
	}
	return form
}

// SetPatch switches patch mode, in which empty values are left out of Data.
func (f *FormData) SetPatch(patch bool) {
	f.patch = patch
}

func (f *FormData) Patch() bool {
	return f.patch
}

func (f *FormData) Get(name string) any {
	return f.values[name]
}

// Flat returns the resolved values keyed by full field name.
func (f *FormData) Flat() map[string]any {
	flat := make(map[string]any, len(f.values))
	for name, value := range f.values {
		flat[name] = value
	}
	return flat
}

// Data returns the values as nested maps, splitting compound names.
func (f *FormData) Data() map[string]any {
	data := map[string]any{}
	for _, name := range f.names {
		value := f.values[name]
		if f.patch && IsEmpty(value) {
			continue
		}

		parts := strings.Split(name, CompoundDelimiter)
		node := data
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return data
}
