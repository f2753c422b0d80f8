package importers

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/mrlokans/feedimport/internal/entities"
)

// Resolve walks a decoded record along a delimited path. Map segments are
// looked up by key and list segments by numeric index. A missing segment
// yields nil.
func Resolve(record any, path, delimiter string) any {
	if path == "" {
		return nil
	}

	current := record
	for _, segment := range strings.Split(path, delimiter) {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil
			}
			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil
			}
			current = node[index]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}

// IsEmpty reports whether a resolved value counts as missing: nil, the empty
// string, or an empty list or map. Zero and false are values.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ImportedValue resolves the value of one field from a record. Without a
// configured key the field name is looked up as a literal top level key.
// Fallback keys are tried in order while the value is empty, then the
// default applies. String results are trimmed.
func ImportedValue(record map[string]any, name string, opts entities.FieldOptions) any {
	var value any
	if opts.Key == "" {
		value = record[name]
	} else {
		value = Resolve(record, opts.Key, entities.PathDelimiter)
		for _, key := range opts.FallbackKeys {
			if !IsEmpty(value) {
				break
			}
			value = Resolve(record, key, entities.PathDelimiter)
		}
	}

	if IsEmpty(value) && opts.DefaultValue != nil {
		value = opts.DefaultValue
	}
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	return value
}
