package importers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/feedimport/internal/entities"
)

func TestResolve(t *testing.T) {
	record := map[string]any{
		"a":     map[string]any{"b": 5, "nil": nil},
		"media": []any{map[string]any{"url": "first"}, map[string]any{"url": "second"}},
		"flat":  "value",
	}

	tests := []struct {
		name string
		path string
		want any
	}{
		{"nested key", "a/b", 5},
		{"missing leaf", "a/c", nil},
		{"missing branch", "x/y", nil},
		{"nil value", "a/nil", nil},
		{"list index", "media/1/url", "second"},
		{"list index out of range", "media/5/url", nil},
		{"non numeric list segment", "media/url", nil},
		{"descend into scalar", "flat/x", nil},
		{"empty path", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(record, tt.path, "/"))
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty([]any{}))
	assert.True(t, IsEmpty(map[string]any{}))
	assert.True(t, IsEmpty([]string{}))

	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty(float64(0)))
	assert.False(t, IsEmpty(false))
	assert.False(t, IsEmpty(" "))
	assert.False(t, IsEmpty([]any{nil}))
}

func TestImportedValue_FallbackChain(t *testing.T) {
	record := map[string]any{"a": map[string]any{"b": 5, "empty": ""}}

	assert.Nil(t, ImportedValue(record, "field", entities.FieldOptions{Key: "a/c"}))

	withFallback := entities.FieldOptions{Key: "a/c", FallbackKeys: []string{"a/empty", "a/b"}}
	assert.Equal(t, 5, ImportedValue(record, "field", withFallback))

	withDefault := entities.FieldOptions{Key: "a/c", DefaultValue: "none"}
	assert.Equal(t, "none", ImportedValue(record, "field", withDefault))
}

func TestImportedValue_FirstNonEmptyFallbackWins(t *testing.T) {
	record := map[string]any{"first": "one", "second": "two"}
	opts := entities.FieldOptions{Key: "missing", FallbackKeys: []string{"first", "second"}}

	assert.Equal(t, "one", ImportedValue(record, "field", opts))
}

func TestImportedValue_LiteralNameWithoutKey(t *testing.T) {
	record := map[string]any{"author.name": "  Jane ", "author": map[string]any{"name": "nested"}}

	assert.Equal(t, "Jane", ImportedValue(record, "author.name", entities.FieldOptions{}))
	assert.Equal(t, "fallback", ImportedValue(record, "missing", entities.FieldOptions{DefaultValue: "fallback"}))
}

func TestImportedValue_ZeroIsAValue(t *testing.T) {
	record := map[string]any{"count": float64(0), "flag": false}

	assert.Equal(t, float64(0), ImportedValue(record, "x", entities.FieldOptions{Key: "count", DefaultValue: 10}))
	assert.Equal(t, false, ImportedValue(record, "x", entities.FieldOptions{Key: "flag", DefaultValue: true}))
}
