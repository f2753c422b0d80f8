package importers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/feedimport/internal/entities"
)

type testTarget struct {
	Title   string `form:"title" label:"Title"`
	Ignored string
	Skipped string `form:"-"`
	Owner   struct {
		Name    string `form:"name"`
		Contact struct {
			Email string `form:"email"`
		} `form:"contact"`
	} `form:"owner"`
	PublishedAt *time.Time `form:"published_at"`
}

func TestFieldsFromStruct(t *testing.T) {
	set, err := FieldsFromStruct(&testTarget{})
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "owner.name", "owner.contact.email", "published_at"}, set.Names())

	title, ok := set.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Title", title.Label)

	name, ok := set.Get("owner.name")
	require.True(t, ok)
	assert.Equal(t, "owner.name", name.Label)
}

func TestFieldsFromStruct_RequiresStruct(t *testing.T) {
	_, err := FieldsFromStruct("nope")
	assert.Error(t, err)
}

func TestFieldSet_DuplicateNames(t *testing.T) {
	_, err := NewFieldSet(NewImportableField("a", "", 1), NewImportableField("a", "", 2))
	assert.Error(t, err)
}

func TestFieldSet_OrderAndOptions(t *testing.T) {
	set, err := NewFieldSet(
		NewImportableField("b", "", 2),
		NewImportableField("c", "", 1),
		NewImportableField("a", "", 2),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, set.Names())

	configured := set.WithOptions(map[string]entities.FieldOptions{
		"a":       {Key: "source/a"},
		"unknown": {Key: "ignored"},
	})

	field, _ := configured.Get("a")
	assert.Equal(t, "source/a", field.Options.Key)
	assert.Equal(t, 3, configured.Len())

	original, _ := set.Get("a")
	assert.Empty(t, original.Options.Key)
}
