package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefinition_Fields(t *testing.T) {
	def, err := NewDefinition(nil)
	require.NoError(t, err)

	assert.Equal(t, Code, def.Code)
	assert.Equal(t, []string{
		"title", "link", "summary", "content", "category", "image_url",
		"rating", "featured", "author.name", "author.email", "published_at",
	}, def.Fields.Names())

	field, ok := def.Fields.Get("author.email")
	require.True(t, ok)
	assert.Equal(t, "Author email", field.Label)
}
