// Package article defines the importer that maps feed records onto articles.
package article

import (
	"context"
	"fmt"

	"github.com/mrlokans/feedimport/internal/database/articles"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
)

const Code = "article"

// NewDefinition returns the article importer backed by the given store.
// A record without a stored target reuses an existing article with the
// same link.
func NewDefinition(store *articles.Store) (importers.Definition, error) {
	fields, err := importers.FieldsFromStruct(entities.Article{})
	if err != nil {
		return importers.Definition{}, fmt.Errorf("failed to build article fields: %w", err)
	}

	return importers.Definition{
		Code:   Code,
		Title:  "Articles",
		Store:  store,
		Fields: fields,
		FindOrCreate: func(ctx context.Context, objects importers.ObjectStore, form *importers.FormData) (importers.Object, error) {
			link, _ := form.Get("link").(string)
			existing, err := store.FindByLink(ctx, link)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return existing, nil
			}
			return objects.New(), nil
		},
	}, nil
}
