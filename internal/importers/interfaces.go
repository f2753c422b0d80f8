package importers

import (
	"context"

	"github.com/mrlokans/feedimport/internal/entities"
)

// Object is a target domain object produced by an import.
type Object interface {
	ObjectID() string
	ObjectType() string

	// IsNew reports whether the object was never saved.
	IsNew() bool
}

type FormOptions struct {
	// ClearMissing resets fields absent from the form data instead of
	// keeping their current value.
	ClearMissing bool
}

// ObjectStore validates and persists target objects from form data.
type ObjectStore interface {
	Type() string
	New() Object

	// Find returns ErrObjectNotFound for an unknown id.
	Find(ctx context.Context, id string) (Object, error)

	// ProcessForm applies form data to the object and validates it. A
	// rejected form is reported as a *ValidationError.
	ProcessForm(obj Object, data map[string]any, opts FormOptions) error

	// Save stores the object. Without flush the write may stay buffered
	// until the next checkpoint.
	Save(ctx context.Context, obj Object, flush bool) error
}

// ItemStore is the import ledger.
type ItemStore interface {
	// GetImportedItem returns the item with itemID, or the latest version of
	// the entry, or nil for an entry the task never saw.
	GetImportedItem(ctx context.Context, taskID uint, entryID, itemID string) (*entities.Item, error)

	// Get returns nil when there is no item with the id.
	Get(ctx context.Context, id string) (*entities.Item, error)

	Save(ctx context.Context, item *entities.Item) error
}

// Flusher commits buffered writes.
type Flusher interface {
	Flush(ctx context.Context) error
}
