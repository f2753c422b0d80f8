package importers

import (
	"context"
	"fmt"
	"sort"
)

// Definition describes an importer kind: which object store it writes to,
// which fields it maps and the hooks it runs around each object update.
type Definition struct {
	Code   string
	Title  string
	Store  ObjectStore
	Fields *FieldSet

	// FindOrCreate returns the object a record without a stored target maps
	// onto. Defaults to Store.New.
	FindOrCreate func(ctx context.Context, store ObjectStore, form *FormData) (Object, error)

	BeforeObjectUpdate func(ctx context.Context, obj Object, form *FormData) error
	AfterObjectUpdate  func(ctx context.Context, obj Object, form *FormData) error
}

type Registry struct {
	definitions map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

func (r *Registry) Register(def Definition) error {
	if def.Code == "" {
		return fmt.Errorf("importer definition needs a code")
	}
	if def.Store == nil || def.Fields == nil {
		return fmt.Errorf("importer %q needs a store and fields", def.Code)
	}
	if _, ok := r.definitions[def.Code]; ok {
		return fmt.Errorf("importer %q is already registered", def.Code)
	}
	r.definitions[def.Code] = def
	return nil
}

// Get returns a *ConfigurationError for an unknown code.
func (r *Registry) Get(code string) (Definition, error) {
	def, ok := r.definitions[code]
	if !ok {
		return Definition{}, &ConfigurationError{Msg: fmt.Sprintf("unknown importer %q", code)}
	}
	return def, nil
}

func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.definitions))
	for code := range r.definitions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
