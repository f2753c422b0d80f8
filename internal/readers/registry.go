package readers

import (
	"fmt"
	"sort"

	"github.com/mrlokans/feedimport/internal/entities"
)

// UnknownReaderError is returned for a reader code nothing is registered under.
type UnknownReaderError struct {
	Code string
}

func (e *UnknownReaderError) Error() string {
	return fmt.Sprintf("unknown reader %q", e.Code)
}

// Definition describes a reader kind: its code, its typed options and how
// to build an instance.
type Definition struct {
	Code  string
	Title string

	// NewOptions returns a pointer to the reader's options with defaults
	// applied, or nil when the reader takes no options.
	NewOptions func() any

	New func(fetcher Fetcher, options any) (Reader, error)
}

type Registry struct {
	definitions map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// DefaultRegistry returns a registry with the csv, json, xml and rss readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Definition{
		Code:       CodeCSV,
		Title:      "CSV",
		NewOptions: func() any { return DefaultCSVOptions() },
		New: func(fetcher Fetcher, options any) (Reader, error) {
			opts, ok := options.(*CSVOptions)
			if !ok {
				return nil, fmt.Errorf("csv reader expects *CSVOptions, got %T", options)
			}
			return NewCSVReader(fetcher, opts), nil
		},
	})
	r.Register(Definition{
		Code:  CodeJSON,
		Title: "JSON",
		New: func(fetcher Fetcher, _ any) (Reader, error) {
			return NewJSONReader(fetcher), nil
		},
	})
	r.Register(Definition{
		Code:  CodeXML,
		Title: "XML",
		New: func(fetcher Fetcher, _ any) (Reader, error) {
			return NewXMLReader(fetcher), nil
		},
	})
	r.Register(Definition{
		Code:  CodeRSS,
		Title: "RSS / Atom",
		New: func(fetcher Fetcher, _ any) (Reader, error) {
			return NewRSSReader(fetcher), nil
		},
	})
	return r
}

func (r *Registry) Register(def Definition) {
	r.definitions[def.Code] = def
}

func (r *Registry) Get(code string) (Definition, error) {
	def, ok := r.definitions[code]
	if !ok {
		return Definition{}, &UnknownReaderError{Code: code}
	}
	return def, nil
}

// Codes returns the registered reader codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.definitions))
	for code := range r.definitions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Factory builds the reader configured on a task.
type Factory struct {
	registry *Registry
	fetcher  Fetcher
}

func NewFactory(registry *Registry, fetcher Fetcher) *Factory {
	return &Factory{registry: registry, fetcher: fetcher}
}

func (f *Factory) ForTask(task *entities.Task) (Reader, error) {
	def, err := f.registry.Get(task.ReaderCode)
	if err != nil {
		return nil, err
	}

	var options any
	if def.NewOptions != nil {
		options = def.NewOptions()
		if err := task.DecodeReaderOptions(options); err != nil {
			return nil, err
		}
	}
	return def.New(f.fetcher, options)
}

// Registry returns the registry the factory builds from.
func (f *Factory) Registry() *Registry {
	return f.registry
}
