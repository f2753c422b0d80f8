package importers

import (
	"io"

	"go.uber.org/zap"

	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/readers"
)

type Config struct {
	BatchLength int

	// Output receives the run summary table.
	Output io.Writer
}

// Factory builds the importer configured on a task.
type Factory struct {
	registry *Registry
	readers  *readers.Factory
	items    ItemStore
	flusher  Flusher
	logger   *zap.Logger
	config   Config
}

func NewFactory(registry *Registry, readerFactory *readers.Factory, items ItemStore, flusher Flusher, logger *zap.Logger, config Config) *Factory {
	if config.BatchLength <= 0 {
		config.BatchLength = DefaultBatchLength
	}
	if config.Output == nil {
		config.Output = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		registry: registry,
		readers:  readerFactory,
		items:    items,
		flusher:  flusher,
		logger:   logger,
		config:   config,
	}
}

// ForTask returns an importer for the task. Unknown importer or reader codes
// and invalid importer options are reported as *ConfigurationError.
func (f *Factory) ForTask(task *entities.Task) (*Importer, error) {
	def, err := f.registry.Get(task.ImporterCode)
	if err != nil {
		return nil, err
	}

	options, err := task.GetImporterOptions()
	if err != nil {
		return nil, &ConfigurationError{Msg: "invalid importer options", Err: err}
	}
	if err := options.Validate(); err != nil {
		return nil, &ConfigurationError{Msg: "invalid importer options", Err: err}
	}

	reader, err := f.readers.ForTask(task)
	if err != nil {
		return nil, &ConfigurationError{Msg: "invalid reader", Err: err}
	}

	return &Importer{
		def:         def,
		task:        task,
		reader:      reader,
		items:       f.items,
		flusher:     f.flusher,
		logger:      f.logger,
		out:         f.config.Output,
		batchLength: f.config.BatchLength,
		options:     options,
		fields:      def.Fields.WithOptions(options.Fields),
	}, nil
}

// Registry returns the registry the factory builds from.
func (f *Factory) Registry() *Registry {
	return f.registry
}
