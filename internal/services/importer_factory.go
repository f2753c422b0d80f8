package services

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/feedimport/internal/database"
	"github.com/mrlokans/feedimport/internal/database/articles"
	"github.com/mrlokans/feedimport/internal/database/items"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/importers/article"
	"github.com/mrlokans/feedimport/internal/readers"
)

// DefinitionsFunc returns the importer definitions bound to one unit of work.
type DefinitionsFunc func(db *gorm.DB, uow *database.UnitOfWork) ([]importers.Definition, error)

// DefaultDefinitions registers the article importer.
func DefaultDefinitions(db *gorm.DB, uow *database.UnitOfWork) ([]importers.Definition, error) {
	def, err := article.NewDefinition(articles.NewStore(db, uow))
	if err != nil {
		return nil, err
	}
	return []importers.Definition{def}, nil
}

// ImporterFactory builds importers backed by the database. Every importer
// gets its own unit of work, so concurrent runs never share buffered writes.
type ImporterFactory struct {
	db          *gorm.DB
	readers     *readers.Factory
	definitions DefinitionsFunc
	logger      *zap.Logger
	config      importers.Config
}

func NewImporterFactory(db *gorm.DB, readerFactory *readers.Factory, definitions DefinitionsFunc, logger *zap.Logger, config importers.Config) *ImporterFactory {
	if definitions == nil {
		definitions = DefaultDefinitions
	}
	return &ImporterFactory{
		db:          db,
		readers:     readerFactory,
		definitions: definitions,
		logger:      logger,
		config:      config,
	}
}

func (f *ImporterFactory) ForTask(task *entities.Task) (*importers.Importer, error) {
	uow := database.NewUnitOfWork(f.db)

	defs, err := f.definitions(f.db, uow)
	if err != nil {
		return nil, fmt.Errorf("failed to build importer definitions: %w", err)
	}
	registry := importers.NewRegistry()
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return nil, err
		}
	}

	factory := importers.NewFactory(registry, f.readers, items.NewRepository(f.db, uow), uow, f.logger, f.config)
	return factory.ForTask(task)
}

// ImporterCodes lists the importer codes tasks may use.
func (f *ImporterFactory) ImporterCodes() ([]string, error) {
	defs, err := f.definitions(f.db, database.NewUnitOfWork(f.db))
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(defs))
	for _, def := range defs {
		codes = append(codes, def.Code)
	}
	return codes, nil
}
