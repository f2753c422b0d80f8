// Package database provides the data access layer for the import pipeline.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go       # Connection setup, migrations, counters
//	├── unit_of_work.go   # Buffered writes flushed in one transaction
//	├── tasks/            # Task CRUD, due-task selection, run claims
//	├── items/            # Import ledger (idempotency records)
//	├── articles/         # Article object store used by the article importer
//	├── audit/            # Audit trail of import runs
//	└── locks/            # Named scheduler locks with expiry
//
// # Buffered Writes
//
// Import runs do not write ledger items and produced objects one by one.
// Both the items repository and the article store hand models to a shared
// UnitOfWork; the import engine flushes it every batch:
//
//	db, err := database.NewDatabase("./feedimport.db", logger.Warn)
//	uow := database.NewUnitOfWork(db.DB)
//	itemsRepo := items.NewRepository(db.DB, uow)
//	articleStore := articles.NewStore(db.DB, uow)
//
//	// ... importer saves items and articles ...
//	err = uow.Flush(ctx)
//
// Lookups in both repositories check the pending buffer before the
// database, so a model saved earlier in the same batch is visible before
// it is flushed.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register the entity in Migrate
//  5. Add compile-time interface check in internal/interfaces
package database
