// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - TaskStore: Task lookup and run-state claims (internal/services/interfaces.go)
//   - ScheduledItemStore: Ledger items awaiting mapping (internal/services/interfaces.go)
//   - ItemStore: The import ledger used by importers (internal/importers/interfaces.go)
//   - ObjectStore: Target domain objects built from form data (internal/importers/interfaces.go)
//   - Flusher: Checkpoint commit of buffered writes (internal/importers/interfaces.go)
//
// ## Source Interfaces
//
//   - Reader: Decodes one fetched page into records (internal/readers/reader.go)
//   - Fetcher: Retrieves the bytes behind a link (internal/readers/fetch.go)
//
// ## Run Coordination Interfaces
//
//   - Locker: Named mutual exclusion across processes (internal/locks/locks.go)
//   - ImporterProvider: Builds the importer of a task (internal/services/interfaces.go)
//   - TaskListener: Hooks around each task run (internal/services/interfaces.go)
//   - Dispatcher: Hands a claimed task to the background queue (internal/services/interfaces.go)
//
// # Adding a New Reader
//
//  1. Implement Reader in internal/readers/
//
//     type YAMLReader struct {
//         fetcher Fetcher
//     }
//
//     func (r *YAMLReader) Code() string     { return "yaml" }
//     func (r *YAMLReader) DataInRoot() bool { return false }
//     func (r *YAMLReader) Read(ctx context.Context, link string, opts ReadOptions) (ImportedData, error)
//
//  2. Register a Definition in DefaultRegistry so tasks can reference it by code.
//
// # Adding a New Importer
//
// An importer maps records onto one kind of domain object:
//
//  1. Implement ObjectStore for the object in internal/database/
//  2. Return an importers.Definition from a constructor in internal/importers/<code>/
//  3. Add the definition to services.DefaultDefinitions
//
// # Adding a New Fetch Scheme
//
// Implement Fetcher and register it on the MultiFetcher in entrypoint.NewApp:
//
//	fetcher.Register(NewFTPFetcher(cfg), "ftp")
package interfaces
