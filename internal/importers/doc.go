// Package importers maps source records onto domain objects and keeps the
// import ledger up to date.
//
// # Architecture
//
// A task run flows through the following steps:
//
//	Task → Reader (per page) → ImportedData → Importer → FormData → ObjectStore
//	                                              ↓
//	                                          ItemStore (ledger)
//
// For every record the Importer computes an entry id from the task's
// identity fields and a payload hash from the whole record. The ledger item
// of that payload version decides whether the record has to be mapped
// again: a changed payload, a changed importer configuration, a missing
// target object or the force option trigger processing, anything else is
// counted as skipped. Entries repeated within one run are counted as
// duplicates.
//
// Records are mapped through a FieldSet. Each ImportableField reads its
// value from a key path ("media/0/url") with optional fallback keys and a
// default, and compound field names ("author.name") build nested form data.
// Existing objects are patched: empty values do not overwrite stored data
// unless the sync data option is set.
//
// Writes are buffered and flushed every Config.BatchLength records, so a run
// over a large feed keeps a bounded working set.
//
// # Adding a New Importer
//
//  1. Implement ObjectStore for the target type (see database/articles).
//
//  2. Describe the importer:
//
//     def := importers.Definition{
//     Code:   "event",
//     Title:  "Events",
//     Store:  eventStore,
//     Fields: fields, // importers.FieldsFromStruct(entities.Event{})
//     }
//
//  3. Register it at startup:
//
//     registry.Register(def)
//
// Tasks select the importer by its code. An unknown code fails with a
// ConfigurationError before any page is read.
//
// # Example Usage
//
//	factory := importers.NewFactory(registry, readerFactory, itemRepo, uow, logger, importers.Config{Output: os.Stdout})
//	importer, err := factory.ForTask(task)
//	stats, err := importer.ImportTask(ctx, importers.RunOptions{})
package importers
