package importers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/hashing"
	"github.com/mrlokans/feedimport/internal/metrics"
	"github.com/mrlokans/feedimport/internal/readers"
)

// DefaultBatchLength is the number of records between two checkpoints.
const DefaultBatchLength = 10

// RunOptions tune a single task run.
type RunOptions struct {
	// Pages imports exactly these pages. When empty, the run starts at the
	// task's first page and follows a paginated link until a page is empty.
	Pages []int

	// Force reprocesses records even when nothing changed.
	Force bool
}

// Importer runs the import of one task. It is not safe for concurrent use:
// a run owns its statistics and the set of entries it already processed.
type Importer struct {
	def         Definition
	task        *entities.Task
	reader      readers.Reader
	items       ItemStore
	flusher     Flusher
	logger      *zap.Logger
	out         io.Writer
	batchLength int

	options entities.ImporterOptions
	fields  *FieldSet

	force          bool
	stats          entities.ImportStatistics
	progress       int
	processed      map[string]string
	processedItems map[string]bool
}

// Statistics returns the counters of the current or last run.
func (i *Importer) Statistics() entities.ImportStatistics {
	return i.stats
}

// Fields returns the importable fields with the task's options applied.
func (i *Importer) Fields() *FieldSet {
	return i.fields
}

// ImportTask reads every page of the task and imports its records. Reader
// and persistence failures abort the run; failures of single records are
// recorded on their ledger items.
func (i *Importer) ImportTask(ctx context.Context, opts RunOptions) (*entities.ImportStatistics, error) {
	started := time.Now()
	defer func() {
		metrics.RunDuration.WithLabelValues(i.taskLabel()).Observe(time.Since(started).Seconds())
	}()

	i.startRun(opts.Force)

	if len(opts.Pages) > 0 {
		for _, page := range opts.Pages {
			if _, err := i.importPage(ctx, page); err != nil {
				return &i.stats, err
			}
		}
	} else {
		page := i.task.FirstPage()
		for {
			hasRecords, err := i.importPage(ctx, page)
			if err != nil {
				return &i.stats, err
			}
			if !i.task.PaginatedLink || !hasRecords {
				break
			}
			page++
		}
	}

	if err := i.flush(ctx); err != nil {
		return &i.stats, err
	}
	if err := WriteSummary(i.out, i.stats); err != nil {
		return &i.stats, fmt.Errorf("failed to write summary: %w", err)
	}
	return &i.stats, nil
}

func (i *Importer) startRun(force bool) {
	i.force = force || i.options.Force
	i.stats.Reset()
	i.progress = 0
	i.processed = make(map[string]string)
	i.processedItems = make(map[string]bool)
}

// importPage reports whether the page held any record.
func (i *Importer) importPage(ctx context.Context, page int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	link := i.task.PreparedLink(page)
	metrics.PagesFetched.WithLabelValues(i.reader.Code()).Inc()

	data, err := i.reader.Read(ctx, link, readers.ReadOptions{})
	if err != nil {
		metrics.ReaderErrors.WithLabelValues(i.reader.Code()).Inc()
		return false, err
	}
	defer data.Close()

	count, err := i.ImportData(ctx, data)
	if err != nil {
		return false, err
	}
	if count == 0 {
		i.logger.Info("empty page", zap.String("task", i.taskLabel()), zap.Int("page", page))
	}
	return count > 0, nil
}

// ImportData imports the records of one decoded page and returns how many
// records it held. Statistics accumulate across the pages of a run.
func (i *Importer) ImportData(ctx context.Context, data readers.ImportedData) (int, error) {
	if i.processed == nil {
		i.startRun(false)
	}

	each, count := i.recordSource(data)
	i.stats.IncrementAll(count)
	if count == 0 {
		return 0, nil
	}

	err := each(func(row any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		i.importRow(ctx, data, row)
		i.progress++
		if i.progress%i.batchLength == 0 {
			return i.flush(ctx)
		}
		return nil
	})
	return count, err
}

// recordSource picks the record iterator of a page: the page itself, or the
// records found under the configured data path.
func (i *Importer) recordSource(data readers.ImportedData) (func(fn func(row any) error) error, int) {
	if data.DataInRoot() || i.options.DataPath == "" {
		return data.Each, data.Count()
	}

	root := Resolve(data.Root(), i.options.DataPath, entities.PathDelimiter)
	if isSingleRecord(root) {
		root = []any{root}
	}
	return func(fn func(row any) error) error {
		return readers.EachRecord(root, fn)
	}, readers.CountRecords(root)
}

// isSingleRecord reports whether a resolved data path value is one record
// rather than a collection keyed by id. XML decoding yields a bare map for
// an element that occurs once.
func isSingleRecord(value any) bool {
	m, ok := value.(map[string]any)
	if !ok {
		return false
	}
	for _, v := range m {
		switch v.(type) {
		case map[string]any, []any:
		default:
			return true
		}
	}
	return false
}

func (i *Importer) importRow(ctx context.Context, data readers.ImportedData, row any) {
	// A record whose outcome is already counted is not counted again as an error.
	before := i.stats
	defer func() {
		if r := recover(); r != nil {
			i.recordFailure("", fmt.Errorf("panic while importing record: %v", r), row, i.stats != before)
		}
	}()

	record := data.PrepareRow(row)
	if IsEmpty(row) || len(record) == 0 {
		i.stats.IncrementSkipped(1)
		i.countRecord(entities.ItemStatusSkipped)
		i.logger.Info("empty record skipped", zap.String("task", i.taskLabel()))
		return
	}

	entryID := i.entryID(record)
	var err error
	if _, seen := i.processed[entryID]; seen {
		err = i.importDuplicatedEntryItem(ctx, entryID, record)
	} else {
		err = i.importEntryItem(ctx, entryID, record)
	}
	if err != nil {
		i.recordFailure(entryID, err, record, i.stats != before)
	}
}

func (i *Importer) entryID(record map[string]any) string {
	values := make([]any, 0, len(i.options.ItemHashIDFields))
	for _, path := range i.options.ItemHashIDFields {
		values = append(values, Resolve(record, path, entities.PathDelimiter))
	}
	return hashing.Entry(values)
}

func (i *Importer) importEntryItem(ctx context.Context, entryID string, record map[string]any) error {
	dataHash := hashing.Data(record)
	itemID := entities.GenerateItemID(i.task.ID, entryID, dataHash)

	item, err := i.items.GetImportedItem(ctx, i.task.ID, entryID, itemID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if item == nil {
		item = entities.NewItem(i.task.ID, entryID)
	} else if item.ID != itemID {
		// The stored version stays as it is; the copy becomes the new version.
		version := *item
		item = &version
	}

	needed, err := i.isProcessNeeded(ctx, item, dataHash)
	if err != nil {
		return err
	}

	var form *FormData
	if needed {
		if err := item.SetData(record); err != nil {
			return err
		}
		item.ConfigHash = i.task.ImporterOptionsHash
		if i.options.Deferred {
			item.StatusID = entities.ItemStatusScheduled
			item.SetErrors(nil)
			i.stats.IncrementScheduled(1)
		} else {
			form = i.importFromItem(ctx, item, record)
		}
	} else {
		item.StatusID = entities.ItemStatusSkipped
		i.stats.IncrementSkipped(1)
	}

	if err := i.items.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	i.processed[entryID] = item.ID
	i.processedItems[item.ID] = true

	i.countRecord(item.StatusID)
	i.logItem(item, form)
	return nil
}

// isProcessNeeded reports whether a record has to be mapped again.
func (i *Importer) isProcessNeeded(ctx context.Context, item *entities.Item, dataHash string) (bool, error) {
	if i.force || item.DataHash != dataHash || item.ConfigHash != i.task.ImporterOptionsHash {
		return true, nil
	}
	if !item.HasPersistedTarget() || item.TargetType != i.def.Store.Type() {
		return true, nil
	}

	_, err := i.def.Store.Find(ctx, item.TargetID)
	if errors.Is(err, ErrObjectNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load target %s: %w", item.TargetID, err)
	}
	return false, nil
}

// importFromItem maps a record onto its target object and records the
// outcome on the item. It never fails: errors become the item's status.
func (i *Importer) importFromItem(ctx context.Context, item *entities.Item, record map[string]any) *FormData {
	form := BuildFormData(i.fields, record)
	store := i.def.Store

	err := func() error {
		obj := i.resolveTarget(ctx, item)
		if obj == nil {
			var err error
			if obj, err = i.findOrCreate(ctx, form); err != nil {
				return err
			}
		}

		isNew := obj.IsNew()
		if !isNew {
			form.SetPatch(true)
			item.SetTarget(obj.ObjectType(), obj.ObjectID())
		}
		if i.options.SkipExisting && !isNew {
			return &SkippedError{Reason: "object already exists"}
		}

		if i.def.BeforeObjectUpdate != nil {
			if err := i.def.BeforeObjectUpdate(ctx, obj, form); err != nil {
				return err
			}
		}
		clearMissing := isNew || i.options.SyncData || !form.Patch()
		if err := store.ProcessForm(obj, form.Data(), FormOptions{ClearMissing: clearMissing}); err != nil {
			return err
		}
		if err := store.Save(ctx, obj, false); err != nil {
			return err
		}
		if i.def.AfterObjectUpdate != nil {
			if err := i.def.AfterObjectUpdate(ctx, obj, form); err != nil {
				return err
			}
		}

		item.SetTarget(obj.ObjectType(), obj.ObjectID())
		item.SetErrors(nil)
		if isNew {
			item.StatusID = entities.ItemStatusCreated
		} else {
			item.StatusID = entities.ItemStatusUpdated
		}
		return nil
	}()

	var skipped *SkippedError
	var invalid *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &skipped):
		item.StatusID = entities.ItemStatusSkipped
		item.SetErrors(nil)
	case errors.As(err, &invalid):
		item.StatusID = entities.ItemStatusDataError
		item.SetErrors(invalid.Fields)
	default:
		item.StatusID = entities.ItemStatusError
		item.SetErrors([]string{err.Error()})
		if item.TargetType == "" {
			item.SetTarget(store.Type(), "")
		}
	}

	i.stats.Record(item.StatusID)
	return form
}

// resolveTarget loads the object an item points at. Lookup failures are
// treated as a missing object.
func (i *Importer) resolveTarget(ctx context.Context, item *entities.Item) Object {
	if !item.HasPersistedTarget() || item.TargetType != i.def.Store.Type() {
		return nil
	}
	obj, err := i.def.Store.Find(ctx, item.TargetID)
	if err != nil {
		if !errors.Is(err, ErrObjectNotFound) {
			i.logger.Warn("target lookup failed",
				zap.String("task", i.taskLabel()),
				zap.String("object_id", item.TargetID),
				zap.Error(err))
		}
		return nil
	}
	return obj
}

func (i *Importer) findOrCreate(ctx context.Context, form *FormData) (Object, error) {
	if i.def.FindOrCreate != nil {
		return i.def.FindOrCreate(ctx, i.def.Store, form)
	}
	return i.def.Store.New(), nil
}

// importDuplicatedEntryItem records a repeated entry of the run. Only a
// payload version the ledger has never seen gets an item.
func (i *Importer) importDuplicatedEntryItem(ctx context.Context, entryID string, record map[string]any) error {
	i.stats.IncrementDuplicates(1)
	i.countRecord(entities.ItemStatusDuplicate)

	dataHash := hashing.Data(record)
	itemID := entities.GenerateItemID(i.task.ID, entryID, dataHash)
	if i.processedItems[itemID] {
		return nil
	}
	existing, err := i.items.Get(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if existing != nil {
		return nil
	}

	item := entities.NewItem(i.task.ID, entryID)
	if err := item.SetData(record); err != nil {
		return err
	}
	item.ConfigHash = i.task.ImporterOptionsHash
	item.StatusID = entities.ItemStatusDuplicate
	item.SetTarget(i.def.Store.Type(), "")
	if err := i.items.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	i.processedItems[item.ID] = true
	i.logItem(item, nil)
	return nil
}

// ImportItem maps a stored ledger item onto its target again and flushes.
func (i *Importer) ImportItem(ctx context.Context, item *entities.Item) error {
	record, err := item.Record()
	if err != nil {
		return err
	}

	item.ConfigHash = i.task.ImporterOptionsHash
	form := i.importFromItem(ctx, item, record)
	if err := i.items.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	if err := i.flush(ctx); err != nil {
		return err
	}

	i.countRecord(item.StatusID)
	i.logItem(item, form)
	return nil
}

func (i *Importer) flush(ctx context.Context) error {
	started := time.Now()
	if err := i.flusher.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush import batch: %w", err)
	}
	metrics.FlushDuration.Observe(time.Since(started).Seconds())
	return nil
}

func (i *Importer) recordFailure(entryID string, err error, record any, counted bool) {
	if !counted {
		i.stats.IncrementErrors(1)
		i.countRecord(entities.ItemStatusError)
	}
	i.logger.Error("record import failed",
		zap.String("task", i.taskLabel()),
		zap.String("entry_id", entryID),
		zap.Any("record", record),
		zap.Error(err))
}

func (i *Importer) countRecord(status entities.ItemStatus) {
	metrics.RecordsProcessed.WithLabelValues(i.taskLabel(), status.String()).Inc()
}

func (i *Importer) logItem(item *entities.Item, form *FormData) {
	fields := []zap.Field{
		zap.String("task", i.taskLabel()),
		zap.String("entry_id", item.EntryID),
		zap.String("object_id", item.TargetID),
		zap.String("status", item.StatusID.String()),
	}
	if errs := item.ErrorMessages(); len(errs) > 0 {
		fields = append(fields, zap.Strings("errors", errs))
	}
	if form != nil {
		fields = append(fields, zap.Any("import_form_data", form.Flat()))
	}

	if item.StatusID.IsFailure() {
		i.logger.Warn("record imported with errors", fields...)
		return
	}
	i.logger.Info("record imported", fields...)
}

func (i *Importer) taskLabel() string {
	if i.task.Code != "" {
		return i.task.Code
	}
	return fmt.Sprint(i.task.ID)
}
