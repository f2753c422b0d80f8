package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/metrics"
)

// ImportItemsLock guards the scheduled item run.
const ImportItemsLock = "import:items"

// DefaultScheduledBatch is the number of scheduled items fetched at once.
const DefaultScheduledBatch = 1000

// periodBudgetRatio leaves a margin before the next invocation of the run.
const periodBudgetRatio = 0.99

var ErrItemNotFound = errors.New("item not found")

type ItemImporterConfig struct {
	LockTTL time.Duration

	// CacheSize bounds the importers kept during one scheduled run. Tasks
	// are read again on every run so option changes apply at once.
	CacheSize int
}

type ScheduledRunOptions struct {
	// Batch caps the number of items fetched per round.
	Batch int

	// TaskID limits the run to one task when non zero.
	TaskID uint

	// Period is the wall-clock budget of the run. Zero means unbounded.
	Period time.Duration

	// All keeps fetching rounds until no scheduled item is left.
	All bool

	// ThrowErrors stops the run at the first failing item.
	ThrowErrors bool
}

type ScheduledRunResult struct {
	Imported int
	Failed   int

	// Stopped is set when the period budget ran out before the work did.
	Stopped bool
}

// ItemImporter maps ledger items that were recorded as scheduled.
type ItemImporter struct {
	tasks     TaskStore
	items     ScheduledItemStore
	importers ImporterProvider
	locker    locks.Locker
	config    ItemImporterConfig
	now       func() time.Time
}

func NewItemImporter(tasks TaskStore, items ScheduledItemStore, importers ImporterProvider, locker locks.Locker, config ItemImporterConfig) *ItemImporter {
	if config.LockTTL <= 0 {
		config.LockTTL = time.Hour
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 128
	}
	return &ItemImporter{
		tasks:     tasks,
		items:     items,
		importers: importers,
		locker:    locker,
		config:    config,
		now:       time.Now,
	}
}

// ImportItem maps one ledger item onto its target.
func (s *ItemImporter) ImportItem(ctx context.Context, id string) (*entities.Item, error) {
	return s.importItem(ctx, id, s.newImporterCache())
}

func (s *ItemImporter) newImporterCache() *lru.Cache[uint, *importers.Importer] {
	// New only fails for a non-positive size, which NewItemImporter rules out.
	cache, _ := lru.New[uint, *importers.Importer](s.config.CacheSize)
	return cache
}

func (s *ItemImporter) importItem(ctx context.Context, id string, cache *lru.Cache[uint, *importers.Importer]) (*entities.Item, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	importer, ok := cache.Get(item.TaskID)
	if !ok {
		task, err := s.tasks.GetByID(item.TaskID)
		if err != nil {
			return item, err
		}
		importer, err = s.importers.ForTask(task)
		if err != nil {
			return item, err
		}
		cache.Add(item.TaskID, importer)
	}

	if err := importer.ImportItem(ctx, item); err != nil {
		return item, err
	}
	if item.StatusID.IsFailure() {
		return item, fmt.Errorf("item %s imported with errors: %s", item.ID, strings.Join(item.ErrorMessages(), "; "))
	}
	return item, nil
}

// RunScheduled maps scheduled items until none is left, the batch is done
// or the period budget is spent. The budget is checked before each item;
// an item in flight is always finished.
func (s *ItemImporter) RunScheduled(ctx context.Context, opts ScheduledRunOptions) (ScheduledRunResult, error) {
	if opts.Batch <= 0 {
		opts.Batch = DefaultScheduledBatch
	}

	var result ScheduledRunResult
	err := locks.WithLock(ctx, s.locker, ImportItemsLock, s.config.LockTTL, func() error {
		var err error
		result, err = s.runScheduled(ctx, opts)
		return err
	})
	return result, err
}

func (s *ItemImporter) runScheduled(ctx context.Context, opts ScheduledRunOptions) (ScheduledRunResult, error) {
	var result ScheduledRunResult

	started := s.now()
	budget := time.Duration(float64(opts.Period) * periodBudgetRatio)
	attempted := map[string]bool{}
	cache := s.newImporterCache()

	for {
		ids, err := s.items.ListScheduledIDs(ctx, opts.Batch, opts.TaskID)
		if err != nil {
			return result, fmt.Errorf("failed to list scheduled items: %w", err)
		}

		fresh := ids[:0]
		for _, id := range ids {
			if !attempted[id] {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			break
		}

		for _, id := range fresh {
			if budget > 0 && s.now().Sub(started) >= budget {
				result.Stopped = true
				log.Printf("ItemImporter: period budget spent after %d items", result.Imported+result.Failed)
				return result, nil
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}

			attempted[id] = true
			if _, err := s.importItem(ctx, id, cache); err != nil {
				result.Failed++
				if opts.ThrowErrors {
					return result, err
				}
				log.Printf("ItemImporter: %v", err)
				continue
			}
			result.Imported++
			metrics.ScheduledItemsImported.Inc()
		}

		if !opts.All {
			break
		}
	}

	log.Printf("ItemImporter: imported %d scheduled items, %d failed", result.Imported, result.Failed)
	return result, nil
}
