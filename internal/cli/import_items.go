package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"

	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/services"
)

// ImportItemsCommand imports scheduled items, or one item by ID.
type ImportItemsCommand struct {
	ItemID        string
	All           bool
	Batch         int
	TaskID        uint
	PeriodSeconds int
	ThrowErrors   bool
	DatabasePath  string
}

func NewImportItemsCommand() *ImportItemsCommand {
	return &ImportItemsCommand{}
}

func (cmd *ImportItemsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-items", flag.ExitOnError)

	var taskID string
	fs.StringVar(&cmd.ItemID, "item", "", "Import a single item by ID, ignoring its schedule")
	fs.BoolVar(&cmd.All, "all", false, "Keep importing batches until no scheduled item is left")
	fs.IntVar(&cmd.Batch, "batch", 0, "Items fetched per batch (default: IMPORT_SCHEDULED_BATCH)")
	fs.StringVar(&taskID, "task", "", "Only import items of this task ID")
	fs.IntVar(&cmd.PeriodSeconds, "period", 0, "Stop picking up items after this many seconds")
	fs.BoolVar(&cmd.ThrowErrors, "throw-errors", false, "Stop at the first item that fails")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH or ./feedimport.db)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-items [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import items whose scheduled time has passed.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-items -all -period 600\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import-items -item 7d9f3c1e-...\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if taskID != "" {
		id, err := parseID(taskID)
		if err != nil {
			return err
		}
		cmd.TaskID = id
	}
	if cmd.Batch < 0 || cmd.PeriodSeconds < 0 {
		return fmt.Errorf("-batch and -period must not be negative")
	}

	return nil
}

func (cmd *ImportItemsCommand) Run() error {
	ctx := context.Background()
	app, err := openApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	if cmd.ItemID != "" {
		item, err := app.Items.ImportItem(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		fmt.Printf("Item %s imported (%s)\n", item.ID, item.StatusID)
		return nil
	}

	batch := cmd.Batch
	if batch == 0 {
		batch = app.Config.Importer.ScheduledBatch
	}

	result, err := app.Items.RunScheduled(ctx, services.ScheduledRunOptions{
		Batch:       batch,
		TaskID:      cmd.TaskID,
		Period:      time.Duration(cmd.PeriodSeconds) * time.Second,
		All:         cmd.All,
		ThrowErrors: cmd.ThrowErrors,
	})
	if errors.Is(err, locks.ErrLocked) {
		fmt.Println("Another item import is running, nothing to do")
		return nil
	}
	app.Auditor.LogScheduledItems(result.Imported, result.Failed, result.Stopped, err)

	fmt.Printf("Imported: %d, failed: %d\n", result.Imported, result.Failed)
	if result.Stopped {
		fmt.Println("Period elapsed, remaining items are left for the next run")
	}
	return err
}

func parseID(value string) (uint, error) {
	id, err := cast.ToUintE(value)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ID %q", value)
	}
	return id, nil
}

