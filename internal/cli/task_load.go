package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/feedimport/internal/config"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/entrypoint"
	"github.com/mrlokans/feedimport/internal/readers"
	"github.com/mrlokans/feedimport/internal/taskfile"
)

// TaskLoadCommand creates or updates tasks from a YAML definition file.
type TaskLoadCommand struct {
	FilePath     string
	DatabasePath string
	DryRun       bool
}

func NewTaskLoadCommand() *TaskLoadCommand {
	return &TaskLoadCommand{}
}

func (cmd *TaskLoadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("task-load", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", config.DefaultTaskFilePath, "Path to the task definition file")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH or ./feedimport.db)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the file without saving tasks")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s task-load [-file tasks.yaml] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load task definitions. Tasks are matched by code: existing ones are\n")
		fmt.Fprintf(os.Stderr, "updated in place, new ones are created.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

func (cmd *TaskLoadCommand) Run() error {
	fmt.Printf("Loading tasks from %s\n", cmd.FilePath)

	defs, err := taskfile.Load(cmd.FilePath)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d task definitions\n", len(defs))

	if cmd.DryRun {
		fmt.Println("Dry run complete. Use without -dry-run to save.")
		return nil
	}

	app, err := openApp(context.Background(), cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := checkCodes(app, defs); err != nil {
		app.Auditor.LogTaskLoad(cmd.FilePath, 0, 0, err)
		return err
	}

	var created, updated int
	for _, task := range defs {
		isNew, err := app.Tasks.Upsert(task)
		if err != nil {
			err = fmt.Errorf("failed to save task %s: %w", task.Code, err)
			app.Auditor.LogTaskLoad(cmd.FilePath, created, updated, err)
			return err
		}
		if isNew {
			created++
			fmt.Printf("  [NEW] %s (id %d)\n", task.Code, task.ID)
		} else {
			updated++
			fmt.Printf("  [UPD] %s (id %d)\n", task.Code, task.ID)
		}
	}

	app.Auditor.LogTaskLoad(cmd.FilePath, created, updated, nil)
	fmt.Printf("\nCreated: %d, updated: %d\n", created, updated)
	return nil
}

// checkCodes rejects definitions naming an importer or reader that is not
// registered, before any task is saved.
func checkCodes(app *entrypoint.App, defs []*entities.Task) error {
	importerCodes, err := app.Importers.ImporterCodes()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(importerCodes))
	for _, code := range importerCodes {
		known[code] = true
	}

	readerRegistry := readers.DefaultRegistry()
	for _, task := range defs {
		if !known[task.ImporterCode] {
			return fmt.Errorf("task %s: unknown importer %q", task.Code, task.ImporterCode)
		}
		if _, err := readerRegistry.Get(task.ReaderCode); err != nil {
			return fmt.Errorf("task %s: %w", task.Code, err)
		}
	}
	return nil
}
