package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/locks"
)

// ImportTasksCommand runs task imports in the foreground.
type ImportTasksCommand struct {
	TaskIDs      taskIDs
	Pages        []int
	Force        bool
	DatabasePath string
}

func NewImportTasksCommand() *ImportTasksCommand {
	return &ImportTasksCommand{}
}

func (cmd *ImportTasksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-tasks", flag.ExitOnError)

	var pages string
	fs.Var(&cmd.TaskIDs, "task", "Task ID to import (repeatable). When omitted, every due task is imported")
	fs.StringVar(&pages, "page", "", "Comma separated list of pages to import instead of paginating")
	fs.BoolVar(&cmd.Force, "force", false, "Reprocess records even when their content did not change")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH or ./feedimport.db)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-tasks [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import tasks now. Without -task, tasks whose period has elapsed are claimed\n")
		fmt.Fprintf(os.Stderr, "and imported one after another.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-tasks\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import-tasks -task 3 -page 1,2 -force\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := parsePages(pages)
	if err != nil {
		return err
	}
	if len(parsed) > 0 && len(cmd.TaskIDs) == 0 {
		return fmt.Errorf("-page requires -task")
	}
	cmd.Pages = parsed

	return nil
}

func (cmd *ImportTasksCommand) Run() error {
	ctx := context.Background()
	app, err := openApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := importers.RunOptions{Pages: cmd.Pages, Force: cmd.Force}
	if len(cmd.TaskIDs) == 0 {
		err = app.Runner.RunDueTasks(ctx, opts)
	} else {
		err = app.Runner.RunTasks(ctx, cmd.TaskIDs, opts)
	}

	if errors.Is(err, locks.ErrLocked) {
		fmt.Println("Another task import is running, nothing to do")
		return nil
	}
	return err
}

// taskIDs collects repeated -task flags.
type taskIDs []uint

func (t *taskIDs) String() string {
	return fmt.Sprint([]uint(*t))
}

func (t *taskIDs) Set(value string) error {
	id, err := parseID(value)
	if err != nil {
		return err
	}
	*t = append(*t, id)
	return nil
}
