package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/mrlokans/feedimport/internal/database/audit"
	"github.com/mrlokans/feedimport/internal/entities"
)

// TaskListCommand prints the configured tasks and their last run.
type TaskListCommand struct {
	DatabasePath string
	Items        bool
	History      int
	Out          io.Writer
}

func NewTaskListCommand() *TaskListCommand {
	return &TaskListCommand{Out: os.Stdout}
}

func (cmd *TaskListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("task-list", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (default: DATABASE_PATH or ./feedimport.db)")
	fs.BoolVar(&cmd.Items, "items", false, "Also print the ledger item count per status of every task")
	fs.IntVar(&cmd.History, "history", 0, "Also print the N most recent audit events")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s task-list [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List import tasks.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *TaskListCommand) Run() error {
	app, err := openApp(context.Background(), cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.Tasks.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.Out, "No tasks configured")
		return nil
	}

	writeTaskTable(cmd.Out, list)

	if cmd.Items {
		for _, task := range list {
			counts, err := app.DB.ItemStatusCounts(task.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Out, "\n%s items:\n", task.Code)
			writeStatusCounts(cmd.Out, counts)
		}
	}

	if cmd.History > 0 {
		events, _, err := app.Auditor.Events(audit.Filter{Limit: cmd.History})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.Out, "\nRecent events:")
		writeAuditEvents(cmd.Out, events)
	}
	return nil
}

func writeAuditEvents(out io.Writer, events []entities.AuditEvent) {
	if len(events) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, event := range events {
		task := "-"
		if event.TaskID != nil {
			task = fmt.Sprint(*event.TaskID)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			event.CreatedAt.Format(time.RFC3339), task, event.EventType, event.Status,
			event.Description, event.ErrorMsg)
	}
	w.Flush()
}

func writeStatusCounts(out io.Writer, counts map[entities.ItemStatus]int64) {
	if len(counts) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}
	statuses := make([]entities.ItemStatus, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, status := range statuses {
		fmt.Fprintf(w, "  %s\t%d\n", status, counts[status])
	}
	w.Flush()
}

func writeTaskTable(out io.Writer, list []entities.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tIMPORTER\tREADER\tPERIOD\tACTIVE\tRUNNING\tIMPORTED AT\tCREATED\tUPDATED\tERRORS")
	for _, task := range list {
		period := "-"
		if task.IsScheduled() {
			period = task.PeriodDuration().String()
		}
		importedAt := "never"
		if task.ImportedAt != nil {
			importedAt = task.ImportedAt.Format(time.RFC3339)
		}
		stats := task.GetStatistics()
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%t\t%s\t%d\t%d\t%d\n",
			task.ID, task.Code, task.ImporterCode, task.ReaderCode, period,
			task.Active, task.InProgress, importedAt,
			stats.Created, stats.Updated, stats.Errors)
	}
	w.Flush()
}
