package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/feedimport/internal/cli"
	"github.com/mrlokans/feedimport/internal/config"
	"github.com/mrlokans/feedimport/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every CLI subcommand.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the scheduler and the ops server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "import-tasks":
		cmd = cli.NewImportTasksCommand()
	case "import-items":
		cmd = cli.NewImportItemsCommand()
	case "task-load":
		cmd = cli.NewTaskLoadCommand()
	case "task-list":
		cmd = cli.NewTaskListCommand()
	case "version":
		fmt.Printf("feedimport %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve          Run the import scheduler, queue workers and ops HTTP server (default)\n")
	fmt.Fprintf(os.Stderr, "  import-tasks   Import due tasks, or the tasks given with -task\n")
	fmt.Fprintf(os.Stderr, "  import-items   Import scheduled items, or one item given with -item\n")
	fmt.Fprintf(os.Stderr, "  task-load      Create or update tasks from a YAML definition file\n")
	fmt.Fprintf(os.Stderr, "  task-list      List tasks and their last run\n")
	fmt.Fprintf(os.Stderr, "  version        Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
