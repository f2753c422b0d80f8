package importers

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mrlokans/feedimport/internal/entities"
)

// WriteSummary prints the run counters as a table.
func WriteSummary(w io.Writer, stats entities.ImportStatistics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "All\tSkipped\tScheduled\tCreated\tUpdated\tDuplicates\tErrors")
	fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		stats.All, stats.Skipped, stats.Scheduled, stats.Created, stats.Updated, stats.Duplicates, stats.Errors)
	return tw.Flush()
}
