package conformance

import (
	"fmt"
	"io"
	"strings"
)

const lineWidth = 60

// PrintReports writes one line per case and the details of each failure.
func PrintReports(w io.Writer, reports []Report) {
	fmt.Fprintf(w, "Running %d test cases\n", len(reports))
	fmt.Fprintln(w, strings.Repeat("=", lineWidth))
	for i := range reports {
		printReport(w, &reports[i])
	}
	fmt.Fprintln(w, strings.Repeat("=", lineWidth))
	fmt.Fprintln(w, FormatStats(ComputeStats(reports)))
}

func printReport(w io.Writer, r *Report) {
	status := "Passed"
	switch {
	case r.Skipped:
		status = "Skipped"
	case !r.Passed():
		status = "Failed"
	}
	dashes := lineWidth - 8 - len(r.Case.Name)
	if dashes < 3 {
		dashes = 3
	}
	fmt.Fprintf(w, "%s %s %s\n", r.Case.Name, strings.Repeat("-", dashes), status)
	if failed, ok := r.Failure(); ok {
		fmt.Fprintf(w, "\tStage: %s\n", failed.Stage)
		fmt.Fprintf(w, "\tError: %s\n", failed.Error)
	}
}

// SummaryStats counts reports by outcome.
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func ComputeStats(reports []Report) SummaryStats {
	stats := SummaryStats{Total: len(reports)}
	for i := range reports {
		switch r := &reports[i]; {
		case r.Skipped:
			stats.Skipped++
		case r.Passed():
			stats.Passed++
		default:
			stats.Failed++
		}
	}
	return stats
}

func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}
