// Package joblist formats jobs and runs for CLI display, as compact tables
// or as line-delimited JSON for scripting.
package joblist

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/IamJasonBian/allocation-crawler-service/pkg/tracker"
)

// OutputFormat specifies how to render list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated fields
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (valid: default, jsonl)", s)
}

// FormatJobsTable writes jobs as a formatted table to the provided writer.
// Returns the number of jobs formatted.
func FormatJobsTable(w io.Writer, jobs []*tracker.Job) int {
	if len(jobs) == 0 {
		fmt.Fprintf(w, "No jobs found\n")
		return 0
	}

	fmt.Fprintf(w, "%-24s %-10s %-28s %-18s %-8s\n",
		"JOB", "STATUS", "TITLE", "TAGS", "AGE")
	fmt.Fprintf(w, "%-24s %-10s %-28s %-18s %-8s\n",
		"------------------------", "----------", "----------------------------", "------------------", "--------")

	for _, j := range jobs {
		fmt.Fprintf(w, "%-24s %-10s %-28s %-18s %-8s\n",
			truncate(j.Key(), 24),
			string(j.Status),
			truncate(orDash(j.Title), 28),
			truncate(joinOrDash(j.Tags), 18),
			formatAge(j.DiscoveredAt),
		)
	}

	countMsg := "job"
	if len(jobs) != 1 {
		countMsg = "jobs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(jobs), countMsg)

	return len(jobs)
}

// FormatRunsTable writes runs as a formatted table to the provided writer.
// Returns the number of runs formatted.
func FormatRunsTable(w io.Writer, runs []*tracker.JobRun) int {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found\n")
		return 0
	}

	fmt.Fprintf(w, "%-14s %-24s %-10s %-10s %-8s %s\n",
		"RUN", "JOB", "VARIANT", "STATUS", "AGE", "ERROR")
	fmt.Fprintf(w, "%-14s %-24s %-10s %-10s %-8s %s\n",
		"--------------", "------------------------", "----------", "----------", "--------", "----------------------------")

	for _, r := range runs {
		fmt.Fprintf(w, "%-14s %-24s %-10s %-10s %-8s %s\n",
			truncate(r.RunID, 14),
			truncate(tracker.CompositeKey(r.Board, r.JobID), 24),
			truncate(r.VariantID, 10),
			string(r.Status),
			formatAge(r.StartedAt),
			truncate(orDash(r.Error), 28),
		)
	}

	countMsg := "run"
	if len(runs) != 1 {
		countMsg = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), countMsg)

	return len(runs)
}

// FormatJSONL writes each item as a single compact JSON object on its own
// line. This format is ideal for processing with tools like jq.
func FormatJSONL[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one record as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// truncate shortens a value for table display.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// orDash substitutes "-" for empty values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// joinOrDash renders a tag set for table display.
func joinOrDash(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

// formatAge renders a timestamp as relative time like "2m ago".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := time.Since(t)
	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
