package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IamJasonBian/allocation-crawler-service/internal/joblist"
	"github.com/IamJasonBian/allocation-crawler-service/internal/printer"
	"github.com/IamJasonBian/allocation-crawler-service/pkg/tracker"
)

var (
	jobTitle      string
	jobURL        string
	jobLocation   string
	jobDepartment string

	jobLsBoard  string
	jobLsStatus string
	jobLsTag    string
	jobLsUser   string
	jobLsOutput string
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage tracked job postings",
}

var jobAddCmd = &cobra.Command{
	Use:   "add BOARD JOB_ID",
	Short: "Track a job posting",
	Long: `Track a newly discovered job posting.

Interest tags are computed from the title and department by the keyword
classifier and are fixed for the life of the job. The job starts in status
'discovered'. Re-adding an existing (BOARD, JOB_ID) overwrites the record;
use 'job import' to skip postings that already exist.

Examples:
  appcoord job add ramp 42 --title "Quant Trader" --department Trading
  appcoord job add stripe 7133 --title "Platform Engineer" --url https://stripe.com/jobs/7133`,
	Args: cobra.ExactArgs(2),
	RunE: runJobAdd,
}

var jobImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Bulk-add jobs from a JSONL file",
	Long: `Bulk-add job postings from a file with one JSON object per line:

  {"job_id": "42", "board": "ramp", "title": "Quant Trader", "department": "Trading"}

Postings whose (board, job_id) already exists are silently skipped so their
status and history are preserved. This is the path crawler output should
take. Use '-' to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobImport,
}

var jobRmCmd = &cobra.Command{
	Use:   "rm BOARD JOB_ID",
	Short: "Stop tracking a job posting",
	Args:  cobra.ExactArgs(2),
	RunE:  runJobRm,
}

var jobStatusCmd = &cobra.Command{
	Use:   "status BOARD JOB_ID STATUS",
	Short: "Manually set a job's status",
	Long: `Manually move a job to a new status (for example 'rejected' or
'expired' when a posting is ruled out or goes offline).

Valid statuses: discovered, queued, applied, found, rejected, expired.
Agent-driven transitions happen through 'run create' and 'run update';
this command is the manual override.`,
	Args: cobra.ExactArgs(3),
	RunE: runJobStatus,
}

var jobGetCmd = &cobra.Command{
	Use:   "get BOARD JOB_ID",
	Short: "Show one job as JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runJobGet,
}

var jobLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List jobs by board, status, tag, or user interest",
	Long: `List tracked jobs, filtered by any combination of board, status, and
tag. With --user, lists jobs whose tags overlap the user's interest tags
(a user with no tags matches nothing).

Examples:
  appcoord job ls --board ramp
  appcoord job ls --status discovered --tag quant
  appcoord job ls --user cam --status discovered
  appcoord job ls --output jsonl | jq -r .job_id`,
	Args: cobra.NoArgs,
	RunE: runJobLs,
}

func init() {
	jobAddCmd.Flags().StringVar(&jobTitle, "title", "", "Posting title")
	jobAddCmd.Flags().StringVar(&jobURL, "url", "", "Posting URL")
	jobAddCmd.Flags().StringVar(&jobLocation, "location", "", "Posting location")
	jobAddCmd.Flags().StringVar(&jobDepartment, "department", "", "Posting department")

	jobLsCmd.Flags().StringVar(&jobLsBoard, "board", "", "Filter by board id")
	jobLsCmd.Flags().StringVar(&jobLsStatus, "status", "", "Filter by job status")
	jobLsCmd.Flags().StringVar(&jobLsTag, "tag", "", "Filter by interest tag")
	jobLsCmd.Flags().StringVar(&jobLsUser, "user", "", "Filter by a user's interest tags")
	jobLsCmd.Flags().StringVarP(&jobLsOutput, "output", "o", "default", "Output format: default or jsonl")

	jobCmd.AddCommand(jobAddCmd)
	jobCmd.AddCommand(jobImportCmd)
	jobCmd.AddCommand(jobRmCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobGetCmd)
	jobCmd.AddCommand(jobLsCmd)
	rootCmd.AddCommand(jobCmd)
}

func runJobAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	j, err := client.AddJob(ctx, &tracker.Job{
		Board:      args[0],
		JobID:      args[1],
		Title:      jobTitle,
		URL:        jobURL,
		Location:   jobLocation,
		Department: jobDepartment,
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	printer.Success("Tracking job %s (status: %s, tags: %v)\n", j.Key(), j.Status, j.Tags)
	return nil
}

func runJobImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	in := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return printer.Error(
				"cannot open import file",
				err.Error(),
				[]string{"Provide a JSONL file path, or '-' for stdin"},
			)
		}
		defer f.Close()
		in = f
	}

	var jobs []*tracker.Job
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var j tracker.Job
		if err := json.Unmarshal(raw, &j); err != nil {
			return printer.Error(
				"malformed import line",
				fmt.Sprintf("Line %d is not valid JSON: %v", line, err),
				[]string{"Each line must be one JSON job object"},
			)
		}
		jobs = append(jobs, &j)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read import input: %w", err)
	}

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	added, err := client.AddJobsBulk(ctx, jobs)
	if err != nil {
		return fmt.Errorf("failed to import jobs: %w", err)
	}

	printer.Success("Imported %d new jobs (%d already tracked, skipped)\n",
		len(added), len(jobs)-len(added))
	return nil
}

func runJobRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RemoveJob(ctx, args[0], args[1]); err != nil {
		if errors.Is(err, tracker.ErrJobNotFound) {
			return printer.Error(
				"job not found",
				fmt.Sprintf("No job '%s' tracked on board '%s'.", args[1], args[0]),
				[]string{fmt.Sprintf("List the board's jobs:\n  appcoord job ls --board %s", args[0])},
			)
		}
		return fmt.Errorf("failed to remove job: %w", err)
	}

	printer.Success("Removed job %s\n", tracker.CompositeKey(args[0], args[1]))
	return nil
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	j, err := client.UpdateJobStatus(ctx, args[0], args[1], tracker.JobStatus(args[2]))
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrInvalidInput):
			return printer.Error(
				"invalid status",
				fmt.Sprintf("Unknown job status '%s'.", args[2]),
				[]string{"Valid statuses: discovered, queued, applied, found, rejected, expired"},
			)
		case errors.Is(err, tracker.ErrJobNotFound):
			return printer.Error(
				"job not found",
				fmt.Sprintf("No job '%s' tracked on board '%s'.", args[1], args[0]),
				[]string{fmt.Sprintf("List the board's jobs:\n  appcoord job ls --board %s", args[0])},
			)
		}
		return fmt.Errorf("failed to update job status: %w", err)
	}

	printer.Success("Job %s is now %s\n", j.Key(), j.Status)
	return nil
}

func runJobGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	j, err := client.GetJob(ctx, args[0], args[1])
	if err != nil {
		if errors.Is(err, tracker.ErrJobNotFound) {
			return printer.Error(
				"job not found",
				fmt.Sprintf("No job '%s' tracked on board '%s'.", args[1], args[0]),
				[]string{fmt.Sprintf("List the board's jobs:\n  appcoord job ls --board %s", args[0])},
			)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	return joblist.FormatSingleJSON(os.Stdout, j)
}

func runJobLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := outputFlagFormat(jobLsOutput)
	if err != nil {
		return err
	}

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	filter := tracker.JobFilter{
		Board:  jobLsBoard,
		Status: tracker.JobStatus(jobLsStatus),
		Tag:    jobLsTag,
	}

	var jobs []*tracker.Job
	if jobLsUser != "" {
		jobs, err = client.ListJobsForUser(ctx, jobLsUser, filter)
		if errors.Is(err, tracker.ErrUserNotFound) {
			return printer.Error(
				"user not found",
				fmt.Sprintf("No user profile with id '%s'.", jobLsUser),
				[]string{fmt.Sprintf("Create one:\n  appcoord user set %s --tags quant,engineering", jobLsUser)},
			)
		}
	} else {
		jobs, err = client.ListJobs(ctx, filter)
	}
	if err != nil {
		if errors.Is(err, tracker.ErrInvalidInput) {
			return printer.Error(
				"invalid filter",
				err.Error(),
				[]string{"Valid statuses: discovered, queued, applied, found, rejected, expired"},
			)
		}
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	switch format {
	case joblist.OutputFormatJSONL:
		return joblist.FormatJSONL(os.Stdout, jobs)
	default:
		joblist.FormatJobsTable(os.Stdout, jobs)
	}
	return nil
}
