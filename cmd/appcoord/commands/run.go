package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IamJasonBian/allocation-crawler-service/internal/joblist"
	"github.com/IamJasonBian/allocation-crawler-service/internal/printer"
	"github.com/IamJasonBian/allocation-crawler-service/pkg/tracker"
)

var (
	runCreateID        string
	runCreateArtifacts string

	runUpdateError     string
	runUpdateArtifacts string

	runLsBoard  string
	runLsJob    string
	runLsOutput string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage application runs",
}

var runCreateCmd = &cobra.Command{
	Use:   "create BOARD JOB_ID VARIANT",
	Short: "Claim a job and start an application run",
	Long: `Claim a job for one application attempt.

Claiming acquires the job's apply lock (expiring after the configured TTL)
so no other agent can start a concurrent run. A held lock is reported as a
conflict, distinct from the job being missing or in a non-claimable status.
On success the run starts 'pending' and a 'discovered' job moves to 'queued'.

VARIANT names the resume/profile variant the agent will apply with.

Examples:
  appcoord run create ramp 42 v1
  appcoord run create ramp 42 v2 --artifacts '{"resume_url": "s3://resumes/v2.pdf"}'`,
	Args: cobra.ExactArgs(3),
	RunE: runRunCreate,
}

var runUpdateCmd = &cobra.Command{
	Use:   "update RUN_ID STATUS",
	Short: "Advance a run through its lifecycle",
	Long: `Record progress or the outcome of a run.

Valid statuses: pending, submitted, success, failed. Supplied artifacts
merge field-wise into what earlier updates recorded (the 'answers' sub-map
merges key-wise), so partial evidence is never lost.

Outcome side effects: 'success' marks the job applied and releases the
apply lock; 'failed' releases the lock and, when no other run for the job
is still active, makes the job claimable again.

Examples:
  appcoord run update r1 submitted --artifacts '{"confirmation_url": "https://..."}'
  appcoord run update r1 failed --error "form rejected resume format"`,
	Args: cobra.ExactArgs(2),
	RunE: runRunUpdate,
}

var runGetCmd = &cobra.Command{
	Use:   "get RUN_ID",
	Short: "Show one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunGet,
}

var runLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List runs for a job or system-wide",
	Args:  cobra.NoArgs,
	RunE:  runRunLs,
}

func init() {
	runCreateCmd.Flags().StringVar(&runCreateID, "run-id", "", "Run id (generated if omitted)")
	runCreateCmd.Flags().StringVar(&runCreateArtifacts, "artifacts", "", "Initial artifacts as a JSON object")

	runUpdateCmd.Flags().StringVar(&runUpdateError, "error", "", "Error message for failed runs")
	runUpdateCmd.Flags().StringVar(&runUpdateArtifacts, "artifacts", "", "Artifacts to merge, as a JSON object")

	runLsCmd.Flags().StringVar(&runLsBoard, "board", "", "Board of the job to list runs for")
	runLsCmd.Flags().StringVar(&runLsJob, "job", "", "Job id to list runs for (requires --board)")
	runLsCmd.Flags().StringVarP(&runLsOutput, "output", "o", "default", "Output format: default or jsonl")

	runCmd.AddCommand(runCreateCmd)
	runCmd.AddCommand(runUpdateCmd)
	runCmd.AddCommand(runGetCmd)
	runCmd.AddCommand(runLsCmd)
	rootCmd.AddCommand(runCmd)
}

// parseArtifactsFlag decodes a --artifacts JSON object flag value.
func parseArtifactsFlag(raw string) (tracker.Artifacts, error) {
	if raw == "" {
		return nil, nil
	}
	var artifacts tracker.Artifacts
	if err := json.Unmarshal([]byte(raw), &artifacts); err != nil {
		return nil, fmt.Errorf("artifacts must be a JSON object: %w", err)
	}
	return artifacts, nil
}

func runRunCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	artifacts, err := parseArtifactsFlag(runCreateArtifacts)
	if err != nil {
		return printer.Error(
			"invalid artifacts",
			err.Error(),
			[]string{`Pass a JSON object, e.g. --artifacts '{"resume_url": "..."}'`},
		)
	}

	runID := runCreateID
	if runID == "" {
		runID = uuid.New().String()
	}

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	r, err := client.CreateRun(ctx, &tracker.JobRun{
		RunID:     runID,
		Board:     args[0],
		JobID:     args[1],
		VariantID: args[2],
		Artifacts: artifacts,
	})
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrLockHeld):
			return printer.Error(
				"apply lock held",
				fmt.Sprintf("Another agent is already applying to job %s.", tracker.CompositeKey(args[0], args[1])),
				[]string{"Back off and retry after the current run completes or the lock expires"},
			)
		case errors.Is(err, tracker.ErrJobNotFound):
			return printer.Error(
				"job not found",
				fmt.Sprintf("No job '%s' tracked on board '%s'.", args[1], args[0]),
				[]string{fmt.Sprintf("List the board's jobs:\n  appcoord job ls --board %s", args[0])},
			)
		case errors.Is(err, tracker.ErrInvalidState):
			return printer.Error(
				"job not claimable",
				err.Error(),
				[]string{"Only jobs in status discovered or queued can be claimed"},
			)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}

	printer.Success("Run %s claimed job %s (variant %s)\n", r.RunID, tracker.CompositeKey(r.Board, r.JobID), r.VariantID)
	return nil
}

func runRunUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	artifacts, err := parseArtifactsFlag(runUpdateArtifacts)
	if err != nil {
		return printer.Error(
			"invalid artifacts",
			err.Error(),
			[]string{`Pass a JSON object, e.g. --artifacts '{"notes": "..."}'`},
		)
	}

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	r, err := client.UpdateRun(ctx, args[0], tracker.RunUpdate{
		Status:    tracker.RunStatus(args[1]),
		Error:     runUpdateError,
		Artifacts: artifacts,
	})
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrInvalidInput):
			return printer.Error(
				"invalid status",
				fmt.Sprintf("Unknown run status '%s'.", args[1]),
				[]string{"Valid statuses: pending, submitted, success, failed"},
			)
		case errors.Is(err, tracker.ErrRunNotFound):
			return printer.Error(
				"run not found",
				fmt.Sprintf("No run with id '%s'.", args[0]),
				[]string{"List runs:\n  appcoord run ls"},
			)
		}
		return fmt.Errorf("failed to update run: %w", err)
	}

	printer.Success("Run %s is now %s\n", r.RunID, r.Status)
	return nil
}

func runRunGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	r, err := client.GetRun(ctx, args[0])
	if err != nil {
		if errors.Is(err, tracker.ErrRunNotFound) {
			return printer.Error(
				"run not found",
				fmt.Sprintf("No run with id '%s'.", args[0]),
				[]string{"List runs:\n  appcoord run ls"},
			)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	return joblist.FormatSingleJSON(os.Stdout, r)
}

func runRunLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := outputFlagFormat(runLsOutput)
	if err != nil {
		return err
	}
	if (runLsBoard == "") != (runLsJob == "") {
		return printer.Error(
			"incomplete job filter",
			"--board and --job must be given together to list one job's runs.",
			[]string{"Omit both to list all runs system-wide"},
		)
	}

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	runs, err := client.ListRuns(ctx, runLsBoard, runLsJob)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	switch format {
	case joblist.OutputFormatJSONL:
		return joblist.FormatJSONL(os.Stdout, runs)
	default:
		joblist.FormatRunsTable(os.Stdout, runs)
	}
	return nil
}
