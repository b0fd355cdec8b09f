package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IamJasonBian/allocation-crawler-service/internal/joblist"
	"github.com/IamJasonBian/allocation-crawler-service/internal/printer"
	"github.com/IamJasonBian/allocation-crawler-service/pkg/tracker"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage registered job boards",
}

var boardAddCmd = &cobra.Command{
	Use:   "add ID COMPANY ATS",
	Short: "Register a job board",
	Long: `Register a job board as a source of postings.

ID is a slug identifying the board, COMPANY the display name, and ATS the
applicant-tracking system hosting it. Re-adding an existing ID overwrites
the record.

Examples:
  appcoord board add ramp "Ramp" greenhouse
  appcoord board add stripe "Stripe" lever`,
	Args: cobra.ExactArgs(3),
	RunE: runBoardAdd,
}

var boardRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a board and all its jobs",
	Long: `Remove a board, cascading to every job it tracks: job records, their
status and tag index entries, runs, and apply locks are all deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runBoardRm,
}

var boardLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered boards",
	Args:  cobra.NoArgs,
	RunE:  runBoardLs,
}

func init() {
	boardCmd.AddCommand(boardAddCmd)
	boardCmd.AddCommand(boardRmCmd)
	boardCmd.AddCommand(boardLsCmd)
	rootCmd.AddCommand(boardCmd)
}

func runBoardAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	b, err := client.AddBoard(ctx, &tracker.Board{
		ID:      args[0],
		Company: args[1],
		ATS:     args[2],
	})
	if err != nil {
		if errors.Is(err, tracker.ErrInvalidInput) {
			return printer.Error(
				"invalid board",
				err.Error(),
				[]string{"All three of ID, COMPANY, and ATS are required"},
			)
		}
		return fmt.Errorf("failed to add board: %w", err)
	}

	printer.Success("Registered board '%s' (%s on %s)\n", b.ID, b.Company, b.ATS)
	return nil
}

func runBoardRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RemoveBoard(ctx, args[0]); err != nil {
		if errors.Is(err, tracker.ErrBoardNotFound) {
			return printer.Error(
				"board not found",
				fmt.Sprintf("No board registered with id '%s'.", args[0]),
				[]string{"List boards:\n  appcoord board ls"},
			)
		}
		return fmt.Errorf("failed to remove board: %w", err)
	}

	printer.Success("Removed board '%s' and all its jobs\n", args[0])
	return nil
}

func runBoardLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	boards, err := client.ListBoards(ctx)
	if err != nil {
		return fmt.Errorf("failed to list boards: %w", err)
	}

	if len(boards) == 0 {
		printer.Info("No boards registered\n")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-16s %-24s %s\n", "ID", "COMPANY", "ATS")
	for _, b := range boards {
		fmt.Fprintf(os.Stdout, "%-16s %-24s %s\n", b.ID, b.Company, b.ATS)
	}
	return nil
}

// outputFlagFormat validates the --output flag shared by listing commands.
func outputFlagFormat(raw string) (joblist.OutputFormat, error) {
	format, err := joblist.ParseOutputFormat(raw)
	if err != nil {
		return "", printer.Error(
			"invalid output format",
			err.Error(),
			[]string{"Valid formats: default, jsonl"},
		)
	}
	return format, nil
}
