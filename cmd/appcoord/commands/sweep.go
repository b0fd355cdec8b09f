package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IamJasonBian/allocation-crawler-service/internal/printer"
)

var sweepDryRun bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reconcile queued jobs whose apply lock expired",
	Long: `Scan queued jobs for expired apply locks.

A crashed agent leaves its job queued with no lock holder and a run stuck
pending or submitted. Sweep marks those orphaned runs failed and reverts the
job to 'discovered' so a new claim can proceed. Jobs whose lock is still
held are left alone.

Run this periodically (cron) or after an agent fleet incident.

Examples:
  appcoord sweep --dry-run
  appcoord sweep`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Report what would change without writing")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Sweep(ctx, sweepDryRun)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	verb := "reclaimed"
	if sweepDryRun {
		verb = "would reclaim"
	}
	printer.Info("Checked %d queued jobs\n", result.Checked)
	for _, runID := range result.OrphanRuns {
		printer.Warning("orphaned run %s (lock expired)\n", runID)
	}
	for _, key := range result.Reclaimed {
		printer.Info("  %s %s\n", verb, key)
	}
	printer.Success("Sweep complete: %d jobs %s, %d orphaned runs\n",
		len(result.Reclaimed), verb, len(result.OrphanRuns))
	return nil
}
