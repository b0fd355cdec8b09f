package tracker

import (
	"context"
	"fmt"
	"sort"
)

// Reconciliation sweep
//
// The apply lock's TTL recovers the lock itself after an agent crash, but
// the job it guarded stays queued: no lock holder, a run stuck pending or
// submitted, and no automatic path back to claimable. Sweep closes that gap.

// SweepResult reports what a reconciliation pass found and changed.
type SweepResult struct {
	Checked    int      // queued jobs examined
	OrphanRuns []string // run ids marked failed because their lock expired
	Reclaimed  []string // composite keys reverted to discovered
}

// Sweep scans the queued status index for jobs whose apply lock has expired.
// Any still-active run for such a job is a relic of a crashed or hung agent:
// it is marked failed with completed_at stamped, and the job reverts to
// discovered so a new claim can proceed. Jobs whose lock is still held are
// left alone.
//
// With dryRun set, the pass reports what it would change without writing.
// Sweep is expected to run from a single operational caller (cron or CLI);
// it takes no lock of its own, so two concurrent sweeps could both mark the
// same orphan run failed, which is harmless.
func (c *Client) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	keys, err := c.rdb.SMembers(ctx, StatusKey(c.namespace, JobStatusQueued)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queued index: %w", err)
	}
	sort.Strings(keys)

	result := &SweepResult{}
	for _, key := range keys {
		board, jobID, err := SplitCompositeKey(key)
		if err != nil {
			continue // malformed index entry, skip
		}
		result.Checked++

		_, held, err := c.LockHolder(ctx, board, jobID)
		if err != nil {
			return nil, err
		}
		if held {
			continue
		}

		runs, err := c.ListRuns(ctx, board, jobID)
		if err != nil {
			return nil, err
		}
		for _, r := range runs {
			if !r.Status.Active() {
				continue
			}
			result.OrphanRuns = append(result.OrphanRuns, r.RunID)
			if dryRun {
				continue
			}
			// UpdateRun's failed path also reverts the job once no active
			// sibling remains, and its lock release is a no-op here.
			if _, err := c.UpdateRun(ctx, r.RunID, RunUpdate{
				Status: RunStatusFailed,
				Error:  "apply lock expired before completion",
			}); err != nil {
				return nil, err
			}
		}

		if dryRun {
			result.Reclaimed = append(result.Reclaimed, key)
			continue
		}

		// A queued job with no runs at all (or whose orphan runs were just
		// failed) may still need the revert if UpdateRun never ran.
		j, err := c.GetJob(ctx, board, jobID)
		if err == ErrJobNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if j.Status == JobStatusQueued {
			if _, err := c.UpdateJobStatus(ctx, board, jobID, JobStatusDiscovered); err != nil {
				return nil, err
			}
		}
		result.Reclaimed = append(result.Reclaimed, key)
	}
	return result, nil
}
