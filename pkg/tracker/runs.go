package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Application coordinator
//
// CreateRun and UpdateRun govern the Job x Run state machine:
//
//	Job:  discovered --CreateRun--> queued
//	      queued --UpdateRun(success)--> applied
//	      queued --UpdateRun(failed, no sibling active run)--> discovered
//	      any --manual UpdateJobStatus--> rejected | expired
//	Run:  (none) --CreateRun--> pending
//	      pending --UpdateRun--> submitted | success | failed
//	      submitted --UpdateRun--> success | failed
//
// The apply lock is the sole point of mutual exclusion across concurrently
// executing, independently crashing agents. Everything after acquisition is
// plain read-then-write against Redis, safe only because no other caller
// proceeds past SetNX for the same (board, job_id) while the lock lives.

// CreateRun claims a job for one application attempt.
//
// The atomic conditional-set of the lock key is the primary race guard:
// ErrLockHeld means another agent already holds the claim, an expected and
// frequent outcome distinct from every other failure. After acquisition the
// job is re-read and its status checked independently — holding the lock does
// not imply permission to apply, so a job moved to rejected/expired between
// crawl and claim returns ErrInvalidState. On success the run is written as
// pending, indexed, and a discovered job transitions to queued.
func (c *Client) CreateRun(ctx context.Context, r *JobRun) (*JobRun, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	lockKey := LockKey(c.namespace, r.Board, r.JobID)
	acquired, err := c.rdb.SetNX(ctx, lockKey, r.RunID, c.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire apply lock for %s: %w", CompositeKey(r.Board, r.JobID), err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	job, err := c.GetJob(ctx, r.Board, r.JobID)
	if err == ErrJobNotFound {
		c.releaseLock(ctx, r.Board, r.JobID)
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	if !job.Status.Claimable() {
		c.releaseLock(ctx, r.Board, r.JobID)
		return nil, fmt.Errorf("%w: job %s is %s", ErrInvalidState, job.Key(), job.Status)
	}

	r.Status = RunStatusPending
	r.StartedAt = time.Now().UTC()
	r.CompletedAt = nil

	hash, err := RunToHash(r)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run: %w", err)
	}
	err = c.batch(ctx, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, RunKey(c.namespace, r.RunID), hash)
		pipe.SAdd(ctx, JobRunsKey(c.namespace, r.Board, r.JobID), r.RunID)
		pipe.SAdd(ctx, RunsKey(c.namespace), r.RunID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write run %s: %w", r.RunID, err)
	}

	// A job already queued (a retried claim after a prior run failed without
	// releasing) needs no transition.
	if job.Status == JobStatusDiscovered {
		if _, err := c.UpdateJobStatus(ctx, r.Board, r.JobID, JobStatusQueued); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RunUpdate carries the mutable fields of an UpdateRun call.
type RunUpdate struct {
	Status    RunStatus
	Error     string
	Artifacts Artifacts
}

// UpdateRun advances a run through its state machine and applies the
// outcome's side effects on the owning job.
//
// Terminal statuses stamp completed_at. Supplied artifacts merge field-wise
// into the existing record (the answers sub-map merges key-wise), so
// earlier-written evidence is never dropped by a later partial update.
//
// Job side effects, keyed by outcome:
//   - success: job -> applied, apply lock released
//   - failed: apply lock released unconditionally; job reverts to discovered
//     only when no other run for the job is still pending or submitted
//   - pending/submitted progress updates: no job transition, lock untouched
//
// Returns the hydrated updated run, or ErrRunNotFound for an unknown id.
// No internal retries: a store failure propagates uninterpreted, since
// blindly retrying a conditional write could mask a legitimate conflict.
func (c *Client) UpdateRun(ctx context.Context, runID string, upd RunUpdate) (*JobRun, error) {
	if err := upd.Status.Validate(); err != nil {
		return nil, err
	}

	r, err := c.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	r.Status = upd.Status
	if upd.Error != "" {
		r.Error = upd.Error
	}
	if upd.Status.Terminal() {
		now := time.Now().UTC()
		r.CompletedAt = &now
	}
	if upd.Artifacts != nil {
		r.Artifacts = r.Artifacts.Merge(upd.Artifacts)
	}

	hash, err := RunToHash(r)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run: %w", err)
	}
	if err := c.rdb.HSet(ctx, RunKey(c.namespace, runID), hash).Err(); err != nil {
		return nil, fmt.Errorf("failed to write run %s: %w", runID, err)
	}

	switch upd.Status {
	case RunStatusSuccess:
		if _, err := c.UpdateJobStatus(ctx, r.Board, r.JobID, JobStatusApplied); err != nil && err != ErrJobNotFound {
			return nil, err
		}
		if err := c.releaseLock(ctx, r.Board, r.JobID); err != nil {
			return nil, err
		}

	case RunStatusFailed:
		active, err := c.hasOtherActiveRun(ctx, r.Board, r.JobID, r.RunID)
		if err != nil {
			return nil, err
		}
		if !active {
			if _, err := c.UpdateJobStatus(ctx, r.Board, r.JobID, JobStatusDiscovered); err != nil && err != ErrJobNotFound {
				return nil, err
			}
		}
		// Released regardless of siblings: this claimant is done.
		if err := c.releaseLock(ctx, r.Board, r.JobID); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// GetRun retrieves a run by id.
// Returns ErrRunNotFound if the run doesn't exist.
func (c *Client) GetRun(ctx context.Context, runID string) (*JobRun, error) {
	hash, ok, err := c.getHash(ctx, RunKey(c.namespace, runID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunNotFound
	}
	return HashToRun(hash)
}

// LockHolder reports which run id currently holds the apply lock for a job.
// held is false when no lock exists.
func (c *Client) LockHolder(ctx context.Context, board, jobID string) (runID string, held bool, err error) {
	val, err := c.rdb.Get(ctx, LockKey(c.namespace, board, jobID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read apply lock: %w", err)
	}
	return val, true, nil
}

// hasOtherActiveRun reports whether any run for the job other than excludeID
// is still pending or submitted.
func (c *Client) hasOtherActiveRun(ctx context.Context, board, jobID, excludeID string) (bool, error) {
	runs, err := c.ListRuns(ctx, board, jobID)
	if err != nil {
		return false, err
	}
	for _, sibling := range runs {
		if sibling.RunID == excludeID {
			continue
		}
		if sibling.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

// releaseLock deletes the apply lock for a job. Deleting an absent lock is
// not an error: the TTL may already have expired it.
func (c *Client) releaseLock(ctx context.Context, board, jobID string) error {
	if err := c.rdb.Del(ctx, LockKey(c.namespace, board, jobID)).Err(); err != nil {
		return fmt.Errorf("failed to release apply lock: %w", err)
	}
	return nil
}
