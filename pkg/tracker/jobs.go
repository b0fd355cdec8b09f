package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AddJob inserts a job posting. Tags are computed once here via the
// classifier and are immutable thereafter; status starts at discovered and
// both timestamps are stamped. The hash write and all three index insertions
// (board job index, discovered status index, matching tag indexes) go in one
// batch.
//
// Calling AddJob again for an existing (board, job_id) overwrites the record
// including its status and tags. Use AddJobsBulk when existing jobs must keep
// their history.
func (c *Client) AddJob(ctx context.Context, j *Job) (*Job, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	j.Tags = c.classify(j.Title, j.Department)
	if j.Tags == nil {
		j.Tags = []string{}
	}
	j.Status = JobStatusDiscovered
	j.DiscoveredAt = now
	j.UpdatedAt = now

	hash, err := JobToHash(j)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job: %w", err)
	}

	err = c.batch(ctx, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, JobKey(c.namespace, j.Board, j.JobID), hash)
		c.addJobIndexes(ctx, pipe, j)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add job %s: %w", j.Key(), err)
	}
	return j, nil
}

// AddJobsBulk inserts only genuinely new jobs: inputs whose (board, job_id)
// already exists are silently skipped, preserving their current status and
// tags. Returns the jobs that were inserted.
//
// The existence check and the insert are not transactionally exclusive
// against a concurrent caller adding the same id; the check removes the
// common duplicate case while the apply lock independently guards the
// double-apply hazard.
func (c *Client) AddJobsBulk(ctx context.Context, jobs []*Job) ([]*Job, error) {
	added := make([]*Job, 0, len(jobs))
	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			return added, err
		}
		exists, err := c.rdb.Exists(ctx, JobKey(c.namespace, j.Board, j.JobID)).Result()
		if err != nil {
			return added, fmt.Errorf("failed to check job existence: %w", err)
		}
		if exists > 0 {
			continue
		}
		if _, err := c.AddJob(ctx, j); err != nil {
			return added, err
		}
		added = append(added, j)
	}
	return added, nil
}

// GetJob retrieves a job by its composite identity.
// Returns ErrJobNotFound if the job doesn't exist.
func (c *Client) GetJob(ctx context.Context, board, jobID string) (*Job, error) {
	hash, ok, err := c.getHash(ctx, JobKey(c.namespace, board, jobID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobNotFound
	}
	return HashToJob(hash)
}

// RemoveJob deletes a job hash together with its status index, tag index,
// and board job index memberships, all in one batch.
// Returns ErrJobNotFound if the job doesn't exist.
func (c *Client) RemoveJob(ctx context.Context, board, jobID string) error {
	j, err := c.GetJob(ctx, board, jobID)
	if err != nil {
		return err
	}

	err = c.batch(ctx, func(pipe redis.Pipeliner) {
		c.removeJobIndexes(ctx, pipe, j)
		pipe.Del(ctx, JobKey(c.namespace, board, jobID))
	})
	if err != nil {
		return fmt.Errorf("failed to remove job %s: %w", j.Key(), err)
	}
	return nil
}

// UpdateJobStatus reassigns a job's status-index membership and rewrites the
// status and updated_at hash fields in the same batch.
//
// Transition legality is not validated here: the coordinator and the request
// boundary decide what moves are permitted, this primitive just applies them.
// Returns ErrJobNotFound if the job doesn't exist, ErrInvalidInput for an
// unknown status value.
func (c *Client) UpdateJobStatus(ctx context.Context, board, jobID string, status JobStatus) (*Job, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	j, err := c.GetJob(ctx, board, jobID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = c.batch(ctx, func(pipe redis.Pipeliner) {
		c.moveStatusIndex(ctx, pipe, j, status)
		pipe.HSet(ctx, JobKey(c.namespace, board, jobID),
			"status", string(status),
			"updated_at", now.Format(time.RFC3339Nano),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update job status for %s: %w", j.Key(), err)
	}

	j.Status = status
	j.UpdatedAt = now
	return j, nil
}
