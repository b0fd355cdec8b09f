package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// AddBoard registers a board and adds it to the boards index set. Writing an
// existing id overwrites the record; no prior-existence check is made.
func (c *Client) AddBoard(ctx context.Context, b *Board) (*Board, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	err := c.batch(ctx, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, BoardKey(c.namespace, b.ID), BoardToHash(b))
		pipe.SAdd(ctx, BoardsKey(c.namespace), b.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add board %s: %w", b.ID, err)
	}
	return b, nil
}

// GetBoard retrieves a board by id.
// Returns ErrBoardNotFound if the board doesn't exist.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	hash, ok, err := c.getHash(ctx, BoardKey(c.namespace, boardID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBoardNotFound
	}
	return HashToBoard(hash)
}

// ListBoards returns every registered board, sorted by id. Ids whose hash has
// vanished are silently dropped rather than treated as an error.
func (c *Client) ListBoards(ctx context.Context) ([]*Board, error) {
	ids, err := c.rdb.SMembers(ctx, BoardsKey(c.namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read boards index: %w", err)
	}
	sort.Strings(ids)

	boards := make([]*Board, 0, len(ids))
	for _, id := range ids {
		b, err := c.GetBoard(ctx, id)
		if err == ErrBoardNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// RemoveBoard deletes a board and cascades to all its jobs: every job's
// status and tag index memberships, run records, run indexes, apply locks,
// and hashes go in one batch with the board's own keys. Partial application
// would leave dangling index entries, so all removals are queued onto a
// single pipeline.
// Returns ErrBoardNotFound if the board doesn't exist.
func (c *Client) RemoveBoard(ctx context.Context, boardID string) error {
	exists, err := c.rdb.Exists(ctx, BoardKey(c.namespace, boardID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check board existence: %w", err)
	}
	if exists == 0 {
		return ErrBoardNotFound
	}

	jobIDs, err := c.rdb.SMembers(ctx, BoardJobsKey(c.namespace, boardID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read board job index: %w", err)
	}

	// Read phase: gather each job's current status/tags and run ids so the
	// write phase can mirror every index membership exactly.
	type cascade struct {
		job    *Job
		runIDs []string
	}
	var cascades []cascade
	for _, jobID := range jobIDs {
		hash, ok, err := c.getHash(ctx, JobKey(c.namespace, boardID, jobID))
		if err != nil {
			return err
		}
		if !ok {
			continue // index/hash drift, nothing to cascade
		}
		j, err := HashToJob(hash)
		if err != nil {
			return fmt.Errorf("failed to deserialize job %s: %w", jobID, err)
		}
		runIDs, err := c.rdb.SMembers(ctx, JobRunsKey(c.namespace, boardID, jobID)).Result()
		if err != nil {
			return fmt.Errorf("failed to read run index for job %s: %w", jobID, err)
		}
		cascades = append(cascades, cascade{job: j, runIDs: runIDs})
	}

	err = c.batch(ctx, func(pipe redis.Pipeliner) {
		for _, cas := range cascades {
			c.removeJobIndexes(ctx, pipe, cas.job)
			for _, runID := range cas.runIDs {
				pipe.Del(ctx, RunKey(c.namespace, runID))
				pipe.SRem(ctx, RunsKey(c.namespace), runID)
			}
			pipe.Del(ctx, JobRunsKey(c.namespace, boardID, cas.job.JobID))
			pipe.Del(ctx, LockKey(c.namespace, boardID, cas.job.JobID))
			pipe.Del(ctx, JobKey(c.namespace, boardID, cas.job.JobID))
		}
		pipe.Del(ctx, BoardJobsKey(c.namespace, boardID))
		pipe.Del(ctx, BoardKey(c.namespace, boardID))
		pipe.SRem(ctx, BoardsKey(c.namespace), boardID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove board %s: %w", boardID, err)
	}
	return nil
}
