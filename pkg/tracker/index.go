package tracker

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Index delta helpers
//
// A job's authoritative hash record is shadowed by three kinds of index sets:
// the board's job index (bare job ids), exactly one status index, and one tag
// index per tag. Every mutation site must apply the same membership delta on
// both sides or reads see stale entries. These helpers are the single place
// that knows the full membership list, invoked symmetrically on insert and
// delete so no call site can forget a set removal.

// addJobIndexes queues every index-set insertion implied by the job's
// current state onto the pipeline.
func (c *Client) addJobIndexes(ctx context.Context, pipe redis.Pipeliner, j *Job) {
	pipe.SAdd(ctx, BoardJobsKey(c.namespace, j.Board), j.JobID)
	pipe.SAdd(ctx, StatusKey(c.namespace, j.Status), j.Key())
	for _, tag := range j.Tags {
		pipe.SAdd(ctx, TagKey(c.namespace, tag), j.Key())
	}
}

// removeJobIndexes queues the exact mirror of addJobIndexes onto the
// pipeline, based on the job's current stored state.
func (c *Client) removeJobIndexes(ctx context.Context, pipe redis.Pipeliner, j *Job) {
	pipe.SRem(ctx, BoardJobsKey(c.namespace, j.Board), j.JobID)
	pipe.SRem(ctx, StatusKey(c.namespace, j.Status), j.Key())
	for _, tag := range j.Tags {
		pipe.SRem(ctx, TagKey(c.namespace, tag), j.Key())
	}
}

// moveStatusIndex queues the status-index reassignment for a job changing
// from one status to another: removed from the old set and added to the new
// in the same batch, so the job is never in two status sets after a write.
func (c *Client) moveStatusIndex(ctx context.Context, pipe redis.Pipeliner, j *Job, to JobStatus) {
	pipe.SRem(ctx, StatusKey(c.namespace, j.Status), j.Key())
	pipe.SAdd(ctx, StatusKey(c.namespace, to), j.Key())
}
