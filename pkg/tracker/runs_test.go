package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedClaimableJob(t *testing.T, client *Client) {
	t.Helper()
	ctx := context.Background()

	_, err := client.AddBoard(ctx, &Board{ID: "ramp", Company: "Ramp", ATS: "greenhouse"})
	require.NoError(t, err)
	_, err = client.AddJob(ctx, &Job{Board: "ramp", JobID: "42", Title: "Quant Trader", Department: "Trading"})
	require.NoError(t, err)
}

func TestCreateRun(t *testing.T) {
	ctx := context.Background()

	t.Run("claims a discovered job", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)

		r, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)
		assert.Equal(t, RunStatusPending, r.Status)
		assert.False(t, r.StartedAt.IsZero())
		assert.Nil(t, r.CompletedAt)

		job, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusQueued, job.Status)

		holder, held, err := client.LockHolder(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.True(t, held)
		assert.Equal(t, "r1", holder)
	})

	t.Run("second concurrent claim observes conflict", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)

		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)

		_, err = client.CreateRun(ctx, &JobRun{RunID: "r2", Board: "ramp", JobID: "42", VariantID: "v2"})
		assert.ErrorIs(t, err, ErrLockHeld)

		// The loser left no run record behind.
		_, err = client.GetRun(ctx, "r2")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("lock expiry makes the job re-claimable", func(t *testing.T) {
		client, mr := setupTestClient(t)
		seedClaimableJob(t, client)

		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)

		// Crash the agent: nothing releases the lock, the TTL does.
		mr.FastForward(DefaultLockTTL + time.Second)

		r, err := client.CreateRun(ctx, &JobRun{RunID: "r2", Board: "ramp", JobID: "42", VariantID: "v2"})
		require.NoError(t, err)
		assert.Equal(t, RunStatusPending, r.Status)

		// The job was already queued, so no transition was needed.
		job, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusQueued, job.Status)
	})

	t.Run("missing job releases the lock and reports not found", func(t *testing.T) {
		client, _ := setupTestClient(t)

		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "ghost", VariantID: "v1"})
		assert.ErrorIs(t, err, ErrJobNotFound)

		_, held, err := client.LockHolder(ctx, "ramp", "ghost")
		require.NoError(t, err)
		assert.False(t, held, "failed claim must not leave a lock behind")
	})

	t.Run("non-claimable status releases the lock and reports invalid state", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)

		_, err := client.UpdateJobStatus(ctx, "ramp", "42", JobStatusRejected)
		require.NoError(t, err)

		_, err = client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.NotErrorIs(t, err, ErrLockHeld)

		_, held, err := client.LockHolder(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		client, _ := setupTestClient(t)
		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("initial artifacts are stored", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)

		_, err := client.CreateRun(ctx, &JobRun{
			RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1",
			Artifacts: Artifacts{"resume_url": "s3://resumes/v1.pdf"},
		})
		require.NoError(t, err)

		r, err := client.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "s3://resumes/v1.pdf", r.Artifacts["resume_url"])
	})
}

func TestUpdateRun(t *testing.T) {
	ctx := context.Background()

	t.Run("not found for unknown run", func(t *testing.T) {
		client, _ := setupTestClient(t)
		_, err := client.UpdateRun(ctx, "ghost", RunUpdate{Status: RunStatusSubmitted})
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		client, _ := setupTestClient(t)
		_, err := client.UpdateRun(ctx, "r1", RunUpdate{Status: "done"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("progress update leaves job and lock untouched", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)
		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)

		r, err := client.UpdateRun(ctx, "r1", RunUpdate{Status: RunStatusSubmitted})
		require.NoError(t, err)
		assert.Equal(t, RunStatusSubmitted, r.Status)
		assert.Nil(t, r.CompletedAt)

		job, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusQueued, job.Status)

		_, held, err := client.LockHolder(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.True(t, held)
	})

	t.Run("success applies the job and releases the lock", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)
		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)

		r, err := client.UpdateRun(ctx, "r1", RunUpdate{Status: RunStatusSuccess})
		require.NoError(t, err)
		require.NotNil(t, r.CompletedAt)

		job, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusApplied, job.Status)

		_, held, err := client.LockHolder(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.False(t, held)

		// Applied is not claimable: a new claim is invalid state, not conflict.
		_, err = client.CreateRun(ctx, &JobRun{RunID: "r3", Board: "ramp", JobID: "42", VariantID: "v1"})
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("failure with no active sibling reverts the job", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)
		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)

		r, err := client.UpdateRun(ctx, "r1", RunUpdate{Status: RunStatusFailed, Error: "form rejected resume"})
		require.NoError(t, err)
		assert.Equal(t, "form rejected resume", r.Error)
		require.NotNil(t, r.CompletedAt)

		job, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusDiscovered, job.Status, "job becomes re-claimable")

		// Lock release on terminal outcome: a fresh claim succeeds.
		_, err = client.CreateRun(ctx, &JobRun{RunID: "r2", Board: "ramp", JobID: "42", VariantID: "v2"})
		require.NoError(t, err)
	})

	t.Run("failure with an active sibling keeps the job queued", func(t *testing.T) {
		client, mr := setupTestClient(t)
		seedClaimableJob(t, client)

		// First claim goes stale without completing; its lock expires.
		_, err := client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
		require.NoError(t, err)
		mr.FastForward(DefaultLockTTL + time.Second)

		// Second claim is now in flight.
		_, err = client.CreateRun(ctx, &JobRun{RunID: "r2", Board: "ramp", JobID: "42", VariantID: "v2"})
		require.NoError(t, err)

		// The stale first run finally reports failure: the job must stay
		// queued because r2 is still pending.
		_, err = client.UpdateRun(ctx, "r1", RunUpdate{Status: RunStatusFailed})
		require.NoError(t, err)

		job, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusQueued, job.Status)
	})

	t.Run("artifacts accumulate across partial updates", func(t *testing.T) {
		client, _ := setupTestClient(t)
		seedClaimableJob(t, client)
		_, err := client.CreateRun(ctx, &JobRun{
			RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1",
			Artifacts: Artifacts{"resume_url": "a"},
		})
		require.NoError(t, err)

		_, err = client.UpdateRun(ctx, "r1", RunUpdate{
			Status:    RunStatusSubmitted,
			Artifacts: Artifacts{"notes": "b"},
		})
		require.NoError(t, err)

		_, err = client.UpdateRun(ctx, "r1", RunUpdate{
			Status:    RunStatusSubmitted,
			Artifacts: Artifacts{"answers": map[string]any{"x": "1"}},
		})
		require.NoError(t, err)

		r, err := client.UpdateRun(ctx, "r1", RunUpdate{
			Status:    RunStatusSuccess,
			Artifacts: Artifacts{"answers": map[string]any{"y": "2"}},
		})
		require.NoError(t, err)

		assert.Equal(t, "a", r.Artifacts["resume_url"])
		assert.Equal(t, "b", r.Artifacts["notes"])
		answers, ok := r.Artifacts["answers"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1", answers["x"])
		assert.Equal(t, "2", answers["y"])

		// The merged record is what was persisted, not just the return value.
		stored, err := client.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, r.Artifacts, stored.Artifacts)
	})
}

// TestApplicationLifecycle walks the full coordination scenario end to end:
// discover, claim, conflict, succeed, and observe the applied job reject a
// further claim with invalid state rather than conflict.
func TestApplicationLifecycle(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, err := client.AddBoard(ctx, &Board{ID: "ramp", Company: "Ramp", ATS: "greenhouse"})
	require.NoError(t, err)

	job, err := client.AddJob(ctx, &Job{Board: "ramp", JobID: "42", Title: "Quant Trader", Department: "Trading"})
	require.NoError(t, err)
	assert.Contains(t, job.Tags, "quant")
	assert.Equal(t, JobStatusDiscovered, job.Status)

	_, err = client.CreateRun(ctx, &JobRun{RunID: "r1", Board: "ramp", JobID: "42", VariantID: "v1"})
	require.NoError(t, err)
	job, err = client.GetJob(ctx, "ramp", "42")
	require.NoError(t, err)
	assert.Equal(t, JobStatusQueued, job.Status)

	_, err = client.CreateRun(ctx, &JobRun{RunID: "r2", Board: "ramp", JobID: "42", VariantID: "v2"})
	assert.ErrorIs(t, err, ErrLockHeld)

	_, err = client.UpdateRun(ctx, "r1", RunUpdate{Status: RunStatusSuccess})
	require.NoError(t, err)
	job, err = client.GetJob(ctx, "ramp", "42")
	require.NoError(t, err)
	assert.Equal(t, JobStatusApplied, job.Status)

	_, err = client.CreateRun(ctx, &JobRun{RunID: "r3", Board: "ramp", JobID: "42", VariantID: "v3"})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrLockHeld)
}
