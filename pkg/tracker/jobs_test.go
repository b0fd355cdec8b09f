package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusIndexMemberships returns every status set containing the composite key.
func statusIndexMemberships(t *testing.T, client *Client, key string) []JobStatus {
	t.Helper()
	ctx := context.Background()

	var in []JobStatus
	for _, status := range []JobStatus{
		JobStatusDiscovered, JobStatusQueued, JobStatusApplied,
		JobStatusFound, JobStatusRejected, JobStatusExpired,
	} {
		ok, err := client.RedisClient().SIsMember(ctx, StatusKey(client.Namespace(), status), key).Result()
		require.NoError(t, err)
		if ok {
			in = append(in, status)
		}
	}
	return in
}

func TestAddJob(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("classifies, stamps, and indexes a new job", func(t *testing.T) {
		j, err := client.AddJob(ctx, &Job{
			Board:      "ramp",
			JobID:      "42",
			Title:      "Quant Trader",
			Department: "Trading",
		})
		require.NoError(t, err)

		assert.Equal(t, JobStatusDiscovered, j.Status)
		assert.Contains(t, j.Tags, "quant")
		assert.False(t, j.DiscoveredAt.IsZero())
		assert.Equal(t, j.DiscoveredAt, j.UpdatedAt)

		got, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, "Quant Trader", got.Title)
		assert.Contains(t, got.Tags, "quant")

		// Exactly one status index holds the composite key.
		assert.Equal(t, []JobStatus{JobStatusDiscovered}, statusIndexMemberships(t, client, "ramp:42"))

		// Board index holds the bare id; tag index the composite key.
		inBoard, err := client.RedisClient().SIsMember(ctx, BoardJobsKey("test", "ramp"), "42").Result()
		require.NoError(t, err)
		assert.True(t, inBoard)
		inTag, err := client.RedisClient().SIsMember(ctx, TagKey("test", "quant"), "ramp:42").Result()
		require.NoError(t, err)
		assert.True(t, inTag)
	})

	t.Run("rejects missing identity", func(t *testing.T) {
		_, err := client.AddJob(ctx, &Job{Board: "ramp"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = client.AddJob(ctx, &Job{JobID: "42"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestAddJobsBulk(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	// Seed a job and move it along its lifecycle.
	_, err := client.AddJob(ctx, &Job{Board: "ramp", JobID: "42", Title: "Quant Trader", Department: "Trading"})
	require.NoError(t, err)
	_, err = client.UpdateJobStatus(ctx, "ramp", "42", JobStatusApplied)
	require.NoError(t, err)

	added, err := client.AddJobsBulk(ctx, []*Job{
		{Board: "ramp", JobID: "42", Title: "Renamed Posting"}, // exists: must be skipped
		{Board: "ramp", JobID: "43", Title: "Platform Engineer"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "43", added[0].JobID)

	// The existing record's status, title, and tags are untouched.
	existing, err := client.GetJob(ctx, "ramp", "42")
	require.NoError(t, err)
	assert.Equal(t, JobStatusApplied, existing.Status)
	assert.Equal(t, "Quant Trader", existing.Title)
	assert.Contains(t, existing.Tags, "quant")

	// The new job went through the normal insert path.
	fresh, err := client.GetJob(ctx, "ramp", "43")
	require.NoError(t, err)
	assert.Equal(t, JobStatusDiscovered, fresh.Status)
	assert.Contains(t, fresh.Tags, "engineering")
}

func TestRemoveJob(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("not found for absent job", func(t *testing.T) {
		err := client.RemoveJob(ctx, "ramp", "missing")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("removes hash and every index membership", func(t *testing.T) {
		_, err := client.AddJob(ctx, &Job{Board: "ramp", JobID: "42", Title: "Quant Trader", Department: "Trading"})
		require.NoError(t, err)

		require.NoError(t, client.RemoveJob(ctx, "ramp", "42"))

		_, err = client.GetJob(ctx, "ramp", "42")
		assert.ErrorIs(t, err, ErrJobNotFound)
		assert.Empty(t, statusIndexMemberships(t, client, "ramp:42"))

		inBoard, err := client.RedisClient().SIsMember(ctx, BoardJobsKey("test", "ramp"), "42").Result()
		require.NoError(t, err)
		assert.False(t, inBoard)
		inTag, err := client.RedisClient().SIsMember(ctx, TagKey("test", "quant"), "ramp:42").Result()
		require.NoError(t, err)
		assert.False(t, inTag)
	})
}

func TestUpdateJobStatus(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, err := client.AddJob(ctx, &Job{Board: "ramp", JobID: "42", Title: "Quant Trader"})
	require.NoError(t, err)

	t.Run("reassigns exactly one status index membership", func(t *testing.T) {
		j, err := client.UpdateJobStatus(ctx, "ramp", "42", JobStatusRejected)
		require.NoError(t, err)
		assert.Equal(t, JobStatusRejected, j.Status)

		assert.Equal(t, []JobStatus{JobStatusRejected}, statusIndexMemberships(t, client, "ramp:42"))

		got, err := client.GetJob(ctx, "ramp", "42")
		require.NoError(t, err)
		assert.Equal(t, JobStatusRejected, got.Status)
		assert.True(t, got.UpdatedAt.After(got.DiscoveredAt) || got.UpdatedAt.Equal(got.DiscoveredAt))
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := client.UpdateJobStatus(ctx, "ramp", "42", "interviewing")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("not found for absent job", func(t *testing.T) {
		_, err := client.UpdateJobStatus(ctx, "ramp", "missing", JobStatusExpired)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}
