package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusValidate(t *testing.T) {
	for _, status := range []JobStatus{
		JobStatusDiscovered, JobStatusQueued, JobStatusApplied,
		JobStatusFound, JobStatusRejected, JobStatusExpired,
	} {
		assert.NoError(t, status.Validate(), string(status))
	}

	err := JobStatus("interviewing").Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJobStatusClaimable(t *testing.T) {
	assert.True(t, JobStatusDiscovered.Claimable())
	assert.True(t, JobStatusQueued.Claimable())
	assert.False(t, JobStatusApplied.Claimable())
	assert.False(t, JobStatusRejected.Claimable())
	assert.False(t, JobStatusExpired.Claimable())
	assert.False(t, JobStatusFound.Claimable())
}

func TestRunStatusValidate(t *testing.T) {
	for _, status := range []RunStatus{
		RunStatusPending, RunStatusSubmitted, RunStatusSuccess, RunStatusFailed,
	} {
		assert.NoError(t, status.Validate(), string(status))
	}
	assert.ErrorIs(t, RunStatus("done").Validate(), ErrInvalidInput)
}

func TestRunStatusPhases(t *testing.T) {
	assert.True(t, RunStatusPending.Active())
	assert.True(t, RunStatusSubmitted.Active())
	assert.False(t, RunStatusSuccess.Active())
	assert.False(t, RunStatusFailed.Active())

	assert.True(t, RunStatusSuccess.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
	assert.False(t, RunStatusPending.Terminal())
	assert.False(t, RunStatusSubmitted.Terminal())
}

func TestArtifactsMerge(t *testing.T) {
	t.Run("merge is additive across updates", func(t *testing.T) {
		a := Artifacts{"resume_url": "a"}
		a = a.Merge(Artifacts{"notes": "b"})

		assert.Equal(t, "a", a["resume_url"])
		assert.Equal(t, "b", a["notes"])
	})

	t.Run("answers sub-map merges key-wise", func(t *testing.T) {
		a := Artifacts{}
		a = a.Merge(Artifacts{"answers": map[string]any{"x": "1"}})
		a = a.Merge(Artifacts{"answers": map[string]any{"y": "2"}})

		answers, ok := a["answers"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1", answers["x"])
		assert.Equal(t, "2", answers["y"])
	})

	t.Run("non-answers fields are replaced on conflict", func(t *testing.T) {
		a := Artifacts{"notes": "first"}
		a = a.Merge(Artifacts{"notes": "second"})
		assert.Equal(t, "second", a["notes"])
	})

	t.Run("non-map answers value replaces wholesale", func(t *testing.T) {
		a := Artifacts{"answers": "free text"}
		a = a.Merge(Artifacts{"answers": map[string]any{"x": "1"}})
		assert.Equal(t, map[string]any{"x": "1"}, a["answers"])
	})

	t.Run("merging into nil starts fresh", func(t *testing.T) {
		var a Artifacts
		a = a.Merge(Artifacts{"resume_url": "a"})
		assert.Equal(t, "a", a["resume_url"])
	})
}

func TestCompositeKey(t *testing.T) {
	key := CompositeKey("ramp", "42")
	assert.Equal(t, "ramp:42", key)

	board, jobID, err := SplitCompositeKey(key)
	require.NoError(t, err)
	assert.Equal(t, "ramp", board)
	assert.Equal(t, "42", jobID)

	t.Run("job ids may themselves contain separators", func(t *testing.T) {
		board, jobID, err := SplitCompositeKey("ramp:jobs:42")
		require.NoError(t, err)
		assert.Equal(t, "ramp", board)
		assert.Equal(t, "jobs:42", jobID)
	})

	t.Run("malformed keys are rejected", func(t *testing.T) {
		for _, bad := range []string{"", "ramp", ":42", "ramp:"} {
			_, _, err := SplitCompositeKey(bad)
			assert.ErrorIs(t, err, ErrInvalidInput, bad)
		}
	})
}

func TestEntityValidate(t *testing.T) {
	t.Run("board requires all three fields", func(t *testing.T) {
		assert.NoError(t, (&Board{ID: "ramp", Company: "Ramp", ATS: "greenhouse"}).Validate())
		assert.ErrorIs(t, (&Board{Company: "Ramp", ATS: "greenhouse"}).Validate(), ErrInvalidInput)
		assert.ErrorIs(t, (&Board{ID: "ramp", ATS: "greenhouse"}).Validate(), ErrInvalidInput)
		assert.ErrorIs(t, (&Board{ID: "ramp", Company: "Ramp"}).Validate(), ErrInvalidInput)
	})

	t.Run("job requires identity, optional strings may be empty", func(t *testing.T) {
		assert.NoError(t, (&Job{Board: "ramp", JobID: "42"}).Validate())
		assert.ErrorIs(t, (&Job{JobID: "42"}).Validate(), ErrInvalidInput)
		assert.ErrorIs(t, (&Job{Board: "ramp"}).Validate(), ErrInvalidInput)
	})

	t.Run("run requires all four identifiers", func(t *testing.T) {
		full := &JobRun{RunID: "r1", JobID: "42", Board: "ramp", VariantID: "v1"}
		assert.NoError(t, full.Validate())
		assert.ErrorIs(t, (&JobRun{JobID: "42", Board: "ramp", VariantID: "v1"}).Validate(), ErrInvalidInput)
		assert.ErrorIs(t, (&JobRun{RunID: "r1", Board: "ramp", VariantID: "v1"}).Validate(), ErrInvalidInput)
		assert.ErrorIs(t, (&JobRun{RunID: "r1", JobID: "42", VariantID: "v1"}).Validate(), ErrInvalidInput)
		assert.ErrorIs(t, (&JobRun{RunID: "r1", JobID: "42", Board: "ramp"}).Validate(), ErrInvalidInput)
	})
}
