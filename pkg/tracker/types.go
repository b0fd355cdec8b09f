package tracker

import (
	"fmt"
	"strings"
	"time"
)

// Board represents a registered source of job postings (a company's careers
// page or applicant-tracking system).
type Board struct {
	ID        string    `json:"id"`      // Slug identifying the board
	Company   string    `json:"company"` // Display name of the company
	ATS       string    `json:"ats"`     // Applicant-tracking system the board is hosted on
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Board has valid field values.
func (b *Board) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: board id cannot be empty", ErrInvalidInput)
	}
	if b.Company == "" {
		return fmt.Errorf("%w: company cannot be empty", ErrInvalidInput)
	}
	if b.ATS == "" {
		return fmt.Errorf("%w: ats cannot be empty", ErrInvalidInput)
	}
	return nil
}

// Job represents one posting tracked through its application lifecycle.
// Identity is the (board, job_id) composite key.
type Job struct {
	JobID        string    `json:"job_id"`
	Board        string    `json:"board"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Location     string    `json:"location"`
	Department   string    `json:"department"`
	Tags         []string  `json:"tags"`   // Interest tags, computed once at creation
	Status       JobStatus `json:"status"` // Current lifecycle state
	DiscoveredAt time.Time `json:"discovered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Key returns the composite key identifying this job in index sets.
func (j *Job) Key() string {
	return CompositeKey(j.Board, j.JobID)
}

// Validate checks if the Job has valid field values.
func (j *Job) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("%w: job_id cannot be empty", ErrInvalidInput)
	}
	if j.Board == "" {
		return fmt.Errorf("%w: board cannot be empty", ErrInvalidInput)
	}
	return nil
}

// JobStatus defines the lifecycle state of a job posting.
type JobStatus string

const (
	// JobStatusDiscovered indicates the job was found by a crawler and is claimable
	JobStatusDiscovered JobStatus = "discovered"

	// JobStatusQueued indicates an agent has claimed the job and a run is in flight
	JobStatusQueued JobStatus = "queued"

	// JobStatusApplied indicates a run completed the application successfully
	JobStatusApplied JobStatus = "applied"

	// JobStatusFound indicates the posting was matched manually and needs triage
	JobStatusFound JobStatus = "found"

	// JobStatusRejected indicates the job was ruled out and must not be applied to
	JobStatusRejected JobStatus = "rejected"

	// JobStatusExpired indicates the posting is no longer live on the board
	JobStatusExpired JobStatus = "expired"
)

// Validate checks if the JobStatus is a valid enum value.
func (s JobStatus) Validate() error {
	switch s {
	case JobStatusDiscovered, JobStatusQueued, JobStatusApplied,
		JobStatusFound, JobStatusRejected, JobStatusExpired:
		return nil
	default:
		return fmt.Errorf("%w: unknown job status %q", ErrInvalidInput, s)
	}
}

// Claimable reports whether a job in this status may be claimed by a new run.
func (s JobStatus) Claimable() bool {
	return s == JobStatusDiscovered || s == JobStatusQueued
}

// JobRun represents one attempt by an agent to apply to a job.
type JobRun struct {
	RunID       string     `json:"run_id"`
	JobID       string     `json:"job_id"`
	Board       string     `json:"board"`
	VariantID   string     `json:"variant_id"` // Resume/profile variant used for this attempt
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Artifacts   Artifacts  `json:"artifacts,omitempty"`
}

// Validate checks if the JobRun has valid field values.
func (r *JobRun) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("%w: run_id cannot be empty", ErrInvalidInput)
	}
	if r.JobID == "" {
		return fmt.Errorf("%w: job_id cannot be empty", ErrInvalidInput)
	}
	if r.Board == "" {
		return fmt.Errorf("%w: board cannot be empty", ErrInvalidInput)
	}
	if r.VariantID == "" {
		return fmt.Errorf("%w: variant_id cannot be empty", ErrInvalidInput)
	}
	return nil
}

// RunStatus defines the lifecycle state of an application run.
type RunStatus string

const (
	// RunStatusPending indicates the run has claimed its job but not yet submitted
	RunStatusPending RunStatus = "pending"

	// RunStatusSubmitted indicates the application form has been submitted
	RunStatusSubmitted RunStatus = "submitted"

	// RunStatusSuccess indicates the application completed successfully
	RunStatusSuccess RunStatus = "success"

	// RunStatusFailed indicates the application attempt failed
	RunStatusFailed RunStatus = "failed"
)

// Validate checks if the RunStatus is a valid enum value.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusPending, RunStatusSubmitted, RunStatusSuccess, RunStatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown run status %q", ErrInvalidInput, s)
	}
}

// Terminal reports whether this status ends the run.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// Active reports whether a run in this status is still in flight.
func (s RunStatus) Active() bool {
	return s == RunStatusPending || s == RunStatusSubmitted
}

// Artifacts is the free-form record of partial application evidence a run
// accumulates (resume used, cover letter, form answers, confirmation URL,
// notes). Updates merge field-wise rather than replacing the whole record.
type Artifacts map[string]any

// Merge folds the incoming fields into the receiver and returns the result.
// Existing fields not named by in survive untouched. The "answers" sub-map is
// special-cased: when both sides carry a map there, the maps are merged
// key-wise instead of the new one replacing the old.
func (a Artifacts) Merge(in Artifacts) Artifacts {
	if a == nil {
		a = Artifacts{}
	}
	for k, v := range in {
		if k == "answers" {
			oldAnswers, oldOK := a[k].(map[string]any)
			newAnswers, newOK := v.(map[string]any)
			if oldOK && newOK {
				for ak, av := range newAnswers {
					oldAnswers[ak] = av
				}
				continue
			}
		}
		a[k] = v
	}
	return a
}

// User holds a candidate's application profile: resume variants, stock form
// answers, and the interest tags used to filter job retrieval.
type User struct {
	ID        string            `json:"id"`
	Resumes   []string          `json:"resumes"`
	Answers   map[string]string `json:"answers"`
	Tags      []string          `json:"tags"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Validate checks if the User has valid field values.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id cannot be empty", ErrInvalidInput)
	}
	return nil
}

// CompositeKey joins a board and job id into the index-set element
// identifying a job. Pattern: {board}:{job_id}
func CompositeKey(board, jobID string) string {
	return board + ":" + jobID
}

// SplitCompositeKey splits a composite key back into board and job id.
// Returns an error if the key does not contain a separator.
func SplitCompositeKey(key string) (board, jobID string, err error) {
	idx := strings.Index(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", fmt.Errorf("%w: malformed composite key %q", ErrInvalidInput, key)
	}
	return key[:idx], key[idx+1:], nil
}
