package tracker

import (
	"encoding/json"
	"fmt"
	"time"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Set, list, and map
// fields are JSON-encoded into single hash fields; timestamps are RFC3339.
// Each entity has a fixed field set so the encode/decode contract is explicit
// at the store boundary rather than scattered across call sites.

// BoardToHash converts a Board struct to a Redis hash format.
func BoardToHash(b *Board) map[string]interface{} {
	return map[string]interface{}{
		"id":         b.ID,
		"company":    b.Company,
		"ats":        b.ATS,
		"created_at": b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// HashToBoard converts a Redis hash to a Board struct.
func HashToBoard(hash map[string]string) (*Board, error) {
	createdAt, err := parseTime(hash["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at field: %w", err)
	}

	return &Board{
		ID:        hash["id"],
		Company:   hash["company"],
		ATS:       hash["ats"],
		CreatedAt: createdAt,
	}, nil
}

// JobToHash converts a Job struct to a Redis hash format.
// The tags set is JSON-encoded into a single field.
func JobToHash(j *Job) (map[string]interface{}, error) {
	tagsJSON, err := json.Marshal(j.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	return map[string]interface{}{
		"job_id":        j.JobID,
		"board":         j.Board,
		"title":         j.Title,
		"url":           j.URL,
		"location":      j.Location,
		"department":    j.Department,
		"tags":          string(tagsJSON),
		"status":        string(j.Status),
		"discovered_at": j.DiscoveredAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// HashToJob converts a Redis hash to a Job struct.
// JSON fields are decoded back to Go types.
func HashToJob(hash map[string]string) (*Job, error) {
	var tags []string
	if tagsJSON := hash["tags"]; tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	// Ensure we have an empty slice instead of nil for consistency
	if tags == nil {
		tags = []string{}
	}

	discoveredAt, err := parseTime(hash["discovered_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid discovered_at field: %w", err)
	}
	updatedAt, err := parseTime(hash["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at field: %w", err)
	}

	return &Job{
		JobID:        hash["job_id"],
		Board:        hash["board"],
		Title:        hash["title"],
		URL:          hash["url"],
		Location:     hash["location"],
		Department:   hash["department"],
		Tags:         tags,
		Status:       JobStatus(hash["status"]),
		DiscoveredAt: discoveredAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// RunToHash converts a JobRun struct to a Redis hash format.
// The artifacts record is JSON-encoded into a single field.
func RunToHash(r *JobRun) (map[string]interface{}, error) {
	artifactsJSON := ""
	if r.Artifacts != nil {
		data, err := json.Marshal(r.Artifacts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal artifacts: %w", err)
		}
		artifactsJSON = string(data)
	}

	completedAt := ""
	if r.CompletedAt != nil {
		completedAt = r.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	return map[string]interface{}{
		"run_id":       r.RunID,
		"job_id":       r.JobID,
		"board":        r.Board,
		"variant_id":   r.VariantID,
		"status":       string(r.Status),
		"started_at":   r.StartedAt.UTC().Format(time.RFC3339Nano),
		"completed_at": completedAt,
		"error":        r.Error,
		"artifacts":    artifactsJSON,
	}, nil
}

// HashToRun converts a Redis hash to a JobRun struct.
func HashToRun(hash map[string]string) (*JobRun, error) {
	var artifacts Artifacts
	if artifactsJSON := hash["artifacts"]; artifactsJSON != "" {
		if err := json.Unmarshal([]byte(artifactsJSON), &artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}

	startedAt, err := parseTime(hash["started_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid started_at field: %w", err)
	}

	var completedAt *time.Time
	if hash["completed_at"] != "" {
		t, err := parseTime(hash["completed_at"])
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at field: %w", err)
		}
		completedAt = &t
	}

	return &JobRun{
		RunID:       hash["run_id"],
		JobID:       hash["job_id"],
		Board:       hash["board"],
		VariantID:   hash["variant_id"],
		Status:      RunStatus(hash["status"]),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Error:       hash["error"],
		Artifacts:   artifacts,
	}, nil
}

// UserToHash converts a User struct to a Redis hash format.
// Resume list, answers map, and tags set are each JSON-encoded.
func UserToHash(u *User) (map[string]interface{}, error) {
	resumesJSON, err := json.Marshal(u.Resumes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resumes: %w", err)
	}
	answersJSON, err := json.Marshal(u.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}
	tagsJSON, err := json.Marshal(u.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	return map[string]interface{}{
		"id":         u.ID,
		"resumes":    string(resumesJSON),
		"answers":    string(answersJSON),
		"tags":       string(tagsJSON),
		"updated_at": u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// HashToUser converts a Redis hash to a User struct.
// JSON fields are decoded back to their semantic container types, so callers
// always see real slices and maps even though the store keeps flat strings.
func HashToUser(hash map[string]string) (*User, error) {
	var resumes []string
	if s := hash["resumes"]; s != "" {
		if err := json.Unmarshal([]byte(s), &resumes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resumes: %w", err)
		}
	}
	var answers map[string]string
	if s := hash["answers"]; s != "" {
		if err := json.Unmarshal([]byte(s), &answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	var tags []string
	if s := hash["tags"]; s != "" {
		if err := json.Unmarshal([]byte(s), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	if resumes == nil {
		resumes = []string{}
	}
	if answers == nil {
		answers = map[string]string{}
	}
	if tags == nil {
		tags = []string{}
	}

	updatedAt, err := parseTime(hash["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at field: %w", err)
	}

	return &User{
		ID:        hash["id"],
		Resumes:   resumes,
		Answers:   answers,
		Tags:      tags,
		UpdatedAt: updatedAt,
	}, nil
}

// parseTime decodes an RFC3339 timestamp field. Empty fields decode to the
// zero time rather than erroring, tolerating records written before a field
// existed.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
