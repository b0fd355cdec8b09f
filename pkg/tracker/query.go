package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// JobFilter restricts ListJobs output. All set filters are ANDed together;
// zero values mean "no filter".
type JobFilter struct {
	Board  string
	Status JobStatus
	Tag    string
}

// ListJobs returns hydrated jobs matching the filter, sorted by composite
// key for stable output.
//
// Filters compose from index sets: status and tag filters intersect their
// sets server-side; a board filter reads the board's job index (bare ids,
// re-prefixed into composite keys) or, combined with other filters, restricts
// the intersection by composite-key prefix. No filters scans all boards.
// Composite keys whose job hash has since vanished are silently dropped.
func (c *Client) ListJobs(ctx context.Context, f JobFilter) ([]*Job, error) {
	if f.Status != "" {
		if err := f.Status.Validate(); err != nil {
			return nil, err
		}
	}

	keys, err := c.candidateJobKeys(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.Board != "" && (f.Status != "" || f.Tag != "") {
		keys = filterByBoardPrefix(keys, f.Board)
	}
	return c.hydrateJobs(ctx, keys)
}

// candidateJobKeys resolves the filter to a set of composite keys before any
// board-prefix restriction is applied.
func (c *Client) candidateJobKeys(ctx context.Context, f JobFilter) ([]string, error) {
	switch {
	case f.Status != "" && f.Tag != "":
		keys, err := c.rdb.SInter(ctx, StatusKey(c.namespace, f.Status), TagKey(c.namespace, f.Tag)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to intersect status and tag indexes: %w", err)
		}
		return keys, nil

	case f.Status != "":
		keys, err := c.rdb.SMembers(ctx, StatusKey(c.namespace, f.Status)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read status index: %w", err)
		}
		return keys, nil

	case f.Tag != "":
		keys, err := c.rdb.SMembers(ctx, TagKey(c.namespace, f.Tag)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read tag index: %w", err)
		}
		return keys, nil

	case f.Board != "":
		return c.boardCompositeKeys(ctx, f.Board)

	default:
		boardIDs, err := c.rdb.SMembers(ctx, BoardsKey(c.namespace)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read boards index: %w", err)
		}
		var keys []string
		for _, boardID := range boardIDs {
			boardKeys, err := c.boardCompositeKeys(ctx, boardID)
			if err != nil {
				return nil, err
			}
			keys = append(keys, boardKeys...)
		}
		return keys, nil
	}
}

// boardCompositeKeys reads a board's job index (bare ids) and re-prefixes
// each with the board to form composite keys.
func (c *Client) boardCompositeKeys(ctx context.Context, board string) ([]string, error) {
	jobIDs, err := c.rdb.SMembers(ctx, BoardJobsKey(c.namespace, board)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read board job index: %w", err)
	}
	keys := make([]string, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		keys = append(keys, CompositeKey(board, jobID))
	}
	return keys, nil
}

// ListJobsForUser returns jobs whose tags overlap the user's interest tags:
// the union of the user's tag index sets, optionally intersected with a
// status set and restricted to a board. A user with no tags gets an empty
// result — no interest means nothing matches, which is policy, not an error.
// Returns ErrUserNotFound if the user doesn't exist.
func (c *Client) ListJobsForUser(ctx context.Context, userID string, f JobFilter) ([]*Job, error) {
	u, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Tags) == 0 {
		return []*Job{}, nil
	}

	tagKeys := make([]string, 0, len(u.Tags))
	for _, tag := range u.Tags {
		tagKeys = append(tagKeys, TagKey(c.namespace, tag))
	}
	keys, err := c.rdb.SUnion(ctx, tagKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to union tag indexes: %w", err)
	}

	if f.Status != "" {
		if err := f.Status.Validate(); err != nil {
			return nil, err
		}
		statusKeys, err := c.rdb.SMembers(ctx, StatusKey(c.namespace, f.Status)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read status index: %w", err)
		}
		inStatus := make(map[string]struct{}, len(statusKeys))
		for _, k := range statusKeys {
			inStatus[k] = struct{}{}
		}
		filtered := keys[:0]
		for _, k := range keys {
			if _, ok := inStatus[k]; ok {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	if f.Board != "" {
		keys = filterByBoardPrefix(keys, f.Board)
	}
	return c.hydrateJobs(ctx, keys)
}

// hydrateJobs resolves composite keys to job records, dropping any whose
// hash has vanished since the index was read.
func (c *Client) hydrateJobs(ctx context.Context, keys []string) ([]*Job, error) {
	sort.Strings(keys)

	jobs := make([]*Job, 0, len(keys))
	for _, key := range keys {
		board, jobID, err := SplitCompositeKey(key)
		if err != nil {
			continue // malformed index entry, skip
		}
		j, err := c.GetJob(ctx, board, jobID)
		if err == ErrJobNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// filterByBoardPrefix keeps only composite keys belonging to the board.
func filterByBoardPrefix(keys []string, board string) []string {
	prefix := board + ":"
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			filtered = append(filtered, k)
		}
	}
	return filtered
}

// ListRuns returns all runs for one job, or every run system-wide when board
// and jobID are empty, sorted by start time then run id. Run ids whose hash
// has vanished are silently dropped.
func (c *Client) ListRuns(ctx context.Context, board, jobID string) ([]*JobRun, error) {
	indexKey := RunsKey(c.namespace)
	if board != "" && jobID != "" {
		indexKey = JobRunsKey(c.namespace, board, jobID)
	}

	runIDs, err := c.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}

	runs := make([]*JobRun, 0, len(runIDs))
	for _, runID := range runIDs {
		r, err := c.GetRun(ctx, runID)
		if err == ErrRunNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}
