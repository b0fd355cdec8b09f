package tracker

import "fmt"

// Redis key pattern helpers
//
// All Redis keys are namespaced to enable multiple deployments to safely
// coexist on a single Redis server.
//
// Entity pattern:  appcoord:{namespace}:{entity}:{id}
// Index pattern:   appcoord:{namespace}:{index_name}

// BoardKey returns the Redis key for a board hash.
// Pattern: appcoord:{namespace}:board:{board_id}
func BoardKey(namespace, boardID string) string {
	return fmt.Sprintf("appcoord:%s:board:%s", namespace, boardID)
}

// BoardsKey returns the Redis key for the set of all board ids.
// Pattern: appcoord:{namespace}:boards
func BoardsKey(namespace string) string {
	return fmt.Sprintf("appcoord:%s:boards", namespace)
}

// BoardJobsKey returns the Redis key for a board's job index set.
// Members are bare job ids, not composite keys.
// Pattern: appcoord:{namespace}:board:{board_id}:jobs
func BoardJobsKey(namespace, boardID string) string {
	return fmt.Sprintf("appcoord:%s:board:%s:jobs", namespace, boardID)
}

// JobKey returns the Redis key for a job hash.
// Pattern: appcoord:{namespace}:job:{board_id}:{job_id}
func JobKey(namespace, boardID, jobID string) string {
	return fmt.Sprintf("appcoord:%s:job:%s:%s", namespace, boardID, jobID)
}

// StatusKey returns the Redis key for a status index set.
// Members are composite keys ({board}:{job_id}).
// Pattern: appcoord:{namespace}:status:{status}
func StatusKey(namespace string, status JobStatus) string {
	return fmt.Sprintf("appcoord:%s:status:%s", namespace, status)
}

// TagKey returns the Redis key for a tag index set.
// Members are composite keys ({board}:{job_id}).
// Pattern: appcoord:{namespace}:tag:{tag}
func TagKey(namespace, tag string) string {
	return fmt.Sprintf("appcoord:%s:tag:%s", namespace, tag)
}

// RunKey returns the Redis key for a run hash.
// Pattern: appcoord:{namespace}:run:{run_id}
func RunKey(namespace, runID string) string {
	return fmt.Sprintf("appcoord:%s:run:%s", namespace, runID)
}

// RunsKey returns the Redis key for the global run index set.
// Pattern: appcoord:{namespace}:runs
func RunsKey(namespace string) string {
	return fmt.Sprintf("appcoord:%s:runs", namespace)
}

// JobRunsKey returns the Redis key for a job's run index set.
// Pattern: appcoord:{namespace}:job:{board_id}:{job_id}:runs
func JobRunsKey(namespace, boardID, jobID string) string {
	return fmt.Sprintf("appcoord:%s:job:%s:%s:runs", namespace, boardID, jobID)
}

// LockKey returns the Redis key for a job's apply lock. The lock value is the
// claiming run id; its existence, not its value, is what challengers check.
// Pattern: appcoord:{namespace}:lock:{board_id}:{job_id}
func LockKey(namespace, boardID, jobID string) string {
	return fmt.Sprintf("appcoord:%s:lock:%s:%s", namespace, boardID, jobID)
}

// UserKey returns the Redis key for a user hash.
// Pattern: appcoord:{namespace}:user:{user_id}
func UserKey(namespace, userID string) string {
	return fmt.Sprintf("appcoord:%s:user:%s", namespace, userID)
}
