// Package tracker provides type-safe Go definitions and Redis schema patterns
// for the job-application coordination engine. Redis is the single shared
// state system: boards, jobs, application runs, and users are stored as
// hashes, queryable through denormalized index sets that are maintained
// alongside every mutation.
//
// The package also owns the apply-lock protocol: an atomic
// conditional-set-with-expiry on a per-job key guarantees that at most one
// application run is in flight for any job across independently crashing
// agent processes.
//
// All Redis keys are namespaced to enable multiple deployments to safely
// coexist on a single Redis server.
package tracker
