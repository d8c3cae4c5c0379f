package queue

import (
	"context"
	"time"
)

// JobType represents the type of job
type JobType string

const (
	JobTypeScan             JobType = "pes_scan"
	JobTypeCacheCleanup     JobType = "hamiltonian_cache_cleanup"
	JobTypeWALCheckpoint    JobType = "wal_checkpoint"
	JobTypeArtifactBackup   JobType = "artifact_backup"
	JobTypeStaleRunRecovery JobType = "stale_run_recovery"
	JobTypeIntegrityCheck   JobType = "check_core_databases"
	JobTypeMaintenance      JobType = "daily_maintenance"
)

// Job represents a queued job
type Job struct {
	ID        string
	Type      JobType
	Payload   map[string]interface{}
	CreatedAt time.Time

	// Progress reporting (injected by the Manager before the handler runs)
	progressReporter *ProgressReporter
}

// ProgressReporter returns the reporter injected for this job, or nil.
func (j *Job) ProgressReporter() *ProgressReporter {
	return j.progressReporter
}

// PayloadString returns a string payload value, or "" when absent.
func (j *Job) PayloadString(key string) string {
	if v, ok := j.Payload[key].(string); ok {
		return v
	}
	return ""
}

// Handler executes one job.
type Handler func(ctx context.Context, job *Job) error

// GetJobDescription returns a human-readable description for a job type
func GetJobDescription(jobType JobType) string {
	descriptions := map[JobType]string{
		JobTypeScan:             "Scanning potential energy surface",
		JobTypeCacheCleanup:     "Cleaning up expired Hamiltonians",
		JobTypeWALCheckpoint:    "Checkpointing database WAL",
		JobTypeArtifactBackup:   "Uploading result artifacts",
		JobTypeStaleRunRecovery: "Recovering interrupted scans",
		JobTypeIntegrityCheck:   "Checking database integrity",
		JobTypeMaintenance:      "Running daily maintenance",
	}

	if desc, exists := descriptions[jobType]; exists {
		return desc
	}

	// Fallback to job type string
	return string(jobType)
}
