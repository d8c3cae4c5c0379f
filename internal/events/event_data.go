package events

import "time"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ScanQueuedData is emitted when a scan run has been accepted.
type ScanQueuedData struct {
	RunID    string `json:"run_id"`
	Molecule string `json:"molecule"`
	Points   int    `json:"points"`
	Ansatz   string `json:"ansatz"`
}

// EventType returns the event type for ScanQueuedData
func (d *ScanQueuedData) EventType() EventType {
	return ScanQueued
}

// ScanPointData carries one evaluated geometry of a running scan.
type ScanPointData struct {
	RunID            string  `json:"run_id"`
	Index            int     `json:"index"`
	Total            int     `json:"total"`
	Parameter        float64 `json:"parameter"`
	VQEEnergy        float64 `json:"vqe_energy"`
	ExactEnergy      float64 `json:"exact_energy"`
	ErrorMilliHa     float64 `json:"error_mha"`
	NuclearRepulsion float64 `json:"nuclear_repulsion"`
}

// EventType returns the event type for ScanPointData
func (d *ScanPointData) EventType() EventType {
	return ScanPoint
}

// ScanCompletedData is emitted once the result table has been stored.
type ScanCompletedData struct {
	RunID       string  `json:"run_id"`
	Points      int     `json:"points"`
	MaxErrorMHa float64 `json:"max_error_mha"`
	Duration    float64 `json:"duration"`
}

// EventType returns the event type for ScanCompletedData
func (d *ScanCompletedData) EventType() EventType {
	return ScanCompleted
}

// ScanFailedData is emitted when a scan aborts.
type ScanFailedData struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// EventType returns the event type for ScanFailedData
func (d *ScanFailedData) EventType() EventType {
	return ScanFailed
}

// CacheCleanedData reports a Hamiltonian cache cleanup.
type CacheCleanedData struct {
	Deleted int64 `json:"deleted"`
}

// EventType returns the event type for CacheCleanedData
func (d *CacheCleanedData) EventType() EventType {
	return CacheCleaned
}

// BackupCompletedData reports an uploaded artifact backup.
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// JobProgressInfo contains progress information for a job.
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobID       string           `json:"job_id"`
	JobType     string           `json:"job_type"`
	Status      string           `json:"status"` // "started", "progress", "completed", "failed"
	Description string           `json:"description"`
	Progress    *JobProgressInfo `json:"progress,omitempty"`
	Error       string           `json:"error,omitempty"`
	Duration    float64          `json:"duration,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// SystemStatusData is a snapshot of the work the server holds.
type SystemStatusData struct {
	QueueDepth    int64  `json:"queue_depth"`
	ActiveJob     string `json:"active_job,omitempty"`
	PendingRuns   int    `json:"pending_runs"`
	RunningRuns   int    `json:"running_runs"`
	CompletedRuns int    `json:"completed_runs"`
	FailedRuns    int    `json:"failed_runs"`
}

// EventType returns the event type for SystemStatusData
func (d *SystemStatusData) EventType() EventType {
	return SystemStatusChanged
}
