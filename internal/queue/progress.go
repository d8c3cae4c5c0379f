package queue

import (
	"sync"
	"time"

	"github.com/aristath/pescan/internal/events"
)

// ProgressReporter allows jobs to report progress during execution.
type ProgressReporter struct {
	eventManager *events.Manager
	jobID        string
	jobType      JobType
	mu           sync.Mutex
	lastReport   time.Time
	minInterval  time.Duration // Minimum interval between progress reports
}

// NewProgressReporter creates a new progress reporter with throttling.
// Default throttle is 100ms (10 updates/sec max).
func NewProgressReporter(em *events.Manager, jobID string, jobType JobType) *ProgressReporter {
	return &ProgressReporter{
		eventManager: em,
		jobID:        jobID,
		jobType:      jobType,
		minInterval:  100 * time.Millisecond,
	}
}

// Report emits a progress event (throttled to prevent flooding).
// 100% completion always bypasses the throttle.
func (pr *ProgressReporter) Report(current, total int, message string) {
	if pr == nil || pr.eventManager == nil {
		return
	}

	now := time.Now()
	pr.mu.Lock()
	if now.Sub(pr.lastReport) < pr.minInterval && current != total {
		pr.mu.Unlock()
		return
	}
	pr.lastReport = now
	pr.mu.Unlock()

	pr.emit(current, total, message, now)
}

// ReportUnthrottled emits a progress event that always bypasses the throttle.
func (pr *ProgressReporter) ReportUnthrottled(current, total int, message string) {
	if pr == nil || pr.eventManager == nil {
		return
	}

	now := time.Now()
	pr.mu.Lock()
	pr.lastReport = now
	pr.mu.Unlock()

	pr.emit(current, total, message, now)
}

// Emit forwards a typed event on behalf of the job, unthrottled.
func (pr *ProgressReporter) Emit(eventType events.EventType, data events.EventData) {
	if pr == nil || pr.eventManager == nil {
		return
	}
	pr.eventManager.EmitTyped(eventType, "queue", data)
}

func (pr *ProgressReporter) emit(current, total int, message string, now time.Time) {
	pr.eventManager.EmitTyped(events.JobProgress, "queue", &events.JobStatusData{
		JobID:       pr.jobID,
		JobType:     string(pr.jobType),
		Status:      "progress",
		Description: GetJobDescription(pr.jobType),
		Progress: &events.JobProgressInfo{
			Current: current,
			Total:   total,
			Message: message,
		},
		Timestamp: now,
	})
}
