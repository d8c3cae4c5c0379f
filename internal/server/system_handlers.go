package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/pescan/internal/database"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/aristath/pescan/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// RunCounter reports scan run totals per status.
type RunCounter interface {
	Counts(ctx context.Context) (map[pes.RunStatus]int, error)
}

// triggerableJobs are the job types that may be enqueued by hand.
var triggerableJobs = map[queue.JobType]bool{
	queue.JobTypeCacheCleanup:   true,
	queue.JobTypeWALCheckpoint:  true,
	queue.JobTypeIntegrityCheck: true,
	queue.JobTypeMaintenance:    true,
	queue.JobTypeArtifactBackup: true,
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	dataDir      string
	resultsDir   string
	startupTime  time.Time
	db           *database.DB
	queueManager *queue.Manager
	runs         RunCounter
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	resultsDir string,
	db *database.DB,
	queueManager *queue.Manager,
	runs RunCounter,
) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("component", "system_handlers").Logger(),
		dataDir:      dataDir,
		resultsDir:   resultsDir,
		startupTime:  time.Now(),
		db:           db,
		queueManager: queueManager,
		runs:         runs,
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status        string         `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64          `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	Queue         queue.Stats    `json:"queue"`
	Runs          map[string]int `json:"runs"`
	Database      *DBInfo        `json:"database,omitempty"`
	LastChecked   string         `json:"last_checked"`
}

// JobsStatusResponse lists the queue counters and the job types that can be triggered.
type JobsStatusResponse struct {
	Queue       queue.Stats `json:"queue"`
	Triggerable []JobInfo   `json:"triggerable"`
}

// JobInfo describes one job type
type JobInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Database    DBInfo `json:"database"`
	LastChecked string `json:"last_checked"`
}

// DBInfo describes the scan database
type DBInfo struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	FreelistCount int64   `json:"freelist_count"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB     float64 `json:"data_dir_mb"`
	ResultsDirMB  float64 `json:"results_dir_mb"`
	FreeGB        float64 `json:"free_gb"`
	UsedPercent   float64 `json:"used_percent"`
	FilesystemErr string  `json:"filesystem_error,omitempty"`
}

// GetSystemStatusSnapshot collects the queue, run and database state without
// the CPU sample.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) (SystemStatusResponse, error) {
	if h == nil {
		return SystemStatusResponse{}, fmt.Errorf("system handlers not initialized")
	}

	var firstErr error
	recordErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		Runs:          map[string]int{},
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if h.queueManager != nil {
		response.Queue = h.queueManager.Stats()
	}

	if h.runs != nil {
		counts, err := h.runs.Counts(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to count scan runs")
			recordErr(err)
		}
		for status, n := range counts {
			response.Runs[string(status)] = n
		}
	}

	if h.db != nil {
		info, err := h.databaseInfo()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to get database stats")
			recordErr(err)
		} else {
			response.Database = &info
		}
	}

	if firstErr != nil {
		response.Status = "degraded"
	}
	return response, firstErr
}

// HandleSystemStatus returns system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	// Errors are reflected in the status field.
	response, _ := h.GetSystemStatusSnapshot(r.Context())
	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus returns the queue counters and the triggerable job types
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	jobs := make([]JobInfo, 0, len(triggerableJobs))
	for jobType := range triggerableJobs {
		jobs = append(jobs, JobInfo{
			Type:        string(jobType),
			Description: queue.GetJobDescription(jobType),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Type < jobs[j].Type })

	response := JobsStatusResponse{Triggerable: jobs}
	if h.queueManager != nil {
		response.Queue = h.queueManager.Stats()
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	info, err := h.databaseInfo()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Database:    info,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := DiskUsageResponse{
		DataDirMB:    h.getDirSize(h.dataDir),
		ResultsDirMB: h.getDirSize(h.resultsDir),
	}

	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to stat filesystem")
		response.FilesystemErr = err.Error()
	} else {
		response.FreeGB = float64(usage.Free) / 1e9
		response.UsedPercent = usage.UsedPercent
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob enqueues a maintenance job immediately
// POST /api/system/jobs/{type}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	jobType := queue.JobType(chi.URLParam(r, "type"))
	if !triggerableJobs[jobType] {
		http.Error(w, fmt.Sprintf("Unknown job type %q", jobType), http.StatusNotFound)
		return
	}

	h.log.Info().Str("job_type", string(jobType)).Msg("Manual job triggered")

	job := &queue.Job{
		Type:    jobType,
		Payload: map[string]interface{}{"manual": true},
	}
	if err := h.queueManager.Enqueue(job); err != nil {
		h.log.Error().Err(err).Str("job_type", string(jobType)).Msg("Failed to trigger job")
		switch {
		case errors.Is(err, queue.ErrNoHandler):
			// Backups are only registered when enabled.
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"job_id":  job.ID,
		"message": queue.GetJobDescription(jobType) + " triggered successfully",
	})
}

func (h *SystemHandlers) databaseInfo() (DBInfo, error) {
	stats, err := h.db.GetStats()
	if err != nil {
		return DBInfo{}, err
	}
	return DBInfo{
		Name:          h.db.Name(),
		Path:          h.db.Path(),
		SizeMB:        float64(stats.SizeBytes) / 1024 / 1024,
		WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
		PageCount:     stats.PageCount,
		FreelistCount: stats.FreelistCount,
	}, nil
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}

	var totalSize int64
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages over a 100ms sample
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
