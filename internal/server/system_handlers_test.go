package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/aristath/pescan/internal/database"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/aristath/pescan/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunCounter struct {
	counts map[pes.RunStatus]int
	err    error
}

func (f *fakeRunCounter) Counts(context.Context) (map[pes.RunStatus]int, error) {
	return f.counts, f.err
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "pescan.db"),
		Name: "pescan",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func noopHandler(context.Context, *queue.Job) error { return nil }

func setupSystemHandlers(t *testing.T, counter RunCounter) (*SystemHandlers, *queue.Manager) {
	t.Helper()
	q := queue.NewManager(nil, 2, zerolog.Nop())
	q.Register(queue.JobTypeCacheCleanup, noopHandler)
	q.Register(queue.JobTypeWALCheckpoint, noopHandler)

	dataDir := t.TempDir()
	h := NewSystemHandlers(zerolog.Nop(), dataDir, filepath.Join(dataDir, "results"), openTestDB(t), q, counter)
	return h, q
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	counter := &fakeRunCounter{counts: map[pes.RunStatus]int{
		pes.StatusCompleted: 3,
		pes.StatusFailed:    1,
	}}
	h, q := setupSystemHandlers(t, counter)
	require.NoError(t, q.Enqueue(&queue.Job{Type: queue.JobTypeCacheCleanup}))

	w := httptest.NewRecorder()
	h.HandleSystemStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, int64(1), response.Queue.Depth)
	assert.Equal(t, 3, response.Runs["completed"])
	assert.Equal(t, 1, response.Runs["failed"])
	require.NotNil(t, response.Database)
	assert.Equal(t, "pescan", response.Database.Name)
	assert.Positive(t, response.Database.PageCount)
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
}

func TestSystemHandlers_HandleSystemStatus_Degraded(t *testing.T) {
	h, _ := setupSystemHandlers(t, &fakeRunCounter{err: errors.New("database is locked")})

	snapshot, err := h.GetSystemStatusSnapshot(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "degraded", snapshot.Status)
	assert.NotNil(t, snapshot.Database, "other sections are still filled in")

	w := httptest.NewRecorder()
	h.HandleSystemStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestSystemHandlers_NilSnapshot(t *testing.T) {
	var h *SystemHandlers
	_, err := h.GetSystemStatusSnapshot(context.Background())
	assert.Error(t, err)
}

func TestSystemHandlers_HandleJobsStatus(t *testing.T) {
	h, _ := setupSystemHandlers(t, nil)

	w := httptest.NewRecorder()
	h.HandleJobsStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response JobsStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	require.Len(t, response.Triggerable, len(triggerableJobs))
	for i := 1; i < len(response.Triggerable); i++ {
		assert.Less(t, response.Triggerable[i-1].Type, response.Triggerable[i].Type)
	}
	for _, job := range response.Triggerable {
		assert.NotEqual(t, job.Type, job.Description)
	}
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	h, _ := setupSystemHandlers(t, nil)

	w := httptest.NewRecorder()
	h.HandleDatabaseStats(w, httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response DatabaseStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "pescan", response.Database.Name)
	assert.Positive(t, response.Database.SizeMB+response.Database.WALSizeMB)
	assert.NotEmpty(t, response.LastChecked)
}

func TestSystemHandlers_HandleDiskUsage(t *testing.T) {
	h, _ := setupSystemHandlers(t, nil)

	w := httptest.NewRecorder()
	h.HandleDiskUsage(w, httptest.NewRequest(http.MethodGet, "/api/system/disk", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response DiskUsageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Zero(t, response.ResultsDirMB, "missing results directory counts as empty")
	assert.Positive(t, response.FreeGB)
}

func TestSystemHandlers_HandleTriggerJob(t *testing.T) {
	h, q := setupSystemHandlers(t, nil)

	r := chi.NewRouter()
	r.Post("/api/system/jobs/{type}", h.HandleTriggerJob)

	trigger := func(jobType string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/system/jobs/"+jobType, nil))
		return w
	}

	w := trigger(string(queue.JobTypeCacheCleanup))
	require.Equal(t, http.StatusAccepted, w.Code)
	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "success", response["status"])
	assert.NotEmpty(t, response["job_id"])
	assert.Equal(t, int64(1), q.Stats().Depth)

	// Scans are submitted through /api/scans only.
	assert.Equal(t, http.StatusNotFound, trigger(string(queue.JobTypeScan)).Code)
	assert.Equal(t, http.StatusNotFound, trigger("reboot").Code)

	// Backups are not registered on this queue.
	assert.Equal(t, http.StatusConflict, trigger(string(queue.JobTypeArtifactBackup)).Code)

	// Capacity is two.
	assert.Equal(t, http.StatusAccepted, trigger(string(queue.JobTypeWALCheckpoint)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, trigger(string(queue.JobTypeWALCheckpoint)).Code)
}
