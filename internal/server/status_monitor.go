package server

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/rs/zerolog"
)

// StatusMonitor periodically checks the system status and emits an event when it changes
type StatusMonitor struct {
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	log            zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Previous snapshot; nil until the first check
	last *events.SystemStatusData
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(
	eventManager *events.Manager,
	systemHandlers *SystemHandlers,
	log zerolog.Logger,
) *StatusMonitor {
	return &StatusMonitor{
		eventManager:   eventManager,
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	m.wg.Add(1)
	go m.monitor(interval)
}

// Stop ends monitoring and waits for the loop to exit
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// monitor runs the periodic monitoring loop
func (m *StatusMonitor) monitor(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial check
	m.checkSystemStatus()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkSystemStatus()
		}
	}
}

// checkSystemStatus emits SYSTEM_STATUS_CHANGED when the queue or run counts changed
func (m *StatusMonitor) checkSystemStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, err := m.systemHandlers.GetSystemStatusSnapshot(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Failed to collect system status")
		return
	}

	current := &events.SystemStatusData{
		QueueDepth:    snapshot.Queue.Depth,
		ActiveJob:     snapshot.Queue.Active,
		PendingRuns:   snapshot.Runs[string(pes.StatusPending)],
		RunningRuns:   snapshot.Runs[string(pes.StatusRunning)],
		CompletedRuns: snapshot.Runs[string(pes.StatusCompleted)],
		FailedRuns:    snapshot.Runs[string(pes.StatusFailed)],
	}

	if m.last != nil && *m.last == *current {
		return
	}
	m.last = current

	if m.eventManager != nil {
		m.eventManager.EmitTyped(events.SystemStatusChanged, "status_monitor", current)
	}
}
