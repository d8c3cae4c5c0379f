package server

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMonitor_EmitsOnChange(t *testing.T) {
	counter := &fakeRunCounter{counts: map[pes.RunStatus]int{pes.StatusPending: 1}}
	h, _ := setupSystemHandlers(t, counter)

	bus := events.NewBus()
	var received []*events.Event
	bus.Subscribe(events.SystemStatusChanged, func(e *events.Event) {
		received = append(received, e)
	})

	monitor := NewStatusMonitor(events.NewManager(bus, zerolog.Nop()), h, zerolog.Nop())

	monitor.checkSystemStatus()
	require.Len(t, received, 1)
	var data events.SystemStatusData
	require.NoError(t, events.DecodeData(received[0], &data))
	assert.Equal(t, 1, data.PendingRuns)
	assert.Zero(t, data.CompletedRuns)

	monitor.checkSystemStatus()
	assert.Len(t, received, 1, "unchanged status is not re-emitted")

	counter.counts = map[pes.RunStatus]int{pes.StatusCompleted: 1}
	monitor.checkSystemStatus()
	require.Len(t, received, 2)
	require.NoError(t, events.DecodeData(received[1], &data))
	assert.Zero(t, data.PendingRuns)
	assert.Equal(t, 1, data.CompletedRuns)
}

func TestStatusMonitor_SkipsOnError(t *testing.T) {
	h, _ := setupSystemHandlers(t, &fakeRunCounter{err: assert.AnError})

	bus := events.NewBus()
	var count int
	bus.Subscribe(events.SystemStatusChanged, func(*events.Event) { count++ })

	NewStatusMonitor(events.NewManager(bus, zerolog.Nop()), h, zerolog.Nop()).checkSystemStatus()
	assert.Zero(t, count)
}

func TestStatusMonitor_StartStop(t *testing.T) {
	h, _ := setupSystemHandlers(t, nil)

	bus := events.NewBus()
	var count atomic.Int32
	bus.Subscribe(events.SystemStatusChanged, func(*events.Event) { count.Add(1) })

	monitor := NewStatusMonitor(events.NewManager(bus, zerolog.Nop()), h, zerolog.Nop())
	monitor.Start(time.Hour)

	assert.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 10*time.Millisecond)

	monitor.Stop()
	monitor.Stop()
}
