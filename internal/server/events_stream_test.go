package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/pescan/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent returns the JSON payload of the next "data: " line.
func readEvent(t *testing.T, r *bufio.Reader) map[string]interface{} {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		return event
	}
}

func openStream(t *testing.T, bus *events.Bus, query string) *bufio.Reader {
	t.Helper()
	ts := httptest.NewServer(NewEventsStreamHandler(bus, zerolog.Nop()))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+query, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func TestEventsStream_ForwardsEvents(t *testing.T) {
	bus := events.NewBus()
	r := openStream(t, bus, "")

	assert.Equal(t, "connected", readEvent(t, r)["type"])
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.ScanPoint) == 1
	}, time.Second, 10*time.Millisecond)

	bus.Emit(events.ScanPoint, "pes", map[string]interface{}{"index": 0})

	event := readEvent(t, r)
	assert.Equal(t, string(events.ScanPoint), event["type"])
	assert.Equal(t, "pes", event["module"])
	data, ok := event["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), data["index"])
}

func TestEventsStream_TypesFilter(t *testing.T) {
	bus := events.NewBus()
	r := openStream(t, bus, "?types=JOB_FAILED")

	assert.Equal(t, "connected", readEvent(t, r)["type"])
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.JobFailed) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, bus.SubscriberCount(events.ScanPoint))

	bus.Emit(events.ScanPoint, "pes", nil)
	bus.Emit(events.JobFailed, "queue", map[string]interface{}{"job_type": "pes_scan"})

	assert.Equal(t, string(events.JobFailed), readEvent(t, r)["type"])
}

func TestEventsStream_UnsubscribesOnDisconnect(t *testing.T) {
	bus := events.NewBus()
	ts := httptest.NewServer(NewEventsStreamHandler(bus, zerolog.Nop()))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	readEvent(t, bufio.NewReader(resp.Body))

	cancel()
	resp.Body.Close()

	assert.Eventually(t, func() bool {
		return bus.SubscriberCount(events.ScanPoint) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStream_Heartbeat(t *testing.T) {
	old := heartbeatInterval
	heartbeatInterval = 20 * time.Millisecond
	t.Cleanup(func() { heartbeatInterval = old })

	r := openStream(t, events.NewBus(), "?types=JOB_FAILED")
	assert.Equal(t, "connected", readEvent(t, r)["type"])
	assert.Equal(t, "heartbeat", readEvent(t, r)["type"])
}

func TestEventsStream_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	NewEventsStreamHandler(events.NewBus(), zerolog.Nop()).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/events/stream", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
