// Package events provides an in-process publish/subscribe bus for job and scan events.
package events

import (
	"sync"
	"time"
)

// EventType represents different event types
type EventType string

const (
	// Job lifecycle (queue)
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	// Scan lifecycle
	ScanQueued    EventType = "SCAN_QUEUED"
	ScanPoint     EventType = "SCAN_POINT"
	ScanCompleted EventType = "SCAN_COMPLETED"
	ScanFailed    EventType = "SCAN_FAILED"

	// Maintenance
	CacheCleaned    EventType = "CACHE_CLEANED"
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"

	// Server
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
)

// AllEventTypes lists every type a stream subscriber may receive.
var AllEventTypes = []EventType{
	JobStarted, JobProgress, JobCompleted, JobFailed,
	ScanQueued, ScanPoint, ScanCompleted, ScanFailed,
	CacheCleaned, BackupCompleted, ErrorOccurred,
	SystemStatusChanged,
}

// Event is a published event. Data holds the JSON form of the typed payload.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Handler receives events synchronously on the emitting goroutine.
type Handler func(event *Event)

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[uint64]Handler
	nextID   uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType]map[uint64]Handler)}
}

// Subscribe registers h for eventType and returns a function that removes it.
func (b *Bus) Subscribe(eventType EventType, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[uint64]Handler)
	}
	b.handlers[eventType][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[eventType], id)
		})
	}
}

// SubscriberCount returns the number of handlers registered for eventType.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Emit delivers an event to every subscriber of eventType.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
