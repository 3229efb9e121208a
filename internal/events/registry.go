// Package events carries per-run progress events from the run worker to the
// streaming consumer. Each run owns one single-producer/single-consumer
// channel held in an explicit registry; there is no package-level state.
package events

import (
	"sync"
	"time"

	"email-triage/internal/common/errors"
	"email-triage/internal/models"
)

// Type discriminates progress events. Exactly one terminal event (final or
// error) ends every run's sequence.
type Type string

const (
	TypeStatus Type = "status"
	TypeFinal  Type = "final"
	TypeError  Type = "error"
)

// finishedRunTTL bounds how long a completed run's channel is retained when
// no consumer ever subscribes and calls Discard.
const finishedRunTTL = 5 * time.Minute

// Event is one typed progress event.
type Event struct {
	Type     Type                       `json:"type"`
	Step     string                     `json:"step,omitempty"`
	Message  string                     `json:"message,omitempty"`
	Progress int                        `json:"progress,omitempty"`
	Data     *models.FinalAgentResponse `json:"data,omitempty"`
}

// Terminal reports whether the event ends the run's sequence.
func (e Event) Terminal() bool {
	return e.Type == TypeFinal || e.Type == TypeError
}

// Status builds a status event.
func Status(step, message string, progress int) Event {
	return Event{Type: TypeStatus, Step: step, Message: message, Progress: progress}
}

// Final builds the terminal success event.
func Final(data *models.FinalAgentResponse) Event {
	return Event{Type: TypeFinal, Data: data}
}

// Error builds the terminal failure event.
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// Heartbeat is the synthetic status event the consumer emits on idle timeout.
func Heartbeat() Event {
	return Status("heartbeat", "Still working...", 0)
}

// Registry maps run ids to their event channels. Lifecycle: Register at run
// start, Publish from the run worker, Subscribe from the streaming consumer,
// Discard after the terminal event is delivered. Runs that finish but are
// never subscribed expire after a TTL so their channels do not accumulate.
type Registry struct {
	mu     sync.Mutex
	runs   map[string]chan Event
	expiry map[string]time.Time
	buffer int
	ttl    time.Duration
}

func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	return &Registry{
		runs:   make(map[string]chan Event),
		expiry: make(map[string]time.Time),
		buffer: buffer,
		ttl:    finishedRunTTL,
	}
}

// sweepLocked drops runs whose terminal event was published longer than the
// TTL ago. Caller must hold r.mu.
func (r *Registry) sweepLocked() {
	now := time.Now()
	for runID, deadline := range r.expiry {
		if now.After(deadline) {
			delete(r.runs, runID)
			delete(r.expiry, runID)
		}
	}
}

// Register creates the event channel for a new run.
func (r *Registry) Register(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	if _, exists := r.runs[runID]; !exists {
		r.runs[runID] = make(chan Event, r.buffer)
	}
}

// Publish appends an event to the run's channel. Events for unknown or
// already-discarded runs are dropped. A terminal event starts the run's
// retention clock.
func (r *Registry) Publish(runID string, ev Event) {
	r.mu.Lock()
	r.sweepLocked()
	ch, ok := r.runs[runID]
	if ok && ev.Terminal() {
		r.expiry[runID] = time.Now().Add(r.ttl)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	ch <- ev
}

// Subscribe returns the run's event channel, or RUN_NOT_FOUND for unknown ids.
func (r *Registry) Subscribe(runID string) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	ch, ok := r.runs[runID]
	if !ok {
		return nil, errors.NewRunNotFoundError(runID)
	}
	return ch, nil
}

// Discard removes the run's channel. Subsequent publishes for the run are
// dropped silently.
func (r *Registry) Discard(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
	delete(r.expiry, runID)
}

// Known reports whether the run id has a live channel.
func (r *Registry) Known(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	_, ok := r.runs[runID]
	return ok
}
