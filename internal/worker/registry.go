package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// StreamEvent is one named event destined for a job's progress stream,
// payload already serialized.
type StreamEvent struct {
	Name string
	Data []byte
}

// job is the server-side state of one in-flight extraction. Events are
// buffered so a stream that connects after processing began still sees the
// full history, including the terminal event.
type job struct {
	processingID string
	fieldID      string
	cancel       context.CancelFunc
	startedAt    time.Time

	mu      sync.Mutex
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
	done    bool
}

// publish records the event and fans it out to live subscribers. Events
// after the terminal one are dropped.
func (j *job) publish(event StreamEvent, terminal bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.done {
		return
	}
	j.history = append(j.history, event)
	if terminal {
		j.done = true
	}

	for sub := range j.subs {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, it will catch up from history on
			// reconnect.
		}
	}
}

// Registry tracks active processing jobs by their server-issued processing
// identifier, so the stream and abort endpoints can correlate back to them.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*job
	logger arbor.ILogger
}

// NewRegistry creates an empty job registry.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		jobs:   make(map[string]*job),
		logger: logger,
	}
}

func (r *Registry) register(processingID, fieldID string, cancel context.CancelFunc) *job {
	j := &job{
		processingID: processingID,
		fieldID:      fieldID,
		cancel:       cancel,
		startedAt:    time.Now(),
		subs:         make(map[chan StreamEvent]struct{}),
	}

	r.mu.Lock()
	r.jobs[processingID] = j
	r.mu.Unlock()

	return j
}

// Cancel aborts a job's context. Unknown ids return false; abort is
// best-effort by contract, so callers treat that as success.
func (r *Registry) Cancel(processingID string) bool {
	r.mu.RLock()
	j, ok := r.jobs[processingID]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	r.logger.Info().
		Str("processing_id", processingID).
		Str("field_id", j.fieldID).
		Msg("Cancelling processing job")

	j.cancel()
	return true
}

// Subscribe attaches a listener to a job's event stream. The returned
// history contains everything published so far; the channel delivers
// subsequent events. The caller must invoke the returned release function.
func (r *Registry) Subscribe(processingID string) ([]StreamEvent, <-chan StreamEvent, func(), error) {
	r.mu.RLock()
	j, ok := r.jobs[processingID]
	r.mu.RUnlock()

	if !ok {
		return nil, nil, nil, fmt.Errorf("unknown processing id: %s", processingID)
	}

	ch := make(chan StreamEvent, 64)

	j.mu.Lock()
	history := append([]StreamEvent(nil), j.history...)
	j.subs[ch] = struct{}{}
	j.mu.Unlock()

	release := func() {
		j.mu.Lock()
		delete(j.subs, ch)
		j.mu.Unlock()
	}

	return history, ch, release, nil
}

// FindByField returns the processing id of the most recent job for a field,
// or empty. The stream route is keyed by field id; the processing id query
// parameter is optional for the common single-job case.
func (r *Registry) FindByField(fieldID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *job
	for _, j := range r.jobs {
		if j.fieldID != fieldID {
			continue
		}
		if newest == nil || j.startedAt.After(newest.startedAt) {
			newest = j
		}
	}
	if newest == nil {
		return ""
	}
	return newest.processingID
}

// SweepStale cancels jobs older than ttl and drops finished jobs from the
// registry. Returns the number of entries removed.
func (r *Registry) SweepStale(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, j := range r.jobs {
		j.mu.Lock()
		done := j.done
		j.mu.Unlock()

		if done || j.startedAt.Before(cutoff) {
			if !done {
				r.logger.Warn().
					Str("processing_id", id).
					Str("field_id", j.fieldID).
					Msg("Cancelling stale processing job")
				j.cancel()
			}
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// ActiveCount returns the number of registered jobs.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
