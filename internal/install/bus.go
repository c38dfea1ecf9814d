package install

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Emitter accepts install progress events.
type Emitter interface {
	Emit(Event)
}

// subscriberBuffer is the per-subscriber channel depth. A slow subscriber
// drops events rather than stalling the pipeline.
const subscriberBuffer = 64

// Bus validates, enriches, and broadcasts install events to subscribers.
//
// The bus also owns the job to install-mode association: a job.init event
// carrying a mode registers it, later events of the same job that omit the
// mode inherit it, and the association is discarded when the job reaches
// job.done or job.failed. The association lives on the bus instance, not in
// process-wide state, so independent buses never interfere.
type Bus struct {
	log logr.Logger

	mu    sync.Mutex
	subs  map[int]chan Event
	next  int
	modes map[string]Mode
}

// NewBus creates a Bus that reports delivery problems through log.
func NewBus(log logr.Logger) *Bus {
	return &Bus{
		log:   log,
		subs:  make(map[int]chan Event),
		modes: make(map[string]Mode),
	}
}

// Subscribe registers a new event channel. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Emit implements Emitter. Invalid events are logged and dropped; delivery
// failure to any subscriber is logged and never aborts the caller.
func (b *Bus) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := e.Validate(); err != nil {
		b.log.Error(err, "rejecting install event", "job", e.JobID, "step", string(e.Step))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.applyModeLocked(&e)

	// Deliver while holding the lock: cancel closes subscriber channels
	// under the same lock, so a send can never race a close. Sends are
	// non-blocking, so the lock is held only for buffer copies.
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Info("subscriber buffer full, dropping event",
				"job", e.JobID, "step", string(e.Step), "state", string(e.State))
		}
	}
}

// applyModeLocked maintains the job to mode association and fills the mode
// on events that omit it. Caller holds b.mu.
func (b *Bus) applyModeLocked(e *Event) {
	if e.Step == StepJobInit && e.Mode != "" {
		b.modes[e.JobID] = e.Mode
	}
	if e.Mode == "" {
		e.Mode = b.modes[e.JobID]
	}
	if (e.Step == StepJobDone || e.Step == StepJobFailed) && e.State.Terminal() {
		delete(b.modes, e.JobID)
	}
}

// LogEmitter writes events to a logr.Logger. It backs the non-interactive
// output path and can be combined with a Bus through MultiEmitter.
type LogEmitter struct {
	Log logr.Logger
}

// Emit implements Emitter.
func (l LogEmitter) Emit(e Event) {
	kv := []any{
		"job", e.JobID,
		"target", e.Target,
		"step", string(e.Step),
		"state", string(e.State),
	}
	if e.Progress != nil {
		kv = append(kv, "percent", e.Progress.Percent)
	}
	if e.Error != nil {
		kv = append(kv, "code", e.Error.Code, "detail", e.Error.Detail)
	}
	l.Log.Info(e.Message, kv...)
}

// MultiEmitter fans events out to several emitters in order.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(e Event) {
	for _, em := range m {
		em.Emit(e)
	}
}
