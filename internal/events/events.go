// Package events provides the event bus the core publishes lifecycle
// transitions to. UI layers subscribe to refresh their widgets; the core
// never depends on how an event is displayed.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/modelkeep/internal/models"
)

// Type identifies the category of a lifecycle event.
type Type string

const (
	// TypeAvailabilityChanged fires when a model becomes loadable or stops
	// being loadable.
	TypeAvailabilityChanged Type = "availability_changed"
	// TypeUpdateStarted fires when an acquisition or update pass begins.
	TypeUpdateStarted Type = "update_started"
	// TypeUpdateFinished fires when an acquisition or update pass ends,
	// successfully or not.
	TypeUpdateFinished Type = "update_finished"
)

// Event is one lifecycle transition of a model identity.
type Event struct {
	// ID correlates related events, e.g. the started/finished pair of one
	// update pass.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type Type `json:"type"`

	// Identity is the affected model.
	Identity models.Identity `json:"identity"`

	// Available reports loadability (availability_changed events).
	Available bool `json:"available,omitempty"`

	// Err carries the failure reason for unsuccessful outcomes.
	Err string `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh correlation ID.
func NewEvent(t Type, id models.Identity) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      t,
		Identity:  id,
	}
}

// Bus is a channel-based publish/subscribe fan-out. Publish never blocks:
// a subscriber that falls behind its buffer loses events, and the loss is
// counted rather than stalling the core.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	dropped int64
	closed  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer size.
// The returned cancel function unregisters and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers the event to all subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}
}

// Dropped returns how many events were lost to full subscriber buffers.
func (b *Bus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Close unregisters all subscribers and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
