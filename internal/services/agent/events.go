package agent

import (
	"sync"

	"github.com/bobmcallan/argus/internal/models"
)

// eventRing is a bounded ring buffer of a tenant's most recent events.
type eventRing struct {
	mu     sync.Mutex
	events []*models.AgentEvent
	size   int
}

func newEventRing(size int) *eventRing {
	if size <= 0 {
		size = 100
	}
	return &eventRing{size: size}
}

// Append adds an event, evicting the oldest when full.
func (r *eventRing) Append(event *models.AgentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > r.size {
		r.events = r.events[len(r.events)-r.size:]
	}
}

// Snapshot returns the buffered events, oldest first.
func (r *eventRing) Snapshot() []*models.AgentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.AgentEvent, len(r.events))
	copy(out, r.events)
	return out
}
