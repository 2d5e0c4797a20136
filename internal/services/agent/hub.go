package agent

import (
	"sync"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/models"
)

// observerBuffer is the per-observer channel capacity. Events beyond it
// are dropped for that observer, never redelivered.
const observerBuffer = 64

// hub fans one tenant's event stream out to registered observers.
//
// Subscribe queues the snapshot message and registers the observer under
// the same lock Broadcast takes, so no event emitted after registration
// can precede the snapshot on the observer's channel.
type hub struct {
	tenant    string
	logger    *common.Logger
	mu        sync.Mutex
	observers map[chan *models.AgentEvent]struct{}
}

func newHub(tenant string, logger *common.Logger) *hub {
	return &hub{
		tenant:    tenant,
		logger:    logger,
		observers: make(map[chan *models.AgentEvent]struct{}),
	}
}

// Subscribe registers an observer and returns its channel plus a cancel
// function. The snapshot is already queued on the returned channel.
func (h *hub) Subscribe(snapshot models.SnapshotData) (<-chan *models.AgentEvent, func()) {
	ch := make(chan *models.AgentEvent, observerBuffer)

	h.mu.Lock()
	ch <- &models.AgentEvent{
		Type:      models.EventTypeSnapshot,
		Tenant:    h.tenant,
		Data:      snapshot,
		Timestamp: time.Now(),
	}
	h.observers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.observers[ch]; ok {
			delete(h.observers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Broadcast delivers an event to every observer. A full observer buffer
// drops the event for that observer only.
func (h *hub) Broadcast(event *models.AgentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.observers {
		select {
		case ch <- event:
		default:
			h.logger.Warn().
				Str("tenant", h.tenant).
				Str("event_type", event.Type).
				Msg("Observer buffer full, dropping event")
		}
	}
}

// CloseAll deregisters and closes every observer channel.
func (h *hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.observers {
		delete(h.observers, ch)
		close(ch)
	}
}

// ObserverCount returns the number of registered observers.
func (h *hub) ObserverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}
