package server

import (
	"sync"

	"github.com/trytheo/outreach/internal/outreach"
)

// subBuffer bounds each subscriber's event queue. A slow or absent consumer
// loses oldest events instead of blocking the pipeline.
const subBuffer = 64

// hub fans progress events out to SSE subscribers for one session.
type hub struct {
	mu   sync.Mutex
	subs map[chan outreach.ProgressEvent]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan outreach.ProgressEvent]struct{})}
}

func (h *hub) subscribe() (<-chan outreach.ProgressEvent, func()) {
	ch := make(chan outreach.ProgressEvent, subBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// publish delivers the event to every subscriber without ever blocking,
// dropping the oldest queued event when a subscriber's buffer is full.
func (h *hub) publish(ev outreach.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
