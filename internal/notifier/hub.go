// Package notifier fans order status changes out to connected viewers.
// The hub is in-process; cross-instance consumers ride the kafka lifecycle
// events instead, and polling remains the universal fallback.
package notifier

import (
	"sync"
	"time"

	"go.uber.org/fx"
)

// StatusUpdate is pushed to every subscriber of an order code the moment
// reconciliation commits a transition.
type StatusUpdate struct {
	OrderCode     string     `json:"order_code"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// Hub tracks per-order-code subscriptions. All viewers of the same order
// receive the same updates; there is no per-viewer state.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan StatusUpdate]struct{}
}

// Module provides the hub to Fx.
var Module = fx.Provide(NewHub)

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan StatusUpdate]struct{})}
}

// Subscribe registers a viewer for one order code. The returned cancel
// function must be called when the viewer disconnects.
func (h *Hub) Subscribe(code string) (<-chan StatusUpdate, func()) {
	ch := make(chan StatusUpdate, 4)

	h.mu.Lock()
	if h.subs[code] == nil {
		h.subs[code] = make(map[chan StatusUpdate]struct{})
	}
	h.subs[code][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[code]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, code)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an update to every current subscriber of the order.
// Slow consumers are skipped rather than blocking the reconciler.
func (h *Hub) Publish(update StatusUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[update.OrderCode] {
		select {
		case ch <- update:
		default:
		}
	}
}
