// Package watch gives in-process surfaces an explicit subscribe contract
// at the repository boundary, replacing re-fetch-on-render polling.
// Delivery is last-write-wins per order id: subscribers always observe
// the newest change they have not yet consumed, never a stale one.
package watch

import (
	"sync"

	"thrift-orders/internal/models"
)

// OrderChange is one observed mutation of an order.
type OrderChange struct {
	OrderID   string
	VendorID  string
	UserID    string
	NewStatus models.Status
	Seq       uint64
}

// Filter scopes a subscription. Empty fields match everything.
type Filter struct {
	VendorID string
	UserID   string
	OrderID  string
}

func (f Filter) matches(c OrderChange) bool {
	if f.VendorID != "" && f.VendorID != c.VendorID {
		return false
	}
	if f.UserID != "" && f.UserID != c.UserID {
		return false
	}
	if f.OrderID != "" && f.OrderID != c.OrderID {
		return false
	}
	return true
}

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

type subscriber struct {
	filter   Filter
	onChange func(OrderChange)
	// lastSeq tracks the newest sequence delivered per order id, so a
	// change that raced behind a newer one for the same order is dropped.
	lastSeq map[string]uint64
	mu      sync.Mutex
}

// Hub fans out order changes to subscribers.
type Hub struct {
	mu     sync.RWMutex
	seq    uint64
	nextID int
	subs   map[int]*subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// Subscribe registers onChange for changes matching filter and returns
// the cancel function.
func (h *Hub) Subscribe(filter Filter, onChange func(OrderChange)) CancelFunc {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{
		filter:   filter,
		onChange: onChange,
		lastSeq:  make(map[string]uint64),
	}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish notifies matching subscribers of a change. Called by the
// service layer after each successful mutation.
func (h *Hub) Publish(change OrderChange) {
	h.mu.Lock()
	h.seq++
	change.Seq = h.seq
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if !s.filter.matches(change) {
			continue
		}
		// Deliver while holding the subscriber lock so a stale change can
		// never land after a newer one for the same order. Callbacks must
		// not block.
		s.mu.Lock()
		if change.Seq < s.lastSeq[change.OrderID] {
			s.mu.Unlock()
			continue
		}
		s.lastSeq[change.OrderID] = change.Seq
		s.onChange(change)
		s.mu.Unlock()
	}
}
