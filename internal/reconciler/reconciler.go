// Package reconciler merges incoming change events into viewer-local state.
// Events arrive at-least-once and unordered, so the last received snapshot
// wins; nothing is discarded for being "older". A notification fires only
// when status or payment status actually changed value, never on duplicate
// snapshots and never on unrelated field changes.
package reconciler

import (
	"sync"

	"github.com/google/uuid"

	"ordering-platform/internal/domain"
)

type Notification struct {
	OrderID uuid.UUID
	Field   string // "status" or "payment_status"
	From    string
	To      string
}

type NotifyFunc func(Notification)

type Reconciler struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
	notify NotifyFunc
}

func New(notify NotifyFunc) *Reconciler {
	if notify == nil {
		notify = func(Notification) {}
	}
	return &Reconciler{
		orders: make(map[uuid.UUID]domain.Order),
		notify: notify,
	}
}

// ApplyLocal records an optimistic snapshot right after issuing a command.
// It is provisional: no notification fires, and the next authoritative
// event overwrites it unconditionally.
func (r *Reconciler) ApplyLocal(o domain.Order) {
	r.mu.Lock()
	r.orders[o.ID] = o
	r.mu.Unlock()
}

// Apply merges an authoritative event and raises at most one notification
// per field that changed value.
func (r *Reconciler) Apply(ev domain.ChangeEvent) {
	if ev.Entity != "order" {
		return
	}

	r.mu.Lock()
	prev, seen := r.orders[ev.ID]
	r.orders[ev.ID] = ev.Snapshot
	r.mu.Unlock()

	if !seen {
		// First snapshot seeds local state; there is no transition to report.
		return
	}
	if prev.Status != ev.Snapshot.Status {
		r.notify(Notification{
			OrderID: ev.ID,
			Field:   "status",
			From:    string(prev.Status),
			To:      string(ev.Snapshot.Status),
		})
	}
	if prev.PaymentStatus != ev.Snapshot.PaymentStatus {
		r.notify(Notification{
			OrderID: ev.ID,
			Field:   "payment_status",
			From:    string(prev.PaymentStatus),
			To:      string(ev.Snapshot.PaymentStatus),
		})
	}
}

func (r *Reconciler) Get(id uuid.UUID) (domain.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	return o, ok
}

// Run drains a subscription channel until it closes.
func (r *Reconciler) Run(events <-chan domain.ChangeEvent) {
	for ev := range events {
		r.Apply(ev)
	}
}
