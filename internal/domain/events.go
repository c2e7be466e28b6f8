package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeEvent is the wire contract published after every committed order
// write. Delivery is at-least-once and unordered; consumers must treat the
// snapshot, not the delta, as authoritative.
type ChangeEvent struct {
	Entity     string    `json:"entity"` // always "order"
	ID         uuid.UUID `json:"id"`
	StoreID    uuid.UUID `json:"store_id"`
	Event      string    `json:"event"` // always "update"
	Snapshot   Order     `json:"snapshot"`
	ServerTime time.Time `json:"server_time"`
}

func NewChangeEvent(o Order) ChangeEvent {
	return ChangeEvent{
		Entity:     "order",
		ID:         o.ID,
		StoreID:    o.StoreID,
		Event:      "update",
		Snapshot:   o,
		ServerTime: time.Now().UTC(),
	}
}
