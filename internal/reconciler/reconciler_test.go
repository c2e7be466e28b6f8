package reconciler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordering-platform/internal/domain"
)

func order(id uuid.UUID, status domain.Status, pay domain.PaymentStatus) domain.Order {
	return domain.Order{
		ID:            id,
		StoreID:       uuid.New(),
		CustomerName:  "Jane",
		Status:        status,
		PaymentStatus: pay,
	}
}

func collect() (*[]Notification, NotifyFunc) {
	var got []Notification
	return &got, func(n Notification) { got = append(got, n) }
}

func TestFirstSnapshotSeedsWithoutNotification(t *testing.T) {
	got, notify := collect()
	r := New(notify)
	id := uuid.New()

	r.Apply(domain.NewChangeEvent(order(id, domain.StatusPending, domain.PaymentUnpaid)))

	assert.Empty(t, *got)
	o, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestNotifiesOncePerChangedField(t *testing.T) {
	got, notify := collect()
	r := New(notify)
	id := uuid.New()

	r.Apply(domain.NewChangeEvent(order(id, domain.StatusPending, domain.PaymentUnpaid)))
	r.Apply(domain.NewChangeEvent(order(id, domain.StatusAccepted, domain.PaymentUnpaid)))

	require.Len(t, *got, 1)
	assert.Equal(t, "status", (*got)[0].Field)
	assert.Equal(t, "pending", (*got)[0].From)
	assert.Equal(t, "accepted", (*got)[0].To)
}

func TestDuplicateEventsAreSilent(t *testing.T) {
	got, notify := collect()
	r := New(notify)
	id := uuid.New()

	r.Apply(domain.NewChangeEvent(order(id, domain.StatusPending, domain.PaymentUnpaid)))

	// Three identical deliveries: at most one notification total.
	accepted := order(id, domain.StatusAccepted, domain.PaymentUnpaid)
	r.Apply(domain.NewChangeEvent(accepted))
	r.Apply(domain.NewChangeEvent(accepted))
	r.Apply(domain.NewChangeEvent(accepted))

	assert.Len(t, *got, 1)
}

func TestUnrelatedFieldChangesAreSilent(t *testing.T) {
	got, notify := collect()
	r := New(notify)
	id := uuid.New()

	first := order(id, domain.StatusPending, domain.PaymentUnpaid)
	r.Apply(domain.NewChangeEvent(first))

	second := first
	second.CustomerName = "Janet"
	second.TotalAmount = 42
	r.Apply(domain.NewChangeEvent(second))

	assert.Empty(t, *got)
	o, _ := r.Get(id)
	assert.Equal(t, "Janet", o.CustomerName)
}

func TestPaidAndCompletedInOneSnapshot(t *testing.T) {
	got, notify := collect()
	r := New(notify)
	id := uuid.New()

	r.Apply(domain.NewChangeEvent(order(id, domain.StatusAccepted, domain.PaymentProcessing)))
	r.Apply(domain.NewChangeEvent(order(id, domain.StatusCompleted, domain.PaymentPaid)))

	require.Len(t, *got, 2)
	fields := []string{(*got)[0].Field, (*got)[1].Field}
	assert.ElementsMatch(t, []string{"status", "payment_status"}, fields)
}

func TestOptimisticStateIsOverwritten(t *testing.T) {
	got, notify := collect()
	r := New(notify)
	id := uuid.New()

	r.Apply(domain.NewChangeEvent(order(id, domain.StatusPending, domain.PaymentUnpaid)))

	// Viewer optimistically marks the order accepted after clicking accept;
	// no notification for your own provisional change.
	r.ApplyLocal(order(id, domain.StatusAccepted, domain.PaymentUnpaid))
	assert.Empty(t, *got)

	// The authoritative event disagrees (the command actually failed) and
	// wins unconditionally.
	r.Apply(domain.NewChangeEvent(order(id, domain.StatusRejected, domain.PaymentUnpaid)))

	o, _ := r.Get(id)
	assert.Equal(t, domain.StatusRejected, o.Status)
	require.Len(t, *got, 1)
	assert.Equal(t, "accepted", (*got)[0].From)
	assert.Equal(t, "rejected", (*got)[0].To)
}

func TestNonOrderEntitiesAreIgnored(t *testing.T) {
	got, notify := collect()
	r := New(notify)

	ev := domain.NewChangeEvent(order(uuid.New(), domain.StatusPending, domain.PaymentUnpaid))
	ev.Entity = "product"
	r.Apply(ev)

	assert.Empty(t, *got)
	_, ok := r.Get(ev.ID)
	assert.False(t, ok)
}
