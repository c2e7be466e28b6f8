// Package lifecycle holds the order state machine as pure functions. It
// never inspects identity or ownership; that belongs to the guard, so the
// two can be tested apart.
package lifecycle

import (
	"fmt"

	"ordering-platform/internal/domain"
)

// Validate checks a requested status transition against the graph
//
//	pending  -> accepted | rejected | cancelled
//	accepted -> completed | cancelled
//
// completed, rejected and cancelled are terminal. Requesting the current
// status again is an accepted no-op so client retries stay cheap.
func Validate(current, requested domain.Status) (domain.Status, error) {
	if !requested.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, requested)
	}
	if !current.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, current)
	}
	if current == requested {
		return current, nil
	}

	switch current {
	case domain.StatusPending:
		switch requested {
		case domain.StatusAccepted, domain.StatusRejected, domain.StatusCancelled:
			return requested, nil
		}
	case domain.StatusAccepted:
		switch requested {
		case domain.StatusCompleted, domain.StatusCancelled:
			return requested, nil
		}
	case domain.StatusCompleted, domain.StatusRejected, domain.StatusCancelled:
		// terminal
	}
	return "", fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, requested)
}

// ValidatePayment checks the payment machine unpaid -> processing -> paid.
// The regression processing -> unpaid passes only with adminOverride set;
// no default command sets it.
func ValidatePayment(current, requested domain.PaymentStatus, adminOverride bool) (domain.PaymentStatus, error) {
	if !requested.Valid() {
		return "", fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidTransition, requested)
	}
	if !current.Valid() {
		return "", fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidTransition, current)
	}
	if current == requested {
		return current, nil
	}

	switch {
	case current == domain.PaymentUnpaid && requested == domain.PaymentProcessing:
		return requested, nil
	case current == domain.PaymentProcessing && requested == domain.PaymentPaid:
		return requested, nil
	case current == domain.PaymentProcessing && requested == domain.PaymentUnpaid && adminOverride:
		return requested, nil
	}
	return "", fmt.Errorf("%w: payment %s -> %s", domain.ErrInvalidTransition, current, requested)
}

// Sources returns the statuses a transition to target may start from,
// excluding the idempotent self-transition. Repositories use this to build
// the conditional predicate for the write.
func Sources(target domain.Status) []domain.Status {
	switch target {
	case domain.StatusAccepted, domain.StatusRejected:
		return []domain.Status{domain.StatusPending}
	case domain.StatusCompleted:
		return []domain.Status{domain.StatusAccepted}
	case domain.StatusCancelled:
		return []domain.Status{domain.StatusPending, domain.StatusAccepted}
	}
	return nil
}

// PaymentSources is Sources for the payment machine.
func PaymentSources(target domain.PaymentStatus) []domain.PaymentStatus {
	switch target {
	case domain.PaymentProcessing:
		return []domain.PaymentStatus{domain.PaymentUnpaid}
	case domain.PaymentPaid:
		return []domain.PaymentStatus{domain.PaymentProcessing}
	}
	return nil
}
