package registrations

import (
	"fmt"
	"time"

	"github.com/aura-training/backend/internal/models"
)

// Allowed moves. cancelled is terminal; a completed payment cannot be reverted.
var (
	statusTransitions = map[models.RegistrationStatus][]models.RegistrationStatus{
		models.StatusPending:   {models.StatusPending, models.StatusConfirmed, models.StatusCancelled},
		models.StatusConfirmed: {models.StatusConfirmed, models.StatusCancelled},
		models.StatusCancelled: {models.StatusCancelled},
	}
	paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
		models.PaymentPending:   {models.PaymentPending, models.PaymentCompleted},
		models.PaymentCompleted: {models.PaymentCompleted},
	}
)

// CanTransition reports whether status may move from one value to another.
func CanTransition(from, to models.RegistrationStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether payment status may move from one value to another.
func CanTransitionPayment(from, to models.PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// nextState checks upd against the current registration and returns the update to persist.
// A completed payment requires status confirmed, so a paid registration cannot be cancelled.
// paidAt is filled with now when the update completes the payment without giving one.
func nextState(cur *models.Registration, upd models.RegistrationUpdate, now time.Time) (models.RegistrationUpdate, error) {
	if _, ok := statusTransitions[upd.Status]; !ok {
		return upd, fmt.Errorf("%w: unknown status %q", models.ErrValidation, upd.Status)
	}
	if _, ok := paymentTransitions[upd.PaymentStatus]; !ok {
		return upd, fmt.Errorf("%w: unknown payment status %q", models.ErrValidation, upd.PaymentStatus)
	}
	if !CanTransition(cur.Status, upd.Status) {
		return upd, fmt.Errorf("%w: status %s -> %s", models.ErrInvalidTransition, cur.Status, upd.Status)
	}
	if !CanTransitionPayment(cur.PaymentStatus, upd.PaymentStatus) {
		return upd, fmt.Errorf("%w: payment %s -> %s", models.ErrInvalidTransition, cur.PaymentStatus, upd.PaymentStatus)
	}
	if upd.PaymentStatus == models.PaymentCompleted {
		if upd.Status != models.StatusConfirmed {
			return upd, fmt.Errorf("%w: completed payment requires status confirmed", models.ErrInvalidTransition)
		}
		if upd.PaidAt == nil {
			if cur.PaidAt != nil {
				upd.PaidAt = cur.PaidAt
			} else {
				t := now
				upd.PaidAt = &t
			}
		}
	} else {
		upd.PaidAt = nil
	}
	return upd, nil
}
