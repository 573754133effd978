package registrations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.StatusPending, models.StatusConfirmed))
	assert.True(t, CanTransition(models.StatusPending, models.StatusCancelled))
	assert.True(t, CanTransition(models.StatusConfirmed, models.StatusCancelled))
	assert.False(t, CanTransition(models.StatusConfirmed, models.StatusPending))
	assert.False(t, CanTransition(models.StatusCancelled, models.StatusConfirmed))
	assert.False(t, CanTransition(models.StatusCancelled, models.StatusPending))

	assert.True(t, CanTransitionPayment(models.PaymentPending, models.PaymentCompleted))
	assert.False(t, CanTransitionPayment(models.PaymentCompleted, models.PaymentPending))
}

func TestNextState(t *testing.T) {
	now := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	earlier := now.Add(-72 * time.Hour)
	pending := &models.Registration{Status: models.StatusPending, PaymentStatus: models.PaymentPending}

	t.Run("completing payment sets paidAt", func(t *testing.T) {
		got, err := nextState(pending, models.RegistrationUpdate{Status: models.StatusConfirmed, PaymentStatus: models.PaymentCompleted}, now)
		require.NoError(t, err)
		require.NotNil(t, got.PaidAt)
		assert.Equal(t, now, *got.PaidAt)
	})

	t.Run("completed payment keeps original paidAt", func(t *testing.T) {
		paid := &models.Registration{Status: models.StatusConfirmed, PaymentStatus: models.PaymentCompleted, PaidAt: &earlier}
		got, err := nextState(paid, models.RegistrationUpdate{Status: models.StatusConfirmed, PaymentStatus: models.PaymentCompleted}, now)
		require.NoError(t, err)
		assert.Equal(t, earlier, *got.PaidAt)
	})

	t.Run("completed payment requires confirmed status", func(t *testing.T) {
		_, err := nextState(pending, models.RegistrationUpdate{Status: models.StatusPending, PaymentStatus: models.PaymentCompleted}, now)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		cancelled := &models.Registration{Status: models.StatusCancelled, PaymentStatus: models.PaymentPending}
		_, err := nextState(cancelled, models.RegistrationUpdate{Status: models.StatusConfirmed, PaymentStatus: models.PaymentCompleted}, now)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("paid registrations cannot be cancelled", func(t *testing.T) {
		paid := &models.Registration{Status: models.StatusConfirmed, PaymentStatus: models.PaymentCompleted, PaidAt: &earlier}
		_, err := nextState(paid, models.RegistrationUpdate{Status: models.StatusCancelled, PaymentStatus: models.PaymentCompleted}, now)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		_, err = nextState(paid, models.RegistrationUpdate{Status: models.StatusCancelled, PaymentStatus: models.PaymentPending}, now)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		unpaid := &models.Registration{Status: models.StatusConfirmed, PaymentStatus: models.PaymentPending}
		_, err = nextState(unpaid, models.RegistrationUpdate{Status: models.StatusCancelled, PaymentStatus: models.PaymentPending}, now)
		assert.NoError(t, err)
	})

	t.Run("unknown values are validation errors", func(t *testing.T) {
		_, err := nextState(pending, models.RegistrationUpdate{Status: "archived", PaymentStatus: models.PaymentPending}, now)
		assert.ErrorIs(t, err, models.ErrValidation)
		_, err = nextState(pending, models.RegistrationUpdate{Status: models.StatusPending, PaymentStatus: "refunded"}, now)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("pending payment clears paidAt", func(t *testing.T) {
		got, err := nextState(pending, models.RegistrationUpdate{Status: models.StatusConfirmed, PaymentStatus: models.PaymentPending, PaidAt: &now}, now)
		require.NoError(t, err)
		assert.Nil(t, got.PaidAt)
	})
}
