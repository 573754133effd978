package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/models"
)

func TestJWT_AccessToken(t *testing.T) {
	svc := NewJWTService("secret", 1, time.Minute)
	id := uuid.New()
	token, err := svc.Generate(id, "admin@aura.example", models.RoleAdmin)
	require.NoError(t, err)

	identity, err := svc.ParseIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, id, identity.UserID)
	assert.True(t, identity.IsAdmin())

	_, err = svc.ValidateChallenge(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_ChallengeIsNotAnAccessToken(t *testing.T) {
	svc := NewJWTService("secret", 1, time.Minute)
	id := uuid.New()
	challenge, err := svc.GenerateChallenge(id, "user@example.ma")
	require.NoError(t, err)

	_, err = svc.ParseIdentity(challenge)
	assert.ErrorIs(t, err, ErrInvalidToken)
	got, err := svc.ValidateChallenge(challenge)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWT_RejectsOtherSecretAndExpired(t *testing.T) {
	token, err := NewJWTService("one", 1, time.Minute).Generate(uuid.New(), "a@b.c", models.RoleUser)
	require.NoError(t, err)
	_, err = NewJWTService("two", 1, time.Minute).ParseIdentity(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTService("one", 0, time.Minute).Generate(uuid.New(), "a@b.c", models.RoleUser)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = NewJWTService("one", 0, time.Minute).ParseIdentity(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
