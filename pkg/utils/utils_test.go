package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword("s3cret-pass", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestCheckPassword_EmptyHash(t *testing.T) {
	assert.False(t, CheckPassword("anything", ""))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestGenerateQuoteNumber(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	q, err := GenerateQuoteNumber(now)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^DEV-20260115-[A-Z2-9]{6}$`), q)
}
