package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	quoteErr := &pgconn.PgError{Code: "23505", ConstraintName: "registrations_quote_number_key"}

	assert.True(t, IsUniqueViolation(quoteErr, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("update: %w", quoteErr), "registrations_quote_number_key"))
	assert.False(t, IsUniqueViolation(quoteErr, "users_email_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("connection reset")))
}
