package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmail(t *testing.T) {
	payload := EmailPayload{
		SourceLogID:    uuid.New(),
		EmailType:      "quote",
		RecipientEmail: "amina@example.com",
		Subject:        "Votre devis",
		BodyHTML:       "<p>hello</p>",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	got, err := DecodeEmail(&Job{ID: "j1", Type: JobTypeEmail, Payload: raw})
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeEmail_WrongType(t *testing.T) {
	_, err := DecodeEmail(&Job{ID: "j1", Type: "recording_upload", Payload: json.RawMessage(`{}`)})
	assert.Error(t, err)
}
