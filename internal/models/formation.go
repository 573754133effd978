package models

import (
	"time"

	"github.com/google/uuid"
)

// SyllabusItem is one ordered chapter of a formation.
type SyllabusItem struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// Formation is a training-course catalogue entry.
type Formation struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Duration    string         `json:"duration"`
	Category    string         `json:"category"`
	Active      bool           `json:"active"`
	Syllabus    []SyllabusItem `json:"syllabus"`
	ImageURL    *string        `json:"imageUrl,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
