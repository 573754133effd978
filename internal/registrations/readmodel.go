package registrations

import (
	"context"
	"fmt"

	"github.com/aura-training/backend/internal/models"
)

// assemble loads the session and formation a registration belongs to. Notification messages
// are built from its result and never fetch anything themselves.
func (s *Service) assemble(ctx context.Context, reg *models.Registration) (*models.RegistrationDetails, error) {
	session, err := s.sessions.GetByID(ctx, reg.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session of registration %s: %w", reg.ID, err)
	}
	formation, err := s.formations.GetByID(ctx, session.FormationID)
	if err != nil {
		return nil, fmt.Errorf("load formation of registration %s: %w", reg.ID, err)
	}
	return &models.RegistrationDetails{
		Registration: *reg,
		Session:      *session,
		Formation:    *formation,
	}, nil
}
