package appointment

import (
	"context"
	"strings"

	"enaya/apperrors"
	guestRepo "enaya/database/repository/guest"
	"enaya/models"

	"go.uber.org/zap"
)

// Source returns the upcoming appointments of one guest.
type Source interface {
	Upcoming(ctx context.Context, guestID string) ([]models.Appointment, error)
}

// RepoSource reads appointments embedded in guest records.
type RepoSource struct {
	Repo guestRepo.GuestRepository
}

func (s RepoSource) Upcoming(ctx context.Context, guestID string) ([]models.Appointment, error) {
	g, err := s.Repo.GetByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	return g.Upcoming, nil
}

// Lookup retrieves a guest's upcoming appointments.
type Lookup struct {
	source Source
	logger *zap.Logger
}

func NewLookup(source Source, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{source: source, logger: logger}
}

// ListUpcoming returns the guest's upcoming appointments. An unknown guest
// yields an empty list, not an error.
func (l *Lookup) ListUpcoming(ctx context.Context, guestID string) ([]models.Appointment, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return nil, apperrors.NewValidationError("guestId required")
	}

	appts, err := l.source.Upcoming(ctx, guestID)
	if err != nil {
		l.logger.Error("appointment lookup failed", zap.String("guestId", guestID), zap.Error(err))
		return nil, apperrors.NewRetrievalError("appointments unavailable", err)
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	return appts, nil
}
