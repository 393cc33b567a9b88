package guestRepo

import (
	"context"

	"enaya/models"
)

// GuestRepository is the read-only view of the guest system of record.
type GuestRepository interface {
	// FindCandidates returns guests that may match q, in source order.
	// Implementations may return a superset; callers apply the final match.
	FindCandidates(ctx context.Context, q models.GuestQuery) ([]models.Guest, error)
	// GetByID retrieves a guest by id. It returns nil, nil for an unknown id.
	GetByID(ctx context.Context, id string) (*models.Guest, error)
}
