package directory

import (
	"context"

	"enaya/apperrors"
	guestRepo "enaya/database/repository/guest"
	"enaya/models"

	"go.uber.org/zap"
)

// DefaultLimit caps a result set.
const DefaultLimit = 20

// Directory resolves search input into guests.
type Directory struct {
	repo   guestRepo.GuestRepository
	policy Policy
	limit  int
	logger *zap.Logger
}

// NewDirectory builds a directory; limit <= 0 uses DefaultLimit.
func NewDirectory(repo guestRepo.GuestRepository, policy Policy, limit int, logger *zap.Logger) *Directory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if policy == nil {
		policy = StrictPhonePolicy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{repo: repo, policy: policy, limit: limit, logger: logger}
}

// Policy returns the active matching policy.
func (d *Directory) Policy() Policy {
	return d.policy
}

// Search returns at most limit guests matching raw, in source order. Queries
// the policy does not accept return an empty set without touching the store.
func (d *Directory) Search(ctx context.Context, raw string) ([]models.Guest, error) {
	q := models.ParseGuestQuery(raw)
	if !d.policy.Accepts(q) {
		return []models.Guest{}, nil
	}

	candidates, err := d.repo.FindCandidates(ctx, q)
	if err != nil {
		d.logger.Error("guest lookup failed", zap.Bool("byPhone", q.ByPhone), zap.Error(err))
		return []models.Guest{}, apperrors.NewRetrievalError("guest directory unavailable", err)
	}

	out := make([]models.Guest, 0, d.limit)
	for _, g := range candidates {
		if !d.policy.Match(q, g) {
			continue
		}
		out = append(out, g)
		if len(out) == d.limit {
			break
		}
	}
	d.logger.Debug("guest search",
		zap.String("policy", d.policy.Name()),
		zap.Bool("byPhone", q.ByPhone),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(out)),
	)
	return out, nil
}
