package guestRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"enaya/models"
)

// snapshot is the on-disk layout of the local stand-in for the salon platform.
type snapshot struct {
	Customers []models.Guest `json:"customers"`
}

// JSONGuestRepo reads the whole snapshot file on every call and never writes it.
type JSONGuestRepo struct {
	path string
}

// NewJSONGuestRepo creates a repository over the snapshot at path.
func NewJSONGuestRepo(path string) *JSONGuestRepo {
	return &JSONGuestRepo{path: path}
}

func (r *JSONGuestRepo) load(ctx context.Context) ([]models.Guest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest snapshot %s: %w", r.path, err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode guest snapshot %s: %w", r.path, err)
	}
	return snap.Customers, nil
}

// FindCandidates returns the full snapshot; matching is left to the caller.
func (r *JSONGuestRepo) FindCandidates(ctx context.Context, _ models.GuestQuery) ([]models.Guest, error) {
	return r.load(ctx)
}

func (r *JSONGuestRepo) GetByID(ctx context.Context, id string) (*models.Guest, error) {
	guests, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range guests {
		if guests[i].ID == id {
			return &guests[i], nil
		}
	}
	return nil, nil
}

// Name and Ping let the health monitor watch the snapshot file.
func (r *JSONGuestRepo) Name() string { return "snapshot" }

func (r *JSONGuestRepo) Ping(_ context.Context) error {
	_, err := os.Stat(r.path)
	return err
}
