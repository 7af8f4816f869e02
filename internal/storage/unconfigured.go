package storage

import (
	"context"

	"github.com/pauljones0/maodevaca/internal/models"
)

// Unconfigured stands in for the data store when no project is configured.
// Reads return empty results, writes fail with models.ErrUnconfigured.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }
func (Unconfigured) Close() error     { return nil }

func (Unconfigured) ListDeals(context.Context, DealQuery) ([]models.Deal, error) {
	return []models.Deal{}, nil
}

func (Unconfigured) GetDeal(context.Context, int64) (*models.Deal, error) {
	return nil, models.ErrDealNotFound
}

func (Unconfigured) InsertDeal(context.Context, models.Deal) (*models.Deal, error) {
	return nil, models.ErrUnconfigured
}

func (Unconfigured) UpdateStatus(context.Context, int64, models.Status) error {
	return models.ErrUnconfigured
}

func (Unconfigured) UpdateDeal(context.Context, models.Deal) error {
	return models.ErrUnconfigured
}

func (Unconfigured) SetReportStatus(context.Context, int64, models.ReportStatus) error {
	return models.ErrUnconfigured
}

func (Unconfigured) ReportDeal(context.Context, int64) (*models.Deal, error) {
	return nil, models.ErrUnconfigured
}

func (Unconfigured) DeleteDealAtomic(context.Context, int64) error {
	return models.ErrUnconfigured
}

func (Unconfigured) DeleteDealStepwise(context.Context, int64) error {
	return models.ErrUnconfigured
}

func (Unconfigured) Vote(context.Context, string, int64) (int, error) {
	return 0, models.ErrUnconfigured
}

func (Unconfigured) CountVotes(context.Context, int64) (int, error) {
	return 0, nil
}

func (Unconfigured) GetProfile(context.Context, string) (*models.UserProfile, error) {
	return nil, models.ErrUnconfigured
}

func (Unconfigured) GetProfiles(context.Context, []string) (map[string]models.UserProfile, error) {
	return map[string]models.UserProfile{}, nil
}

func (Unconfigured) ListProfiles(context.Context) ([]models.UserProfile, error) {
	return []models.UserProfile{}, nil
}

func (Unconfigured) CreateProfile(context.Context, string, string) error {
	return models.ErrUnconfigured
}

func (Unconfigured) SetBanned(context.Context, string, bool) error {
	return models.ErrUnconfigured
}
