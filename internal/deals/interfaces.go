package deals

import (
	"context"

	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/storage"
)

// DealStore abstracts the storage layer for deals and votes.
type DealStore interface {
	ListDeals(ctx context.Context, q storage.DealQuery) ([]models.Deal, error)
	GetDeal(ctx context.Context, id int64) (*models.Deal, error)
	InsertDeal(ctx context.Context, deal models.Deal) (*models.Deal, error)
	UpdateStatus(ctx context.Context, id int64, s models.Status) error
	UpdateDeal(ctx context.Context, deal models.Deal) error
	SetReportStatus(ctx context.Context, id int64, rs models.ReportStatus) error
	ReportDeal(ctx context.Context, id int64) (*models.Deal, error)
	DeleteDealAtomic(ctx context.Context, id int64) error
	DeleteDealStepwise(ctx context.Context, id int64) error
	Vote(ctx context.Context, userID string, dealID int64) (int, error)
	CountVotes(ctx context.Context, dealID int64) (int, error)
}

// ProfileStore abstracts the storage layer for user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.UserProfile, error)
	ListProfiles(ctx context.Context) ([]models.UserProfile, error)
	SetBanned(ctx context.Context, userID string, banned bool) error
}

// Store is everything the repository needs from persistence.
type Store interface {
	DealStore
	ProfileStore
}

// Notifier alerts moderators about deals that need attention.
type Notifier interface {
	NotifyPending(ctx context.Context, deal models.Deal) error
	NotifyReported(ctx context.Context, deal models.Deal) error
}

// ImageFetcher finds a product image for a submitted link.
type ImageFetcher interface {
	FetchImage(ctx context.Context, link string) (string, error)
}
