// Package moderation drives the admin console: confirmed actions on deals and
// users, each followed by a full reload of the moderation lists.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/maodevaca/internal/metrics"
	"github.com/pauljones0/maodevaca/internal/models"
)

// Repository is the part of the deal repository moderation drives.
type Repository interface {
	GetAny(ctx context.Context, caller *models.Identity, id int64) (*models.Deal, error)
	ListPending(ctx context.Context, caller *models.Identity) ([]models.Deal, error)
	ListReported(ctx context.Context, caller *models.Identity) ([]models.Deal, error)
	ListAll(ctx context.Context, caller *models.Identity) ([]models.Deal, error)
	ListUsers(ctx context.Context, caller *models.Identity) ([]models.UserProfile, error)
	UpdateStatus(ctx context.Context, caller *models.Identity, id int64, s models.Status) error
	UpdateFull(ctx context.Context, caller *models.Identity, deal models.Deal) error
	DismissReport(ctx context.Context, caller *models.Identity, id int64) error
	Delete(ctx context.Context, caller *models.Identity, id int64) error
	Profile(ctx context.Context, caller *models.Identity, userID string) (*models.UserProfile, error)
	SetBanned(ctx context.Context, caller *models.Identity, userID string, banned bool) error
}

// Dashboard is the four moderation lists, always loaded together.
type Dashboard struct {
	Pending  []models.Deal        `json:"pending"`
	Active   []models.Deal        `json:"active"`
	Reported []models.Deal        `json:"reported"`
	Users    []models.UserProfile `json:"users"`
	// RefreshError is set when the action succeeded but reloading the lists failed.
	RefreshError string `json:"refreshError,omitempty"`
}

type Workflow struct {
	repo Repository
}

func New(repo Repository) *Workflow {
	return &Workflow{repo: repo}
}

// Refresh loads all four lists concurrently. Active is the approved subset of
// the full deal list.
func (w *Workflow) Refresh(ctx context.Context, caller *models.Identity) (*Dashboard, error) {
	d := &Dashboard{}
	var all []models.Deal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Pending, err = w.repo.ListPending(gctx, caller)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = w.repo.ListAll(gctx, caller)
		return err
	})
	g.Go(func() error {
		var err error
		d.Reported, err = w.repo.ListReported(gctx, caller)
		return err
	})
	g.Go(func() error {
		var err error
		d.Users, err = w.repo.ListUsers(gctx, caller)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Active = make([]models.Deal, 0, len(all))
	for _, deal := range all {
		if deal.Status == models.StatusApproved {
			d.Active = append(d.Active, deal)
		}
	}
	return d, nil
}

// run applies the confirmation gate, performs the action and reloads.
func (w *Workflow) run(ctx context.Context, caller *models.Identity, action string, confirmed bool, fn func() error) (*Dashboard, error) {
	if !confirmed {
		return nil, models.ErrNotConfirmed
	}
	if err := fn(); err != nil {
		metrics.ModerationActions.WithLabelValues(action, "error").Inc()
		slog.Warn("Moderation action failed", "action", action, "error", err)
		return nil, err
	}
	metrics.ModerationActions.WithLabelValues(action, "ok").Inc()
	slog.Info("Moderation action applied", "action", action, "by", caller.UserID)

	d, err := w.Refresh(ctx, caller)
	if err != nil {
		slog.Error("Failed to refresh moderation lists", "action", action, "error", err)
		return &Dashboard{RefreshError: err.Error()}, nil
	}
	return d, nil
}

func (w *Workflow) transition(ctx context.Context, caller *models.Identity, id int64, target models.Status) error {
	deal, err := w.repo.GetAny(ctx, caller, id)
	if err != nil {
		return err
	}
	if deal.Status == target {
		return fmt.Errorf("%w: deal %d is already %s", models.ErrInvalidTransition, id, target)
	}
	return w.repo.UpdateStatus(ctx, caller, id, target)
}

func (w *Workflow) Approve(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "approve", confirmed, func() error {
		return w.transition(ctx, caller, id, models.StatusApproved)
	})
}

func (w *Workflow) Reject(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "reject", confirmed, func() error {
		return w.transition(ctx, caller, id, models.StatusRejected)
	})
}

// Edit overwrites a deal's editable fields as given.
func (w *Workflow) Edit(ctx context.Context, caller *models.Identity, deal models.Deal, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "edit", confirmed, func() error {
		return w.repo.UpdateFull(ctx, caller, deal)
	})
}

func (w *Workflow) Delete(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "delete", confirmed, func() error {
		return w.repo.Delete(ctx, caller, id)
	})
}

func (w *Workflow) DismissReport(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "dismiss", confirmed, func() error {
		return w.repo.DismissReport(ctx, caller, id)
	})
}

// ToggleBan flips a user's ban flag. Admins cannot be banned, though an admin
// who is already banned can be lifted. The user's existing deals are left as
// they are.
func (w *Workflow) ToggleBan(ctx context.Context, caller *models.Identity, userID string, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "toggle_ban", confirmed, func() error {
		target, err := w.repo.Profile(ctx, caller, userID)
		if err != nil {
			return err
		}
		if !target.IsBanned && target.IsAdmin() {
			return models.ErrCannotBanAdmin
		}
		return w.repo.SetBanned(ctx, caller, userID, !target.IsBanned)
	})
}

// BanOwner bans the author of a deal straight from the approval queue.
func (w *Workflow) BanOwner(ctx context.Context, caller *models.Identity, dealID int64, confirmed bool) (*Dashboard, error) {
	return w.run(ctx, caller, "ban_owner", confirmed, func() error {
		deal, err := w.repo.GetAny(ctx, caller, dealID)
		if err != nil {
			return err
		}
		if deal.UserID == "" {
			return fmt.Errorf("%w: deal %d has no owner", models.ErrInvalidInput, dealID)
		}
		target, err := w.repo.Profile(ctx, caller, deal.UserID)
		if err != nil {
			return err
		}
		if target.IsAdmin() {
			return models.ErrCannotBanAdmin
		}
		return w.repo.SetBanned(ctx, caller, deal.UserID, true)
	})
}
