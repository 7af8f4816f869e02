// Package deals is the deal repository: the only path from callers to the
// store for deals, votes and moderation flags. Every operation that writes on
// behalf of a user re-reads that user's profile from the store first.
package deals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pauljones0/maodevaca/internal/metrics"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/storage"
	"github.com/pauljones0/maodevaca/internal/util"
	"github.com/pauljones0/maodevaca/internal/validator"
)

// notifyTimeout bounds a moderator notification, retries included.
const notifyTimeout = 45 * time.Second

type Repository struct {
	store        Store
	notifier     Notifier
	images       ImageFetcher
	validator    *validator.Validator
	affiliateTag string
	inflight     sync.WaitGroup
}

// New builds a repository. notifier and images may be nil.
func New(store Store, n Notifier, images ImageFetcher, affiliateTag string) *Repository {
	return &Repository{
		store:        store,
		notifier:     n,
		images:       images,
		validator:    validator.New(),
		affiliateTag: affiliateTag,
	}
}

// requireActive loads the caller's live profile and rejects banned accounts.
func (r *Repository) requireActive(ctx context.Context, caller *models.Identity) (*models.UserProfile, error) {
	if caller == nil || caller.UserID == "" {
		return nil, models.ErrNotAuthenticated
	}
	profile, err := r.store.GetProfile(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil, fmt.Errorf("%w: no profile for %s", models.ErrForbidden, caller.UserID)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.IsBanned {
		return nil, models.ErrUserBanned
	}
	return profile, nil
}

// requireAdmin loads the caller's live profile and rejects non-admins.
func (r *Repository) requireAdmin(ctx context.Context, caller *models.Identity) (*models.UserProfile, error) {
	if caller == nil || caller.UserID == "" {
		return nil, models.ErrNotAuthenticated
	}
	profile, err := r.store.GetProfile(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil, models.ErrForbidden
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return profile, nil
}

func (r *Repository) list(ctx context.Context, q storage.DealQuery, what string) ([]models.Deal, error) {
	deals, err := r.store.ListDeals(ctx, q)
	if err != nil {
		slog.Error("Failed to list deals", "list", what, "error", err)
		return []models.Deal{}, fmt.Errorf("list %s deals: %w", what, err)
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	return deals, nil
}

// ListApproved returns the public deal list, newest first.
func (r *Repository) ListApproved(ctx context.Context) ([]models.Deal, error) {
	return r.list(ctx, storage.DealQuery{Status: models.StatusApproved}, "approved")
}

// Get returns one publicly visible deal. Deals that are not approved are
// reported as not found.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Deal, error) {
	deal, err := r.store.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.StatusApproved {
		return nil, models.ErrDealNotFound
	}
	return deal, nil
}

// GetAny returns a deal in any status for moderation.
func (r *Repository) GetAny(ctx context.Context, caller *models.Identity, id int64) (*models.Deal, error) {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return r.store.GetDeal(ctx, id)
}

// ListPending returns the approval queue with each owner's email filled in.
func (r *Repository) ListPending(ctx context.Context, caller *models.Identity) ([]models.Deal, error) {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return []models.Deal{}, err
	}
	deals, err := r.list(ctx, storage.DealQuery{Status: models.StatusPending}, "pending")
	if err != nil {
		return deals, err
	}
	r.joinOwnerEmails(ctx, deals)
	return deals, nil
}

// joinOwnerEmails fills UserEmail from profiles. A failed lookup leaves the
// emails blank rather than hiding the queue.
func (r *Repository) joinOwnerEmails(ctx context.Context, deals []models.Deal) {
	seen := make(map[string]bool)
	var ids []string
	for _, d := range deals {
		if d.UserID != "" && !seen[d.UserID] {
			seen[d.UserID] = true
			ids = append(ids, d.UserID)
		}
	}
	if len(ids) == 0 {
		return
	}
	profiles, err := r.store.GetProfiles(ctx, ids)
	if err != nil {
		slog.Warn("Failed to join owner emails", "owners", len(ids), "error", err)
		return
	}
	for i := range deals {
		if p, ok := profiles[deals[i].UserID]; ok {
			deals[i].UserEmail = p.Email
		}
	}
}

// ListReported returns deals flagged as expired, newest first.
func (r *Repository) ListReported(ctx context.Context, caller *models.Identity) ([]models.Deal, error) {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return []models.Deal{}, err
	}
	return r.list(ctx, storage.DealQuery{ReportStatus: models.ReportPendingReview}, "reported")
}

// ListAll returns every deal regardless of status, newest first.
func (r *Repository) ListAll(ctx context.Context, caller *models.Identity) ([]models.Deal, error) {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return []models.Deal{}, err
	}
	return r.list(ctx, storage.DealQuery{}, "all")
}

// Create submits a deal for moderation on behalf of caller.
func (r *Repository) Create(ctx context.Context, caller *models.Identity, input models.NewDeal) (*models.Deal, error) {
	if _, err := r.requireActive(ctx, caller); err != nil {
		metrics.DealsSubmitted.WithLabelValues(submitResult(err)).Inc()
		return nil, err
	}

	input = input.WithDefaults()
	input.Title = strings.TrimSpace(input.Title)
	input.StoreName = strings.TrimSpace(input.StoreName)
	if err := r.validator.ValidateStruct(input); err != nil {
		metrics.DealsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}

	link := strings.TrimSpace(input.Link)
	deal := models.Deal{
		Title:         input.Title,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		Description:   strings.TrimSpace(input.Description),
		ImageURL:      strings.TrimSpace(input.ImageURL),
		StoreName:     input.StoreName,
		Link:          util.OptimizeLink(link, r.affiliateTag),
		Category:      input.Category,
		CouponCode:    strings.TrimSpace(input.CouponCode),
		PaymentMethod: input.PaymentMethod,
		Temperature:   0,
		IsHot:         false,
		Status:        models.StatusPending,
		UserID:        caller.UserID,
	}
	if deal.ImageURL == "" {
		deal.ImageURL = r.previewImage(ctx, link)
	}

	created, err := r.store.InsertDeal(ctx, deal)
	if err != nil {
		slog.Error("Failed to insert deal", "user_id", caller.UserID, "title", deal.Title, "error", err)
		metrics.DealsSubmitted.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create deal: %w", err)
	}
	metrics.DealsSubmitted.WithLabelValues("ok").Inc()
	slog.Info("Deal submitted for moderation", "deal_id", created.ID, "user_id", caller.UserID)

	r.notify(ctx, "pending", *created, Notifier.NotifyPending)
	return created, nil
}

// notify alerts moderators in the background. The webhook may be rate
// limited for many seconds, so the caller's request never waits on it.
func (r *Repository) notify(ctx context.Context, kind string, deal models.Deal, send func(Notifier, context.Context, models.Deal) error) {
	if r.notifier == nil {
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer func() {
			if p := recover(); p != nil {
				slog.Error("Panic in moderator notification", "kind", kind, "deal_id", deal.ID, "panic", p)
			}
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := send(r.notifier, ctx, deal); err != nil {
			slog.Warn("Failed to notify moderators", "kind", kind, "deal_id", deal.ID, "error", err)
		}
	}()
}

// Wait blocks until background moderator notifications have finished.
func (r *Repository) Wait() {
	r.inflight.Wait()
}

func (r *Repository) previewImage(ctx context.Context, link string) string {
	if r.images == nil {
		return models.PlaceholderImageURL
	}
	img, err := r.images.FetchImage(ctx, link)
	if err != nil {
		slog.Debug("Preview image unavailable", "link", link, "error", err)
	}
	if img == "" {
		return models.PlaceholderImageURL
	}
	return img
}

func submitResult(err error) string {
	switch {
	case errors.Is(err, models.ErrUserBanned):
		return "banned"
	case errors.Is(err, models.ErrNotAuthenticated), errors.Is(err, models.ErrForbidden):
		return "unauthenticated"
	}
	return "error"
}

// UpdateStatus moves a deal to approved or rejected. Nothing else changes.
func (r *Repository) UpdateStatus(ctx context.Context, caller *models.Identity, id int64, s models.Status) error {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if s != models.StatusApproved && s != models.StatusRejected {
		return fmt.Errorf("%w: status %q", models.ErrInvalidInput, s)
	}
	if err := r.store.UpdateStatus(ctx, id, s); err != nil {
		slog.Error("Failed to update deal status", "deal_id", id, "status", s, "error", err)
		return err
	}
	return nil
}

// UpdateFull overwrites every editable field exactly as given. The link is
// stored as supplied; moderators are trusted to keep affiliate tags.
func (r *Repository) UpdateFull(ctx context.Context, caller *models.Identity, deal models.Deal) error {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if !deal.Status.Valid() {
		return fmt.Errorf("%w: status %q", models.ErrInvalidInput, deal.Status)
	}
	if err := r.validator.ValidateStruct(deal); err != nil {
		return err
	}
	if err := r.store.UpdateDeal(ctx, deal); err != nil {
		slog.Error("Failed to update deal", "deal_id", deal.ID, "error", err)
		return err
	}
	return nil
}

// ReportExpired flags an approved deal for review on behalf of caller.
// Deals that are not public are ErrDealNotFound.
func (r *Repository) ReportExpired(ctx context.Context, caller *models.Identity, id int64) error {
	if _, err := r.requireActive(ctx, caller); err != nil {
		metrics.ReportsTotal.WithLabelValues(submitResult(err)).Inc()
		return err
	}
	deal, err := r.store.ReportDeal(ctx, id)
	if errors.Is(err, models.ErrDealNotFound) {
		metrics.ReportsTotal.WithLabelValues("not_found").Inc()
		return err
	}
	if err != nil {
		slog.Error("Failed to report deal", "deal_id", id, "error", err)
		metrics.ReportsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.ReportsTotal.WithLabelValues("ok").Inc()

	r.notify(ctx, "reported", *deal, Notifier.NotifyReported)
	return nil
}

// DismissReport clears the review flag and keeps the deal as it is.
func (r *Repository) DismissReport(ctx context.Context, caller *models.Identity, id int64) error {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return err
	}
	return r.store.SetReportStatus(ctx, id, models.ReportNone)
}

// Delete removes a deal and its votes. The single-transaction path runs
// first; if it cannot complete, votes are bulk-deleted and then the deal.
func (r *Repository) Delete(ctx context.Context, caller *models.Identity, id int64) error {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return err
	}

	votes, countErr := r.store.CountVotes(ctx, id)
	if countErr != nil {
		slog.Warn("Failed to count votes before delete", "deal_id", id, "error", countErr)
	}

	atomicErr := r.store.DeleteDealAtomic(ctx, id)
	if atomicErr == nil {
		metrics.DeletePath.WithLabelValues("atomic").Inc()
		slog.Info("Deleted deal", "deal_id", id, "votes", votes, "path", "atomic")
		return nil
	}
	if errors.Is(atomicErr, models.ErrDealNotFound) {
		return atomicErr
	}
	slog.Warn("Atomic delete failed, falling back to stepwise delete", "deal_id", id, "error", atomicErr)

	if err := r.store.DeleteDealStepwise(ctx, id); err != nil {
		metrics.DeletePath.WithLabelValues("failed").Inc()
		slog.Error("Failed to delete deal", "deal_id", id, "atomic_error", atomicErr, "stepwise_error", err)
		return fmt.Errorf("delete deal %d: atomic: %v; stepwise: %w", id, atomicErr, err)
	}
	metrics.DeletePath.WithLabelValues("stepwise").Inc()
	slog.Info("Deleted deal", "deal_id", id, "votes", votes, "path", "stepwise")
	return nil
}

// Vote heats a deal once per user and returns the confirmed temperature.
func (r *Repository) Vote(ctx context.Context, caller *models.Identity, dealID int64) (int, error) {
	if _, err := r.requireActive(ctx, caller); err != nil {
		metrics.VotesTotal.WithLabelValues(submitResult(err)).Inc()
		return 0, err
	}
	temp, err := r.store.Vote(ctx, caller.UserID, dealID)
	switch {
	case err == nil:
		metrics.VotesTotal.WithLabelValues("ok").Inc()
		return temp, nil
	case errors.Is(err, models.ErrAlreadyVoted):
		metrics.VotesTotal.WithLabelValues("already_voted").Inc()
		return 0, err
	case errors.Is(err, models.ErrDealNotFound):
		metrics.VotesTotal.WithLabelValues("not_found").Inc()
		return 0, err
	default:
		metrics.VotesTotal.WithLabelValues("error").Inc()
		slog.Error("Failed to record vote", "deal_id", dealID, "user_id", caller.UserID, "error", err)
		return 0, err
	}
}

// ListUsers returns every profile, newest first.
func (r *Repository) ListUsers(ctx context.Context, caller *models.Identity) ([]models.UserProfile, error) {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return []models.UserProfile{}, err
	}
	profiles, err := r.store.ListProfiles(ctx)
	if err != nil {
		slog.Error("Failed to list profiles", "error", err)
		return []models.UserProfile{}, fmt.Errorf("list profiles: %w", err)
	}
	if profiles == nil {
		profiles = []models.UserProfile{}
	}
	return profiles, nil
}

// Profile returns a user's profile for moderation decisions.
func (r *Repository) Profile(ctx context.Context, caller *models.Identity, userID string) (*models.UserProfile, error) {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return r.store.GetProfile(ctx, userID)
}

// SetBanned sets a user's ban flag. Admin accounts cannot be banned.
func (r *Repository) SetBanned(ctx context.Context, caller *models.Identity, userID string, banned bool) error {
	if _, err := r.requireAdmin(ctx, caller); err != nil {
		return err
	}
	target, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if banned && target.IsAdmin() {
		return models.ErrCannotBanAdmin
	}
	if err := r.store.SetBanned(ctx, userID, banned); err != nil {
		slog.Error("Failed to update ban flag", "user_id", userID, "banned", banned, "error", err)
		return err
	}
	slog.Info("Updated ban flag", "user_id", userID, "banned", banned, "by", caller.UserID)
	return nil
}
