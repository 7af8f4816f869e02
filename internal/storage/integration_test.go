//go:build integration

package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/pauljones0/maodevaca/internal/models"
)

// Integration tests run against the Firestore emulator:
//   FIRESTORE_EMULATOR_HOST=localhost:8681 go test -tags integration ./internal/storage

func newEmulatorClient(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	c, err := New(context.Background(), "maodevaca-test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func insertPending(t *testing.T, c *Client, title string) *models.Deal {
	t.Helper()
	return insertDeal(t, c, title, models.StatusPending)
}

func insertDeal(t *testing.T, c *Client, title string, s models.Status) *models.Deal {
	t.Helper()
	deal, err := c.InsertDeal(context.Background(), models.Deal{
		Title:         title,
		Price:         10,
		StoreName:     "Amazon",
		Link:          "https://amazon.com.br/dp/1",
		Category:      "Outros",
		PaymentMethod: models.DefaultPaymentMethod,
		Status:        s,
		UserID:        "author",
	})
	if err != nil {
		t.Fatalf("InsertDeal() error = %v", err)
	}
	return deal
}

func containsDeal(deals []models.Deal, id int64) bool {
	for _, d := range deals {
		if d.ID == id {
			return true
		}
	}
	return false
}

func TestIntegration_ModerationRoundTrip(t *testing.T) {
	c := newEmulatorClient(t)
	ctx := context.Background()

	deal := insertPending(t, c, "Round trip")
	if deal.ID == 0 || deal.CreatedAt.IsZero() {
		t.Fatalf("InsertDeal() should populate ID and CreatedAt, got %+v", deal)
	}

	pending, err := c.ListDeals(ctx, DealQuery{Status: models.StatusPending})
	if err != nil || !containsDeal(pending, deal.ID) {
		t.Fatalf("pending list should contain the new deal (err=%v)", err)
	}

	if err := c.UpdateStatus(ctx, deal.ID, models.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	pending, _ = c.ListDeals(ctx, DealQuery{Status: models.StatusPending})
	approved, _ := c.ListDeals(ctx, DealQuery{Status: models.StatusApproved})
	if containsDeal(pending, deal.ID) || !containsDeal(approved, deal.ID) {
		t.Fatal("approved deal should move from pending to approved list")
	}

	got, err := c.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal() error = %v", err)
	}
	if got.Title != deal.Title || got.Price != deal.Price || got.Link != deal.Link {
		t.Errorf("approval changed other fields: %+v", got)
	}
}

func TestIntegration_VoteUniquenessAndCascade(t *testing.T) {
	c := newEmulatorClient(t)
	ctx := context.Background()

	deal := insertDeal(t, c, "Votes", models.StatusApproved)

	temp, err := c.Vote(ctx, "voter-1", deal.ID)
	if err != nil || temp != 1 {
		t.Fatalf("first Vote() = %d, %v; want 1, nil", temp, err)
	}
	if _, err := c.Vote(ctx, "voter-1", deal.ID); !errors.Is(err, models.ErrAlreadyVoted) {
		t.Fatalf("second Vote() error = %v, want ErrAlreadyVoted", err)
	}

	var wg sync.WaitGroup
	for _, u := range []string{"voter-2", "voter-3", "voter-4"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			if _, err := c.Vote(ctx, user, deal.ID); err != nil {
				t.Errorf("Vote(%s) error = %v", user, err)
			}
		}(u)
	}
	wg.Wait()

	got, _ := c.GetDeal(ctx, deal.ID)
	if got.Temperature != 4 {
		t.Errorf("Temperature = %d, want 4 (no lost updates)", got.Temperature)
	}
	if n, _ := c.CountVotes(ctx, deal.ID); n != 4 {
		t.Errorf("CountVotes() = %d, want 4", n)
	}

	if err := c.DeleteDealAtomic(ctx, deal.ID); err != nil {
		t.Fatalf("DeleteDealAtomic() error = %v", err)
	}
	if _, err := c.GetDeal(ctx, deal.ID); !errors.Is(err, models.ErrDealNotFound) {
		t.Errorf("GetDeal() after delete error = %v, want ErrDealNotFound", err)
	}
	if n, _ := c.CountVotes(ctx, deal.ID); n != 0 {
		t.Errorf("votes should be removed with the deal, %d remain", n)
	}
}

func TestIntegration_HiddenDealsRejectVotesAndReports(t *testing.T) {
	c := newEmulatorClient(t)
	ctx := context.Background()

	for _, s := range []models.Status{models.StatusPending, models.StatusRejected} {
		deal := insertDeal(t, c, "Hidden "+string(s), s)
		if _, err := c.Vote(ctx, "voter-1", deal.ID); !errors.Is(err, models.ErrDealNotFound) {
			t.Errorf("%s: Vote() error = %v, want ErrDealNotFound", s, err)
		}
		if _, err := c.ReportDeal(ctx, deal.ID); !errors.Is(err, models.ErrDealNotFound) {
			t.Errorf("%s: ReportDeal() error = %v, want ErrDealNotFound", s, err)
		}
		got, _ := c.GetDeal(ctx, deal.ID)
		if got.Temperature != 0 || got.ReportStatus != models.ReportNone {
			t.Errorf("%s: hidden deal changed: %+v", s, got)
		}
		if n, _ := c.CountVotes(ctx, deal.ID); n != 0 {
			t.Errorf("%s: %d votes recorded on a hidden deal", s, n)
		}
	}

	deal := insertDeal(t, c, "Reported", models.StatusApproved)
	reported, err := c.ReportDeal(ctx, deal.ID)
	if err != nil || reported.ReportStatus != models.ReportPendingReview {
		t.Fatalf("ReportDeal() = %+v, %v", reported, err)
	}
	list, _ := c.ListDeals(ctx, DealQuery{ReportStatus: models.ReportPendingReview})
	if !containsDeal(list, deal.ID) {
		t.Error("reported deal should appear in the review list")
	}
}

func TestIntegration_StepwiseDelete(t *testing.T) {
	c := newEmulatorClient(t)
	ctx := context.Background()

	deal := insertDeal(t, c, "Stepwise", models.StatusApproved)
	if _, err := c.Vote(ctx, "voter-1", deal.ID); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	if err := c.DeleteDealStepwise(ctx, deal.ID); err != nil {
		t.Fatalf("DeleteDealStepwise() error = %v", err)
	}
	if n, _ := c.CountVotes(ctx, deal.ID); n != 0 {
		t.Errorf("votes should be removed, %d remain", n)
	}
	if err := c.DeleteDealStepwise(ctx, deal.ID); !errors.Is(err, models.ErrDealNotFound) {
		t.Errorf("second delete error = %v, want ErrDealNotFound", err)
	}
}

func TestIntegration_Profiles(t *testing.T) {
	c := newEmulatorClient(t)
	ctx := context.Background()

	if err := c.CreateProfile(ctx, "p1", "p1@example.com"); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if err := c.CreateProfile(ctx, "p1", "other@example.com"); err != nil {
		t.Fatalf("CreateProfile() on existing profile should be a no-op, got %v", err)
	}
	if err := c.SetBanned(ctx, "p1", true); err != nil {
		t.Fatalf("SetBanned() error = %v", err)
	}
	p, err := c.GetProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.Email != "p1@example.com" || p.Role != models.RoleUser || !p.IsBanned {
		t.Errorf("unexpected profile %+v", p)
	}
	profiles, err := c.GetProfiles(ctx, []string{"p1", "missing"})
	if err != nil || len(profiles) != 1 {
		t.Errorf("GetProfiles() = %v, %v; want only p1", profiles, err)
	}
}
