package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/maodevaca/internal/models"
)

const (
	dealsCollection    = "deals"
	votesCollection    = "votes"
	profilesCollection = "profiles"
	countersCollection = "counters"
	dealCounterDoc     = "deals"
)

// maxTxVoteDeletes keeps the atomic delete inside Firestore's per-transaction write limit.
const maxTxVoteDeletes = 499

// ErrTooManyVotes means the atomic delete path cannot cover the deal's votes.
var ErrTooManyVotes = errors.New("too many votes for a single transaction")

// DealQuery selects deals by status and/or report status. Zero values match anything.
type DealQuery struct {
	Status       models.Status
	ReportStatus models.ReportStatus
}

type Client struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID string) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Configured() bool { return true }

func dealDocID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func voteDocID(userID string, dealID int64) string {
	return userID + "_" + dealDocID(dealID)
}

func (c *Client) dealRef(id int64) *firestore.DocumentRef {
	return c.client.Collection(dealsCollection).Doc(dealDocID(id))
}

// ListDeals returns deals matching q, newest first.
func (c *Client) ListDeals(ctx context.Context, q DealQuery) ([]models.Deal, error) {
	query := c.client.Collection(dealsCollection).Query
	if q.Status != "" {
		query = query.Where("status", "==", string(q.Status))
	}
	if q.ReportStatus != models.ReportNone {
		query = query.Where("report_status", "==", string(q.ReportStatus))
	}
	iter := query.OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	deals := []models.Deal{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate deals: %w", err)
		}
		var rec dealRecord
		if err := doc.DataTo(&rec); err != nil {
			slog.Warn("Skipping undecodable deal document", "id", doc.Ref.ID, "error", err)
			continue
		}
		deals = append(deals, toDeal(rec))
	}
	return deals, nil
}

// GetDeal retrieves a deal by identifier.
func (c *Client) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	doc, err := c.dealRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal %d: %w", id, err)
	}
	var rec dealRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deal data: %w", err)
	}
	deal := toDeal(rec)
	return &deal, nil
}

// InsertDeal allocates the next identifier and stores the deal. The returned
// deal is re-read so that the server-assigned creation time is populated.
func (c *Client) InsertDeal(ctx context.Context, deal models.Deal) (*models.Deal, error) {
	counterRef := c.client.Collection(countersCollection).Doc(dealCounterDoc)

	var id int64
	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var counter counterRecord
		snap, err := tx.Get(counterRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return fmt.Errorf("failed to read deal counter: %w", err)
		default:
			if err := snap.DataTo(&counter); err != nil {
				return fmt.Errorf("failed to decode deal counter: %w", err)
			}
		}
		id = counter.Next + 1

		rec := fromDeal(deal)
		rec.ID = id
		if err := tx.Set(counterRef, counterRecord{Next: id}); err != nil {
			return err
		}
		return tx.Create(c.dealRef(id), rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert deal: %w", err)
	}
	return c.GetDeal(ctx, id)
}

// UpdateStatus sets the moderation status and nothing else.
func (c *Client) UpdateStatus(ctx context.Context, id int64, s models.Status) error {
	return c.update(ctx, id, []firestore.Update{{Path: "status", Value: string(s)}})
}

// UpdateDeal overwrites the editable fields of a deal.
func (c *Client) UpdateDeal(ctx context.Context, deal models.Deal) error {
	return c.update(ctx, deal.ID, []firestore.Update{
		{Path: "title", Value: deal.Title},
		{Path: "price", Value: deal.Price},
		{Path: "original_price", Value: deal.OriginalPrice},
		{Path: "description", Value: deal.Description},
		{Path: "image_url", Value: deal.ImageURL},
		{Path: "store_name", Value: deal.StoreName},
		{Path: "link", Value: deal.Link},
		{Path: "category", Value: deal.Category},
		{Path: "coupon_code", Value: deal.CouponCode},
		{Path: "status", Value: string(deal.Status)},
		{Path: "payment_method", Value: deal.PaymentMethod},
	})
}

// SetReportStatus moves a deal into or out of review.
func (c *Client) SetReportStatus(ctx context.Context, id int64, rs models.ReportStatus) error {
	return c.update(ctx, id, []firestore.Update{{Path: "report_status", Value: string(rs)}})
}

// ReportDeal flags an approved deal for review and returns it. Deals in any
// other status are ErrDealNotFound.
func (c *Client) ReportDeal(ctx context.Context, id int64) (*models.Deal, error) {
	dealRef := c.dealRef(id)
	var deal models.Deal
	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(dealRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return models.ErrDealNotFound
			}
			return fmt.Errorf("failed to read deal: %w", err)
		}
		var rec dealRecord
		if err := snap.DataTo(&rec); err != nil {
			return fmt.Errorf("failed to decode deal: %w", err)
		}
		if models.Status(rec.Status) != models.StatusApproved {
			return models.ErrDealNotFound
		}
		rec.ReportStatus = string(models.ReportPendingReview)
		deal = toDeal(rec)
		return tx.Update(dealRef, []firestore.Update{{Path: "report_status", Value: rec.ReportStatus}})
	})
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (c *Client) update(ctx context.Context, id int64, updates []firestore.Update) error {
	_, err := c.dealRef(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrDealNotFound
		}
		return fmt.Errorf("failed to update deal %d: %w", id, err)
	}
	return nil
}

// DeleteDealAtomic removes the deal and all of its votes in one transaction.
func (c *Client) DeleteDealAtomic(ctx context.Context, id int64) error {
	votesQuery := c.client.Collection(votesCollection).Where("deal_id", "==", id)
	dealRef := c.dealRef(id)

	return c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(dealRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return models.ErrDealNotFound
			}
			return err
		}
		votes, err := tx.Documents(votesQuery).GetAll()
		if err != nil {
			return fmt.Errorf("failed to read votes: %w", err)
		}
		if len(votes) > maxTxVoteDeletes {
			return fmt.Errorf("%w: %d votes", ErrTooManyVotes, len(votes))
		}
		for _, v := range votes {
			if err := tx.Delete(v.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(dealRef)
	})
}

// DeleteDealStepwise deletes the deal's votes with a bulk writer, then the deal.
func (c *Client) DeleteDealStepwise(ctx context.Context, id int64) error {
	iter := c.client.Collection(votesCollection).Where("deal_id", "==", id).Documents(ctx)
	defer iter.Stop()

	bulkWriter := c.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bulkWriter.End()
			return fmt.Errorf("failed to iterate votes for deal %d: %w", id, err)
		}
		job, err := bulkWriter.Delete(doc.Ref)
		if err != nil {
			bulkWriter.End()
			return fmt.Errorf("failed to queue vote delete %s: %w", doc.Ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("failed to delete vote for deal %d: %w", id, err)
		}
	}
	slog.Info("Deleted votes for deal", "deal_id", id, "count", len(jobs))

	if _, err := c.dealRef(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrDealNotFound
		}
		return fmt.Errorf("failed to delete deal %d: %w", id, err)
	}
	return nil
}

// Vote records a vote and increments the deal temperature in one transaction.
// The vote document ID is derived from (user, deal), so a second vote by the
// same user finds the existing document and fails with ErrAlreadyVoted.
// Deals that are not approved are ErrDealNotFound.
func (c *Client) Vote(ctx context.Context, userID string, dealID int64) (int, error) {
	voteRef := c.client.Collection(votesCollection).Doc(voteDocID(userID, dealID))
	dealRef := c.dealRef(dealID)

	var newTemp int
	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(voteRef)
		if err == nil {
			return models.ErrAlreadyVoted
		}
		if status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to read vote: %w", err)
		}

		dealSnap, err := tx.Get(dealRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return models.ErrDealNotFound
			}
			return fmt.Errorf("failed to read deal: %w", err)
		}
		var rec dealRecord
		if err := dealSnap.DataTo(&rec); err != nil {
			return fmt.Errorf("failed to decode deal: %w", err)
		}
		if models.Status(rec.Status) != models.StatusApproved {
			return models.ErrDealNotFound
		}

		newTemp = rec.Temperature + 1
		if err := tx.Create(voteRef, voteRecord{UserID: userID, DealID: dealID}); err != nil {
			return err
		}
		return tx.Update(dealRef, []firestore.Update{
			{Path: "temperature", Value: newTemp},
			{Path: "is_hot", Value: models.IsHotTemperature(newTemp)},
		})
	})
	if err != nil {
		return 0, err
	}
	return newTemp, nil
}

// CountVotes returns the number of votes recorded for a deal.
func (c *Client) CountVotes(ctx context.Context, dealID int64) (int, error) {
	q := c.client.Collection(votesCollection).Where("deal_id", "==", dealID)
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	n, err := aggregateInt(res["all"])
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetProfile reads a profile. A missing profile is ErrProfileNotFound.
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	doc, err := c.client.Collection(profilesCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}
	var rec profileRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	p := toProfile(doc.Ref.ID, rec)
	return &p, nil
}

// GetProfiles reads several profiles at once. Missing profiles are absent from the map.
func (c *Client) GetProfiles(ctx context.Context, userIDs []string) (map[string]models.UserProfile, error) {
	out := make(map[string]models.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(userIDs))
	for _, id := range userIDs {
		refs = append(refs, c.client.Collection(profilesCollection).Doc(id))
	}
	docs, err := c.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var rec profileRecord
		if err := doc.DataTo(&rec); err != nil {
			slog.Warn("Skipping undecodable profile", "id", doc.Ref.ID, "error", err)
			continue
		}
		out[doc.Ref.ID] = toProfile(doc.Ref.ID, rec)
	}
	return out, nil
}

// ListProfiles returns all profiles, newest first.
func (c *Client) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	iter := c.client.Collection(profilesCollection).OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	profiles := []models.UserProfile{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate profiles: %w", err)
		}
		var rec profileRecord
		if err := doc.DataTo(&rec); err != nil {
			slog.Warn("Skipping undecodable profile", "id", doc.Ref.ID, "error", err)
			continue
		}
		profiles = append(profiles, toProfile(doc.Ref.ID, rec))
	}
	return profiles, nil
}

// CreateProfile stores a new user profile. The role is always "user" and the
// account starts unbanned; an existing profile is left untouched.
func (c *Client) CreateProfile(ctx context.Context, userID, email string) error {
	rec := profileRecord{Email: email, Role: string(models.RoleUser)}
	_, err := c.client.Collection(profilesCollection).Doc(userID).Create(ctx, rec)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create profile %s: %w", userID, err)
	}
	return nil
}

// SetBanned updates the ban flag of a profile.
func (c *Client) SetBanned(ctx context.Context, userID string, banned bool) error {
	_, err := c.client.Collection(profilesCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "is_banned", Value: banned},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrProfileNotFound
		}
		return fmt.Errorf("failed to update profile %s: %w", userID, err)
	}
	return nil
}
