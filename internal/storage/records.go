package storage

import (
	"time"

	"github.com/pauljones0/maodevaca/internal/models"
)

// dealRecord is the stored shape of a deal. Field names follow the wire
// format shared with the web client.
type dealRecord struct {
	ID            int64     `firestore:"id"`
	Title         string    `firestore:"title"`
	Price         float64   `firestore:"price"`
	OriginalPrice *float64  `firestore:"original_price"`
	Description   string    `firestore:"description"`
	ImageURL      string    `firestore:"image_url"`
	StoreName     string    `firestore:"store_name"`
	Link          string    `firestore:"link"`
	Category      string    `firestore:"category"`
	CouponCode    string    `firestore:"coupon_code,omitempty"`
	PaymentMethod string    `firestore:"payment_method,omitempty"`
	Temperature   int       `firestore:"temperature"`
	IsHot         bool      `firestore:"is_hot"`
	Status        string    `firestore:"status"`
	ReportStatus  string    `firestore:"report_status"`
	CreatedAt     time.Time `firestore:"created_at,serverTimestamp"`
	UserID        string    `firestore:"user_id"`
}

type voteRecord struct {
	UserID    string    `firestore:"user_id"`
	DealID    int64     `firestore:"deal_id"`
	CreatedAt time.Time `firestore:"created_at,serverTimestamp"`
}

type profileRecord struct {
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	IsBanned  bool      `firestore:"is_banned"`
	CreatedAt time.Time `firestore:"created_at,serverTimestamp"`
}

type counterRecord struct {
	Next int64 `firestore:"next"`
}

func toDeal(r dealRecord) models.Deal {
	paymentMethod := r.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}
	return models.Deal{
		ID:            r.ID,
		Title:         r.Title,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		StoreName:     r.StoreName,
		Link:          r.Link,
		Category:      r.Category,
		CouponCode:    r.CouponCode,
		PaymentMethod: paymentMethod,
		Temperature:   r.Temperature,
		IsHot:         r.IsHot,
		Status:        models.Status(r.Status),
		ReportStatus:  models.ReportStatus(r.ReportStatus),
		CreatedAt:     r.CreatedAt,
		UserID:        r.UserID,
	}
}

func fromDeal(d models.Deal) dealRecord {
	return dealRecord{
		ID:            d.ID,
		Title:         d.Title,
		Price:         d.Price,
		OriginalPrice: d.OriginalPrice,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		StoreName:     d.StoreName,
		Link:          d.Link,
		Category:      d.Category,
		CouponCode:    d.CouponCode,
		PaymentMethod: d.PaymentMethod,
		Temperature:   d.Temperature,
		IsHot:         d.IsHot,
		Status:        string(d.Status),
		ReportStatus:  string(d.ReportStatus),
		CreatedAt:     d.CreatedAt,
		UserID:        d.UserID,
	}
}

func toProfile(id string, r profileRecord) models.UserProfile {
	role := models.Role(r.Role)
	if role != models.RoleAdmin {
		role = models.RoleUser
	}
	return models.UserProfile{
		ID:        id,
		Email:     r.Email,
		Role:      role,
		IsBanned:  r.IsBanned,
		CreatedAt: r.CreatedAt,
	}
}
