package models

import (
	"math"
	"strings"
	"time"
)

// HotThreshold is the temperature at which a deal earns the hot badge.
const HotThreshold = 50

// DiscountBadgeThreshold is the discount percentage above which cards show a discount badge.
const DiscountBadgeThreshold = 15

const (
	DefaultCategory      = "Outros"
	DefaultPaymentMethod = "À vista"
	PlaceholderImageURL  = "https://via.placeholder.com/400x400?text=Sem+Imagem"
)

// Categories is the fixed set of deal categories, in display order.
var Categories = []string{
	"Eletrônicos",
	"Informática",
	"Smartphones",
	"Moda",
	"Casa e Jardim",
	"Games",
	"Mercado",
	"Livros",
	"Ferramentas",
	"Beleza",
	"Esporte",
	"Outros",
}

// PaymentMethods is the fixed set of payment methods a deal can be tagged with.
var PaymentMethods = []string{
	"À vista",
	"Pix",
	"Boleto",
	"Cartão de Crédito",
	"Parcelado",
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportNone          ReportStatus = ""
	ReportPendingReview ReportStatus = "pending_review"
)

// Deal is a community-submitted offer.
type Deal struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title" validate:"required,max=200"`
	Price         float64      `json:"price" validate:"gt=0"`
	OriginalPrice *float64     `json:"originalPrice,omitempty" validate:"omitempty,gtefield=Price"`
	Description   string       `json:"description" validate:"max=2000"`
	ImageURL      string       `json:"imageUrl" validate:"omitempty,url"`
	StoreName     string       `json:"storeName" validate:"required"`
	Link          string       `json:"link" validate:"required,url"`
	Category      string       `json:"category" validate:"category"`
	CouponCode    string       `json:"couponCode,omitempty"`
	PaymentMethod string       `json:"paymentMethod" validate:"paymentmethod"`
	Temperature   int          `json:"temperature" validate:"gte=0"`
	IsHot         bool         `json:"isHot"`
	Status        Status       `json:"status"`
	ReportStatus  ReportStatus `json:"reportStatus,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UserID        string       `json:"userId,omitempty"`
	UserEmail     string       `json:"userEmail,omitempty"`
}

// NewDeal is the user-supplied part of a deal submission.
type NewDeal struct {
	Title         string   `json:"title" validate:"required,max=200"`
	Price         float64  `json:"price" validate:"gt=0"`
	OriginalPrice *float64 `json:"originalPrice,omitempty" validate:"omitempty,gtefield=Price"`
	Description   string   `json:"description" validate:"max=2000"`
	ImageURL      string   `json:"imageUrl" validate:"omitempty,url"`
	StoreName     string   `json:"storeName" validate:"required"`
	Link          string   `json:"link" validate:"required,url"`
	Category      string   `json:"category" validate:"omitempty,category"`
	CouponCode    string   `json:"couponCode,omitempty"`
	PaymentMethod string   `json:"paymentMethod" validate:"omitempty,paymentmethod"`
}

// WithDefaults fills the category and payment method when the submitter left them blank.
func (n NewDeal) WithDefaults() NewDeal {
	if strings.TrimSpace(n.Category) == "" {
		n.Category = DefaultCategory
	}
	if strings.TrimSpace(n.PaymentMethod) == "" {
		n.PaymentMethod = DefaultPaymentMethod
	}
	return n
}

// IsHotTemperature reports whether a temperature earns the hot badge.
func IsHotTemperature(temperature int) bool {
	return temperature >= HotThreshold
}

// DiscountPercent returns the rounded discount against the original price, or 0
// when there is no usable original price.
func (d Deal) DiscountPercent() int {
	if d.OriginalPrice == nil || *d.OriginalPrice <= 0 {
		return 0
	}
	orig := *d.OriginalPrice
	return int(math.Round((orig - d.Price) / orig * 100))
}

func (d Deal) ShowsDiscountBadge() bool {
	return d.DiscountPercent() > DiscountBadgeThreshold
}

// ShowsHotBadge mirrors the card: stored flag or a displayed temperature past the threshold.
func (d Deal) ShowsHotBadge() bool {
	return d.IsHot || d.Temperature > HotThreshold
}

func (d Deal) Reported() bool {
	return d.ReportStatus == ReportPendingReview
}

// IsCategory reports whether c is one of the fixed categories.
func IsCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// MatchCategory matches a free-form category case-insensitively against the
// fixed set, falling back to DefaultCategory.
func MatchCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, cat := range Categories {
		if strings.EqualFold(cat, c) {
			return cat
		}
	}
	return DefaultCategory
}

func IsPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}
