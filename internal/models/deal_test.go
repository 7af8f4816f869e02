package models

import "testing"

func ptr(f float64) *float64 { return &f }

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name  string
		deal  Deal
		want  int
		badge bool
	}{
		{name: "20 percent off", deal: Deal{Price: 80, OriginalPrice: ptr(100)}, want: 20, badge: true},
		{name: "no original price", deal: Deal{Price: 80}, want: 0, badge: false},
		{name: "zero original price", deal: Deal{Price: 80, OriginalPrice: ptr(0)}, want: 0, badge: false},
		{name: "rounded", deal: Deal{Price: 66.67, OriginalPrice: ptr(100)}, want: 33, badge: true},
		{name: "below badge threshold", deal: Deal{Price: 90, OriginalPrice: ptr(100)}, want: 10, badge: false},
		{name: "at badge threshold", deal: Deal{Price: 85, OriginalPrice: ptr(100)}, want: 15, badge: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.deal.DiscountPercent(); got != tt.want {
				t.Errorf("DiscountPercent() = %d, want %d", got, tt.want)
			}
			if got := tt.deal.ShowsDiscountBadge(); got != tt.badge {
				t.Errorf("ShowsDiscountBadge() = %v, want %v", got, tt.badge)
			}
		})
	}
}

func TestIsHotTemperature(t *testing.T) {
	if IsHotTemperature(49) {
		t.Error("49 should not be hot")
	}
	if !IsHotTemperature(50) {
		t.Error("50 should be hot")
	}
	if IsHotTemperature(0) {
		t.Error("0 should not be hot")
	}
}

func TestMatchCategory(t *testing.T) {
	tests := map[string]string{
		"eletrônicos": "Eletrônicos",
		"GAMES":       "Games",
		" Moda ":      "Moda",
		"Geral":       "Outros",
		"":            "Outros",
	}
	for in, want := range tests {
		if got := MatchCategory(in); got != want {
			t.Errorf("MatchCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewDealWithDefaults(t *testing.T) {
	n := NewDeal{Title: "x"}.WithDefaults()
	if n.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", n.Category, DefaultCategory)
	}
	if n.PaymentMethod != DefaultPaymentMethod {
		t.Errorf("PaymentMethod = %q, want %q", n.PaymentMethod, DefaultPaymentMethod)
	}

	n = NewDeal{Category: "Games", PaymentMethod: "Pix"}.WithDefaults()
	if n.Category != "Games" || n.PaymentMethod != "Pix" {
		t.Errorf("WithDefaults overwrote supplied values: %+v", n)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Error("archived should not be valid")
	}
}

func TestShowsHotBadge(t *testing.T) {
	if (Deal{Temperature: 50}).ShowsHotBadge() {
		t.Error("temperature 50 without stored flag should not show the card badge")
	}
	if !(Deal{Temperature: 51}).ShowsHotBadge() {
		t.Error("temperature 51 should show the badge")
	}
	if !(Deal{IsHot: true}).ShowsHotBadge() {
		t.Error("stored hot flag should show the badge")
	}
}
