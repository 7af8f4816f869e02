// Package listing filters and sorts the public deal list for display.
package listing

import (
	"sort"
	"strings"

	"github.com/pauljones0/maodevaca/internal/models"
)

type Sort string

const (
	SortHottest Sort = "HOTTEST"
	SortNewest  Sort = "NEWEST"
)

// ParseSort accepts either key case-insensitively and defaults to NEWEST.
func ParseSort(s string) Sort {
	if strings.EqualFold(strings.TrimSpace(s), string(SortHottest)) {
		return SortHottest
	}
	return SortNewest
}

// Filter is the set of inputs the list view reacts to. Empty fields match everything.
type Filter struct {
	Search string
	// Category matches a deal's category exactly or, failing that, a
	// case-insensitive substring of its store name.
	Category string
	Payment  string
	Sort     Sort
}

// Apply returns the deals that pass every filter, sorted. The input slice is not modified.
func Apply(deals []models.Deal, f Filter) []models.Deal {
	category := strings.TrimSpace(f.Category)
	categoryLower := strings.ToLower(category)
	payment := strings.TrimSpace(f.Payment)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if category != "" && d.Category != category && !strings.Contains(strings.ToLower(d.StoreName), categoryLower) {
			continue
		}
		if payment != "" && d.PaymentMethod != payment {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(d.Title), search) &&
			!strings.Contains(strings.ToLower(d.StoreName), search) &&
			!strings.Contains(strings.ToLower(d.Category), search) {
			continue
		}
		out = append(out, d)
	}

	switch f.Sort {
	case SortHottest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Temperature > out[j].Temperature })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// State tracks the list controls the way the list screen wires them:
// typing a search clears the category, picking a category clears the
// search, and the payment filter is left alone by both.
type State struct {
	filter Filter
}

func NewState() *State {
	return &State{filter: Filter{Sort: SortNewest}}
}

func (s *State) SetSearch(term string) {
	s.filter.Search = term
	s.filter.Category = ""
}

func (s *State) SelectCategory(category string) {
	s.filter.Category = category
	s.filter.Search = ""
}

func (s *State) SelectPayment(method string) {
	s.filter.Payment = method
}

func (s *State) SetSort(key Sort) {
	s.filter.Sort = key
}

// Clear resets category and payment, keeping the search term and sort.
func (s *State) Clear() {
	s.filter.Category = ""
	s.filter.Payment = ""
}

func (s *State) Filter() Filter {
	return s.filter
}

// View recomputes the visible list from deals.
func (s *State) View(deals []models.Deal) []models.Deal {
	return Apply(deals, s.filter)
}
