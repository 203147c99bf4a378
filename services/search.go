package services

import (
	"strings"

	"checkin-backend/models"
)

// Category is a dashboard filter chip.
type Category string

const (
	CategoryAll        Category = "All"
	CategoryCheckedIn  Category = "Checked In"
	CategoryNotChecked Category = "Not Checked"
	CategoryVIP        Category = "VIP"
)

// DisplayLimit caps how many matches the dashboard renders.
const DisplayLimit = 100

// ParseCategory accepts the chip label; empty means All.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.TrimSpace(s)); c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryCheckedIn, CategoryNotChecked, CategoryVIP:
		return c, nil
	}
	return "", invalid("unknown filter %q", s)
}

// SearchResult carries the capped page plus the full match count so the UI
// can say "showing N of M".
type SearchResult struct {
	Guests []models.GuestRecord `json:"guests"`
	Shown  int                  `json:"shown"`
	Total  int                  `json:"total"`
}

// MatchesQuery is a case-insensitive substring match on name, email,
// order number and hotel.
func MatchesQuery(g models.GuestRecord, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, v := range []string{g.BillingFirst, g.BillingLast, g.Email, g.OrderNumber, g.Hotel} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// MatchesCategory applies a filter chip. VIP is an exact, case-sensitive
// comparison here; reporting groups VIP case-insensitively.
func MatchesCategory(g models.GuestRecord, c Category) bool {
	switch c {
	case CategoryCheckedIn:
		return g.Checked
	case CategoryNotChecked:
		return !g.Checked
	case CategoryVIP:
		return g.TicketType == models.TicketVIP
	}
	return true
}

// Search filters guests in their given order. limit <= 0 uses DisplayLimit.
func Search(guests []models.GuestRecord, query string, c Category, limit int) SearchResult {
	if limit <= 0 {
		limit = DisplayLimit
	}
	res := SearchResult{Guests: []models.GuestRecord{}}
	for _, g := range guests {
		if !MatchesQuery(g, query) || !MatchesCategory(g, c) {
			continue
		}
		res.Total++
		if len(res.Guests) < limit {
			res.Guests = append(res.Guests, g)
		}
	}
	res.Shown = len(res.Guests)
	return res
}
