package services

import (
	"fmt"
	"testing"

	"checkin-backend/models"
)

func TestMatchesQuery(t *testing.T) {
	g := guest("4521", func(g *models.GuestRecord) {
		g.BillingFirst = "Jordan"
		g.BillingLast = "Knight"
		g.Email = "JK@Example.com"
		g.Hotel = "Grand Summit"
	})
	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"jordan", true},
		{"KNIGHT", true},
		{"jk@example", true},
		{"452", true},
		{"summit", true},
		{"lodge", false},
		{"jordan knight", false},
	}
	for _, tt := range tests {
		if got := MatchesQuery(g, tt.query); got != tt.want {
			t.Errorf("MatchesQuery(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSearchCategories(t *testing.T) {
	guests := []models.GuestRecord{
		guest("1", func(g *models.GuestRecord) { g.Checked = true }),
		guest("2", func(g *models.GuestRecord) { g.TicketType = models.TicketVIP }),
		guest("3", func(g *models.GuestRecord) { g.TicketType = "vip" }),
		guest("4", func(g *models.GuestRecord) { g.TicketType = models.TicketVIP; g.Checked = true }),
	}
	tests := []struct {
		cat  Category
		want []string
	}{
		{CategoryAll, []string{"1", "2", "3", "4"}},
		{CategoryCheckedIn, []string{"1", "4"}},
		{CategoryNotChecked, []string{"2", "3"}},
		// Search compares the ticket type exactly.
		{CategoryVIP, []string{"2", "4"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			res := Search(guests, "", tt.cat, 0)
			var got []string
			for _, g := range res.Guests {
				got = append(got, g.OrderNumber)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchIsSubsetInOrder(t *testing.T) {
	var guests []models.GuestRecord
	for i := 0; i < 40; i++ {
		guests = append(guests, guest(fmt.Sprint(1000+i), func(g *models.GuestRecord) {
			g.Checked = i%3 == 0
			if i%4 == 0 {
				g.TicketType = models.TicketVIP
			}
			if i%5 == 0 {
				g.Hotel = "Chalet"
			}
		}))
	}
	pos := map[string]int{}
	for i, g := range guests {
		pos[g.OrderNumber] = i
	}

	for _, q := range []string{"", "chalet", "101", "nomatch"} {
		for _, c := range []Category{CategoryAll, CategoryCheckedIn, CategoryNotChecked, CategoryVIP} {
			res := Search(guests, q, c, 0)
			last := -1
			for _, g := range res.Guests {
				if !MatchesQuery(g, q) || !MatchesCategory(g, c) {
					t.Fatalf("%q/%s: %s does not match", q, c, g.OrderNumber)
				}
				if pos[g.OrderNumber] <= last {
					t.Fatalf("%q/%s: order not preserved", q, c)
				}
				last = pos[g.OrderNumber]
			}
			if res.Shown != len(res.Guests) || res.Total < res.Shown {
				t.Fatalf("%q/%s: shown %d total %d", q, c, res.Shown, res.Total)
			}
		}
	}
}

func TestSearchLimit(t *testing.T) {
	var guests []models.GuestRecord
	for i := 0; i < 150; i++ {
		guests = append(guests, guest(fmt.Sprint(i)))
	}
	res := Search(guests, "", CategoryAll, 0)
	if res.Shown != DisplayLimit || res.Total != 150 {
		t.Fatalf("default limit: shown %d total %d", res.Shown, res.Total)
	}
	res = Search(guests, "", CategoryAll, 10)
	if res.Shown != 10 || res.Total != 150 || res.Guests[9].OrderNumber != "9" {
		t.Fatalf("limit 10: shown %d total %d", res.Shown, res.Total)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(""); err != nil || c != CategoryAll {
		t.Fatalf("empty: %v %v", c, err)
	}
	if c, err := ParseCategory("Checked In"); err != nil || c != CategoryCheckedIn {
		t.Fatalf("checked in: %v %v", c, err)
	}
	if _, err := ParseCategory("bogus"); CodeOf(err) != CodeInvalidArgument {
		t.Fatalf("bogus: err = %v", err)
	}
}

func TestSearchAndReportingDisagreeOnVIPCase(t *testing.T) {
	lower := guest("1", func(g *models.GuestRecord) { g.TicketType = "vip" })
	guests := []models.GuestRecord{lower}

	if res := Search(guests, "lee", CategoryAll, 0); res.Total != 1 {
		t.Fatalf("query lee: total = %d, want 1", res.Total)
	}
	if res := Search(guests, "", CategoryVIP, 0); res.Total != 0 {
		t.Fatalf("VIP chip matched lowercase vip")
	}
	if groups := GroupByAccessType(guests); len(groups.VIP) != 1 {
		t.Fatalf("reporting did not treat vip as VIP")
	}
}
