package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"checkin-backend/models"
	"checkin-backend/realtime"
)

var testLog = zerolog.Nop()

func guest(order string, mods ...func(*models.GuestRecord)) models.GuestRecord {
	g := models.GuestRecord{
		ID:           "guest-" + order,
		OrderNumber:  order,
		BillingFirst: "Amy",
		BillingLast:  "Lee",
		Email:        "amy@example.com",
		Hotel:        "Lodge",
		EventDate:    "12/27/2025",
		TicketType:   models.TicketSignature,
		Quantity:     1,
	}
	for _, m := range mods {
		m(&g)
	}
	g.SyncStatus()
	return g
}

type fixture struct {
	hub      *realtime.Hub
	guests   *GuestService
	activity *ActivityService
	applier  *MutationApplier
}

// newFixture uploads guests to an in-process hub and wires the services
// the way main does.
func newFixture(t *testing.T, guests ...models.GuestRecord) *fixture {
	t.Helper()
	hub := realtime.NewHub()
	gs := NewGuestService(hub, testLog)
	gs.Start()
	t.Cleanup(gs.Stop)
	if len(guests) > 0 {
		if err := gs.Upload(context.Background(), guests); err != nil {
			t.Fatalf("upload: %v", err)
		}
	}
	act := NewActivityService(hub, testLog)
	app := NewMutationApplier(gs, hub, act, func() string { return "https://forms.example.com/123" }, testLog)
	app.now = func() time.Time { return time.Date(2025, 12, 27, 18, 0, 0, 0, time.UTC) }
	return &fixture{hub: hub, guests: gs, activity: act, applier: app}
}

func (f *fixture) logCount(t *testing.T) int {
	t.Helper()
	entries, err := f.activity.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	return len(entries)
}

func mustGet(t *testing.T, gs *GuestService, order string) models.GuestRecord {
	t.Helper()
	g, err := gs.Get(order)
	if err != nil {
		t.Fatalf("get %s: %v", order, err)
	}
	return g
}
