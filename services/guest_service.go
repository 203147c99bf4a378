package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"checkin-backend/models"
	"checkin-backend/realtime"
)

// GuestService owns the local snapshot of the guest collection. When the
// shared store holds data the snapshot follows it (last write wins);
// otherwise it serves whatever was loaded locally.
type GuestService struct {
	store realtime.Store
	log   zerolog.Logger

	mu        sync.RWMutex
	guests    []models.GuestRecord
	index     map[string]int
	connected bool
	unsub     func()

	lmu       sync.Mutex
	listeners map[int]func([]models.GuestRecord)
	nextID    int
}

func NewGuestService(store realtime.Store, log zerolog.Logger) *GuestService {
	return &GuestService{
		store: store,
		log:   log.With().Str("component", "guests").Logger(),
		index:     map[string]int{},
		listeners: map[int]func([]models.GuestRecord){},
	}
}

// Start subscribes to the shared guest collection.
func (s *GuestService) Start() {
	if s.store == nil || s.unsub != nil {
		return
	}
	s.unsub = s.store.Subscribe(realtime.CollectionGuests, s.apply)
}

func (s *GuestService) Stop() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

func (s *GuestService) apply(snap realtime.Snapshot) {
	if !snap.Exists() {
		s.mu.RLock()
		connected := s.connected
		s.mu.RUnlock()
		if !connected {
			return
		}
	}

	guests := make([]models.GuestRecord, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		g, err := decodeGuest(d)
		if err != nil {
			s.log.Warn().Err(err).Str("key", d.Key).Msg("skipping undecodable guest")
			continue
		}
		guests = append(guests, g)
	}

	s.mu.Lock()
	s.setLocked(guests)
	s.connected = true
	s.mu.Unlock()
	s.log.Debug().Int("guests", len(guests)).Uint64("version", snap.Version).Msg("snapshot applied")
	s.notify()
}

// Watch registers fn to receive the snapshot after every change. fn is
// called once immediately and must not block.
func (s *GuestService) Watch(fn func([]models.GuestRecord)) (cancel func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	fn(s.List())
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *GuestService) notify() {
	s.lmu.Lock()
	fns := make([]func([]models.GuestRecord), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	if len(fns) == 0 {
		return
	}
	guests := s.List()
	for _, fn := range fns {
		fn(guests)
	}
}

func decodeGuest(d realtime.Document) (models.GuestRecord, error) {
	gs, err := realtime.Decode[models.GuestRecord](realtime.Snapshot{Docs: []realtime.Document{d}})
	if err != nil {
		return models.GuestRecord{}, err
	}
	g := gs[0]
	// The store key is authoritative for the order number.
	g.OrderNumber = d.Key
	g.SyncStatus()
	return g, nil
}

func (s *GuestService) setLocked(guests []models.GuestRecord) {
	s.guests = guests
	s.index = make(map[string]int, len(guests))
	for i, g := range guests {
		s.index[g.OrderNumber] = i
	}
}

// Connected reports whether the snapshot is following the shared store.
func (s *GuestService) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// List returns a copy of the snapshot in native order.
func (s *GuestService) List() []models.GuestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GuestRecord, len(s.guests))
	copy(out, s.guests)
	return out
}

func (s *GuestService) Get(orderNumber string) (models.GuestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[NormalizeOrderNumber(orderNumber)]
	if !ok {
		return models.GuestRecord{}, notFound("guest", orderNumber)
	}
	return s.guests[i], nil
}

// mutate runs fn against the stored record under the write lock. If fn
// returns an error the record is left untouched.
func (s *GuestService) mutate(orderNumber string, fn func(g *models.GuestRecord) error) (models.GuestRecord, error) {
	s.mu.Lock()
	i, ok := s.index[NormalizeOrderNumber(orderNumber)]
	if !ok {
		s.mu.Unlock()
		return models.GuestRecord{}, notFound("guest", orderNumber)
	}
	g := s.guests[i]
	if err := fn(&g); err != nil {
		cur := s.guests[i]
		s.mu.Unlock()
		return cur, err
	}
	s.guests[i] = g
	s.mu.Unlock()

	s.notify()
	return g, nil
}

// Replace loads guests locally without touching the shared store.
func (s *GuestService) Replace(guests []models.GuestRecord) {
	cp := make([]models.GuestRecord, len(guests))
	copy(cp, guests)
	for i := range cp {
		cp[i].SyncStatus()
	}
	s.mu.Lock()
	s.setLocked(cp)
	s.mu.Unlock()
	s.notify()
}

// HasData reports whether the shared store already holds guests.
func (s *GuestService) HasData(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	snap, err := s.store.ReadOnce(ctx, realtime.CollectionGuests)
	if err != nil {
		return false, WrapError(CodeSyncFailure, "read guests", err)
	}
	return snap.Exists(), nil
}

// Upload overwrites the whole shared guest collection. This is the one-time
// migration path and must not run while staff are checking guests in.
func (s *GuestService) Upload(ctx context.Context, guests []models.GuestRecord) error {
	if s.store == nil {
		return NewError(CodeSyncFailure, "no shared store attached")
	}
	docs := make([]realtime.Document, 0, len(guests))
	for _, g := range guests {
		key := g.OrderNumber
		if key == "" {
			key = g.ID
		}
		d, err := realtime.NewDocument(key, g)
		if err != nil {
			return WrapError(CodeSyncFailure, fmt.Sprintf("encode guest %s", key), err)
		}
		docs = append(docs, d)
	}
	if err := s.store.WriteWhole(ctx, realtime.CollectionGuests, docs); err != nil {
		return WrapError(CodeSyncFailure, "upload guests", err)
	}
	s.log.Info().Int("guests", len(docs)).Msg("guest collection uploaded")
	return nil
}

// AddManual appends guests one document at a time so live edits on other
// records survive. Without a store they are appended to the local snapshot.
func (s *GuestService) AddManual(ctx context.Context, guests []models.GuestRecord) error {
	if s.store == nil || !s.Connected() {
		s.mu.Lock()
		for _, g := range guests {
			g.SyncStatus()
			if i, ok := s.index[g.OrderNumber]; ok {
				s.guests[i] = g
				continue
			}
			s.index[g.OrderNumber] = len(s.guests)
			s.guests = append(s.guests, g)
		}
		s.mu.Unlock()
		s.notify()
		return nil
	}
	for _, g := range guests {
		if err := s.store.Put(ctx, realtime.CollectionGuests, g.OrderNumber, g); err != nil {
			return WrapError(CodeSyncFailure, fmt.Sprintf("add guest %s", g.OrderNumber), err)
		}
	}
	return nil
}

// Counts are the dashboard header counters.
type Counts struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checkedIn"`
	Pending   int `json:"pending"`
}

func (s *GuestService) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CountGuests(s.guests)
}

func CountGuests(guests []models.GuestRecord) Counts {
	c := Counts{Total: len(guests)}
	for _, g := range guests {
		if g.Checked {
			c.CheckedIn++
		}
	}
	c.Pending = c.Total - c.CheckedIn
	return c
}

// QuickImportRow is one manually typed "first,last,hotel" line.
type QuickImportRow struct {
	First string
	Last  string
	Hotel string
}

// NewManualGuest builds a record for a quick-import row. Order numbers are
// synthetic since manual entries have no ticket order behind them.
func NewManualGuest(row QuickImportRow, seq int, now time.Time) models.GuestRecord {
	first := orDefault(row.First, "Unknown")
	last := orDefault(row.Last, "Guest")
	local := row.First
	if local == "" {
		local = "guest"
	}
	g := models.GuestRecord{
		ID:             "imported-" + uuid.NewString(),
		OrderNumber:    fmt.Sprintf("IMP%d%d", now.UnixMilli(), seq),
		Event:          "Event",
		Email:          fmt.Sprintf("%s@example.com", strings.ToLower(local)),
		BillingFirst:   first,
		BillingLast:    last,
		Hotel:          orDefault(row.Hotel, "TBD"),
		CheckInDate:    "12/29/2025",
		TicketTierName: "Standard",
		Quantity:       1,
		EventDate:      "12/30/2025",
		TicketType:     models.TicketSignature,
	}
	g.SyncStatus()
	return g
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
