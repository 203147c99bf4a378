package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"checkin-backend/models"
	"checkin-backend/realtime"
)

// ActivityService appends to and reads the activity log collection.
type ActivityService struct {
	store realtime.Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewActivityService(store realtime.Store, log zerolog.Logger) *ActivityService {
	return &ActivityService{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "activity").Logger(),
	}
}

// Append stores a new entry. Entries are never updated afterwards.
func (s *ActivityService) Append(ctx context.Context, entry models.ActivityLogEntry) (models.ActivityLogEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	entry.ID = ""
	key, err := s.store.Append(ctx, realtime.CollectionActivity, entry)
	if err != nil {
		return entry, WrapError(CodeSyncFailure, "append activity", err)
	}
	entry.ID = key
	s.log.Info().
		Str("action", entry.Action).
		Str("order", entry.OrderNumber).
		Str("by", entry.PerformedByEmail).
		Msg("activity logged")
	return entry, nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityLogEntry, error) {
	snap, err := s.store.ReadOnce(ctx, realtime.CollectionActivity)
	if err != nil {
		return nil, WrapError(CodeSyncFailure, "read activity", err)
	}
	entries, err := realtime.Decode[models.ActivityLogEntry](snap)
	if err != nil {
		return nil, WrapError(CodeSyncFailure, "decode activity", err)
	}
	for i := range entries {
		entries[i].ID = snap.Docs[i].Key
	}
	out := make([]models.ActivityLogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
