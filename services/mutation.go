package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"checkin-backend/models"
	"checkin-backend/realtime"
	"checkin-backend/utils"
)

// Actor is the signed-in staff member a mutation is attributed to.
type Actor struct {
	Email       string
	DisplayName string
}

// Label is the performedBy value for activity entries.
func (a Actor) Label() string {
	switch {
	case a.DisplayName != "":
		return a.DisplayName
	case a.Email != "":
		return a.Email
	}
	return "Unknown"
}

// ToggleResult describes one applied mutation. SyncError is set when the
// local change succeeded but the shared store rejected it; the local value
// stays authoritative until the next remote push.
type ToggleResult struct {
	OrderNumber string             `json:"orderNumber"`
	Field       models.Field       `json:"field"`
	NewValue    bool               `json:"newValue"`
	Logged      bool               `json:"logged"`
	SyncError   string             `json:"syncError,omitempty"`
	Guest       models.GuestRecord `json:"guest"`
}

// MutationApplier applies single-field workflow changes to guest records.
type MutationApplier struct {
	guests    *GuestService
	store     realtime.Store
	activity  *ActivityService
	waiverURL func() string
	now       func() time.Time
	log       zerolog.Logger
}

// NewMutationApplier wires the applier. store and activity may be nil when
// running without a shared store; waiverURL supplies the external form base.
func NewMutationApplier(guests *GuestService, store realtime.Store, activity *ActivityService, waiverURL func() string, log zerolog.Logger) *MutationApplier {
	if waiverURL == nil {
		waiverURL = func() string { return models.DefaultSettings().JotformURL }
	}
	return &MutationApplier{
		guests:    guests,
		store:     store,
		activity:  activity,
		waiverURL: waiverURL,
		now:       time.Now,
		log:       log.With().Str("component", "mutations").Logger(),
	}
}

// ApplyToggle flips one workflow field on the record keyed by orderNumber.
func (a *MutationApplier) ApplyToggle(ctx context.Context, orderNumber string, field models.Field, actor Actor) (ToggleResult, error) {
	res := ToggleResult{OrderNumber: NormalizeOrderNumber(orderNumber), Field: field}

	var storeValue any
	after, err := a.guests.mutate(orderNumber, func(g *models.GuestRecord) error {
		if field == models.FieldJotformWaiver {
			// An unsigned waiver is completed on the external form, never
			// flipped directly.
			if !g.HasWaiver() {
				return &Error{
					Code:     CodeWaiverLinkRequired,
					Message:  "waiver must be completed on the external form",
					Metadata: map[string]string{"url": utils.BuildWaiverLink(a.waiverURL(), g.OrderNumber), "orderNumber": g.OrderNumber},
				}
			}
			g.SetWaiver("")
			res.NewValue = false
			storeValue = ""
			return nil
		}

		next := !g.Flag(field)
		if d := CheckTransition(*g, field, next); !d.Allowed {
			return gateDenied(g.OrderNumber, field, d.Reason)
		}
		g.SetFlag(field, next)
		res.NewValue = next
		storeValue = next
		return nil
	})
	if err != nil {
		if CodeOf(err) == CodeGateDenied {
			a.log.Info().Str("order", res.OrderNumber).Str("field", string(field)).
				Str("reason", string(DenialReasonOf(err))).Msg("toggle denied")
		}
		return res, err
	}
	res.Guest = after

	a.propagate(ctx, &res, string(field), storeValue)
	if res.NewValue {
		res.Logged = a.record(ctx, after, field, actor)
	}
	return res, nil
}

// SetWaiver marks a waiver signed by hand, e.g. after staff saw the
// submitted form. Only the empty to signed transition is logged.
func (a *MutationApplier) SetWaiver(ctx context.Context, orderNumber, value string, actor Actor) (ToggleResult, error) {
	res := ToggleResult{OrderNumber: NormalizeOrderNumber(orderNumber), Field: models.FieldJotformWaiver}
	if value == "" {
		return res, invalid("waiver value must not be empty")
	}

	var wasEmpty bool
	after, err := a.guests.mutate(orderNumber, func(g *models.GuestRecord) error {
		wasEmpty = !g.HasWaiver()
		g.SetWaiver(value)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Guest = after
	res.NewValue = true

	a.propagate(ctx, &res, string(models.FieldJotformWaiver), value)
	if wasEmpty {
		res.Logged = a.record(ctx, after, models.FieldJotformWaiver, actor)
	}
	return res, nil
}

// MarkWaiverVerified is used by batch verification. It only ever moves an
// empty waiver to "Verified" and reports whether anything changed.
func (a *MutationApplier) MarkWaiverVerified(ctx context.Context, orderNumber string) (bool, error) {
	changed := false
	_, err := a.guests.mutate(orderNumber, func(g *models.GuestRecord) error {
		if g.HasWaiver() {
			return nil
		}
		g.SetWaiver(WaiverVerified)
		changed = true
		return nil
	})
	if err != nil || !changed {
		return false, err
	}
	res := ToggleResult{OrderNumber: NormalizeOrderNumber(orderNumber), Field: models.FieldJotformWaiver, NewValue: true}
	a.propagate(ctx, &res, string(models.FieldJotformWaiver), WaiverVerified)
	return true, nil
}

func (a *MutationApplier) propagate(ctx context.Context, res *ToggleResult, field string, value any) {
	if a.store == nil || !a.guests.Connected() {
		return
	}
	if err := a.store.WriteField(ctx, realtime.CollectionGuests, res.OrderNumber, field, value); err != nil {
		syncErr := WrapError(CodeSyncFailure, "propagate "+field, err)
		res.SyncError = syncErr.Error()
		a.log.Error().Err(err).Str("order", res.OrderNumber).Str("field", field).Msg("sync failed, keeping local value")
	}
}

func (a *MutationApplier) record(ctx context.Context, g models.GuestRecord, field models.Field, actor Actor) bool {
	if a.activity == nil {
		return false
	}
	_, err := a.activity.Append(ctx, models.ActivityLogEntry{
		Action:           field.ActionLabel(),
		GuestName:        g.FullName(),
		OrderNumber:      g.OrderNumber,
		PerformedBy:      actor.Label(),
		PerformedByEmail: actor.Email,
		Timestamp:        a.now().UTC(),
	})
	if err != nil {
		a.log.Warn().Err(err).Str("order", g.OrderNumber).Msg("activity not recorded")
		return false
	}
	return true
}
