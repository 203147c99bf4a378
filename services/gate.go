package services

import "checkin-backend/models"

// DenialReason explains why the gate refused a forward transition.
type DenialReason string

const (
	ReasonNone            DenialReason = ""
	ReasonWaiverRequired  DenialReason = "WAIVER_REQUIRED"
	ReasonIDCheckRequired DenialReason = "ID_CHECK_REQUIRED"
)

// Decision is the gate verdict for one requested flag.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
}

var allowed = Decision{Allowed: true}

// CheckGate decides whether field may be set to true on g. Reasons are
// checked in priority order: a missing waiver wins over a missing ID check.
func CheckGate(g models.GuestRecord, field models.Field) Decision {
	needsWaiver := field == models.FieldIDChecked || field == models.FieldChecked || field.IsPickup()
	needsID := field == models.FieldChecked || field.IsPickup()

	if needsWaiver && !g.HasWaiver() {
		return Decision{Reason: ReasonWaiverRequired}
	}
	if needsID && !g.IDChecked {
		return Decision{Reason: ReasonIDCheckRequired}
	}
	return allowed
}

// CheckTransition is CheckGate for an explicit target value. Clearing a
// flag is always permitted.
func CheckTransition(g models.GuestRecord, field models.Field, to bool) Decision {
	if !to {
		return allowed
	}
	return CheckGate(g, field)
}

// Permissions lists the current gate verdict for every workflow action,
// which the dashboard uses to enable or disable buttons.
func Permissions(g models.GuestRecord) map[models.Field]Decision {
	fields := []models.Field{
		models.FieldIDChecked,
		models.FieldChecked,
		models.FieldLaminatePickUp,
		models.FieldGondola,
		models.FieldWellnessPU,
	}
	out := make(map[models.Field]Decision, len(fields)+1)
	out[models.FieldJotformWaiver] = allowed
	for _, f := range fields {
		out[f] = CheckGate(g, f)
	}
	return out
}

func gateDenied(orderNumber string, field models.Field, reason DenialReason) *Error {
	return &Error{
		Code:    CodeGateDenied,
		Message: string(reason),
		Metadata: map[string]string{
			"reason":      string(reason),
			"field":       string(field),
			"orderNumber": orderNumber,
		},
	}
}

// DenialReasonOf returns the gate reason carried by err, if any.
func DenialReasonOf(err error) DenialReason {
	if CodeOf(err) != CodeGateDenied {
		return ReasonNone
	}
	e := asError(err)
	return DenialReason(e.Metadata["reason"])
}
