package models

import "time"

// ActivityLogEntry is append-only; entries are never edited or removed.
type ActivityLogEntry struct {
	ID               string    `json:"id,omitempty"`
	Action           string    `json:"action"`
	GuestName        string    `json:"guestName"`
	OrderNumber      string    `json:"orderNumber"`
	PerformedBy      string    `json:"performedBy"`
	PerformedByEmail string    `json:"performedByEmail"`
	Timestamp        time.Time `json:"timestamp"`
}
