package models

// Ticket types as they appear in exported order data.
const (
	TicketVIP       = "VIP"
	TicketSignature = "Signature"
)

// Display status labels, kept in step with GuestRecord.Checked.
const (
	StatusChecked = "checked"
	StatusPending = "pending"
)

// GuestRecord is one ticket order. OrderNumber is the durable key used by the
// shared store; ID is regenerated on every import run.
type GuestRecord struct {
	ID             string `json:"id"`
	OrderNumber    string `json:"orderNumber"`
	Status         string `json:"status"`
	Event          string `json:"event,omitempty"`
	Email          string `json:"email"`
	BillingFirst   string `json:"billingFirst"`
	BillingLast    string `json:"billingLast"`
	BillingPhone   string `json:"billingPhone"`
	Hotel          string `json:"hotel"`
	CheckInDate    string `json:"checkInDate"`
	TicketTierName string `json:"ticketTierName"`
	Quantity       int    `json:"quantity"`
	EventDate      string `json:"eventDate"`
	TicketType     string `json:"ticketType"`

	// Non-empty means the add-on was purchased.
	Wellness     string `json:"wellness"`
	GondolaAddon string `json:"gondolaAddon"`

	// Empty means unsigned; "Signed" or "Verified" otherwise.
	JotformWaiver string `json:"jotformWaiver"`

	IDChecked      bool `json:"idChecked"`
	Checked        bool `json:"checked"`
	LaminatePickUp bool `json:"laminatePickUp"`
	Gondola        bool `json:"gondola"`
	WellnessPU     bool `json:"wellnessPU"`
}

// FullName joins billing first and last names.
func (g GuestRecord) FullName() string {
	switch {
	case g.BillingFirst == "":
		return g.BillingLast
	case g.BillingLast == "":
		return g.BillingFirst
	}
	return g.BillingFirst + " " + g.BillingLast
}

func (g GuestRecord) HasWaiver() bool  { return g.JotformWaiver != "" }
func (g GuestRecord) HasGondola() bool { return g.GondolaAddon != "" }
func (g GuestRecord) HasWellness() bool {
	return g.Wellness != ""
}

// Flag reports the boolean view of a workflow field.
func (g GuestRecord) Flag(f Field) bool {
	switch f {
	case FieldJotformWaiver:
		return g.HasWaiver()
	case FieldIDChecked:
		return g.IDChecked
	case FieldChecked:
		return g.Checked
	case FieldLaminatePickUp:
		return g.LaminatePickUp
	case FieldGondola:
		return g.Gondola
	case FieldWellnessPU:
		return g.WellnessPU
	}
	return false
}

// SetFlag writes a boolean workflow field and keeps Status consistent.
// jotformWaiver is string typed and is handled by SetWaiver.
func (g *GuestRecord) SetFlag(f Field, v bool) {
	switch f {
	case FieldIDChecked:
		g.IDChecked = v
	case FieldChecked:
		g.Checked = v
	case FieldLaminatePickUp:
		g.LaminatePickUp = v
	case FieldGondola:
		g.Gondola = v
	case FieldWellnessPU:
		g.WellnessPU = v
	}
	g.SyncStatus()
}

func (g *GuestRecord) SetWaiver(v string) { g.JotformWaiver = v }

// SyncStatus derives the display label from Checked.
func (g *GuestRecord) SyncStatus() {
	if g.Checked {
		g.Status = StatusChecked
	} else {
		g.Status = StatusPending
	}
}
