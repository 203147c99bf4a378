package models

import "fmt"

// Field names a workflow flag on a GuestRecord. Values match the JSON keys
// used in the shared store so a field write can address them directly.
type Field string

const (
	FieldJotformWaiver  Field = "jotformWaiver"
	FieldIDChecked      Field = "idChecked"
	FieldChecked        Field = "checked"
	FieldLaminatePickUp Field = "laminatePickUp"
	FieldGondola        Field = "gondola"
	FieldWellnessPU     Field = "wellnessPU"
)

var actionLabels = map[Field]string{
	FieldJotformWaiver:  "Waiver signed",
	FieldIDChecked:      "ID verified",
	FieldChecked:        "Checked in",
	FieldLaminatePickUp: "Laminate pickup",
	FieldGondola:        "Gondola pickup",
	FieldWellnessPU:     "Wellness pickup",
}

// ParseField validates a field name coming from a request path.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if _, ok := actionLabels[f]; !ok {
		return "", fmt.Errorf("unknown workflow field %q", s)
	}
	return f, nil
}

// ActionLabel is the human label written to the activity log.
func (f Field) ActionLabel() string {
	if l, ok := actionLabels[f]; ok {
		return l
	}
	return string(f)
}

// IsPickup reports whether f is one of the add-on pickup flags.
func (f Field) IsPickup() bool {
	return f == FieldLaminatePickUp || f == FieldGondola || f == FieldWellnessPU
}
