package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"checkin-backend/models"
)

func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DefaultRawSheet); err != nil {
		t.Fatal(err)
	}
	rows := [][]any{
		{"Order #", "Billing First", "Billing Last", "Email", "Hotel", "Event Date", "Ticket Type", "Ticket Tier #1 Quantity", "Gondola Addon", "Jotform Waiver", "Status"},
		{"#4521", "Amy", "Lee", "amy@example.com", "Lodge", 46018, "VIP", 2, "Gondola", "TRUE", "checked"},
		{"4522", "Ben", "Cho", "not-an-email", "Inn", "12/28/2025", "", "", "FALSE", "", ""},
		{"", "No", "Order", "", "", "", "", "", "", "", ""},
		{"4521", "Dup", "Row", "", "", "", "", "", "", "", ""},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(DefaultRawSheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := f.NewSheet("Sat Dec 27"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sat Dec 27", "A1", &[]any{"Order #", "ID Checked", "Select", "Laminate Pick Up"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sat Dec 27", "A2", &[]any{"#4521", true, "TRUE", false}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestImportWorkbook(t *testing.T) {
	im := NewImporter(testLog)
	res, err := im.ImportWorkbook(buildWorkbook(t), "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(res.Guests) != 2 {
		t.Fatalf("guests = %+v", res.Guests)
	}
	amy := res.Guests[0]
	if amy.OrderNumber != "4521" || amy.BillingFirst != "Amy" || amy.BillingLast != "Lee" {
		t.Fatalf("amy = %+v", amy)
	}
	if amy.EventDate != "12/27/2025" {
		t.Fatalf("event date = %q, want 12/27/2025", amy.EventDate)
	}
	if amy.ID != "guest-1" || amy.Quantity != 2 || amy.TicketType != models.TicketVIP || amy.JotformWaiver != WaiverSigned {
		t.Fatalf("amy = %+v", amy)
	}
	if !amy.Checked || !amy.IDChecked || amy.LaminatePickUp || amy.Status != models.StatusChecked {
		t.Fatalf("dated sheet markers not applied: %+v", amy)
	}

	ben := res.Guests[1]
	if ben.TicketType != models.TicketSignature || ben.Quantity != 1 || ben.GondolaAddon != "" || ben.Event != DefaultEvent {
		t.Fatalf("ben defaults = %+v", ben)
	}
	if ben.Checked || ben.Status != models.StatusPending {
		t.Fatalf("ben = %+v", ben)
	}

	if len(res.DatedSheets) != 1 || res.DatedSheets[0] != "Sat Dec 27" || res.Backfilled != 1 {
		t.Fatalf("dated = %v backfilled = %d", res.DatedSheets, res.Backfilled)
	}

	// Invalid email, missing order and duplicate order.
	if len(res.Issues) != 3 {
		t.Fatalf("issues = %+v", res.Issues)
	}
	wantRows := []int{3, 4, 5}
	for i, is := range res.Issues {
		if is.Row != wantRows[i] || is.Sheet != DefaultRawSheet || is.Code != CodeImportValidationFailure {
			t.Errorf("issue %d = %+v", i, is)
		}
	}
}

func TestImportWorkbookMissingSheet(t *testing.T) {
	im := NewImporter(testLog)
	_, err := im.ImportWorkbook(buildWorkbook(t), "Orders")
	if CodeOf(err) != CodeInvalidArgument {
		t.Fatalf("err = %v", err)
	}
	_, err = im.ImportWorkbook(strings.NewReader("not a zip"), "")
	if CodeOf(err) != CodeInvalidArgument {
		t.Fatalf("garbage input: err = %v", err)
	}
}

func TestNormalizeRowSynonyms(t *testing.T) {
	g, issues := NormalizeRow(Row{
		"order number":            " #88 ",
		"First Name":              "Cleo",
		"Last Name":               "Ng",
		"Phone":                   "555-0100",
		"Hotel Name":              "Chalet",
		"Check-In Date":           "2025-12-26",
		"Ticket Tier":             "GA",
		"Quantity":                "3",
		"Event Date":              "2025-12-29",
		"Wellness":                "Spa",
		"Gondola":                 "no",
		"Jotform Waiver":          "Verified",
		"Ticket Tier #1 Quantity": "",
	})
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	want := models.GuestRecord{
		OrderNumber:    "88",
		Status:         models.StatusPending,
		Event:          DefaultEvent,
		BillingFirst:   "Cleo",
		BillingLast:    "Ng",
		BillingPhone:   "555-0100",
		Hotel:          "Chalet",
		CheckInDate:    "12/26/2025",
		TicketTierName: "GA",
		Quantity:       3,
		EventDate:      "12/29/2025",
		TicketType:     models.TicketSignature,
		Wellness:       "Spa",
		JotformWaiver:  "Verified",
	}
	if g != want {
		t.Fatalf("got  %+v\nwant %+v", g, want)
	}
}

func TestNormalizeRowMissingOrder(t *testing.T) {
	g, issues := NormalizeRow(Row{"Billing First": "Amy"})
	if g.OrderNumber != "" || len(issues) != 1 {
		t.Fatalf("g = %+v issues = %+v", g, issues)
	}
	if err := issues[0].Err(); CodeOf(err) != CodeImportValidationFailure {
		t.Fatalf("issue err = %v", err)
	}
}

func TestFormatUSDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"46018", "12/27/2025"},
		{"46023", "01/01/2026"},
		{"2025-12-28", "12/28/2025"},
		{"1/3/2026", "01/03/2026"},
		{"", ""},
		{" TBD ", "TBD"},
	}
	for _, tt := range tests {
		if got := FormatUSDate(tt.in); got != tt.want {
			t.Errorf("FormatUSDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDatedSheet(t *testing.T) {
	tests := map[string]bool{
		"Sat Dec 27":       true,
		"Saturday, Dec 27": true,
		"12/27/2025":       true,
		"Jan 2":            true,
		"RAW":              false,
		"Summary":          false,
	}
	for name, want := range tests {
		if got := IsDatedSheet(name); got != want {
			t.Errorf("IsDatedSheet(%q) = %v", name, got)
		}
	}
}

func TestParseMarker(t *testing.T) {
	for _, v := range []string{"TRUE", "true", " True ", "1"} {
		if !ParseMarker(v) {
			t.Errorf("ParseMarker(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "FALSE", "x", "yes"} {
		if ParseMarker(v) {
			t.Errorf("ParseMarker(%q) = true", v)
		}
	}
}

func TestQuickImport(t *testing.T) {
	rows := ParseQuickImport("Amy, Lee, Lodge\n\n  Ben,Cho\n,,\n")
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	now := time.Date(2025, 12, 27, 10, 0, 0, 0, time.UTC)
	guests := BuildQuickImport(rows, now)

	if g := guests[0]; g.BillingFirst != "Amy" || g.Hotel != "Lodge" || g.Email != "amy@example.com" {
		t.Fatalf("first = %+v", g)
	}
	if g := guests[1]; g.Hotel != "TBD" || g.BillingLast != "Cho" {
		t.Fatalf("second = %+v", g)
	}
	if g := guests[2]; g.BillingFirst != "Unknown" || g.BillingLast != "Guest" || g.Email != "guest@example.com" {
		t.Fatalf("third = %+v", g)
	}
	seen := map[string]bool{}
	for _, g := range guests {
		if !strings.HasPrefix(g.OrderNumber, "IMP") || seen[g.OrderNumber] {
			t.Fatalf("order number %q", g.OrderNumber)
		}
		seen[g.OrderNumber] = true
		if g.Status != models.StatusPending || g.TicketType != models.TicketSignature {
			t.Fatalf("defaults = %+v", g)
		}
	}
}

func TestParseTeamCSV(t *testing.T) {
	in := "Email Address,Full Name,Role\n" +
		"Sam@Example.com, Sam Park ,Admin\n" +
		"bad-email,Nope,staff\n" +
		",,\n" +
		"lee@example.com,Lee,\n"
	rows, issues, err := ParseTeamCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || len(issues) != 1 {
		t.Fatalf("rows = %+v issues = %+v", rows, issues)
	}
	if r := rows[0]; r.Email != "sam@example.com" || r.Name != "Sam Park" || r.Role != models.RoleAdmin || r.Line != 2 {
		t.Fatalf("row 0 = %+v", r)
	}
	if r := rows[1]; r.Role != models.RoleStaff || r.Line != 5 {
		t.Fatalf("row 1 = %+v", r)
	}
	if issues[0].Row != 3 {
		t.Fatalf("issue = %+v", issues[0])
	}

	if _, _, err := ParseTeamCSV(strings.NewReader("name,role\nx,y\n")); CodeOf(err) != CodeImportValidationFailure {
		t.Fatalf("no email column: err = %v", err)
	}
	if _, _, err := ParseTeamCSV(strings.NewReader("")); CodeOf(err) != CodeImportValidationFailure {
		t.Fatalf("empty: err = %v", err)
	}
}
