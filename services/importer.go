package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"checkin-backend/models"
)

const (
	DefaultRawSheet = "RAW"
	DefaultEvent    = "BSB Into The Millennium"
	usDateLayout    = "01/02/2006"
)

// Column synonyms, resolved first non-empty wins.
var (
	colOrder       = []string{"Order #", "Order Number", "Order"}
	colEmail       = []string{"Email", "Billing Email"}
	colFirst       = []string{"Billing First", "First Name"}
	colLast        = []string{"Billing Last", "Last Name"}
	colPhone       = []string{"Billing Phone", "Phone"}
	colHotel       = []string{"Hotel", "Hotel Name"}
	colCheckInDate = []string{"Check In Date", "Check-In Date", "Checkin Date"}
	colTier        = []string{"Ticket Tier #1 Name", "Ticket Tier"}
	colQuantity    = []string{"Ticket Tier #1 Quantity", "Quantity"}
	colEventDate   = []string{"Event Date"}
	colTicketType  = []string{"Ticket Type"}
	colWellness    = []string{"Wellness"}
	colGondola     = []string{"Gondola Addon", "Gondola"}
	colWaiver      = []string{"Jotform Waiver"}
	colEvent       = []string{"Event"}
)

// Marker columns on the per-day check-in sheets.
var markerColumns = map[models.Field][]string{
	models.FieldChecked:        {"Select", "Checked", "Check In", "Checked In"},
	models.FieldLaminatePickUp: {"Laminate Pick Up", "Laminate", "Laminate PU"},
	models.FieldIDChecked:      {"ID Checked", "ID Check", "ID"},
	models.FieldGondola:        {"Gondola PU"},
	models.FieldWellnessPU:     {"Wellness PU"},
}

var datedSheetPattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

// NormalizeOrderNumber trims whitespace and a leading '#'.
func NormalizeOrderNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	return strings.TrimSpace(s)
}

// IsDatedSheet recognizes the per-day check-in sheet names used in the
// event workbook, e.g. "Sat Dec 27", "12/27/2025" or "Saturday, Dec 27".
func IsDatedSheet(name string) bool {
	for _, m := range []string{"Dec", "Jan", "Feb", "day,"} {
		if strings.Contains(name, m) {
			return true
		}
	}
	return datedSheetPattern.MatchString(name)
}

// ParseMarker normalizes the spreadsheet forms of a checkbox into a bool.
func ParseMarker(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "true") || v == "1"
}

// FormatUSDate renders an Excel serial or any parseable date as MM/DD/YYYY.
// Anything else is returned trimmed and unchanged.
func FormatUSDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial < 1 {
			return v
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return v
		}
		return t.Format(usDateLayout)
	}
	if t, ok := ParseEventDate(v); ok {
		return t.Format(usDateLayout)
	}
	return v
}

// Row is one spreadsheet row keyed by trimmed header text.
type Row map[string]string

// Pick returns the first non-empty value among the candidate columns. Exact
// header matches win over case-insensitive ones.
func (r Row) Pick(candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	for _, c := range candidates {
		for k, v := range r {
			if strings.EqualFold(k, c) {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// RowsFromGrid turns a header row plus data rows into Rows. Blank rows are
// dropped; short rows are padded with empty cells.
func RowsFromGrid(grid [][]string) []Row {
	if len(grid) == 0 {
		return nil
	}
	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := Row{}
		blank := true
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			row[h] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}

// ImportIssue is a per-row problem. The row is skipped or defaulted and the
// import carries on.
type ImportIssue struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (i ImportIssue) Err() *Error {
	return &Error{
		Code:     i.Code,
		Message:  i.Message,
		Metadata: map[string]string{"sheet": i.Sheet, "row": strconv.Itoa(i.Row)},
	}
}

// ImportResult is the outcome of a workbook import.
type ImportResult struct {
	Guests      []models.GuestRecord `json:"guests"`
	Issues      []ImportIssue        `json:"issues"`
	DatedSheets []string             `json:"datedSheets"`
	Backfilled  int                  `json:"backfilled"`
}

// Importer converts the event spreadsheet into guest records.
type Importer struct {
	log zerolog.Logger
}

func NewImporter(log zerolog.Logger) *Importer {
	return &Importer{log: log.With().Str("component", "importer").Logger()}
}

// ImportWorkbook reads an xlsx workbook: the raw sheet (RAW when empty)
// holds one row per order and any dated sheet contributes check-in markers.
func (im *Importer) ImportWorkbook(r io.Reader, rawSheet string) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, WrapError(CodeInvalidArgument, "open workbook", err)
	}
	defer f.Close()

	rawName := strings.TrimSpace(rawSheet)
	if rawName == "" {
		rawName = DefaultRawSheet
	}
	if idx, err := f.GetSheetIndex(rawName); err != nil || idx < 0 {
		return ImportResult{}, invalid("workbook has no %q sheet", rawName)
	}

	// Raw cell values keep dates as serials so they format the same way
	// regardless of the cell's number format.
	opts := excelize.Options{RawCellValue: true}
	grid, err := f.GetRows(rawName, opts)
	if err != nil {
		return ImportResult{}, WrapError(CodeInvalidArgument, "read "+rawName, err)
	}

	dated := map[string][]Row{}
	var order []string
	for _, name := range f.GetSheetList() {
		if name == rawName || !IsDatedSheet(name) {
			continue
		}
		g, err := f.GetRows(name, opts)
		if err != nil {
			im.log.Warn().Err(err).Str("sheet", name).Msg("skipping unreadable sheet")
			continue
		}
		dated[name] = RowsFromGrid(g)
		order = append(order, name)
	}

	return im.ImportRows(rawName, RowsFromGrid(grid), order, dated), nil
}

// ImportRows normalizes already-split rows. datedOrder fixes the order in
// which dated sheets are reported.
func (im *Importer) ImportRows(sheet string, raw []Row, datedOrder []string, dated map[string][]Row) ImportResult {
	res := ImportResult{Guests: []models.GuestRecord{}, Issues: []ImportIssue{}, DatedSheets: []string{}}
	seen := map[string]int{}

	for i, row := range raw {
		// Header is spreadsheet row 1.
		rowNum := i + 2
		g, issues := NormalizeRow(row)
		for _, is := range issues {
			is.Sheet, is.Row = sheet, rowNum
			res.Issues = append(res.Issues, is)
		}
		if g.OrderNumber == "" {
			continue
		}
		if _, dup := seen[g.OrderNumber]; dup {
			res.Issues = append(res.Issues, ImportIssue{
				Sheet: sheet, Row: rowNum, Code: CodeImportValidationFailure,
				Message: fmt.Sprintf("duplicate order %s, keeping the first row", g.OrderNumber),
			})
			continue
		}
		g.ID = fmt.Sprintf("guest-%d", len(res.Guests)+1)
		seen[g.OrderNumber] = len(res.Guests)
		res.Guests = append(res.Guests, g)
	}

	marks := map[string]map[models.Field]bool{}
	for _, name := range datedOrder {
		res.DatedSheets = append(res.DatedSheets, name)
		for _, row := range dated[name] {
			order := NormalizeOrderNumber(row.Pick(colOrder...))
			if order == "" {
				continue
			}
			for field, cols := range markerColumns {
				if !ParseMarker(row.Pick(cols...)) {
					continue
				}
				if marks[order] == nil {
					marks[order] = map[models.Field]bool{}
				}
				marks[order][field] = true
			}
		}
	}

	for order, fields := range marks {
		i, ok := seen[order]
		if !ok {
			continue
		}
		for field := range fields {
			res.Guests[i].SetFlag(field, true)
		}
		res.Backfilled++
	}

	im.log.Info().
		Int("guests", len(res.Guests)).
		Int("issues", len(res.Issues)).
		Int("dated_sheets", len(res.DatedSheets)).
		Int("backfilled", res.Backfilled).
		Msg("workbook imported")
	return res
}

// NormalizeRow maps one raw row to a guest record with every workflow flag
// at its default. A row without an order number yields an empty
// OrderNumber plus an issue.
func NormalizeRow(row Row) (models.GuestRecord, []ImportIssue) {
	var issues []ImportIssue

	g := models.GuestRecord{
		OrderNumber:    NormalizeOrderNumber(row.Pick(colOrder...)),
		Event:          orDefault(row.Pick(colEvent...), DefaultEvent),
		Email:          row.Pick(colEmail...),
		BillingFirst:   row.Pick(colFirst...),
		BillingLast:    row.Pick(colLast...),
		BillingPhone:   row.Pick(colPhone...),
		Hotel:          row.Pick(colHotel...),
		CheckInDate:    FormatUSDate(row.Pick(colCheckInDate...)),
		TicketTierName: row.Pick(colTier...),
		Quantity:       parseQuantity(row.Pick(colQuantity...)),
		EventDate:      FormatUSDate(row.Pick(colEventDate...)),
		TicketType:     orDefault(row.Pick(colTicketType...), models.TicketSignature),
		Wellness:       addonValue(row.Pick(colWellness...)),
		GondolaAddon:   addonValue(row.Pick(colGondola...)),
		JotformWaiver:  waiverValue(row.Pick(colWaiver...)),
	}
	g.SyncStatus()

	if g.OrderNumber == "" {
		issues = append(issues, ImportIssue{Code: CodeImportValidationFailure, Message: "row has no order number"})
		return g, issues
	}
	if g.Email != "" {
		if _, err := mail.ParseAddress(g.Email); err != nil {
			issues = append(issues, ImportIssue{
				Code:    CodeImportValidationFailure,
				Message: fmt.Sprintf("order %s: email %q is not valid", g.OrderNumber, g.Email),
			})
		}
	}
	return g, issues
}

func parseQuantity(v string) int {
	if v == "" {
		return 1
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 1 {
		return 1
	}
	return int(n)
}

// addonValue drops spreadsheet falsy markers so an unchecked box does not
// read as a purchase.
func addonValue(v string) string {
	switch strings.ToLower(v) {
	case "false", "0", "no", "none", "n/a":
		return ""
	}
	return v
}

func waiverValue(v string) string {
	switch strings.ToLower(v) {
	case "false", "0", "no":
		return ""
	case "true", "1", "yes":
		return WaiverSigned
	}
	return v
}

// ParseQuickImport reads "first,last,hotel" lines. Blank lines are ignored.
func ParseQuickImport(text string) []QuickImportRow {
	var rows []QuickImportRow
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		rows = append(rows, QuickImportRow{First: parts[0], Last: parts[1], Hotel: parts[2]})
	}
	return rows
}

// BuildQuickImport turns quick-import rows into manual guest records.
func BuildQuickImport(rows []QuickImportRow, now time.Time) []models.GuestRecord {
	out := make([]models.GuestRecord, 0, len(rows))
	for i, r := range rows {
		out = append(out, NewManualGuest(r, i, now))
	}
	return out
}

// TeamCSVRow is one member line from a team CSV upload.
type TeamCSVRow struct {
	Line  int
	Email string
	Name  string
	Role  string
}

// ParseTeamCSV reads a CSV whose header has columns containing "email",
// "name" and optionally "role". Rows with an invalid email are reported and
// skipped.
func ParseTeamCSV(r io.Reader) ([]TeamCSVRow, []ImportIssue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, NewError(CodeImportValidationFailure, "csv is empty")
	}
	if err != nil {
		return nil, nil, WrapError(CodeImportValidationFailure, "read csv header", err)
	}

	emailCol, nameCol, roleCol := -1, -1, -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case emailCol < 0 && strings.Contains(h, "email"):
			emailCol = i
		case nameCol < 0 && strings.Contains(h, "name"):
			nameCol = i
		case roleCol < 0 && strings.Contains(h, "role"):
			roleCol = i
		}
	}
	if emailCol < 0 {
		return nil, nil, NewError(CodeImportValidationFailure, "csv header has no email column")
	}

	cell := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []TeamCSVRow
	var issues []ImportIssue
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			issues = append(issues, ImportIssue{Sheet: "csv", Row: line, Code: CodeImportValidationFailure, Message: err.Error()})
			continue
		}
		email := cell(rec, emailCol)
		if email == "" && cell(rec, nameCol) == "" {
			continue
		}
		if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
			issues = append(issues, ImportIssue{
				Sheet: "csv", Row: line, Code: CodeImportValidationFailure,
				Message: fmt.Sprintf("invalid email %q", email),
			})
			continue
		}
		rows = append(rows, TeamCSVRow{
			Line:  line,
			Email: models.NormalizeEmail(email),
			Name:  cell(rec, nameCol),
			Role:  models.NormalizeRole(cell(rec, roleCol)),
		})
	}
	return rows, issues, nil
}
