package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"checkin-backend/models"
)

// UnknownGroup buckets records whose event date is missing or unparseable.
const UnknownGroup = "Unknown"

var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2006/01/02",
	"2006.01.02",
}

// ParseEventDate reads MM/DD/YYYY or YYYY-MM-DD, falling back to a set of
// common layouts. The result is midnight UTC of the calendar date.
func ParseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if strings.Contains(s, "/") {
		if parts := strings.Split(s, "/"); len(parts) == 3 {
			if t, ok := dateFromParts(parts[2], parts[0], parts[1]); ok {
				return t, true
			}
		}
	} else if parts := strings.Split(s, "-"); len(parts) == 3 {
		if t, ok := dateFromParts(parts[0], parts[1], parts[2]); ok {
			return t, true
		}
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func dateFromParts(y, m, d string) (time.Time, bool) {
	year, err1 := strconv.Atoi(strings.TrimSpace(y))
	month, err2 := strconv.Atoi(strings.TrimSpace(m))
	day, err3 := strconv.Atoi(strings.TrimSpace(d))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	// time.Date normalizes overflow (13/01 rolls into the next year), the
	// same way spreadsheet exports are interpreted by the dashboard.
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// WeekKey returns "{year}-W{nn}" for Sunday-anchored calendar weeks:
// ceil((dayOfYear + weekday(Jan 1) + 1) / 7), dayOfYear zero based.
// These are not ISO-8601 weeks.
func WeekKey(t time.Time) string {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := t.YearDay() - 1
	week := (days + int(jan1.Weekday()) + 1 + 6) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// WeekKeyOf parses an event date and returns its week key or UnknownGroup.
func WeekKeyOf(eventDate string) string {
	t, ok := ParseEventDate(eventDate)
	if !ok {
		return UnknownGroup
	}
	return WeekKey(t)
}

// WeekLabel renders a week key as "Week of Dec 28 - Jan 3".
func WeekLabel(key string) string {
	year, week, ok := splitWeekKey(key)
	if !ok {
		return "Unknown Date"
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start := jan1.AddDate(0, 0, (week-1)*7-int(jan1.Weekday()))
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("Week of %s - %s", start.Format("Jan 2"), end.Format("Jan 2"))
}

func splitWeekKey(key string) (int, int, bool) {
	y, w, found := strings.Cut(key, "-W")
	if !found {
		return 0, 0, false
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, false
	}
	week, err := strconv.Atoi(w)
	if err != nil || week < 1 {
		return 0, 0, false
	}
	return year, week, true
}

// GroupByEventDate keys guests by their raw event date string.
func GroupByEventDate(guests []models.GuestRecord) map[string][]models.GuestRecord {
	groups := map[string][]models.GuestRecord{}
	for _, g := range guests {
		key := g.EventDate
		if key == "" {
			key = UnknownGroup
		}
		groups[key] = append(groups[key], g)
	}
	return groups
}

// GroupByWeek keys guests by WeekKeyOf(eventDate).
func GroupByWeek(guests []models.GuestRecord) map[string][]models.GuestRecord {
	groups := map[string][]models.GuestRecord{}
	for _, g := range guests {
		key := WeekKeyOf(g.EventDate)
		groups[key] = append(groups[key], g)
	}
	return groups
}

// AccessGroups splits guests by ticket access.
type AccessGroups struct {
	VIP       []models.GuestRecord
	Signature []models.GuestRecord
}

// IsReportingVIP matches VIP ignoring case. Search uses an exact match.
func IsReportingVIP(g models.GuestRecord) bool {
	return strings.EqualFold(g.TicketType, models.TicketVIP)
}

func GroupByAccessType(guests []models.GuestRecord) AccessGroups {
	var out AccessGroups
	for _, g := range guests {
		if IsReportingVIP(g) {
			out.VIP = append(out.VIP, g)
		} else {
			out.Signature = append(out.Signature, g)
		}
	}
	return out
}

// Metric is count out of total with a one-decimal percentage.
type Metric struct {
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func newMetric(count, total int) Metric {
	return Metric{Count: count, Total: total, Percentage: percentage(count, total)}
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// Stats are the workflow completion metrics for one group of guests. The
// add-on metrics are scoped to guests who bought the add-on.
type Stats struct {
	Total            int    `json:"total"`
	WaiverSigned     Metric `json:"waiverSigned"`
	IDChecked        Metric `json:"idChecked"`
	CheckedIn        Metric `json:"checkedIn"`
	LaminatePickedUp Metric `json:"laminatePickedUp"`
	GondolaPickedUp  Metric `json:"gondolaPickedUp"`
	WellnessPickedUp Metric `json:"wellnessPickedUp"`
}

// CalculateStats returns nil for an empty list.
func CalculateStats(guests []models.GuestRecord) *Stats {
	total := len(guests)
	if total == 0 {
		return nil
	}
	var waiver, id, checked, laminate, gondolaTotal, gondola, wellnessTotal, wellness int
	for _, g := range guests {
		if g.HasWaiver() {
			waiver++
		}
		if g.IDChecked {
			id++
		}
		if g.Checked {
			checked++
		}
		if g.LaminatePickUp {
			laminate++
		}
		if g.HasGondola() {
			gondolaTotal++
			if g.Gondola {
				gondola++
			}
		}
		if g.HasWellness() {
			wellnessTotal++
			if g.WellnessPU {
				wellness++
			}
		}
	}
	return &Stats{
		Total:            total,
		WaiverSigned:     newMetric(waiver, total),
		IDChecked:        newMetric(id, total),
		CheckedIn:        newMetric(checked, total),
		LaminatePickedUp: newMetric(laminate, total),
		GondolaPickedUp:  newMetric(gondola, gondolaTotal),
		WellnessPickedUp: newMetric(wellness, wellnessTotal),
	}
}

// AccessBreakdown is CalculateStats per access type.
type AccessBreakdown struct {
	VIP       *Stats `json:"VIP,omitempty"`
	Signature *Stats `json:"Signature,omitempty"`
}

func accessBreakdown(guests []models.GuestRecord) AccessBreakdown {
	groups := GroupByAccessType(guests)
	return AccessBreakdown{
		VIP:       CalculateStats(groups.VIP),
		Signature: CalculateStats(groups.Signature),
	}
}

// FilterByDateRange keeps guests with a parseable event date inside
// [start, end]. A nil bound does not restrict.
func FilterByDateRange(guests []models.GuestRecord, start, end *time.Time) []models.GuestRecord {
	out := []models.GuestRecord{}
	for _, g := range guests {
		d, ok := ParseEventDate(g.EventDate)
		if !ok {
			continue
		}
		if start != nil && d.Before(*start) {
			continue
		}
		if end != nil && d.After(*end) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// FilterByWeek keeps guests with a parseable date in the given week. An
// empty key keeps every dated guest.
func FilterByWeek(guests []models.GuestRecord, week string) []models.GuestRecord {
	out := []models.GuestRecord{}
	for _, g := range guests {
		d, ok := ParseEventDate(g.EventDate)
		if !ok {
			continue
		}
		if week != "" && WeekKey(d) != week {
			continue
		}
		out = append(out, g)
	}
	return out
}

// AvailableWeeks lists the distinct week keys of dated guests, ascending.
func AvailableWeeks(guests []models.GuestRecord) []string {
	seen := map[string]struct{}{}
	for _, g := range guests {
		if d, ok := ParseEventDate(g.EventDate); ok {
			seen[WeekKey(d)] = struct{}{}
		}
	}
	weeks := make([]string, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	return weeks
}

type ReportMode string

const (
	ReportAll   ReportMode = "all"
	ReportWeek  ReportMode = "week"
	ReportRange ReportMode = "range"
)

type ReportFilter struct {
	Mode  ReportMode `json:"mode"`
	Week  string     `json:"week,omitempty"`
	Start string     `json:"start,omitempty"`
	End   string     `json:"end,omitempty"`
}

// Apply narrows guests according to the filter.
func (f ReportFilter) Apply(guests []models.GuestRecord) ([]models.GuestRecord, error) {
	switch f.Mode {
	case "", ReportAll:
		return guests, nil
	case ReportWeek:
		return FilterByWeek(guests, f.Week), nil
	case ReportRange:
		start, err := optionalDate("start", f.Start)
		if err != nil {
			return nil, err
		}
		end, err := optionalDate("end", f.End)
		if err != nil {
			return nil, err
		}
		return FilterByDateRange(guests, start, end), nil
	}
	return nil, invalid("unknown report mode %q", f.Mode)
}

func optionalDate(name, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, ok := ParseEventDate(s)
	if !ok {
		return nil, invalid("%s date %q is not a date", name, s)
	}
	return &t, nil
}

type DateSection struct {
	Date   string          `json:"date"`
	Stats  *Stats          `json:"stats"`
	Access AccessBreakdown `json:"access"`
}

type WeekSection struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Stats  *Stats          `json:"stats"`
	Access AccessBreakdown `json:"access"`
	Dates  []DateSection   `json:"dates"`
}

// Report is the all -> week -> date aggregation shown on the reports tab.
type Report struct {
	Filter         ReportFilter    `json:"filter"`
	Overall        *Stats          `json:"overall"`
	Access         AccessBreakdown `json:"access"`
	Weeks          []WeekSection   `json:"weeks"`
	AvailableWeeks []string        `json:"availableWeeks"`
}

// BuildReport recomputes every level from the given snapshot.
func BuildReport(guests []models.GuestRecord, f ReportFilter) (Report, error) {
	filtered, err := f.Apply(guests)
	if err != nil {
		return Report{}, err
	}
	if f.Mode == "" {
		f.Mode = ReportAll
	}

	rep := Report{
		Filter:         f,
		Overall:        CalculateStats(filtered),
		Access:         accessBreakdown(filtered),
		Weeks:          []WeekSection{},
		AvailableWeeks: AvailableWeeks(guests),
	}

	byWeek := GroupByWeek(filtered)
	keys := make([]string, 0, len(byWeek))
	for k := range byWeek {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		weekGuests := byWeek[key]
		section := WeekSection{
			Key:    key,
			Label:  WeekLabel(key),
			Stats:  CalculateStats(weekGuests),
			Access: accessBreakdown(weekGuests),
		}
		byDate := GroupByEventDate(weekGuests)
		for _, date := range sortedDateKeys(byDate) {
			section.Dates = append(section.Dates, DateSection{
				Date:   date,
				Stats:  CalculateStats(byDate[date]),
				Access: accessBreakdown(byDate[date]),
			})
		}
		rep.Weeks = append(rep.Weeks, section)
	}
	return rep, nil
}

// sortedDateKeys orders raw date keys chronologically; unparseable keys
// follow in string order.
func sortedDateKeys(groups map[string][]models.GuestRecord) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, oki := ParseEventDate(keys[i])
		tj, okj := ParseEventDate(keys[j])
		switch {
		case oki && okj:
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return keys[i] < keys[j]
		case oki != okj:
			return oki
		}
		return keys[i] < keys[j]
	})
	return keys
}
