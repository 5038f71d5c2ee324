// Package datehint turns relative date phrases ("today", "last week") into
// calendar ranges used to scope memory retrieval.
package datehint

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// Range is an inclusive calendar-date range. A zero Start or End means the
// bound is absent.
type Range struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether t falls on a date within the range. Absent bounds
// are open.
func (r Range) Contains(t time.Time) bool {
	d := dateOf(t.In(r.location()))
	if !r.Start.IsZero() && d.Before(dateOf(r.Start)) {
		return false
	}
	if !r.End.IsZero() && d.After(dateOf(r.End)) {
		return false
	}
	return true
}

func (r Range) location() *time.Location {
	switch {
	case !r.Start.IsZero():
		return r.Start.Location()
	case !r.End.IsZero():
		return r.End.Location()
	default:
		return time.Local
	}
}

// String renders the range as "start..end".
func (r Range) String() string {
	return fmt.Sprintf("%s..%s", formatDate(r.Start), formatDate(r.End))
}

type rangeJSON struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// MarshalJSON encodes the range as {"startDate","endDate"} calendar dates.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeJSON{StartDate: formatDate(r.Start), EndDate: formatDate(r.End)})
}

// UnmarshalJSON decodes calendar dates in DateLayout; empty fields stay zero.
func (r *Range) UnmarshalJSON(b []byte) error {
	var raw rangeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return fmt.Errorf("startDate: %w", err)
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return fmt.Errorf("endDate: %w", err)
	}
	r.Start, r.End = start, end
	return nil
}

// ParseDate parses a DateLayout string. The empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, s, time.Local)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Extractor maps text to a Range relative to the current date.
type Extractor struct {
	// WeekStart is the first day of a week.
	WeekStart time.Weekday
	// Now returns the current time; its location defines "today".
	Now func() time.Time
}

// New returns an Extractor with the given week start using the wall clock
// in loc. A nil loc means time.Local.
func New(weekStart time.Weekday, loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{
		WeekStart: weekStart,
		Now:       func() time.Time { return time.Now().In(loc) },
	}
}

// ParseWeekday parses "sunday" or "monday" style names.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("datehint: unknown weekday %q", s)
}

type phrase struct {
	re   *regexp.Regexp
	span func(today time.Time, weekStart time.Weekday) Range
}

// phrases are tried in order; the first match wins.
var phrases = []phrase{
	{regexp.MustCompile(`\btoday\b`), func(today time.Time, _ time.Weekday) Range {
		return Range{Start: today, End: today}
	}},
	{regexp.MustCompile(`\byesterday\b`), func(today time.Time, _ time.Weekday) Range {
		y := today.AddDate(0, 0, -1)
		return Range{Start: y, End: y}
	}},
	{regexp.MustCompile(`\bthis\s+week\b`), func(today time.Time, ws time.Weekday) Range {
		return Range{Start: startOfWeek(today, ws), End: today}
	}},
	{regexp.MustCompile(`\blast\s+week\b`), func(today time.Time, ws time.Weekday) Range {
		start := startOfWeek(today, ws)
		return Range{Start: start.AddDate(0, 0, -7), End: start.AddDate(0, 0, -1)}
	}},
	{regexp.MustCompile(`\bthis\s+month\b`), func(today time.Time, _ time.Weekday) Range {
		return Range{Start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), End: today}
	}},
	{regexp.MustCompile(`\blast\s+month\b`), func(today time.Time, _ time.Weekday) Range {
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return Range{Start: first.AddDate(0, -1, 0), End: first.AddDate(0, 0, -1)}
	}},
}

// Extract returns the range named by the first recognised phrase in text,
// or the zero Range when none matches.
func (e *Extractor) Extract(text string) Range {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return Range{}
	}

	now := time.Now
	if e != nil && e.Now != nil {
		now = e.Now
	}
	weekStart := time.Sunday
	if e != nil {
		weekStart = e.WeekStart
	}

	today := dateOf(now())
	for _, p := range phrases {
		if p.re.MatchString(t) {
			return p.span(today, weekStart)
		}
	}
	return Range{}
}

// startOfWeek returns the most recent weekStart on or before day.
func startOfWeek(day time.Time, weekStart time.Weekday) time.Time {
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}
