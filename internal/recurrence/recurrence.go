// Package recurrence parses and formats the compact recurrence grammar used
// by calendar create:
//
//	daily[:<termination>]
//	weekly:<day>[,<day>...][:<termination>]
//	monthly:day:<1-31>[:<termination>]
//
// where <termination> is "until:<YYYY-MM-DD>" or "count:<n>". Without a
// termination the pattern repeats forever.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/daviddao/outlookctl/internal/errs"
)

// Frequency is how often a pattern repeats.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Weekdays is a bit set keyed by 1<<time.Weekday. The bit values are the
// same as Outlook's DayOfWeekMask (Sunday=1 ... Saturday=64).
type Weekdays uint8

// Has reports whether d is in the set.
func (w Weekdays) Has(d time.Weekday) bool { return w&(1<<d) != 0 }

// With returns the set plus d.
func (w Weekdays) With(d time.Weekday) Weekdays { return w | 1<<d }

// Days lists the members in Sunday..Saturday order.
func (w Weekdays) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// DaysOf builds a set from individual weekdays.
func DaysOf(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w = w.With(d)
	}
	return w
}

// Date is a calendar date with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DateOf extracts the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// TerminationKind says how a pattern ends.
type TerminationKind int

const (
	NoEnd TerminationKind = iota
	EndUntil
	EndCount
)

// Termination ends a pattern on a date or after a number of occurrences.
type Termination struct {
	Kind  TerminationKind
	Until Date
	Count int
}

// Pattern is a parsed recurrence.
type Pattern struct {
	Frequency   Frequency
	Days        Weekdays // weekly only
	DayOfMonth  int      // monthly only
	Termination Termination
}

var dayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func invalid(format string, args ...any) error {
	return errs.New(errs.Validation, "recurrence", format, args...).
		WithHint("Use e.g. 'daily', 'weekly:monday,wednesday:until:2025-12-31' or 'monthly:day:15:count:6'.")
}

// Parse reads a pattern from its grammar string.
func Parse(s string) (Pattern, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || parts[0] == "" {
		return Pattern{}, invalid("empty recurrence pattern")
	}

	var p Pattern
	rest := parts[1:]
	switch Frequency(strings.ToLower(parts[0])) {
	case Daily:
		p.Frequency = Daily
	case Weekly:
		p.Frequency = Weekly
		if len(rest) == 0 || rest[0] == "" {
			return Pattern{}, invalid("weekly pattern needs at least one weekday")
		}
		for _, name := range strings.Split(rest[0], ",") {
			d, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return Pattern{}, invalid("unknown weekday %q", name)
			}
			p.Days = p.Days.With(d)
		}
		rest = rest[1:]
	case Monthly:
		p.Frequency = Monthly
		if len(rest) < 2 || strings.ToLower(rest[0]) != "day" {
			return Pattern{}, invalid("monthly pattern must be monthly:day:<1-31>")
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil || n < 1 || n > 31 {
			return Pattern{}, invalid("day of month must be between 1 and 31, got %q", rest[1])
		}
		p.DayOfMonth = n
		rest = rest[2:]
	default:
		return Pattern{}, invalid("unknown frequency %q", parts[0])
	}

	term, err := parseTermination(rest)
	if err != nil {
		return Pattern{}, err
	}
	p.Termination = term
	return p, nil
}

func parseTermination(parts []string) (Termination, error) {
	switch len(parts) {
	case 0:
		return Termination{Kind: NoEnd}, nil
	case 2:
	default:
		return Termination{}, invalid("termination must be until:<date> or count:<n>")
	}

	switch strings.ToLower(parts[0]) {
	case "until":
		t, err := time.Parse(time.DateOnly, parts[1])
		if err != nil {
			return Termination{}, invalid("until date %q is not YYYY-MM-DD", parts[1])
		}
		return Termination{Kind: EndUntil, Until: DateOf(t)}, nil
	case "count":
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return Termination{}, invalid("count must be a positive integer, got %q", parts[1])
		}
		return Termination{Kind: EndCount, Count: n}, nil
	default:
		return Termination{}, invalid("unknown termination %q", parts[0])
	}
}

// String formats p in the grammar Parse reads.
func (p Pattern) String() string {
	var b strings.Builder
	b.WriteString(string(p.Frequency))
	switch p.Frequency {
	case Weekly:
		names := make([]string, 0, 7)
		for _, d := range p.Days.Days() {
			names = append(names, strings.ToLower(d.String()))
		}
		b.WriteString(":" + strings.Join(names, ","))
	case Monthly:
		fmt.Fprintf(&b, ":day:%d", p.DayOfMonth)
	}
	switch p.Termination.Kind {
	case EndUntil:
		b.WriteString(":until:" + p.Termination.Until.String())
	case EndCount:
		fmt.Fprintf(&b, ":count:%d", p.Termination.Count)
	}
	return b.String()
}

// Validate checks a pattern built in code rather than parsed.
func (p Pattern) Validate() error {
	_, err := Parse(p.String())
	return err
}

// matches reports whether the calendar day of t is an occurrence day.
func (p Pattern) matches(t time.Time) bool {
	switch p.Frequency {
	case Weekly:
		return p.Days.Has(t.Weekday())
	case Monthly:
		// Months shorter than DayOfMonth use their last day.
		last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
		return t.Day() == min(p.DayOfMonth, last)
	default:
		return true
	}
}

// Occurrences returns the start times of the series that begins at first
// and that fall in [from, to], keeping first's time of day. A weekly or
// monthly series starts on the first matching day on or after first. At
// most limit times are returned.
func (p Pattern) Occurrences(first, from, to time.Time, limit int) []time.Time {
	var out []time.Time
	n := 0
	for day := 0; len(out) < limit; day++ {
		t := first.AddDate(0, 0, day)
		if t.After(to) {
			break
		}
		if p.Termination.Kind == EndUntil && DateOf(t).after(p.Termination.Until) {
			break
		}
		if !p.matches(t) {
			continue
		}
		n++
		if p.Termination.Kind == EndCount && n > p.Termination.Count {
			break
		}
		if !t.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

func (d Date) after(o Date) bool {
	if d.Year != o.Year {
		return d.Year > o.Year
	}
	if d.Month != o.Month {
		return d.Month > o.Month
	}
	return d.Day > o.Day
}
