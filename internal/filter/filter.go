// Package filter evaluates mail search predicates.
//
// Backends get a native hint (automation.Query) and may apply any part of
// it. The full predicate is then re-applied here, results are ordered
// newest-first and the cap is applied last, so the outcome does not depend
// on how much the backend filtered natively.
package filter

import (
	"context"
	"strings"
	"time"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/record"
)

// Predicate is a conjunction of optional conditions. Zero values match
// everything.
type Predicate struct {
	From           string
	To             string
	CC             string
	Subject        string
	Text           string
	UnreadOnly     bool
	HasAttachments *bool
	// Since and Until are inclusive.
	Since time.Time
	Until time.Time
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyContains(addrs []string, needle string) bool {
	for _, a := range addrs {
		if contains(a, needle) {
			return true
		}
	}
	return false
}

// Match reports whether m satisfies every condition.
func (p Predicate) Match(m *automation.Mail) bool {
	if p.UnreadOnly && !m.Unread {
		return false
	}
	if p.HasAttachments != nil && (len(m.Attachments) > 0) != *p.HasAttachments {
		return false
	}
	if !p.Since.IsZero() && m.ReceivedAt.Before(p.Since) {
		return false
	}
	if !p.Until.IsZero() && m.ReceivedAt.After(p.Until) {
		return false
	}
	if p.From != "" && !contains(m.From.Email, p.From) && !contains(m.From.Name, p.From) {
		return false
	}
	if p.To != "" && !anyContains(m.Addresses(automation.To), p.To) {
		return false
	}
	if p.CC != "" && !anyContains(m.Addresses(automation.CC), p.CC) {
		return false
	}
	if p.Subject != "" && !contains(m.Subject, p.Subject) {
		return false
	}
	if p.Text != "" && !contains(m.Subject, p.Text) && !contains(m.Body, p.Text) {
		return false
	}
	return true
}

// textual reports conditions that some backend evaluates only
// approximately or not at all. From and Subject are passed as hints but
// no backend is required to apply them.
func (p Predicate) textual() bool {
	return p.From != "" || p.Subject != "" || p.Text != "" || p.To != "" || p.CC != "" || p.HasAttachments != nil
}

// Query is the native hint for p. The candidate cap is only passed down
// when p is made of date bounds and the unread flag, which every backend
// evaluates; a backend that widens a bound must still drop the cap.
func (p Predicate) Query(limit int) automation.Query {
	q := automation.Query{
		Since:      p.Since,
		Until:      p.Until,
		UnreadOnly: p.UnreadOnly,
		From:       p.From,
		Subject:    p.Subject,
	}
	if !p.textual() {
		q.Max = limit
	}
	return q
}

// Validate rejects inverted date bounds.
func (p Predicate) Validate() error {
	if !p.Since.IsZero() && !p.Until.IsZero() && p.Until.Before(p.Since) {
		return errs.New(errs.Validation, "search", "until %s is before since %s",
			p.Until.Format(time.RFC3339), p.Since.Format(time.RFC3339))
	}
	return nil
}

// Apply filters, orders and caps candidates in memory.
func Apply(candidates []automation.Mail, p Predicate, limit int) []automation.Mail {
	out := make([]automation.Mail, 0, len(candidates))
	for i := range candidates {
		if p.Match(&candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	record.SortMail(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Search pulls candidates from folder and returns at most limit matches,
// newest first.
func Search(ctx context.Context, c automation.MailClient, folder automation.Folder, p Predicate, limit int) ([]automation.Mail, error) {
	if limit < 1 {
		return nil, errs.New(errs.Validation, "search", "limit must be at least 1, got %d", limit)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	candidates, err := c.ListMail(ctx, folder, p.Query(limit))
	if err != nil {
		return nil, err
	}
	return Apply(candidates, p, limit), nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseBound reads a since/until value. A date-only value is the start of
// that day, or with endOfDay set, its last instant, so both bounds stay
// inclusive. Values without a zone are read in loc.
func ParseBound(s string, endOfDay bool, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		if endOfDay {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.New(errs.Validation, "parse date", "cannot parse %q; use YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
}
