// Package record maps host items onto the outlookctl JSON records.
//
// Optional fields (body, body_html, body_snippet, headers, event body) are
// only set when the caller asked for them. A nil pointer means the key is
// absent from the JSON object.
package record

import (
	"bufio"
	stdtextproto "net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message/textproto"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/types"
)

// DefaultSnippetChars is the snippet length used when none is configured.
const DefaultSnippetChars = 200

// DetailOptions selects what a detail record discloses.
type DetailOptions struct {
	IncludeBody    bool
	IncludeHeaders bool
	// MaxBodyChars cuts body and body_html when positive.
	MaxBodyChars int
}

// Timestamp renders t as ISO-8601, or "" for the zero time.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Truncate keeps at most n runes of s. It never adds an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Snippet is the first n runes of the trimmed plain body.
func Snippet(body string, n int) string {
	return strings.TrimSpace(Truncate(strings.TrimSpace(body), n))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Summarize builds the list shape. snippetChars > 0 adds body_snippet.
func Summarize(m *automation.Mail, snippetChars int) types.MessageSummary {
	s := types.MessageSummary{
		ID:             m.ID,
		ReceivedAt:     Timestamp(m.ReceivedAt),
		Subject:        m.Subject,
		From:           m.From,
		To:             m.Addresses(automation.To),
		CC:             m.Addresses(automation.CC),
		Unread:         m.Unread,
		HasAttachments: len(m.Attachments) > 0,
	}
	if snippetChars > 0 {
		snip := Snippet(m.Body, snippetChars)
		s.BodySnippet = &snip
	}
	return s
}

// Detail builds the single-message shape.
func Detail(m *automation.Mail, opts DetailOptions) types.MessageDetail {
	d := types.MessageDetail{
		ID:             m.ID,
		ReceivedAt:     Timestamp(m.ReceivedAt),
		Subject:        m.Subject,
		From:           m.From,
		To:             m.Addresses(automation.To),
		CC:             m.Addresses(automation.CC),
		BCC:            m.Addresses(automation.BCC),
		Unread:         m.Unread,
		HasAttachments: len(m.Attachments) > 0,
		Attachments:    nonNil(append([]string(nil), m.Attachments...)),
	}
	if opts.IncludeBody {
		body := Truncate(m.Body, opts.MaxBodyChars)
		d.Body = &body
		if m.HTMLBody != "" {
			html := Truncate(m.HTMLBody, opts.MaxBodyChars)
			d.BodyHTML = &html
		}
	}
	if opts.IncludeHeaders {
		h := ParseHeaders(m.RawHeaders)
		d.Headers = &h
	}
	return d
}

// ParseHeaders reads an RFC 5322 header block into a map. The first
// occurrence of a repeated field wins; folded values are unfolded.
func ParseHeaders(raw string) map[string]string {
	out := map[string]string{}
	raw = strings.TrimRight(raw, "\r\n\t ")
	if raw == "" {
		return out
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\n", "\r\n") + "\r\n\r\n"

	h, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		return out
	}
	fields := h.Fields()
	for fields.Next() {
		key := stdtextproto.CanonicalMIMEHeaderKey(fields.Key())
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = strings.Join(strings.Fields(h.Get(key)), " ")
	}
	return out
}

// SortMail orders newest-first, ties by id.
func SortMail(items []automation.Mail) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.After(b.ReceivedAt)
		}
		return a.ID.Less(b.ID)
	})
}

// SortEvents orders newest-first by start, ties by id.
func SortEvents(items []automation.Event) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.After(b.Start)
		}
		return a.ID.Less(b.ID)
	})
}

// IsDraftEvent reports a meeting whose invitations have not gone out.
func IsDraftEvent(e *automation.Event) bool {
	return e.IsMeeting && !e.InvitesSent
}

// SummarizeEvent builds the calendar list shape.
func SummarizeEvent(e *automation.Event) types.EventSummary {
	return types.EventSummary{
		ID:             e.ID,
		Subject:        e.Subject,
		Start:          Timestamp(e.Start),
		End:            Timestamp(e.End),
		Location:       e.Location,
		Organizer:      e.Organizer,
		IsRecurring:    e.IsRecurring || e.Recurrence != nil,
		IsAllDay:       e.AllDay,
		IsMeeting:      e.IsMeeting,
		IsDraft:        IsDraftEvent(e),
		ResponseStatus: e.ResponseStatus,
		BusyStatus:     e.BusyStatus,
	}
}

// DetailEvent builds the single-event shape.
func DetailEvent(e *automation.Event, includeBody bool) types.EventDetail {
	d := types.EventDetail{
		EventSummary:    SummarizeEvent(e),
		Attendees:       append([]types.Attendee{}, e.Attendees...),
		Categories:      nonNil(append([]string(nil), e.Categories...)),
		ReminderMinutes: e.ReminderMinutes,
	}
	if includeBody {
		body := e.Body
		d.Body = &body
	}
	if e.Recurrence != nil {
		d.Recurrence = e.Recurrence.String()
	}
	return d
}
