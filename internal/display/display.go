// Package display renders outlookctl results for --output text.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/types"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
)

// UnreadDot marks unread messages.
func UnreadDot(unread bool) string {
	if unread {
		return Bold.Render("●")
	}
	return Dim.Render("·")
}

// ResponseDot returns a colored marker for a meeting response status.
func ResponseDot(status string) string {
	switch status {
	case automation.StatusAccepted:
		return Success.Render("●")
	case automation.StatusTentative:
		return Warn.Render("○")
	case automation.StatusDeclined:
		return ErrStyle.Render("✗")
	case automation.StatusOrganizer:
		return Bold.Render("★")
	default:
		return Dim.Render("·")
	}
}

// TimeAgo formats an ISO timestamp relative to now.
func TimeAgo(isoDate string, now time.Time) string {
	if isoDate == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, isoDate)
	if err != nil {
		return isoDate[:min(10, len(isoDate))]
	}

	d := now.Sub(t)
	switch {
	case d < 0:
		return t.Format("Jan 2 15:04")
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Clock renders an ISO timestamp as "Mon Jan 2 15:04".
func Clock(isoDate string) string {
	t, err := time.Parse(time.RFC3339Nano, isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("Mon Jan 2 15:04")
}

// Day renders an ISO timestamp as "Mon Jan 2".
func Day(isoDate string) string {
	t, err := time.Parse(time.RFC3339Nano, isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("Mon Jan 2")
}

// Truncate shortens a string to maxLen runes, adding an ellipsis if needed.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SuccessMsg writes a green checkmark + message.
func SuccessMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Success.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg writes a red X + message.
func ErrorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, ErrStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Header writes a section header.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, Bold.Render(title))
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %s %s\n", Muted.Render(fmt.Sprintf("%-10s", label+":")), value)
}

func sender(a types.EmailAddress) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

func idLine(id types.ItemID) string {
	return Dim.Render("id " + Truncate(id.EntryID, 24))
}

// Messages writes a message list.
func Messages(w io.Writer, title string, items []types.MessageSummary, now time.Time) {
	Header(w, fmt.Sprintf("%s (%d)", title, len(items)))
	if len(items) == 0 {
		fmt.Fprintln(w, Dim.Render("  no messages"))
		return
	}
	fmt.Fprintln(w)
	for _, m := range items {
		clip := ""
		if m.HasAttachments {
			clip = " " + Muted.Render("⎘")
		}
		fmt.Fprintf(w, "  %s %s  %s  %s%s\n",
			UnreadDot(m.Unread),
			Bold.Render(Truncate(sender(m.From), 24)),
			Dim.Render(TimeAgo(m.ReceivedAt, now)),
			Truncate(m.Subject, 60),
			clip,
		)
		if m.BodySnippet != nil && *m.BodySnippet != "" {
			fmt.Fprintf(w, "    %s\n", Dim.Render(Truncate(strings.Join(strings.Fields(*m.BodySnippet), " "), 76)))
		}
		fmt.Fprintf(w, "    %s\n", idLine(m.ID))
	}
}

// Message writes one message in full.
func Message(w io.Writer, m *types.MessageDetail) {
	Header(w, m.Subject)
	field(w, "From", fmt.Sprintf("%s <%s>", m.From.Name, m.From.Email))
	field(w, "To", strings.Join(m.To, ", "))
	field(w, "Cc", strings.Join(m.CC, ", "))
	field(w, "Bcc", strings.Join(m.BCC, ", "))
	field(w, "Received", Clock(m.ReceivedAt))
	field(w, "Files", strings.Join(m.Attachments, ", "))
	field(w, "Entry", m.ID.EntryID)
	field(w, "Store", m.ID.StoreID)
	if m.Headers != nil {
		fmt.Fprintln(w)
		keys := make([]string, 0, len(*m.Headers))
		for k := range *m.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s %s\n", Muted.Render(k+":"), (*m.Headers)[k])
		}
	}
	if m.Body != nil {
		fmt.Fprintln(w)
		for _, line := range strings.Split(strings.TrimSpace(*m.Body), "\n") {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
}

// Events writes a calendar window.
func Events(w io.Writer, r *types.CalendarListResult) {
	Header(w, fmt.Sprintf("%s %s → %s (%d)", r.Calendar.Name, Clock(r.StartDate), Clock(r.EndDate), len(r.Items)))
	if len(r.Items) == 0 {
		fmt.Fprintln(w, Dim.Render("  no events"))
		return
	}
	fmt.Fprintln(w)
	for _, e := range r.Items {
		when := Clock(e.Start)
		if e.IsAllDay {
			when = Day(e.Start) + " all day"
		}
		tags := []string{}
		if e.IsDraft {
			tags = append(tags, Warn.Render("draft"))
		}
		if e.IsRecurring {
			tags = append(tags, Muted.Render("recurring"))
		}
		fmt.Fprintf(w, "  %s %s  %s %s\n", ResponseDot(e.ResponseStatus), Dim.Render(when), Bold.Render(e.Subject), strings.Join(tags, " "))
		if e.Location != "" {
			fmt.Fprintf(w, "    %s\n", Dim.Render("@ "+e.Location))
		}
		fmt.Fprintf(w, "    %s\n", idLine(e.ID))
	}
}

// Event writes one event in full.
func Event(w io.Writer, e *types.EventDetail) {
	Header(w, e.Subject)
	field(w, "Start", Clock(e.Start))
	field(w, "End", Clock(e.End))
	field(w, "Location", e.Location)
	field(w, "Organizer", e.Organizer)
	field(w, "Status", e.ResponseStatus)
	field(w, "Busy", e.BusyStatus)
	field(w, "Repeats", e.Recurrence)
	if e.ReminderMinutes != nil {
		field(w, "Reminder", fmt.Sprintf("%d min before", *e.ReminderMinutes))
	}
	field(w, "Entry", e.ID.EntryID)
	if len(e.Attendees) > 0 {
		fmt.Fprintln(w)
		for _, a := range e.Attendees {
			fmt.Fprintf(w, "  %s %s %s\n", ResponseDot(a.Response), a.Email, Dim.Render("("+a.Type+")"))
		}
	}
	if e.Body != nil && *e.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", strings.TrimSpace(*e.Body))
	}
}

// Doctor writes the prerequisite report.
func Doctor(w io.Writer, r types.DoctorResult) {
	Header(w, "outlookctl doctor · backend "+r.Backend)
	for _, c := range r.Checks {
		mark := Success.Render("✓")
		if !c.Passed {
			mark = ErrStyle.Render("✗")
			if c.Name == automation.CheckExecutable {
				mark = Warn.Render("!")
			}
		}
		fmt.Fprintf(w, "  %s %-10s %s\n", mark, c.Name, c.Message)
		if !c.Passed && c.Remediation != "" {
			fmt.Fprintf(w, "    %s\n", Dim.Render(c.Remediation))
		}
	}
	if r.AllPassed {
		SuccessMsg(w, "all checks passed")
	} else {
		ErrorMsg(w, "some checks failed")
	}
}

// Error writes a failure.
func Error(w io.Writer, r types.ErrorResult) {
	ErrorMsg(w, "%s %s", Bold.Render(r.ErrorCode), r.Error)
	if r.Remediation != "" {
		fmt.Fprintf(w, "  %s\n", Dim.Render(r.Remediation))
	}
}

// Render writes any result envelope. Unknown shapes fall back to %+v.
func Render(w io.Writer, v any, now time.Time) {
	switch r := v.(type) {
	case *types.ListResult:
		title := r.Folder.Name
		if r.Folder.Path != "" {
			title = r.Folder.Path
		}
		Messages(w, title, r.Items, now)
	case *types.SearchResult:
		Messages(w, "Search in "+r.Query.Folder, r.Items, now)
	case *types.MessageResult:
		Message(w, &r.MessageDetail)
	case *types.CalendarListResult:
		Events(w, r)
	case *types.EventResult:
		Event(w, &r.EventDetail)
	case types.DoctorResult:
		Doctor(w, r)
	case *types.DraftResult:
		SuccessMsg(w, "Draft saved to %s: %s", r.SavedTo, r.Subject)
		field(w, "To", strings.Join(r.To, ", "))
		field(w, "Entry", r.ID.EntryID)
		field(w, "Store", r.ID.StoreID)
	case *types.SendResult:
		SuccessMsg(w, "%s", r.Message)
		field(w, "To", strings.Join(r.To, ", "))
	case *types.MoveResult:
		SuccessMsg(w, "Moved %q to %s", r.Subject, r.MovedTo)
		field(w, "Entry", r.ID.EntryID)
	case *types.DeleteResult:
		SuccessMsg(w, "%s: %s", r.Message, r.Subject)
	case *types.MarkReadResult:
		state := "read"
		if r.Unread {
			state = "unread"
		}
		SuccessMsg(w, "Marked %d message(s) %s", len(r.Updated), state)
	case *types.AttachmentSaveResult:
		SuccessMsg(w, "Saved %d file(s) to %s", len(r.Saved), r.Directory)
		for _, p := range r.Saved {
			fmt.Fprintf(w, "  %s\n", p)
		}
	case *types.EventCreateResult:
		SuccessMsg(w, "%s: %s", r.Message, r.Subject)
		field(w, "Start", Clock(r.Start))
		field(w, "Entry", r.ID.EntryID)
	case *types.EventSendResult:
		SuccessMsg(w, "%s: %s", r.Message, r.Subject)
		field(w, "To", strings.Join(r.Attendees, ", "))
	case *types.EventRespondResult:
		SuccessMsg(w, "Responded %s to %s", r.Response, r.Subject)
		if r.Notified {
			field(w, "Notified", r.Organizer)
		}
	case *types.EventUpdateResult:
		if len(r.Updated) == 0 {
			SuccessMsg(w, "Nothing to update on %s", r.Subject)
		} else {
			SuccessMsg(w, "Updated %s on %s", strings.Join(r.Updated, ", "), r.Subject)
		}
	case *types.EventDeleteResult:
		SuccessMsg(w, "%s: %s", r.Message, r.Subject)
	case types.ErrorResult:
		Error(w, r)
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
}
