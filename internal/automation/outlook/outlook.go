// Package outlook drives Classic Outlook through its COM object model.
//
// The COM client only exists on Windows (outlook_windows.go). Elsewhere the
// dialer reports Unavailable and doctor explains why. The value mappings in
// this file are shared by both builds.
package outlook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/recurrence"
	"github.com/daviddao/outlookctl/internal/types"
)

// OlDefaultFolders.
const (
	olFolderDeletedItems = 3
	olFolderOutbox       = 4
	olFolderSentMail     = 5
	olFolderInbox        = 6
	olFolderCalendar     = 9
	olFolderDrafts       = 16
	olFolderJunk         = 23
)

var defaultFolders = map[automation.WellKnown]int{
	automation.Inbox:    olFolderInbox,
	automation.Sent:     olFolderSentMail,
	automation.Drafts:   olFolderDrafts,
	automation.Deleted:  olFolderDeletedItems,
	automation.Outbox:   olFolderOutbox,
	automation.Junk:     olFolderJunk,
	automation.Calendar: olFolderCalendar,
}

// Item classes and kinds.
const (
	olMailItem        = 0
	olAppointmentItem = 1

	olClassAppointment = 26
	olClassMail        = 43
)

// Recipient types. Mail uses To/CC/BCC, meetings Required/Optional/Resource;
// the numbers coincide.
const (
	olTo  = 1
	olCC  = 2
	olBCC = 3
)

// OlMeetingStatus.
const (
	olNonMeeting       = 0
	olMeeting          = 1
	olMeetingCancelled = 5
)

// OlResponseStatus.
const (
	olResponseNone         = 0
	olResponseOrganized    = 1
	olResponseTentative    = 2
	olResponseAccepted     = 3
	olResponseDeclined     = 4
	olResponseNotResponded = 5
)

// OlRecurrenceType.
const (
	olRecursDaily   = 0
	olRecursWeekly  = 1
	olRecursMonthly = 2
)

// MAPI property tags read through PropertyAccessor.
const (
	propSMTPAddress      = "http://schemas.microsoft.com/mapi/proptag/0x39FE001F"
	propTransportHeaders = "http://schemas.microsoft.com/mapi/proptag/0x007D001F"
	// PidLidFInvited: set once meeting requests have gone out.
	propInvited = "http://schemas.microsoft.com/mapi/id/{00062002-0000-0000-C000-000000000046}/8229000B"
)

// ExePaths are the usual Click-to-Run and MSI install locations.
var ExePaths = []string{
	`C:\Program Files\Microsoft Office\root\Office16\OUTLOOK.EXE`,
	`C:\Program Files (x86)\Microsoft Office\root\Office16\OUTLOOK.EXE`,
	`C:\Program Files\Microsoft Office\Office16\OUTLOOK.EXE`,
	`C:\Program Files (x86)\Microsoft Office\Office16\OUTLOOK.EXE`,
}

const progID = "Outlook.Application"

var responseNames = map[int]string{
	olResponseNone:         automation.StatusNone,
	olResponseOrganized:    automation.StatusOrganizer,
	olResponseTentative:    automation.StatusTentative,
	olResponseAccepted:     automation.StatusAccepted,
	olResponseDeclined:     automation.StatusDeclined,
	olResponseNotResponded: automation.StatusNotReplied,
}

func responseName(code int) string {
	if s, ok := responseNames[code]; ok {
		return s
	}
	return automation.StatusNone
}

var responseCodes = map[string]int{
	types.ResponseAccept:    olResponseAccepted,
	types.ResponseDecline:   olResponseDeclined,
	types.ResponseTentative: olResponseTentative,
}

var busyNames = []string{
	types.BusyFree,
	types.BusyTentative,
	types.BusyBusy,
	types.BusyOutOfOffice,
	types.BusyElsewhere,
}

func busyName(code int) string {
	if code >= 0 && code < len(busyNames) {
		return busyNames[code]
	}
	return types.BusyBusy
}

func busyCode(name string) int {
	for i, n := range busyNames {
		if n == name {
			return i
		}
	}
	return 2
}

func attendeeKind(recipientType int) string {
	switch recipientType {
	case olCC:
		return automation.AttendeeOptional
	case olBCC:
		return automation.AttendeeResource
	default:
		return automation.AttendeeRequired
	}
}

// folderPath turns a FolderPath such as \\me@example.com\Inbox\Projects
// into Inbox/Projects.
func folderPath(raw string) string {
	parts := strings.Split(strings.TrimLeft(raw, `\`), `\`)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[1:], "/")
}

// restrictTime formats t for an Items.Restrict filter. Outlook compares in
// local time at minute granularity.
func restrictTime(t time.Time) string {
	return t.In(time.Local).Format("01/02/2006 03:04 PM")
}

// mailRestriction renders the native part of q as a Jet filter. Sender and
// subject are left to the client-side check.
func mailRestriction(q automation.Query) string {
	var parts []string
	if !q.Since.IsZero() {
		parts = append(parts, fmt.Sprintf("[ReceivedTime] >= '%s'", restrictTime(q.Since)))
	}
	if !q.Until.IsZero() {
		parts = append(parts, fmt.Sprintf("[ReceivedTime] <= '%s'", restrictTime(q.Until.Add(time.Minute))))
	}
	if q.UnreadOnly {
		parts = append(parts, "[UnRead] = True")
	}
	return strings.Join(parts, " AND ")
}

// candidateCap is q.Max when the restriction is exact. Until is widened to
// the next minute, so a capped read could fill up with items the caller
// rejects; sender and subject are never restricted.
func candidateCap(q automation.Query) int {
	if !q.Until.IsZero() || q.From != "" || q.Subject != "" {
		return 0
	}
	return q.Max
}

func eventRestriction(start, end time.Time) string {
	return fmt.Sprintf("[Start] >= '%s' AND [Start] <= '%s'", restrictTime(start), restrictTime(end))
}

// wall reinterprets the wall clock of a COM date in the local zone. VT_DATE
// carries no zone.
func wall(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

// toInt accepts whatever integer width a VARIANT decoded to.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

// rule is a RecurrencePattern as Outlook stores it.
type rule struct {
	Type        int
	DayMask     int
	DayOfMonth  int
	NoEnd       bool
	Occurrences int
	EndDate     time.Time
}

func ruleOf(p *recurrence.Pattern) rule {
	r := rule{NoEnd: true}
	switch p.Frequency {
	case recurrence.Daily:
		r.Type = olRecursDaily
	case recurrence.Weekly:
		r.Type = olRecursWeekly
		r.DayMask = int(p.Days)
	case recurrence.Monthly:
		r.Type = olRecursMonthly
		r.DayOfMonth = p.DayOfMonth
	}
	switch p.Termination.Kind {
	case recurrence.EndUntil:
		r.NoEnd = false
		r.EndDate = p.Termination.Until.In(time.Local)
	case recurrence.EndCount:
		r.NoEnd = false
		r.Occurrences = p.Termination.Count
	}
	return r
}

// pattern maps r back to the grammar. Types the grammar cannot express
// (nth weekday, yearly) yield nil.
func (r rule) pattern() *recurrence.Pattern {
	p := &recurrence.Pattern{}
	switch r.Type {
	case olRecursDaily:
		p.Frequency = recurrence.Daily
	case olRecursWeekly:
		p.Frequency = recurrence.Weekly
		p.Days = recurrence.Weekdays(r.DayMask)
	case olRecursMonthly:
		p.Frequency = recurrence.Monthly
		p.DayOfMonth = r.DayOfMonth
	default:
		return nil
	}
	switch {
	case r.NoEnd:
	case r.Occurrences > 0:
		p.Termination = recurrence.Termination{Kind: recurrence.EndCount, Count: r.Occurrences}
	case !r.EndDate.IsZero():
		p.Termination = recurrence.Termination{Kind: recurrence.EndUntil, Until: recurrence.DateOf(r.EndDate)}
	}
	return p
}

// Dialer attaches to Classic Outlook.
type Dialer struct {
	Log *slog.Logger
}

// Name implements automation.Dialer.
func (d Dialer) Name() string { return "outlook" }

func (d Dialer) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// Diagnose implements automation.Dialer.
func (d Dialer) Diagnose(ctx context.Context) []types.DoctorCheck {
	checks := []types.DoctorCheck{
		automation.HostCheck(ctx, "windows"),
		bindingCheck(),
		d.interfaceCheck(ctx),
	}
	exe := automation.ProcessCheck(ctx, "OUTLOOK.EXE")
	if !exe.Passed {
		if installed := automation.FileCheck(automation.CheckExecutable, ExePaths, ""); installed.Passed {
			exe.Message += "; " + installed.Message
		}
	}
	return append(checks, exe)
}
