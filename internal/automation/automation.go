// Package automation is the narrow capability boundary between outlookctl
// and a mail/calendar host.
//
// A backend wraps whatever loosely-typed objects its host hands out and
// exposes only the typed operations below. Backends convert host failures
// into *errs.Error values; callers above this package never see raw host
// errors.
package automation

import (
	"context"
	"time"

	"github.com/daviddao/outlookctl/internal/recurrence"
	"github.com/daviddao/outlookctl/internal/types"
)

// WellKnown names a default folder of the mailbox.
type WellKnown string

const (
	Inbox    WellKnown = "inbox"
	Sent     WellKnown = "sent"
	Drafts   WellKnown = "drafts"
	Deleted  WellKnown = "deleted"
	Outbox   WellKnown = "outbox"
	Junk     WellKnown = "junk"
	Calendar WellKnown = "calendar"
)

// MailFolders are the well-known folders that hold mail.
var MailFolders = []WellKnown{Inbox, Sent, Drafts, Deleted, Outbox, Junk}

// Folder is a resolved folder handle. ID is backend-specific and only
// meaningful to the backend that produced it.
type Folder struct {
	ID      string
	Name    string
	Path    string
	StoreID string
}

// RecipientKind is the address line a recipient sits on.
type RecipientKind int

const (
	To RecipientKind = iota
	CC
	BCC
)

// Recipient is one addressee of a message.
type Recipient struct {
	Kind    RecipientKind
	Name    string
	Address string
}

// Mail is a message as read from the host.
type Mail struct {
	ID          types.ItemID
	ReceivedAt  time.Time
	Subject     string
	From        types.EmailAddress
	Recipients  []Recipient
	Unread      bool
	Sent        bool
	Attachments []string
	Body        string
	HTMLBody    string
	// RawHeaders is the RFC 5322 transport header block, if the host has one.
	RawHeaders string
}

// Addresses returns the addresses on the given line.
func (m *Mail) Addresses(kind RecipientKind) []string {
	out := []string{}
	for _, r := range m.Recipients {
		if r.Kind == kind {
			out = append(out, r.Address)
		}
	}
	return out
}

// Attendee kinds mirror Outlook's recipient types for meetings.
const (
	AttendeeRequired = "required"
	AttendeeOptional = "optional"
	AttendeeResource = "resource"
)

// Response status values reported for events.
const (
	StatusNone       = "none"
	StatusOrganizer  = "organizer"
	StatusAccepted   = "accepted"
	StatusDeclined   = "declined"
	StatusTentative  = "tentative"
	StatusNotReplied = "not_responded"
)

// Event is a calendar item as read from the host.
type Event struct {
	ID        types.ItemID
	Subject   string
	Start     time.Time
	End       time.Time
	Location  string
	Organizer string
	AllDay    bool
	// IsMeeting is true when the event has attendees.
	IsMeeting bool
	// InvitesSent is true once invitations have been dispatched.
	InvitesSent     bool
	ResponseStatus  string
	BusyStatus      string
	Body            string
	Attendees       []types.Attendee
	Categories      []string
	ReminderMinutes *int
	Recurrence      *recurrence.Pattern
	IsRecurring     bool
}

// Query is a native filter hint. Backends apply whatever subset they can;
// callers always re-check results client-side.
type Query struct {
	Since      time.Time
	Until      time.Time
	UnreadOnly bool
	From       string
	Subject    string
	// Max bounds the number of candidates a backend pulls. Zero means all.
	// A backend may honour it only when it applied every other field
	// exactly; one that widened a bound or skipped a field must ignore it.
	Max int
}

// DraftSpec describes a new message or a reply/forward body.
type DraftSpec struct {
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []string
}

// EventSpec describes a new calendar entry.
type EventSpec struct {
	Subject           string
	Start             time.Time
	End               time.Time
	Location          string
	Body              string
	Attendees         []string
	OptionalAttendees []string
	AllDay            bool
	ReminderMinutes   *int
	BusyStatus        string
	Recurrence        *recurrence.Pattern
}

// EventUpdate carries the fields to change; nil leaves a field alone.
type EventUpdate struct {
	Subject         *string
	Start           *time.Time
	End             *time.Time
	Location        *string
	Body            *string
	ReminderMinutes *int
	BusyStatus      *string
}

// MailClient is the mail half of the capability interface.
type MailClient interface {
	DefaultFolder(ctx context.Context, name WellKnown) (Folder, error)
	RootFolders(ctx context.Context) ([]Folder, error)
	Subfolders(ctx context.Context, parent Folder) ([]Folder, error)

	ListMail(ctx context.Context, folder Folder, q Query) ([]Mail, error)
	GetMail(ctx context.Context, id types.ItemID) (*Mail, error)

	CreateDraft(ctx context.Context, spec DraftSpec) (*Mail, error)
	ReplyDraft(ctx context.Context, id types.ItemID, all bool, spec DraftSpec) (*Mail, error)
	ForwardDraft(ctx context.Context, id types.ItemID, spec DraftSpec) (*Mail, error)
	SendDraft(ctx context.Context, id types.ItemID) error
	SendNew(ctx context.Context, spec DraftSpec) error

	MoveMail(ctx context.Context, id types.ItemID, dest Folder) (*Mail, error)
	DeleteMail(ctx context.Context, id types.ItemID) error
	SetUnread(ctx context.Context, id types.ItemID, unread bool) error
	SaveAttachments(ctx context.Context, id types.ItemID, dir string) ([]string, error)
}

// CalendarClient is the calendar half of the capability interface.
type CalendarClient interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]Event, error)
	GetEvent(ctx context.Context, id types.ItemID) (*Event, error)
	CreateEvent(ctx context.Context, spec EventSpec) (*Event, error)
	SendInvites(ctx context.Context, id types.ItemID) error
	Respond(ctx context.Context, id types.ItemID, response string, notify bool) error
	UpdateEvent(ctx context.Context, id types.ItemID, upd EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id types.ItemID, notify bool) error
}

// Conn is a live connection owned by a Session.
type Conn interface {
	MailClient
	Close() error
}
