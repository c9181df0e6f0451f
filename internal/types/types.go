// Package types defines the JSON contract emitted by outlookctl.
//
// Every top-level response carries "version": "1.0". Optional disclosure
// fields are pointers so that "not requested" (absent key) stays distinct
// from "requested but empty".
package types

// Version is the schema version stamped on every response.
const Version = "1.0"

// ItemID addresses a mail or calendar item within the current session.
// Both halves are required together.
type ItemID struct {
	EntryID string `json:"entry_id"`
	StoreID string `json:"store_id"`
}

// IsZero reports whether the id carries no entry id.
func (id ItemID) IsZero() bool {
	return id.EntryID == ""
}

// Less orders ids by entry id, then store id.
func (id ItemID) Less(other ItemID) bool {
	if id.EntryID != other.EntryID {
		return id.EntryID < other.EntryID
	}
	return id.StoreID < other.StoreID
}

// EmailAddress is a display name plus SMTP address.
type EmailAddress struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FolderInfo describes a resolved folder.
type FolderInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	StoreID string `json:"store_id,omitempty"`
}

// MessageSummary is the list/search shape of a message.
type MessageSummary struct {
	ID             ItemID       `json:"id"`
	ReceivedAt     string       `json:"received_at"`
	Subject        string       `json:"subject"`
	From           EmailAddress `json:"from"`
	To             []string     `json:"to"`
	CC             []string     `json:"cc"`
	Unread         bool         `json:"unread"`
	HasAttachments bool         `json:"has_attachments"`
	BodySnippet    *string      `json:"body_snippet,omitempty"`
}

// MessageDetail is the full shape of a single message.
type MessageDetail struct {
	ID             ItemID             `json:"id"`
	ReceivedAt     string             `json:"received_at"`
	Subject        string             `json:"subject"`
	From           EmailAddress       `json:"from"`
	To             []string           `json:"to"`
	CC             []string           `json:"cc"`
	BCC            []string           `json:"bcc"`
	Unread         bool               `json:"unread"`
	HasAttachments bool               `json:"has_attachments"`
	Attachments    []string           `json:"attachments"`
	Body           *string            `json:"body,omitempty"`
	BodyHTML       *string            `json:"body_html,omitempty"`
	Headers        *map[string]string `json:"headers,omitempty"`
}

// Attendee is one invitee of a meeting.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Type     string `json:"type"`
	Response string `json:"response"`
}

// EventSummary is the list shape of a calendar event.
type EventSummary struct {
	ID             ItemID `json:"id"`
	Subject        string `json:"subject"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Location       string `json:"location"`
	Organizer      string `json:"organizer"`
	IsRecurring    bool   `json:"is_recurring"`
	IsAllDay       bool   `json:"is_all_day"`
	IsMeeting      bool   `json:"is_meeting"`
	IsDraft        bool   `json:"is_draft"`
	ResponseStatus string `json:"response_status"`
	BusyStatus     string `json:"busy_status,omitempty"`
}

// EventDetail is the full shape of a single calendar event.
type EventDetail struct {
	EventSummary
	Body            *string    `json:"body,omitempty"`
	Attendees       []Attendee `json:"attendees"`
	Categories      []string   `json:"categories"`
	ReminderMinutes *int       `json:"reminder_minutes,omitempty"`
	Recurrence      string     `json:"recurrence,omitempty"`
}

// --- Envelopes ---

// ListResult is returned by the mail list command.
type ListResult struct {
	Version string           `json:"version"`
	Folder  FolderInfo       `json:"folder"`
	Items   []MessageSummary `json:"items"`
}

// SearchQuery echoes the predicate a search ran with.
type SearchQuery struct {
	Folder         string `json:"folder"`
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	CC             string `json:"cc,omitempty"`
	Subject        string `json:"subject_contains,omitempty"`
	Text           string `json:"text,omitempty"`
	UnreadOnly     bool   `json:"unread_only,omitempty"`
	HasAttachments *bool  `json:"has_attachments,omitempty"`
	Since          string `json:"since,omitempty"`
	Until          string `json:"until,omitempty"`
	Limit          int    `json:"limit"`
}

// SearchResult is returned by the mail search command.
type SearchResult struct {
	Version string           `json:"version"`
	Query   SearchQuery      `json:"query"`
	Items   []MessageSummary `json:"items"`
}

// MessageResult wraps a single message detail.
type MessageResult struct {
	Version string `json:"version"`
	MessageDetail
}

// DraftResult is returned after a draft is saved.
type DraftResult struct {
	Version string   `json:"version"`
	Success bool     `json:"success"`
	ID      ItemID   `json:"id"`
	SavedTo string   `json:"saved_to"`
	Subject string   `json:"subject"`
	To      []string `json:"to"`
	CC      []string `json:"cc"`
	BCC     []string `json:"bcc,omitempty"`
	// OriginalSubject is set for replies and forwards.
	OriginalSubject string `json:"original_subject,omitempty"`
}

// SendResult is returned after a message leaves the mailbox.
type SendResult struct {
	Version string   `json:"version"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	SentAt  string   `json:"sent_at,omitempty"`
	To      []string `json:"to,omitempty"`
	Subject string   `json:"subject,omitempty"`
}

// MoveResult is returned by the move command.
type MoveResult struct {
	Version  string `json:"version"`
	Success  bool   `json:"success"`
	ID       ItemID `json:"id"`
	MovedTo  string `json:"moved_to"`
	Subject  string `json:"subject"`
	Previous ItemID `json:"previous_id"`
}

// DeleteResult is returned by the delete command.
type DeleteResult struct {
	Version string `json:"version"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Subject string `json:"subject"`
}

// MarkReadResult is returned by the mark-read command.
type MarkReadResult struct {
	Version string   `json:"version"`
	Success bool     `json:"success"`
	Unread  bool     `json:"unread"`
	Updated []ItemID `json:"updated"`
}

// AttachmentSaveResult lists the files written by attachments save.
type AttachmentSaveResult struct {
	Version   string   `json:"version"`
	Success   bool     `json:"success"`
	Directory string   `json:"directory"`
	Saved     []string `json:"saved"`
}

// CalendarListResult is returned by calendar list.
type CalendarListResult struct {
	Version   string         `json:"version"`
	Calendar  FolderInfo     `json:"calendar"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Items     []EventSummary `json:"items"`
}

// EventResult wraps a single event detail.
type EventResult struct {
	Version string `json:"version"`
	EventDetail
}

// EventCreateResult is returned by calendar create.
type EventCreateResult struct {
	Version   string   `json:"version"`
	Success   bool     `json:"success"`
	ID        ItemID   `json:"id"`
	Subject   string   `json:"subject"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees"`
	IsDraft   bool     `json:"is_draft"`
	Message   string   `json:"message"`
}

// EventSendResult is returned after invitations are dispatched.
type EventSendResult struct {
	Version   string   `json:"version"`
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	SentAt    string   `json:"sent_at"`
	Subject   string   `json:"subject"`
	Attendees []string `json:"attendees"`
}

// EventRespondResult is returned by calendar respond.
type EventRespondResult struct {
	Version   string `json:"version"`
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	Subject   string `json:"subject"`
	Organizer string `json:"organizer"`
	Notified  bool   `json:"notified"`
}

// EventUpdateResult is returned by calendar update.
type EventUpdateResult struct {
	Version string   `json:"version"`
	Success bool     `json:"success"`
	ID      ItemID   `json:"id"`
	Updated []string `json:"updated_fields"`
	Subject string   `json:"subject"`
}

// EventDeleteResult is returned by calendar delete.
type EventDeleteResult struct {
	Version    string `json:"version"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Subject    string `json:"subject"`
	WasMeeting bool   `json:"was_meeting"`
	Cancelled  bool   `json:"cancellation_sent"`
}

// DoctorCheck is one prerequisite probe.
type DoctorCheck struct {
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// DoctorResult aggregates prerequisite probes.
type DoctorResult struct {
	Version   string        `json:"version"`
	AllPassed bool          `json:"all_passed"`
	Backend   string        `json:"backend"`
	Checks    []DoctorCheck `json:"checks"`
}

// ErrorResult is the only payload written when a command fails.
type ErrorResult struct {
	Version     string `json:"version"`
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	ErrorCode   string `json:"error_code"`
	Remediation string `json:"remediation,omitempty"`
}

// Meeting response values.
const (
	ResponseAccept    = "accept"
	ResponseDecline   = "decline"
	ResponseTentative = "tentative"
)

// ValidResponses is the set of allowed meeting responses.
var ValidResponses = []string{ResponseAccept, ResponseDecline, ResponseTentative}

// IsValidResponse checks if a meeting response string is valid.
func IsValidResponse(r string) bool {
	for _, v := range ValidResponses {
		if v == r {
			return true
		}
	}
	return false
}

// Busy status values.
const (
	BusyFree        = "free"
	BusyTentative   = "tentative"
	BusyBusy        = "busy"
	BusyOutOfOffice = "out_of_office"
	BusyElsewhere   = "working_elsewhere"
)

// ValidBusyStatuses is the set of allowed busy status values.
var ValidBusyStatuses = []string{BusyFree, BusyTentative, BusyBusy, BusyOutOfOffice, BusyElsewhere}

// IsValidBusyStatus checks if a busy status string is valid.
func IsValidBusyStatus(s string) bool {
	for _, v := range ValidBusyStatuses {
		if v == s {
			return true
		}
	}
	return false
}
