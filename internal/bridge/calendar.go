package bridge

import (
	"context"
	"strings"
	"time"

	"github.com/daviddao/outlookctl/internal/audit"
	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/confirm"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/record"
	"github.com/daviddao/outlookctl/internal/recurrence"
	"github.com/daviddao/outlookctl/internal/types"
)

// DefaultDuration is the length of an event created without an end.
const DefaultDuration = time.Hour

// EventListRequest selects events overlapping a window.
type EventListRequest struct {
	Start time.Time
	End   time.Time
	// Days sizes the window when End is zero.
	Days  int
	Count int
}

// ListEvents returns up to Count events in the window, latest start first.
func (b *Bridge) ListEvents(ctx context.Context, req EventListRequest) (*types.CalendarListResult, error) {
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	if req.Count < 1 {
		return nil, errs.New(errs.Validation, "calendar list", "count must be at least 1, got %d", req.Count)
	}
	start := req.Start
	if start.IsZero() {
		now := b.now()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	end := req.End
	if end.IsZero() {
		days := req.Days
		if days < 1 {
			days = DefaultEventDays
		}
		end = start.AddDate(0, 0, days)
	}
	if end.Before(start) {
		return nil, errs.New(errs.Validation, "calendar list", "end %s is before start %s",
			record.Timestamp(end), record.Timestamp(start))
	}

	events, err := cal.ListEvents(ctx, start, end)
	if err != nil {
		return nil, err
	}
	record.SortEvents(events)
	if len(events) > req.Count {
		events = events[:req.Count]
	}
	items := make([]types.EventSummary, 0, len(events))
	for i := range events {
		items = append(items, record.SummarizeEvent(&events[i]))
	}
	return &types.CalendarListResult{
		Version:   types.Version,
		Calendar:  types.FolderInfo{Name: "Calendar"},
		StartDate: record.Timestamp(start),
		EndDate:   record.Timestamp(end),
		Items:     items,
	}, nil
}

// GetEvent returns one event. The body is disclosed only when asked for.
func (b *Bridge) GetEvent(ctx context.Context, id types.ItemID, includeBody bool) (*types.EventResult, error) {
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	e, err := cal.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return &types.EventResult{Version: types.Version, EventDetail: record.DetailEvent(e, includeBody)}, nil
}

// EventRequest describes a new calendar entry.
type EventRequest struct {
	Subject  string
	Start    time.Time
	End      time.Time
	Duration time.Duration

	Location          string
	Body              string
	Attendees         []string
	OptionalAttendees []string
	AllDay            bool
	ReminderMinutes   *int
	BusyStatus        string
	// Recurrence is in the compact grammar, e.g. "weekly:monday:count:4".
	Recurrence string

	// SendNow dispatches invitations right after creation. It needs the
	// same confirmation as a later calendar send.
	SendNow bool
	Confirm confirm.Confirmation
}

func checkBusy(op, s string) error {
	if s != "" && !types.IsValidBusyStatus(s) {
		return errs.New(errs.Validation, op, "invalid busy status %q", s).
			WithHint("Use one of: " + strings.Join(types.ValidBusyStatuses, ", ") + ".")
	}
	return nil
}

func checkReminder(op string, m *int) error {
	if m != nil && *m < 0 {
		return errs.New(errs.Validation, op, "reminder minutes must not be negative")
	}
	return nil
}

func (r EventRequest) spec() (automation.EventSpec, error) {
	const op = "calendar create"
	if strings.TrimSpace(r.Subject) == "" {
		return automation.EventSpec{}, errs.New(errs.Validation, op, "subject is required")
	}
	if r.Start.IsZero() {
		return automation.EventSpec{}, errs.New(errs.Validation, op, "start is required")
	}
	if err := checkBusy(op, r.BusyStatus); err != nil {
		return automation.EventSpec{}, err
	}
	if err := checkReminder(op, r.ReminderMinutes); err != nil {
		return automation.EventSpec{}, err
	}
	for _, a := range append(append([]string{}, r.Attendees...), r.OptionalAttendees...) {
		if !strings.Contains(a, "@") {
			return automation.EventSpec{}, errs.New(errs.Validation, op, "invalid attendee %q", a)
		}
	}

	end := r.End
	if end.IsZero() {
		d := r.Duration
		switch {
		case d > 0:
		case r.AllDay:
			d = 24 * time.Hour
		default:
			d = DefaultDuration
		}
		end = r.Start.Add(d)
	}
	if end.Before(r.Start) {
		return automation.EventSpec{}, errs.New(errs.Validation, op, "end is before start")
	}

	spec := automation.EventSpec{
		Subject:           r.Subject,
		Start:             r.Start,
		End:               end,
		Location:          r.Location,
		Body:              r.Body,
		Attendees:         r.Attendees,
		OptionalAttendees: r.OptionalAttendees,
		AllDay:            r.AllDay,
		ReminderMinutes:   r.ReminderMinutes,
		BusyStatus:        r.BusyStatus,
	}
	if r.Recurrence != "" {
		p, err := recurrence.Parse(r.Recurrence)
		if err != nil {
			return automation.EventSpec{}, err
		}
		spec.Recurrence = &p
	}
	return spec, nil
}

// CreateEvent saves a calendar entry. An entry with attendees stays a
// draft until its invitations are sent.
func (b *Bridge) CreateEvent(ctx context.Context, req EventRequest) (*types.EventCreateResult, error) {
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	spec, err := req.spec()
	if err != nil {
		return nil, err
	}
	hasAttendees := len(spec.Attendees)+len(spec.OptionalAttendees) > 0
	sendNow := req.SendNow && hasAttendees
	if sendNow {
		if err := req.Confirm.Check("calendar create"); err != nil {
			return nil, err
		}
	}

	e, err := cal.CreateEvent(ctx, spec)
	if err != nil {
		return nil, err
	}
	msg := "Event saved"
	if hasAttendees {
		msg = "Meeting saved; invitations not sent"
	}
	if sendNow {
		if err := b.dispatchInvites(ctx, cal, e); err != nil {
			return nil, err
		}
		if e, err = cal.GetEvent(ctx, e.ID); err != nil {
			return nil, err
		}
		msg = "Meeting saved and invitations sent"
	}

	return &types.EventCreateResult{
		Version:   types.Version,
		Success:   true,
		ID:        e.ID,
		Subject:   e.Subject,
		Start:     record.Timestamp(e.Start),
		End:       record.Timestamp(e.End),
		Attendees: attendeeEmails(e),
		IsDraft:   record.IsDraftEvent(e),
		Message:   msg,
	}, nil
}

func attendeeEmails(e *automation.Event) []string {
	out := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		out = append(out, a.Email)
	}
	return out
}

// dispatchInvites sends and records exactly one calendar_send entry.
func (b *Bridge) dispatchInvites(ctx context.Context, cal automation.CalendarClient, e *automation.Event) error {
	var required, optional []string
	for _, a := range e.Attendees {
		if a.Type == automation.AttendeeOptional {
			optional = append(optional, a.Email)
		} else {
			required = append(required, a.Email)
		}
	}
	err := cal.SendInvites(ctx, e.ID)
	b.audit.Record(audit.Entry{
		Operation: audit.OpCalendarSend,
		Err:       err,
		To:        required,
		CC:        optional,
		Subject:   e.Subject,
		EntryID:   e.ID.EntryID,
	})
	if err == nil {
		b.log.Info("invitations sent", "entry_id", e.ID.EntryID, "attendees", len(e.Attendees))
	}
	return err
}

// SendInvites dispatches the invitations of a saved meeting. Sending
// again re-sends them as an update.
func (b *Bridge) SendInvites(ctx context.Context, id types.ItemID, c confirm.Confirmation) (*types.EventSendResult, error) {
	if err := c.Check("calendar send"); err != nil {
		return nil, err
	}
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	e, err := cal.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(e.Attendees) == 0 {
		return nil, errs.New(errs.Validation, "calendar send", "event has no attendees").
			WithHint("Only meetings have invitations; add attendees with calendar create.")
	}
	if err := b.dispatchInvites(ctx, cal, e); err != nil {
		return nil, err
	}
	return &types.EventSendResult{
		Version:   types.Version,
		Success:   true,
		Message:   "Meeting invitations sent",
		SentAt:    record.Timestamp(b.now()),
		Subject:   e.Subject,
		Attendees: attendeeEmails(e),
	}, nil
}

// Respond answers a meeting invitation. Answering twice with the same
// value leaves the same state. Only notifying responses are audited.
func (b *Bridge) Respond(ctx context.Context, id types.ItemID, response string, notify bool) (*types.EventRespondResult, error) {
	response = strings.ToLower(strings.TrimSpace(response))
	if !types.IsValidResponse(response) {
		return nil, errs.New(errs.Validation, "respond", "invalid response %q", response).
			WithHint("Use one of: " + strings.Join(types.ValidResponses, ", ") + ".")
	}
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	e, err := cal.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	err = cal.Respond(ctx, id, response, notify)
	if notify {
		b.audit.Record(audit.Entry{
			Operation: audit.OpRespond,
			Err:       err,
			To:        []string{e.Organizer},
			Subject:   e.Subject,
			EntryID:   id.EntryID,
		})
	}
	if err != nil {
		return nil, err
	}
	return &types.EventRespondResult{
		Version:   types.Version,
		Success:   true,
		Response:  response,
		Subject:   e.Subject,
		Organizer: e.Organizer,
		Notified:  notify,
	}, nil
}

// EventChanges lists the fields to update; nil leaves a field alone.
// Moving Start without End or Duration keeps the event's length.
type EventChanges struct {
	Subject         *string
	Start           *time.Time
	End             *time.Time
	Duration        *time.Duration
	Location        *string
	Body            *string
	ReminderMinutes *int
	BusyStatus      *string
}

// UpdateEvent changes an event in place.
func (b *Bridge) UpdateEvent(ctx context.Context, id types.ItemID, ch EventChanges) (*types.EventUpdateResult, error) {
	const op = "calendar update"
	if ch.BusyStatus != nil {
		if err := checkBusy(op, *ch.BusyStatus); err != nil {
			return nil, err
		}
	}
	if err := checkReminder(op, ch.ReminderMinutes); err != nil {
		return nil, err
	}
	if ch.Duration != nil && *ch.Duration <= 0 {
		return nil, errs.New(errs.Validation, op, "duration must be positive")
	}
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	e, err := cal.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	upd := automation.EventUpdate{
		Subject:         ch.Subject,
		Location:        ch.Location,
		Body:            ch.Body,
		ReminderMinutes: ch.ReminderMinutes,
		BusyStatus:      ch.BusyStatus,
	}
	start := e.Start
	if ch.Start != nil {
		start = *ch.Start
		upd.Start = &start
	}
	var end time.Time
	switch {
	case ch.End != nil:
		end = *ch.End
	case ch.Duration != nil:
		end = start.Add(*ch.Duration)
	case ch.Start != nil:
		end = start.Add(e.End.Sub(e.Start))
	}
	if !end.IsZero() {
		if end.Before(start) {
			return nil, errs.New(errs.Validation, op, "end is before start")
		}
		upd.End = &end
	}

	var fields []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"subject", upd.Subject != nil},
		{"start", upd.Start != nil},
		{"end", upd.End != nil},
		{"location", upd.Location != nil},
		{"body", upd.Body != nil},
		{"reminder", upd.ReminderMinutes != nil},
		{"busy_status", upd.BusyStatus != nil},
	} {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	if len(fields) == 0 {
		return &types.EventUpdateResult{Version: types.Version, Success: true, ID: e.ID, Updated: []string{}, Subject: e.Subject}, nil
	}

	updated, err := cal.UpdateEvent(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	return &types.EventUpdateResult{
		Version: types.Version,
		Success: true,
		ID:      updated.ID,
		Updated: fields,
		Subject: updated.Subject,
	}, nil
}

// DeleteEvent removes an event. A meeting the owner organized and
// already sent out is cancelled with a notice unless notify is false.
func (b *Bridge) DeleteEvent(ctx context.Context, id types.ItemID, notify bool) (*types.EventDeleteResult, error) {
	cal, err := b.sess.Calendar()
	if err != nil {
		return nil, err
	}
	e, err := cal.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	cancel := notify && e.IsMeeting && e.InvitesSent && e.ResponseStatus == automation.StatusOrganizer

	err = cal.DeleteEvent(ctx, id, cancel)
	if cancel {
		to, cc := []string{}, []string{}
		for _, a := range e.Attendees {
			if a.Type == automation.AttendeeOptional {
				cc = append(cc, a.Email)
			} else {
				to = append(to, a.Email)
			}
		}
		b.audit.Record(audit.Entry{Operation: audit.OpCancel, Err: err, To: to, CC: cc, Subject: e.Subject, EntryID: id.EntryID})
	}
	if err != nil {
		return nil, err
	}

	msg := "Event deleted"
	if cancel {
		msg = "Meeting deleted and cancellation sent to attendees"
	}
	return &types.EventDeleteResult{
		Version:    types.Version,
		Success:    true,
		Message:    msg,
		Subject:    e.Subject,
		WasMeeting: e.IsMeeting,
		Cancelled:  cancel,
	}, nil
}
