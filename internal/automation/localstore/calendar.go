package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/recurrence"
	"github.com/daviddao/outlookctl/internal/types"
)

var responseStatus = map[string]string{
	types.ResponseAccept:    automation.StatusAccepted,
	types.ResponseDecline:   automation.StatusDeclined,
	types.ResponseTentative: automation.StatusTentative,
}

type eventRow struct {
	ID              string         `db:"id"`
	Subject         string         `db:"subject"`
	StartAt         string         `db:"start_at"`
	EndAt           string         `db:"end_at"`
	Location        string         `db:"location"`
	Organizer       string         `db:"organizer"`
	AllDay          bool           `db:"all_day"`
	InvitesSent     bool           `db:"invites_sent"`
	ResponseStatus  string         `db:"response_status"`
	BusyStatus      string         `db:"busy_status"`
	Body            string         `db:"body"`
	Categories      string         `db:"categories"`
	ReminderMinutes sql.NullInt64  `db:"reminder_minutes"`
	Recurrence      sql.NullString `db:"recurrence"`
}

const eventCols = "id, subject, start_at, end_at, location, organizer, all_day, invites_sent, response_status, busy_status, body, categories, reminder_minutes, recurrence"

func eventNotFound(id types.ItemID) error {
	return errs.New(errs.EventNotFound, "get event", "no event with entry_id=%s", id.EntryID)
}

func (s *Store) hydrateEvent(ctx context.Context, r eventRow) (automation.Event, error) {
	e := automation.Event{
		ID:             s.itemID(r.ID),
		Subject:        r.Subject,
		Start:          parseTS(r.StartAt),
		End:            parseTS(r.EndAt),
		Location:       r.Location,
		Organizer:      r.Organizer,
		AllDay:         r.AllDay,
		InvitesSent:    r.InvitesSent,
		ResponseStatus: r.ResponseStatus,
		BusyStatus:     r.BusyStatus,
		Body:           r.Body,
		Categories:     []string{},
	}
	if r.Categories != "" {
		e.Categories = strings.Split(r.Categories, ",")
	}
	if r.ReminderMinutes.Valid {
		n := int(r.ReminderMinutes.Int64)
		e.ReminderMinutes = &n
	}
	if r.Recurrence.Valid && r.Recurrence.String != "" {
		p, err := recurrence.Parse(r.Recurrence.String)
		if err != nil {
			return e, fmt.Errorf("stored recurrence %q: %w", r.Recurrence.String, err)
		}
		e.Recurrence = &p
		e.IsRecurring = true
	}
	if err := s.db.SelectContext(ctx, &e.Attendees, "SELECT name, email, type, response FROM attendees WHERE event_id = ? ORDER BY position", r.ID); err != nil {
		return e, fmt.Errorf("load attendees: %w", err)
	}
	if e.Attendees == nil {
		e.Attendees = []types.Attendee{}
	}
	e.IsMeeting = len(e.Attendees) > 0
	return e, nil
}

// maxOccurrences bounds the expansion of one recurring series.
const maxOccurrences = 5000

// ListEvents returns events that overlap [start, end]. A recurring series
// is expanded into one event per occurrence in the window, stepped in the
// window's zone; each carries the series id and the series' length.
func (s *Store) ListEvents(ctx context.Context, start, end time.Time) ([]automation.Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+eventCols+` FROM events
		WHERE start_at <= ? AND (end_at >= ? OR recurrence IS NOT NULL)
		ORDER BY start_at DESC, id ASC`,
		formatTS(end), formatTS(start))
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list events", err)
	}
	out := make([]automation.Event, 0, len(rows))
	for _, r := range rows {
		e, err := s.hydrateEvent(ctx, r)
		if err != nil {
			return nil, errs.Wrap(errs.Operation, "list events", err)
		}
		if e.Recurrence == nil {
			out = append(out, e)
			continue
		}
		length := e.End.Sub(e.Start)
		for _, at := range e.Recurrence.Occurrences(e.Start.In(start.Location()), start.Add(-length), end, maxOccurrences) {
			occ := e
			occ.Start = at
			occ.End = at.Add(length)
			out = append(out, occ)
		}
	}
	return out, nil
}

func (s *Store) eventRow(ctx context.Context, id types.ItemID) (eventRow, error) {
	var r eventRow
	if !s.owns(id) {
		return r, eventNotFound(id)
	}
	err := s.db.GetContext(ctx, &r, "SELECT "+eventCols+" FROM events WHERE id = ?", id.EntryID)
	if errors.Is(err, sql.ErrNoRows) {
		return r, eventNotFound(id)
	}
	if err != nil {
		return r, errs.Wrap(errs.Operation, "get event", err)
	}
	return r, nil
}

// GetEvent returns one event.
func (s *Store) GetEvent(ctx context.Context, id types.ItemID) (*automation.Event, error) {
	r, err := s.eventRow(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := s.hydrateEvent(ctx, r)
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "get event", err)
	}
	return &e, nil
}

// CreateEvent saves a new event organized by the mailbox owner. Invitations
// are never sent here.
func (s *Store) CreateEvent(ctx context.Context, spec automation.EventSpec) (*automation.Event, error) {
	id := genID()
	var reminder sql.NullInt64
	if spec.ReminderMinutes != nil {
		reminder = sql.NullInt64{Int64: int64(*spec.ReminderMinutes), Valid: true}
	}
	var rec sql.NullString
	if spec.Recurrence != nil {
		rec = sql.NullString{String: spec.Recurrence.String(), Valid: true}
	}
	busy := spec.BusyStatus
	if busy == "" {
		busy = types.BusyBusy
	}
	status := automation.StatusNone
	if len(spec.Attendees)+len(spec.OptionalAttendees) > 0 {
		status = automation.StatusOrganizer
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Draft, "create event", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (`+eventCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, '', ?, ?)`,
		id, spec.Subject, formatTS(spec.Start), formatTS(spec.End), spec.Location, s.owner.Email,
		spec.AllDay, status, busy, spec.Body, reminder, rec)
	if err != nil {
		return nil, errs.Wrap(errs.Draft, "create event", err)
	}

	pos := 0
	add := func(addrs []string, kind string) error {
		for _, a := range addrs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO attendees (event_id, position, email, type, response) VALUES (?, ?, ?, ?, ?)",
				id, pos, a, kind, automation.StatusNone); err != nil {
				return err
			}
			pos++
		}
		return nil
	}
	if err := add(spec.Attendees, automation.AttendeeRequired); err != nil {
		return nil, errs.Wrap(errs.Draft, "create event", err)
	}
	if err := add(spec.OptionalAttendees, automation.AttendeeOptional); err != nil {
		return nil, errs.Wrap(errs.Draft, "create event", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.Draft, "create event", err)
	}
	return s.GetEvent(ctx, s.itemID(id))
}

// SendInvites marks the meeting's invitations as dispatched. Sending again
// is an update to the attendees.
func (s *Store) SendInvites(ctx context.Context, id types.ItemID) error {
	r, err := s.eventRow(ctx, id)
	if err != nil {
		return err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM attendees WHERE event_id = ?", r.ID); err != nil {
		return errs.Wrap(errs.Send, "send invites", err)
	}
	if n == 0 {
		return errs.New(errs.Validation, "send invites", "event has no attendees")
	}
	_, err = s.db.ExecContext(ctx, "UPDATE events SET invites_sent = 1 WHERE id = ?", r.ID)
	return errs.Wrap(errs.Send, "send invites", err)
}

// Respond records the owner's answer to a meeting invitation.
func (s *Store) Respond(ctx context.Context, id types.ItemID, response string, notify bool) error {
	r, err := s.eventRow(ctx, id)
	if err != nil {
		return err
	}
	status, ok := responseStatus[response]
	if !ok {
		return errs.New(errs.Validation, "respond", "unknown response %q", response)
	}
	if strings.EqualFold(r.Organizer, s.owner.Email) {
		return errs.New(errs.Validation, "respond", "cannot respond to a meeting you organized")
	}
	_, err = s.db.ExecContext(ctx, "UPDATE events SET response_status = ? WHERE id = ?", status, r.ID)
	return errs.Wrap(errs.Operation, "respond", err)
}

// UpdateEvent applies the non-nil fields of upd.
func (s *Store) UpdateEvent(ctx context.Context, id types.ItemID, upd automation.EventUpdate) (*automation.Event, error) {
	r, err := s.eventRow(ctx, id)
	if err != nil {
		return nil, err
	}
	var sets []string
	var args []any
	if upd.Subject != nil {
		sets, args = append(sets, "subject = ?"), append(args, *upd.Subject)
	}
	if upd.Start != nil {
		sets, args = append(sets, "start_at = ?"), append(args, formatTS(*upd.Start))
	}
	if upd.End != nil {
		sets, args = append(sets, "end_at = ?"), append(args, formatTS(*upd.End))
	}
	if upd.Location != nil {
		sets, args = append(sets, "location = ?"), append(args, *upd.Location)
	}
	if upd.Body != nil {
		sets, args = append(sets, "body = ?"), append(args, *upd.Body)
	}
	if upd.ReminderMinutes != nil {
		sets, args = append(sets, "reminder_minutes = ?"), append(args, *upd.ReminderMinutes)
	}
	if upd.BusyStatus != nil {
		sets, args = append(sets, "busy_status = ?"), append(args, *upd.BusyStatus)
	}
	if len(sets) > 0 {
		args = append(args, r.ID)
		if _, err := s.db.ExecContext(ctx, "UPDATE events SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, errs.Wrap(errs.Operation, "update event", err)
		}
	}
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes the event.
func (s *Store) DeleteEvent(ctx context.Context, id types.ItemID, notify bool) error {
	r, err := s.eventRow(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", r.ID)
	return errs.Wrap(errs.Operation, "delete event", err)
}

// AddInvitation stores a meeting organized by someone else, as if an
// invitation had arrived.
func (s *Store) AddInvitation(ctx context.Context, organizer string, spec automation.EventSpec) (*automation.Event, error) {
	e, err := s.CreateEvent(ctx, spec)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE events SET organizer = ?, invites_sent = 1, response_status = ? WHERE id = ?",
		organizer, automation.StatusNotReplied, e.ID.EntryID)
	if err != nil {
		return nil, fmt.Errorf("mark invitation: %w", err)
	}
	return s.GetEvent(ctx, e.ID)
}
