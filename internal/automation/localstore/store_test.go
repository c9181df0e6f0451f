package localstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/recurrence"
	"github.com/daviddao/outlookctl/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates an in-memory store and closes it when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Memory, types.EmailAddress{Name: "Owner", Email: "owner@example.com"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

func inbox(t *testing.T, s *Store) automation.Folder {
	t.Helper()
	f, err := s.DefaultFolder(context.Background(), automation.Inbox)
	require.NoError(t, err)
	return f
}

func TestDefaultFoldersExist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, wk := range automation.MailFolders {
		f, err := s.DefaultFolder(ctx, wk)
		require.NoError(t, err, wk)
		assert.Equal(t, s.StoreID(), f.StoreID)
	}
	roots, err := s.RootFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, len(automation.MailFolders))
	assert.Equal(t, "Inbox", roots[0].Name)
}

func TestStoreIDPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.db")
	a, err := Open(path, types.EmailAddress{})
	require.NoError(t, err)
	id := a.StoreID()
	require.NoError(t, a.Close())

	b, err := Open(path, types.EmailAddress{})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, id, b.StoreID())
	assert.Equal(t, "me@localhost", b.Owner().Email)
}

func TestSubfoldersAndPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := inbox(t, s)
	projects, err := s.AddFolder(ctx, &in, "Projects")
	require.NoError(t, err)
	alpha, err := s.AddFolder(ctx, &projects, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "Inbox/Projects/Alpha", alpha.Path)

	kids, err := s.Subfolders(ctx, in)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, projects.ID, kids[0].ID)
}

func TestDeliverAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := inbox(t, s)
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.Deliver(ctx, in, automation.Mail{
			Subject:    "msg " + string(rune('a'+i)),
			From:       types.EmailAddress{Name: "Ann", Email: "ann@example.com"},
			ReceivedAt: base.Add(time.Duration(i) * time.Hour),
			Unread:     i%2 == 0,
			Recipients: []automation.Recipient{{Kind: automation.To, Address: "owner@example.com"}},
		}, nil)
		require.NoError(t, err)
	}

	all, err := s.ListMail(ctx, in, automation.Query{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "msg e", all[0].Subject)
	assert.Equal(t, []string{"owner@example.com"}, all[0].Addresses(automation.To))

	unread, err := s.ListMail(ctx, in, automation.Query{UnreadOnly: true, Max: 2})
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "msg e", unread[0].Subject)
	assert.Equal(t, "msg c", unread[1].Subject)

	// "msg_" is a LIKE pattern matching every subject; without a cap the
	// caller can still reject the extra rows.
	wild, err := s.ListMail(ctx, in, automation.Query{Subject: "msg_", Max: 1})
	require.NoError(t, err)
	assert.Len(t, wild, 5)

	ranged, err := s.ListMail(ctx, in, automation.Query{Since: base.Add(time.Hour), Until: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, ranged, 3)
}

func TestGetMailNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.GetMail(ctx, types.ItemID{EntryID: "nope", StoreID: s.StoreID()})
	assert.True(t, errs.Is(err, errs.MessageNotFound))

	_, err = s.GetMail(ctx, types.ItemID{EntryID: "x", StoreID: "other-store"})
	assert.True(t, errs.Is(err, errs.MessageNotFound))
}

func TestDraftSendLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	att := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(att, []byte("hello"), 0o600))

	d, err := s.CreateDraft(ctx, automation.DraftSpec{
		To: []string{"a@x.com", "b@x.com"}, CC: []string{"c@x.com"},
		Subject: "Plan", Body: "body", Attachments: []string{att},
	})
	require.NoError(t, err)
	assert.False(t, d.Sent)
	assert.Equal(t, []string{"notes.txt"}, d.Attachments)
	assert.Equal(t, "owner@example.com", d.From.Email)

	drafts, err := s.DefaultFolder(ctx, automation.Drafts)
	require.NoError(t, err)
	inDrafts, err := s.ListMail(ctx, drafts, automation.Query{})
	require.NoError(t, err)
	assert.Len(t, inDrafts, 1)

	require.NoError(t, s.SendDraft(ctx, d.ID))
	sentMail, err := s.GetMail(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, sentMail.Sent)

	assert.True(t, errs.Is(s.SendDraft(ctx, d.ID), errs.Send))

	inDrafts, err = s.ListMail(ctx, drafts, automation.Query{})
	require.NoError(t, err)
	assert.Empty(t, inDrafts)
}

func TestCreateDraftMissingAttachment(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateDraft(context.Background(), automation.DraftSpec{
		To: []string{"a@x.com"}, Attachments: []string{filepath.Join(t.TempDir(), "missing.pdf")},
	})
	assert.True(t, errs.Is(err, errs.Attachment))
}

func TestReplyAllAndForward(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Deliver(ctx, inbox(t, s), automation.Mail{
		Subject: "Budget",
		From:    types.EmailAddress{Name: "Ann", Email: "ann@example.com"},
		Body:    "numbers inside",
		Recipients: []automation.Recipient{
			{Kind: automation.To, Address: "owner@example.com"},
			{Kind: automation.To, Address: "bob@example.com"},
			{Kind: automation.CC, Address: "cy@example.com"},
		},
	}, []Attachment{{Name: "budget.xlsx", Data: []byte("x")}})
	require.NoError(t, err)

	r, err := s.ReplyDraft(ctx, id, true, automation.DraftSpec{Body: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, "RE: Budget", r.Subject)
	assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, r.Addresses(automation.To))
	assert.Equal(t, []string{"cy@example.com"}, r.Addresses(automation.CC))
	assert.True(t, strings.HasPrefix(r.Body, "thanks"))
	assert.Contains(t, r.Body, "numbers inside")

	single, err := s.ReplyDraft(ctx, id, false, automation.DraftSpec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@example.com"}, single.Addresses(automation.To))

	fw, err := s.ForwardDraft(ctx, id, automation.DraftSpec{To: []string{"dee@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "FW: Budget", fw.Subject)
	assert.Equal(t, []string{"budget.xlsx"}, fw.Attachments)

	again, err := s.ReplyDraft(ctx, r.ID, false, automation.DraftSpec{})
	require.NoError(t, err)
	assert.Equal(t, "RE: Budget", again.Subject)
}

func TestMoveDeleteMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := inbox(t, s)
	archive, err := s.AddFolder(ctx, nil, "Archive")
	require.NoError(t, err)
	id, err := s.Deliver(ctx, in, automation.Mail{Subject: "x", Unread: true}, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetUnread(ctx, id, false))
	m, err := s.GetMail(ctx, id)
	require.NoError(t, err)
	assert.False(t, m.Unread)

	moved, err := s.MoveMail(ctx, id, archive)
	require.NoError(t, err)
	inArchive, err := s.ListMail(ctx, archive, automation.Query{})
	require.NoError(t, err)
	require.Len(t, inArchive, 1)
	assert.Equal(t, moved.ID, inArchive[0].ID)

	require.NoError(t, s.DeleteMail(ctx, id))
	deleted, err := s.DefaultFolder(ctx, automation.Deleted)
	require.NoError(t, err)
	inDeleted, err := s.ListMail(ctx, deleted, automation.Query{})
	require.NoError(t, err)
	assert.Len(t, inDeleted, 1)

	require.NoError(t, s.DeleteMail(ctx, id))
	_, err = s.GetMail(ctx, id)
	assert.True(t, errs.Is(err, errs.MessageNotFound))
}

func TestSaveAttachments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Deliver(ctx, inbox(t, s), automation.Mail{Subject: "files"}, []Attachment{
		{Name: "a.txt", Data: []byte("one")},
		{Name: "a.txt", Data: []byte("two")},
		{Name: "../evil", Data: []byte("three")},
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	saved, err := s.SaveAttachments(ctx, id, dir)
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, filepath.Join(dir, "a.txt"), saved[0])
	assert.Equal(t, filepath.Join(dir, "a_1.txt"), saved[1])
	assert.Equal(t, filepath.Join(dir, "..evil"), saved[2])

	data, err := os.ReadFile(saved[1])
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	raw := "From: Ann <ann@example.com>\r\n" +
		"To: owner@example.com, Bob <bob@example.com>\r\n" +
		"Cc: cy@example.com\r\n" +
		"Subject: Imported\r\n" +
		"Date: Tue, 01 Apr 2025 10:00:00 +0000\r\n" +
		"Message-ID: <imp@example.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Plain body here.\r\n"

	id, err := s.Import(ctx, inbox(t, s), strings.NewReader(raw))
	require.NoError(t, err)
	m, err := s.GetMail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Imported", m.Subject)
	assert.Equal(t, "ann@example.com", m.From.Email)
	assert.Equal(t, []string{"owner@example.com", "bob@example.com"}, m.Addresses(automation.To))
	assert.Equal(t, []string{"cy@example.com"}, m.Addresses(automation.CC))
	assert.True(t, m.Unread)
	assert.Contains(t, m.Body, "Plain body here.")
	assert.Contains(t, strings.ToLower(m.RawHeaders), "message-id: <imp@example.com>")
	assert.True(t, m.ReceivedAt.Equal(time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)))
}

func TestCalendarLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	rem := 10
	p, err := recurrence.Parse("weekly:tuesday:count:4")
	require.NoError(t, err)

	e, err := s.CreateEvent(ctx, automation.EventSpec{
		Subject: "Sync", Start: start, End: start.Add(30 * time.Minute),
		Attendees: []string{"a@x.com"}, OptionalAttendees: []string{"b@x.com"},
		ReminderMinutes: &rem, Recurrence: &p,
	})
	require.NoError(t, err)
	assert.True(t, e.IsMeeting)
	assert.False(t, e.InvitesSent)
	assert.Equal(t, automation.StatusOrganizer, e.ResponseStatus)
	require.Len(t, e.Attendees, 2)
	assert.Equal(t, automation.AttendeeOptional, e.Attendees[1].Type)
	require.NotNil(t, e.Recurrence)
	assert.Equal(t, p, *e.Recurrence)
	assert.Equal(t, 10, *e.ReminderMinutes)

	require.NoError(t, s.SendInvites(ctx, e.ID))
	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.InvitesSent)

	assert.True(t, errs.Is(s.Respond(ctx, e.ID, types.ResponseAccept, true), errs.Validation))

	loc := "Room 1"
	upd, err := s.UpdateEvent(ctx, e.ID, automation.EventUpdate{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Room 1", upd.Location)
	assert.Equal(t, "Sync", upd.Subject)

	events, err := s.ListEvents(ctx, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, s.DeleteEvent(ctx, e.ID, false))
	_, err = s.GetEvent(ctx, e.ID)
	assert.True(t, errs.Is(err, errs.EventNotFound))
}

func TestListEventsExpandsSeries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	p, err := recurrence.Parse("weekly:tuesday:count:3")
	require.NoError(t, err)
	e, err := s.CreateEvent(ctx, automation.EventSpec{
		Subject: "Standup", Start: start, End: start.Add(15 * time.Minute), Recurrence: &p,
	})
	require.NoError(t, err)

	events, err := s.ListEvents(ctx, start.AddDate(0, 0, 1), start.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, events, 2)
	var starts []time.Time
	for _, ev := range events {
		assert.Equal(t, e.ID, ev.ID)
		assert.Equal(t, 15*time.Minute, ev.End.Sub(ev.Start))
		starts = append(starts, ev.Start)
	}
	assert.ElementsMatch(t, []time.Time{start.AddDate(0, 0, 7), start.AddDate(0, 0, 14)}, starts)

	// The series is over after its third occurrence.
	events, err = s.ListEvents(ctx, start.AddDate(0, 0, 15), start.AddDate(0, 0, 60))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPersonalEventHasNoInvites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	e, err := s.CreateEvent(ctx, automation.EventSpec{Subject: "Focus", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, e.IsMeeting)
	assert.True(t, errs.Is(s.SendInvites(ctx, e.ID), errs.Validation))
}

func TestRespondToInvitation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 5, 7, 9, 0, 0, 0, time.UTC)
	e, err := s.AddInvitation(ctx, "boss@example.com", automation.EventSpec{
		Subject: "Review", Start: start, End: start.Add(time.Hour), Attendees: []string{"owner@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, automation.StatusNotReplied, e.ResponseStatus)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Respond(ctx, e.ID, types.ResponseTentative, false))
		got, err := s.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, automation.StatusTentative, got.ResponseStatus)
	}
	assert.True(t, errs.Is(s.Respond(ctx, e.ID, "maybe", false), errs.Validation))
}
