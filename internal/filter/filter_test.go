package filter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/record"
	"github.com/daviddao/outlookctl/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mail(id string, hoursAgo int, unread bool) automation.Mail {
	return automation.Mail{
		ID:         types.ItemID{EntryID: id, StoreID: "S"},
		ReceivedAt: base.Add(-time.Duration(hoursAgo) * time.Hour),
		Subject:    "Subject " + id,
		From:       types.EmailAddress{Name: "Sender " + id, Email: id + "@example.com"},
		Unread:     unread,
	}
}

// listClient returns its items, optionally applying the native hint the
// way a pushing-down backend would.
type listClient struct {
	automation.MailClient
	items  []automation.Mail
	native bool
	seen   automation.Query
}

func (c *listClient) ListMail(ctx context.Context, folder automation.Folder, q automation.Query) ([]automation.Mail, error) {
	_ = ctx
	_ = folder
	c.seen = q
	if !c.native {
		return append([]automation.Mail(nil), c.items...), nil
	}
	var out []automation.Mail
	for _, m := range c.items {
		if q.UnreadOnly && !m.Unread {
			continue
		}
		if !q.Since.IsZero() && m.ReceivedAt.Before(q.Since) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func mailbox() []automation.Mail {
	var items []automation.Mail
	for i := 0; i < 13; i++ {
		items = append(items, mail(fmt.Sprintf("m%02d", i), i, i%4 == 1))
	}
	return items
}

func TestScenarioUnreadOnly(t *testing.T) {
	c := &listClient{items: mailbox()}
	got, err := Search(context.Background(), c, automation.Folder{}, Predicate{UnreadOnly: true}, 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, m := range got {
		assert.True(t, m.Unread)
	}
}

func TestBoundedAndOrdered(t *testing.T) {
	for _, native := range []bool{false, true} {
		c := &listClient{items: mailbox(), native: native}
		for n := 1; n <= 15; n++ {
			got, err := Search(context.Background(), c, automation.Folder{}, Predicate{}, n)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), n)
			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].ReceivedAt.After(got[i-1].ReceivedAt))
			}
		}
	}
}

func TestNativeAndClientAgree(t *testing.T) {
	p := Predicate{UnreadOnly: true, Since: base.Add(-10 * time.Hour)}
	plain, err := Search(context.Background(), &listClient{items: mailbox()}, automation.Folder{}, p, 10)
	require.NoError(t, err)
	pushed, err := Search(context.Background(), &listClient{items: mailbox(), native: true}, automation.Folder{}, p, 10)
	require.NoError(t, err)
	assert.Equal(t, plain, pushed)
}

// unreadClient applies only the unread part of the hint, sorts newest
// first and honours Max, like a backend that leaves sender matching to the
// caller.
type unreadClient struct {
	automation.MailClient
	items []automation.Mail
	seen  automation.Query
}

func (c *unreadClient) ListMail(ctx context.Context, folder automation.Folder, q automation.Query) ([]automation.Mail, error) {
	_ = ctx
	_ = folder
	c.seen = q
	var out []automation.Mail
	for _, m := range c.items {
		if q.UnreadOnly && !m.Unread {
			continue
		}
		out = append(out, m)
	}
	record.SortMail(out)
	if q.Max > 0 && len(out) > q.Max {
		out = out[:q.Max]
	}
	return out, nil
}

func TestCapKeptWhenBackendSkipsSender(t *testing.T) {
	var items []automation.Mail
	for i := 0; i < 5; i++ {
		items = append(items, mail(fmt.Sprintf("new%d", i), i, false))
	}
	for i := 0; i < 2; i++ {
		m := mail(fmt.Sprintf("old%d", i), 10+i, false)
		m.From = types.EmailAddress{Name: "Alice", Email: "alice@example.com"}
		items = append(items, m)
	}
	c := &unreadClient{items: items}

	got, err := Search(context.Background(), c, automation.Folder{}, Predicate{From: "alice"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "old0", got[0].ID.EntryID)
	assert.Equal(t, "old1", got[1].ID.EntryID)
	assert.Zero(t, c.seen.Max)
	assert.Equal(t, "alice", c.seen.From)

	got, err = Search(context.Background(), c, automation.Folder{}, Predicate{Subject: "old"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old0", got[0].ID.EntryID)
}

func TestCapPushedForDatesAndUnread(t *testing.T) {
	assert.Equal(t, 5, Predicate{UnreadOnly: true}.Query(5).Max)
	assert.Equal(t, 5, Predicate{Since: base, Until: base}.Query(5).Max)
	assert.Equal(t, 0, Predicate{Text: "x"}.Query(5).Max)
	assert.Equal(t, 0, Predicate{From: "x"}.Query(5).Max)
	assert.Equal(t, 0, Predicate{Subject: "x"}.Query(5).Max)
	yes := true
	assert.Equal(t, 0, Predicate{HasAttachments: &yes}.Query(5).Max)
}

func TestInclusiveBounds(t *testing.T) {
	m := mail("edge", 0, false)
	assert.True(t, Predicate{Since: m.ReceivedAt, Until: m.ReceivedAt}.Match(&m))
	assert.False(t, Predicate{Since: m.ReceivedAt.Add(time.Second)}.Match(&m))
	assert.False(t, Predicate{Until: m.ReceivedAt.Add(-time.Second)}.Match(&m))
}

func TestMatchFields(t *testing.T) {
	m := mail("a", 0, false)
	m.Recipients = []automation.Recipient{
		{Kind: automation.To, Address: "team@example.com"},
		{Kind: automation.CC, Address: "boss@example.com"},
	}
	m.Body = "The launch date moved"
	m.Attachments = []string{"plan.pdf"}

	yes, no := true, false
	assert.True(t, Predicate{From: "SENDER A"}.Match(&m))
	assert.True(t, Predicate{From: "a@example"}.Match(&m))
	assert.False(t, Predicate{From: "zed"}.Match(&m))
	assert.True(t, Predicate{To: "team"}.Match(&m))
	assert.False(t, Predicate{To: "boss"}.Match(&m))
	assert.True(t, Predicate{CC: "boss"}.Match(&m))
	assert.True(t, Predicate{Subject: "subject a"}.Match(&m))
	assert.True(t, Predicate{Text: "LAUNCH"}.Match(&m))
	assert.False(t, Predicate{Text: "budget"}.Match(&m))
	assert.True(t, Predicate{HasAttachments: &yes}.Match(&m))
	assert.False(t, Predicate{HasAttachments: &no}.Match(&m))
}

func TestSearchValidation(t *testing.T) {
	c := &listClient{}
	_, err := Search(context.Background(), c, automation.Folder{}, Predicate{}, 0)
	assert.True(t, errs.Is(err, errs.Validation))

	_, err = Search(context.Background(), c, automation.Folder{}, Predicate{Since: base, Until: base.Add(-time.Hour)}, 3)
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestParseBound(t *testing.T) {
	start, err := ParseBound("2025-06-01", false, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), start)

	end, err := ParseBound("2025-06-01", true, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 23, 59, 59, 999999999, time.UTC), end)

	exact, err := ParseBound("2025-06-01T08:30", true, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC), exact)

	zero, err := ParseBound("", true, time.UTC)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseBound("yesterday", false, time.UTC)
	assert.True(t, errs.Is(err, errs.Validation))
}
