package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/filter"
	"github.com/daviddao/outlookctl/internal/types"
)

const account = "me@example.com"

func enc(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func sampleMessage() *gm.Message {
	return &gm.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC).UnixMilli(),
		LabelIds:     []string{labelInbox, labelUnread},
		Payload: &gm.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gm.MessagePartHeader{
				{Name: "From", Value: `"Alice" <alice@example.com>`},
				{Name: "To", Value: "me@example.com, bob@example.com"},
				{Name: "Cc", Value: "carol@example.com"},
				{Name: "Subject", Value: "Status"},
				{Name: "Message-ID", Value: "<abc@example.com>"},
			},
			Parts: []*gm.MessagePart{
				{MimeType: "multipart/alternative", Parts: []*gm.MessagePart{
					{MimeType: "text/plain", Body: &gm.MessagePartBody{Data: enc("plain body")}},
					{MimeType: "text/html", Body: &gm.MessagePartBody{Data: enc("<p>html</p>")}},
				}},
				{MimeType: "application/pdf", Filename: "q1.pdf", Body: &gm.MessagePartBody{AttachmentId: "att1"}},
			},
		},
	}
}

func TestToMail(t *testing.T) {
	m := toMail(account, sampleMessage())
	assert.Equal(t, types.ItemID{EntryID: "m1", StoreID: account}, m.ID)
	assert.Equal(t, "Status", m.Subject)
	assert.Equal(t, types.EmailAddress{Name: "Alice", Email: "alice@example.com"}, m.From)
	assert.Equal(t, []string{"me@example.com", "bob@example.com"}, m.Addresses(automation.To))
	assert.Equal(t, []string{"carol@example.com"}, m.Addresses(automation.CC))
	assert.True(t, m.Unread)
	assert.True(t, m.Sent)
	assert.Equal(t, "plain body", m.Body)
	assert.Equal(t, "<p>html</p>", m.HTMLBody)
	assert.Equal(t, []string{"q1.pdf"}, m.Attachments)
	assert.True(t, m.ReceivedAt.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)))
	assert.Contains(t, m.RawHeaders, "Message-ID: <abc@example.com>\r\n")
}

func TestToMailDraftIsUnsent(t *testing.T) {
	msg := sampleMessage()
	msg.LabelIds = []string{labelDraft}
	m := toMail(account, msg)
	assert.False(t, m.Sent)
	assert.False(t, m.Unread)
}

func TestDecodeBase64URL(t *testing.T) {
	for _, in := range []string{
		base64.URLEncoding.EncodeToString([]byte("hi?>")),
		base64.RawURLEncoding.EncodeToString([]byte("hi?>")),
	} {
		out, err := decodeBase64URL(in)
		require.NoError(t, err)
		assert.Equal(t, "hi?>", string(out))
	}
}

func TestComposeSinglePart(t *testing.T) {
	msg, err := compose(outgoing{
		From:    types.EmailAddress{Name: "Me", Email: account},
		To:      []string{"a@x.com", "b@x.com"},
		BCC:     []string{"c@x.com"},
		Subject: "Hello",
		Body:    "body text",
		Date:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(msg))
	require.NoError(t, err)
	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Hello", subject)
	to, err := r.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "b@x.com", to[1].Address)
	bcc, err := r.Header.AddressList("Bcc")
	require.NoError(t, err)
	assert.Len(t, bcc, 1)

	p, err := r.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(p.Body)
	require.NoError(t, err)
	assert.Equal(t, "body text", string(body))
}

func TestComposeWithAttachmentAndReply(t *testing.T) {
	msg, err := compose(outgoing{
		To:        []string{"a@x.com"},
		Subject:   "Re: Status",
		HTMLBody:  "<b>ok</b>",
		InReplyTo: "abc@example.com",
		Files:     []file{{Name: "notes.txt", Data: []byte("n")}},
		Date:      time.Now(),
	})
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(msg))
	require.NoError(t, err)
	assert.Contains(t, r.Header.Get("In-Reply-To"), "abc@example.com")

	var html, attached string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			html = string(data)
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			attached = name + "=" + string(data)
		}
	}
	assert.Equal(t, "<b>ok</b>", html)
	assert.Equal(t, "notes.txt=n", attached)
}

func TestSearchQuery(t *testing.T) {
	since := time.Unix(1000, 0)
	q := searchQuery(automation.Query{Since: since, Until: since.Add(time.Hour), UnreadOnly: true, From: "alice", Subject: "plan"})
	assert.Equal(t, "after:999 before:4601 is:unread", q)
	assert.Empty(t, searchQuery(automation.Query{}))
	assert.Empty(t, searchQuery(automation.Query{From: "alice", Subject: "plan"}))

	assert.Equal(t, 4, candidateCap(automation.Query{Since: since, UnreadOnly: true, Max: 4}))
	assert.Zero(t, candidateCap(automation.Query{Until: since, Max: 4}))
	assert.Zero(t, candidateCap(automation.Query{Subject: "plan", Max: 4}))
}

func TestLabelTree(t *testing.T) {
	labels := []*gm.Label{
		{Id: labelInbox, Name: "INBOX", Type: "system"},
		{Id: "Label_2", Name: "Projects/Beta", Type: "user"},
		{Id: "Label_1", Name: "Projects", Type: "user"},
		{Id: "Label_3", Name: "Projects/Alpha", Type: "user"},
		{Id: "Label_4", Name: "Projects/Alpha/Old", Type: "user"},
	}
	roots := labelTree(account, labels, "")
	var names []string
	for _, f := range roots {
		names = append(names, f.Path)
	}
	assert.Equal(t, []string{"Inbox", "Sent", "Drafts", "Trash", "Spam", "Projects"}, names)

	kids := labelTree(account, labels, "Projects")
	require.Len(t, kids, 2)
	assert.Equal(t, "Alpha", kids[0].Name)
	assert.Equal(t, "Projects/Alpha", kids[0].Path)
	assert.Equal(t, "Label_3", kids[0].ID)
}

func TestClassify(t *testing.T) {
	id := types.ItemID{EntryID: "m9", StoreID: account}
	err := classify(errs.Operation, "get message", id, &googleapi.Error{Code: http.StatusNotFound})
	assert.True(t, errs.Is(err, errs.MessageNotFound))

	err = classify(errs.Send, "send", id, &googleapi.Error{Code: http.StatusUnauthorized})
	assert.True(t, errs.Is(err, errs.Unavailable))

	err = classify(errs.Send, "send", id, &googleapi.Error{Code: http.StatusInternalServerError})
	assert.True(t, errs.Is(err, errs.Send))
}

func TestFolderLabels(t *testing.T) {
	m := &gm.Message{LabelIds: []string{labelInbox, labelUnread, "IMPORTANT", "Label_7"}}
	assert.Equal(t, []string{labelInbox, "Label_7"}, folderLabels(m))
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gm.NewService(context.Background(), option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return New(svc, types.EmailAddress{Email: account})
}

func TestGetMailOverHTTP(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages/m1"):
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sampleMessage())
		default:
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	m, err := c.GetMail(ctx, types.ItemID{EntryID: "m1", StoreID: account})
	require.NoError(t, err)
	assert.Equal(t, "Status", m.Subject)
	assert.True(t, m.Sent)

	_, err = c.GetMail(ctx, types.ItemID{EntryID: "zz", StoreID: account})
	assert.True(t, errs.Is(err, errs.MessageNotFound))

	_, err = c.GetMail(ctx, types.ItemID{EntryID: "m1", StoreID: "other@example.com"})
	assert.True(t, errs.Is(err, errs.MessageNotFound))

	f, err := c.DefaultFolder(ctx, automation.Outbox)
	assert.True(t, errs.Is(err, errs.FolderNotFound), f.Name)
}

func TestSubjectSubstringSearchOverHTTP(t *testing.T) {
	var searched []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages"):
			searched = append(searched, r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode(&gm.ListMessagesResponse{Messages: []*gm.Message{{Id: "m1"}, {Id: "m2"}}})
		case strings.HasSuffix(r.URL.Path, "/messages/m1"):
			msg := sampleMessage()
			msg.Payload.Headers[3].Value = "Meeting notes"
			json.NewEncoder(w).Encode(msg)
		case strings.HasSuffix(r.URL.Path, "/messages/m2"):
			msg := sampleMessage()
			msg.Id = "m2"
			json.NewEncoder(w).Encode(msg)
		default:
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
		}
	}))

	got, err := filter.Search(context.Background(), c, automation.Folder{ID: labelInbox}, filter.Predicate{Subject: "meet"}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Meeting notes", got[0].Subject)
	require.Len(t, searched, 1)
	assert.NotContains(t, searched[0], "subject:")
}
