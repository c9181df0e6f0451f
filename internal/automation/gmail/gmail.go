// Package gmail serves the mail half of the automation interface from a
// Gmail account. Labels stand in for folders; the account address is the
// store id. Gmail has no calendar here, so sessions on this backend report
// calendar operations as unavailable.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

const user = "me"

var wellKnown = map[automation.WellKnown]struct{ id, name string }{
	automation.Inbox:   {labelInbox, "Inbox"},
	automation.Sent:    {labelSent, "Sent"},
	automation.Drafts:  {labelDraft, "Drafts"},
	automation.Deleted: {labelTrash, "Trash"},
	automation.Junk:    {labelSpam, "Spam"},
}

// Client is a connection to one Gmail account.
type Client struct {
	svc     *gm.Service
	account types.EmailAddress
	now     func() time.Time
}

var _ automation.Conn = (*Client)(nil)

// New wraps an authenticated service for account.
func New(svc *gm.Service, account types.EmailAddress) *Client {
	return &Client{svc: svc, account: account, now: time.Now}
}

// Close implements automation.Conn. The HTTP client needs no teardown.
func (c *Client) Close() error { return nil }

// classify converts an API failure into the error taxonomy.
func classify(kind errs.Kind, op string, id types.ItemID, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return &errs.Error{Kind: errs.MessageNotFound, Op: op, Msg: "no message with entry_id=" + id.EntryID, Err: err}
		case http.StatusUnauthorized:
			return &errs.Error{Kind: errs.Unavailable, Op: op, Err: err,
				Remediation: "Refresh the Gmail token and check gmail.credentials in the config."}
		}
	}
	return errs.Wrap(kind, op, err)
}

func (c *Client) owns(id types.ItemID) error {
	if !strings.EqualFold(id.StoreID, c.account.Email) {
		return errs.New(errs.MessageNotFound, "get message", "store %s is not this account", id.StoreID)
	}
	return nil
}

// DefaultFolder implements automation.MailClient.
func (c *Client) DefaultFolder(ctx context.Context, name automation.WellKnown) (automation.Folder, error) {
	l, ok := wellKnown[name]
	if !ok {
		return automation.Folder{}, errs.New(errs.FolderNotFound, "resolve folder", "gmail has no %s folder", name)
	}
	return automation.Folder{ID: l.id, Name: l.name, Path: l.name, StoreID: c.account.Email}, nil
}

func (c *Client) labels(ctx context.Context) ([]*gm.Label, error) {
	resp, err := c.svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, classify(errs.Operation, "list labels", types.ItemID{}, err)
	}
	return resp.Labels, nil
}

// labelTree returns the folders directly under parent ("" for the root).
// Nested user labels are named "a/b/c".
func labelTree(account string, labels []*gm.Label, parent string) []automation.Folder {
	var out []automation.Folder
	if parent == "" {
		for _, wk := range automation.MailFolders {
			if l, ok := wellKnown[wk]; ok {
				out = append(out, automation.Folder{ID: l.id, Name: l.name, Path: l.name, StoreID: account})
			}
		}
	}
	prefix := ""
	if parent != "" {
		prefix = parent + "/"
	}
	var custom []automation.Folder
	for _, l := range labels {
		if l.Type == "system" || !strings.HasPrefix(l.Name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(l.Name, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		custom = append(custom, automation.Folder{ID: l.Id, Name: rest, Path: l.Name, StoreID: account})
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Path < custom[j].Path })
	return append(out, custom...)
}

// RootFolders implements automation.MailClient.
func (c *Client) RootFolders(ctx context.Context) ([]automation.Folder, error) {
	labels, err := c.labels(ctx)
	if err != nil {
		return nil, err
	}
	return labelTree(c.account.Email, labels, ""), nil
}

// Subfolders implements automation.MailClient.
func (c *Client) Subfolders(ctx context.Context, parent automation.Folder) ([]automation.Folder, error) {
	for _, l := range wellKnown {
		if l.id == parent.ID {
			return nil, nil
		}
	}
	labels, err := c.labels(ctx)
	if err != nil {
		return nil, err
	}
	return labelTree(c.account.Email, labels, parent.Path), nil
}

// searchQuery renders the native part of q in Gmail search syntax. from:
// and subject: match whole words, narrower than the substring match the
// caller applies, so sender and subject stay client-side.
func searchQuery(q automation.Query) string {
	var parts []string
	if !q.Since.IsZero() {
		parts = append(parts, fmt.Sprintf("after:%d", q.Since.Unix()-1))
	}
	if !q.Until.IsZero() {
		parts = append(parts, fmt.Sprintf("before:%d", q.Until.Unix()+1))
	}
	if q.UnreadOnly {
		parts = append(parts, "is:unread")
	}
	return strings.Join(parts, " ")
}

const pageSize = 100

// candidateCap is q.Max when the search is exact. before: is widened to the
// next second and sender and subject are not searched.
func candidateCap(q automation.Query) int {
	if !q.Until.IsZero() || q.From != "" || q.Subject != "" {
		return 0
	}
	return q.Max
}

// ListMail implements automation.MailClient.
func (c *Client) ListMail(ctx context.Context, folder automation.Folder, q automation.Query) ([]automation.Mail, error) {
	call := c.svc.Users.Messages.List(user).LabelIds(folder.ID).Q(searchQuery(q)).MaxResults(pageSize)
	if folder.ID == labelTrash || folder.ID == labelSpam {
		call = call.IncludeSpamTrash(true)
	}

	var ids []string
	limit := candidateCap(q)
	err := call.Pages(ctx, func(resp *gm.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if limit > 0 && len(ids) >= limit {
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, classify(errs.Operation, "list messages", types.ItemID{}, err)
	}

	out := make([]automation.Mail, 0, len(ids))
	for _, id := range ids {
		m, err := c.fetch(ctx, types.ItemID{EntryID: id, StoreID: c.account.Email})
		if err != nil {
			if errs.Is(err, errs.MessageNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, toMail(c.account.Email, m))
	}
	return out, nil
}

var errStop = errors.New("enough messages")

func (c *Client) fetch(ctx context.Context, id types.ItemID) (*gm.Message, error) {
	if err := c.owns(id); err != nil {
		return nil, err
	}
	m, err := c.svc.Users.Messages.Get(user, id.EntryID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classify(errs.Operation, "get message", id, err)
	}
	return m, nil
}

// GetMail implements automation.MailClient.
func (c *Client) GetMail(ctx context.Context, id types.ItemID) (*automation.Mail, error) {
	m, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toMail(c.account.Email, m)
	return &out, nil
}

func readFiles(paths []string) ([]file, error) {
	var out []file
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errs.Wrap(errs.Attachment, "attach", fmt.Errorf("read %s: %w", p, err))
		}
		out = append(out, file{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

func (c *Client) saveDraft(ctx context.Context, o outgoing, threadID string) (*automation.Mail, error) {
	o.From = c.account
	o.Date = c.now()
	msg, err := compose(o)
	if err != nil {
		return nil, errs.Wrap(errs.Draft, "save draft", err)
	}
	d, err := c.svc.Users.Drafts.Create(user, &gm.Draft{Message: &gm.Message{Raw: raw(msg), ThreadId: threadID}}).Context(ctx).Do()
	if err != nil {
		return nil, classify(errs.Draft, "save draft", types.ItemID{}, err)
	}
	return c.GetMail(ctx, types.ItemID{EntryID: d.Message.Id, StoreID: c.account.Email})
}

// CreateDraft implements automation.MailClient.
func (c *Client) CreateDraft(ctx context.Context, spec automation.DraftSpec) (*automation.Mail, error) {
	files, err := readFiles(spec.Attachments)
	if err != nil {
		return nil, err
	}
	return c.saveDraft(ctx, outgoing{
		To: spec.To, CC: spec.CC, BCC: spec.BCC,
		Subject: spec.Subject, Body: spec.Body, HTMLBody: spec.HTMLBody,
		Files: files,
	}, "")
}

func prefixed(prefix, subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	return prefix + " " + subject
}

func quoted(intro string, orig *automation.Mail, body string) string {
	var b strings.Builder
	b.WriteString(body)
	fmt.Fprintf(&b, "\n\n%s\nFrom: %s <%s>\nDate: %s\nSubject: %s\n\n", intro,
		orig.From.Name, orig.From.Email, orig.ReceivedAt.Format(time.RFC1123Z), orig.Subject)
	b.WriteString(orig.Body)
	return b.String()
}

// ReplyDraft implements automation.MailClient.
func (c *Client) ReplyDraft(ctx context.Context, id types.ItemID, all bool, spec automation.DraftSpec) (*automation.Mail, error) {
	m, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	orig := toMail(c.account.Email, m)
	files, err := readFiles(spec.Attachments)
	if err != nil {
		return nil, err
	}

	o := outgoing{
		To:       []string{orig.From.Email},
		CC:       spec.CC,
		BCC:      spec.BCC,
		Subject:  prefixed("Re:", orig.Subject),
		Body:     quoted("On the original message:", &orig, spec.Body),
		HTMLBody: spec.HTMLBody,
		Files:    files,
	}
	if all {
		for _, a := range orig.Addresses(automation.To) {
			if !strings.EqualFold(a, c.account.Email) {
				o.To = append(o.To, a)
			}
		}
		for _, a := range orig.Addresses(automation.CC) {
			if !strings.EqualFold(a, c.account.Email) {
				o.CC = append(o.CC, a)
			}
		}
	}
	o.To = append(o.To, spec.To...)
	if msgID := header(m.Payload.Headers, "Message-ID"); msgID != "" {
		o.InReplyTo = strings.Trim(msgID, "<>")
		for _, ref := range strings.Fields(header(m.Payload.Headers, "References")) {
			o.References = append(o.References, strings.Trim(ref, "<>"))
		}
	}
	return c.saveDraft(ctx, o, m.ThreadId)
}

// ForwardDraft implements automation.MailClient.
func (c *Client) ForwardDraft(ctx context.Context, id types.ItemID, spec automation.DraftSpec) (*automation.Mail, error) {
	m, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	orig := toMail(c.account.Email, m)
	files, err := c.attachmentData(ctx, m)
	if err != nil {
		return nil, err
	}
	extra, err := readFiles(spec.Attachments)
	if err != nil {
		return nil, err
	}
	return c.saveDraft(ctx, outgoing{
		To: spec.To, CC: spec.CC, BCC: spec.BCC,
		Subject:  prefixed("Fwd:", orig.Subject),
		Body:     quoted("---------- Forwarded message ----------", &orig, spec.Body),
		HTMLBody: spec.HTMLBody,
		Files:    append(files, extra...),
	}, m.ThreadId)
}

// draftFor finds the draft wrapping message id.
func (c *Client) draftFor(ctx context.Context, id types.ItemID) (string, error) {
	var draftID string
	err := c.svc.Users.Drafts.List(user).Pages(ctx, func(resp *gm.ListDraftsResponse) error {
		for _, d := range resp.Drafts {
			if d.Message != nil && d.Message.Id == id.EntryID {
				draftID = d.Id
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", classify(errs.Send, "send", id, err)
	}
	if draftID == "" {
		return "", errs.New(errs.Send, "send", "message %s is not a draft", id.EntryID)
	}
	return draftID, nil
}

// SendDraft implements automation.MailClient.
func (c *Client) SendDraft(ctx context.Context, id types.ItemID) error {
	if err := c.owns(id); err != nil {
		return err
	}
	draftID, err := c.draftFor(ctx, id)
	if err != nil {
		return err
	}
	if _, err := c.svc.Users.Drafts.Send(user, &gm.Draft{Id: draftID}).Context(ctx).Do(); err != nil {
		return classify(errs.Send, "send", id, err)
	}
	return nil
}

// SendNew implements automation.MailClient.
func (c *Client) SendNew(ctx context.Context, spec automation.DraftSpec) error {
	files, err := readFiles(spec.Attachments)
	if err != nil {
		return err
	}
	msg, err := compose(outgoing{
		From: c.account, Date: c.now(),
		To: spec.To, CC: spec.CC, BCC: spec.BCC,
		Subject: spec.Subject, Body: spec.Body, HTMLBody: spec.HTMLBody,
		Files: files,
	})
	if err != nil {
		return errs.Wrap(errs.Send, "send", err)
	}
	if _, err := c.svc.Users.Messages.Send(user, &gm.Message{Raw: raw(msg)}).Context(ctx).Do(); err != nil {
		return classify(errs.Send, "send", types.ItemID{}, err)
	}
	return nil
}

// folderLabels are the labels that place a message in a folder.
func folderLabels(m *gm.Message) []string {
	var out []string
	for _, l := range m.LabelIds {
		switch {
		case l == labelInbox, l == labelSpam, l == labelTrash, strings.HasPrefix(l, "Label_"):
			out = append(out, l)
		}
	}
	return out
}

// MoveMail implements automation.MailClient. Gmail ids survive moves.
func (c *Client) MoveMail(ctx context.Context, id types.ItemID, dest automation.Folder) (*automation.Mail, error) {
	m, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if dest.ID == labelTrash {
		if err := c.DeleteMail(ctx, id); err != nil {
			return nil, err
		}
		return c.GetMail(ctx, id)
	}
	var remove []string
	for _, l := range folderLabels(m) {
		if l != dest.ID {
			remove = append(remove, l)
		}
	}
	req := &gm.ModifyMessageRequest{AddLabelIds: []string{dest.ID}, RemoveLabelIds: remove}
	if _, err := c.svc.Users.Messages.Modify(user, id.EntryID, req).Context(ctx).Do(); err != nil {
		return nil, classify(errs.Operation, "move", id, err)
	}
	return c.GetMail(ctx, id)
}

// DeleteMail implements automation.MailClient by moving to Trash.
func (c *Client) DeleteMail(ctx context.Context, id types.ItemID) error {
	if err := c.owns(id); err != nil {
		return err
	}
	if _, err := c.svc.Users.Messages.Trash(user, id.EntryID).Context(ctx).Do(); err != nil {
		return classify(errs.Operation, "delete", id, err)
	}
	return nil
}

// SetUnread implements automation.MailClient.
func (c *Client) SetUnread(ctx context.Context, id types.ItemID, unread bool) error {
	if err := c.owns(id); err != nil {
		return err
	}
	req := &gm.ModifyMessageRequest{RemoveLabelIds: []string{labelUnread}}
	if unread {
		req = &gm.ModifyMessageRequest{AddLabelIds: []string{labelUnread}}
	}
	if _, err := c.svc.Users.Messages.Modify(user, id.EntryID, req).Context(ctx).Do(); err != nil {
		return classify(errs.Operation, "mark read", id, err)
	}
	return nil
}

func (c *Client) attachmentData(ctx context.Context, m *gm.Message) ([]file, error) {
	_, _, parts := bodies(m.Payload)
	out := make([]file, 0, len(parts))
	for _, p := range parts {
		data := ""
		if p.Body != nil {
			data = p.Body.Data
			if data == "" && p.Body.AttachmentId != "" {
				body, err := c.svc.Users.Messages.Attachments.Get(user, m.Id, p.Body.AttachmentId).Context(ctx).Do()
				if err != nil {
					return nil, classify(errs.Attachment, "fetch attachment", types.ItemID{EntryID: m.Id}, err)
				}
				data = body.Data
			}
		}
		decoded, err := decodeBase64URL(data)
		if err != nil {
			return nil, errs.Wrap(errs.Attachment, "decode attachment", fmt.Errorf("%s: %w", p.Filename, err))
		}
		out = append(out, file{Name: p.Filename, Data: decoded})
	}
	return out, nil
}

// SaveAttachments implements automation.MailClient.
func (c *Client) SaveAttachments(ctx context.Context, id types.ItemID, dir string) ([]string, error) {
	m, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := c.attachmentData(ctx, m)
	if err != nil {
		return nil, err
	}
	if err := automation.PrepareDir(dir); err != nil {
		return nil, err
	}
	saved := []string{}
	for i, f := range files {
		path := automation.UniquePath(dir, automation.SafeFileName(f.Name, i+1))
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return saved, errs.Wrap(errs.Attachment, "save attachments", fmt.Errorf("write %s: %w", path, err))
		}
		saved = append(saved, path)
	}
	return saved, nil
}
