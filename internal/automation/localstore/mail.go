package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

type messageRow struct {
	ID         string `db:"id"`
	FolderID   string `db:"folder_id"`
	Subject    string `db:"subject"`
	FromName   string `db:"from_name"`
	FromAddr   string `db:"from_addr"`
	Body       string `db:"body"`
	HTMLBody   string `db:"html_body"`
	RawHeaders string `db:"raw_headers"`
	ReceivedAt string `db:"received_at"`
	IsRead     bool   `db:"is_read"`
	IsSent     bool   `db:"is_sent"`
}

const messageCols = "id, folder_id, subject, from_name, from_addr, body, html_body, raw_headers, received_at, is_read, is_sent"

type recipientRow struct {
	Kind    int    `db:"kind"`
	Name    string `db:"name"`
	Address string `db:"address"`
}

// Attachment is a file carried by a stored message.
type Attachment struct {
	Name string
	Data []byte
}

func notFound(id types.ItemID) error {
	return errs.New(errs.MessageNotFound, "get message", "no message with entry_id=%s", id.EntryID)
}

func (s *Store) hydrate(ctx context.Context, r messageRow) (automation.Mail, error) {
	m := automation.Mail{
		ID:         s.itemID(r.ID),
		ReceivedAt: parseTS(r.ReceivedAt),
		Subject:    r.Subject,
		From:       types.EmailAddress{Name: r.FromName, Email: r.FromAddr},
		Unread:     !r.IsRead,
		Sent:       r.IsSent,
		Body:       r.Body,
		HTMLBody:   r.HTMLBody,
		RawHeaders: r.RawHeaders,
	}

	var rcpts []recipientRow
	if err := s.db.SelectContext(ctx, &rcpts, "SELECT kind, name, address FROM recipients WHERE message_id = ? ORDER BY position", r.ID); err != nil {
		return m, fmt.Errorf("load recipients: %w", err)
	}
	for _, rc := range rcpts {
		m.Recipients = append(m.Recipients, automation.Recipient{Kind: automation.RecipientKind(rc.Kind), Name: rc.Name, Address: rc.Address})
	}

	if err := s.db.SelectContext(ctx, &m.Attachments, "SELECT name FROM attachments WHERE message_id = ? ORDER BY position", r.ID); err != nil {
		return m, fmt.Errorf("load attachments: %w", err)
	}
	return m, nil
}

// ListMail returns the messages in folder that match the native parts of q,
// newest first.
func (s *Store) ListMail(ctx context.Context, folder automation.Folder, q automation.Query) ([]automation.Mail, error) {
	conditions := []string{"folder_id = ?"}
	args := []any{folder.ID}

	if !q.Since.IsZero() {
		conditions = append(conditions, "received_at >= ?")
		args = append(args, formatTS(q.Since))
	}
	if !q.Until.IsZero() {
		conditions = append(conditions, "received_at <= ?")
		args = append(args, formatTS(q.Until))
	}
	if q.UnreadOnly {
		conditions = append(conditions, "is_read = 0")
	}
	if q.From != "" {
		conditions = append(conditions, "(from_addr LIKE ? OR from_name LIKE ?)")
		like := "%" + q.From + "%"
		args = append(args, like, like)
	}
	if q.Subject != "" {
		conditions = append(conditions, "subject LIKE ?")
		args = append(args, "%"+q.Subject+"%")
	}

	query := "SELECT " + messageCols + " FROM messages WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY received_at DESC, id ASC"
	// LIKE folds only ASCII case and treats % and _ as wildcards.
	if q.Max > 0 && q.From == "" && q.Subject == "" {
		query += fmt.Sprintf(" LIMIT %d", q.Max)
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errs.Wrap(errs.Operation, "list messages", err)
	}
	out := make([]automation.Mail, 0, len(rows))
	for _, r := range rows {
		m, err := s.hydrate(ctx, r)
		if err != nil {
			return nil, errs.Wrap(errs.Operation, "list messages", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) row(ctx context.Context, id types.ItemID) (messageRow, error) {
	var r messageRow
	if !s.owns(id) {
		return r, notFound(id)
	}
	err := s.db.GetContext(ctx, &r, "SELECT "+messageCols+" FROM messages WHERE id = ?", id.EntryID)
	if errors.Is(err, sql.ErrNoRows) {
		return r, notFound(id)
	}
	if err != nil {
		return r, errs.Wrap(errs.Operation, "get message", err)
	}
	return r, nil
}

// GetMail returns one message.
func (s *Store) GetMail(ctx context.Context, id types.ItemID) (*automation.Mail, error) {
	r, err := s.row(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.hydrate(ctx, r)
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "get message", err)
	}
	return &m, nil
}

// Deliver stores m in folder as received mail and returns its id. Files in
// atts become its attachments.
func (s *Store) Deliver(ctx context.Context, folder automation.Folder, m automation.Mail, atts []Attachment) (types.ItemID, error) {
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = s.now()
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.ItemID{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := genID()
	if err := insertMessage(ctx, tx, id, folder.ID, m, atts); err != nil {
		return types.ItemID{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.ItemID{}, fmt.Errorf("commit: %w", err)
	}
	return s.itemID(id), nil
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, id, folderID string, m automation.Mail, atts []Attachment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (`+messageCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, folderID, m.Subject, m.From.Name, m.From.Email, m.Body, m.HTMLBody, m.RawHeaders,
		formatTS(m.ReceivedAt), !m.Unread, m.Sent,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	for i, rc := range m.Recipients {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO recipients (message_id, position, kind, name, address) VALUES (?, ?, ?, ?, ?)",
			id, i, int(rc.Kind), rc.Name, rc.Address); err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}
	for i, a := range atts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO attachments (message_id, position, name, data) VALUES (?, ?, ?, ?)",
			id, i, a.Name, a.Data); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}
	return nil
}

func recipients(spec automation.DraftSpec) []automation.Recipient {
	var out []automation.Recipient
	add := func(kind automation.RecipientKind, addrs []string) {
		for _, a := range addrs {
			out = append(out, automation.Recipient{Kind: kind, Address: a})
		}
	}
	add(automation.To, spec.To)
	add(automation.CC, spec.CC)
	add(automation.BCC, spec.BCC)
	return out
}

func readAttachments(paths []string) ([]Attachment, error) {
	var out []Attachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errs.Wrap(errs.Attachment, "attach", fmt.Errorf("read %s: %w", p, err))
		}
		out = append(out, Attachment{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

func (s *Store) storeDraft(ctx context.Context, m automation.Mail, atts []Attachment) (*automation.Mail, error) {
	drafts, err := s.DefaultFolder(ctx, automation.Drafts)
	if err != nil {
		return nil, err
	}
	m.From = s.owner
	m.Unread = false
	m.Sent = false
	m.ReceivedAt = s.now()
	id, err := s.Deliver(ctx, drafts, m, atts)
	if err != nil {
		return nil, errs.Wrap(errs.Draft, "save draft", err)
	}
	return s.GetMail(ctx, id)
}

// CreateDraft saves a new message to Drafts.
func (s *Store) CreateDraft(ctx context.Context, spec automation.DraftSpec) (*automation.Mail, error) {
	atts, err := readAttachments(spec.Attachments)
	if err != nil {
		return nil, err
	}
	return s.storeDraft(ctx, automation.Mail{
		Subject:    spec.Subject,
		Recipients: recipients(spec),
		Body:       spec.Body,
		HTMLBody:   spec.HTMLBody,
	}, atts)
}

func prefixed(prefix, subject string) string {
	if strings.HasPrefix(strings.ToUpper(subject), strings.ToUpper(prefix)) {
		return subject
	}
	return prefix + " " + subject
}

func quote(header string, orig *automation.Mail, body string) string {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n" + header + "\n")
	fmt.Fprintf(&b, "From: %s <%s>\n", orig.From.Name, orig.From.Email)
	fmt.Fprintf(&b, "Sent: %s\n", orig.ReceivedAt.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Subject: %s\n\n", orig.Subject)
	b.WriteString(orig.Body)
	return b.String()
}

// ReplyDraft saves a reply (or reply-all) to id in Drafts.
func (s *Store) ReplyDraft(ctx context.Context, id types.ItemID, all bool, spec automation.DraftSpec) (*automation.Mail, error) {
	orig, err := s.GetMail(ctx, id)
	if err != nil {
		return nil, err
	}
	atts, err := readAttachments(spec.Attachments)
	if err != nil {
		return nil, err
	}

	reply := automation.DraftSpec{To: []string{orig.From.Email}, CC: spec.CC, BCC: spec.BCC}
	if all {
		for _, a := range orig.Addresses(automation.To) {
			if !strings.EqualFold(a, s.owner.Email) {
				reply.To = append(reply.To, a)
			}
		}
		for _, a := range orig.Addresses(automation.CC) {
			if !strings.EqualFold(a, s.owner.Email) {
				reply.CC = append(reply.CC, a)
			}
		}
	}
	reply.To = append(reply.To, spec.To...)

	return s.storeDraft(ctx, automation.Mail{
		Subject:    prefixed("RE:", orig.Subject),
		Recipients: recipients(reply),
		Body:       quote("-----Original Message-----", orig, spec.Body),
		HTMLBody:   spec.HTMLBody,
	}, atts)
}

// ForwardDraft saves a forward of id, carrying its attachments, in Drafts.
func (s *Store) ForwardDraft(ctx context.Context, id types.ItemID, spec automation.DraftSpec) (*automation.Mail, error) {
	orig, err := s.GetMail(ctx, id)
	if err != nil {
		return nil, err
	}
	var atts []Attachment
	if err := s.db.SelectContext(ctx, &atts, "SELECT name, data FROM attachments WHERE message_id = ? ORDER BY position", id.EntryID); err != nil {
		return nil, errs.Wrap(errs.Draft, "forward", err)
	}
	extra, err := readAttachments(spec.Attachments)
	if err != nil {
		return nil, err
	}

	return s.storeDraft(ctx, automation.Mail{
		Subject:    prefixed("FW:", orig.Subject),
		Recipients: recipients(spec),
		Body:       quote("-----Forwarded Message-----", orig, spec.Body),
		HTMLBody:   spec.HTMLBody,
	}, append(atts, extra...))
}

// SendDraft moves an unsent draft to Sent Items.
func (s *Store) SendDraft(ctx context.Context, id types.ItemID) error {
	r, err := s.row(ctx, id)
	if err != nil {
		return err
	}
	if r.IsSent {
		return errs.New(errs.Send, "send", "message %s was already sent", id.EntryID)
	}
	sent, err := s.DefaultFolder(ctx, automation.Sent)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE messages SET folder_id = ?, is_sent = 1, is_read = 1, received_at = ? WHERE id = ?",
		sent.ID, formatTS(s.now()), r.ID)
	if err != nil {
		return errs.Wrap(errs.Send, "send", err)
	}
	return nil
}

// SendNew stores a message straight into Sent Items.
func (s *Store) SendNew(ctx context.Context, spec automation.DraftSpec) error {
	atts, err := readAttachments(spec.Attachments)
	if err != nil {
		return err
	}
	sent, err := s.DefaultFolder(ctx, automation.Sent)
	if err != nil {
		return err
	}
	_, err = s.Deliver(ctx, sent, automation.Mail{
		Subject:    spec.Subject,
		From:       s.owner,
		Recipients: recipients(spec),
		Body:       spec.Body,
		HTMLBody:   spec.HTMLBody,
		Sent:       true,
		ReceivedAt: s.now(),
	}, atts)
	return errs.Wrap(errs.Send, "send", err)
}

// MoveMail moves id into dest. Local ids survive moves.
func (s *Store) MoveMail(ctx context.Context, id types.ItemID, dest automation.Folder) (*automation.Mail, error) {
	r, err := s.row(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE messages SET folder_id = ? WHERE id = ?", dest.ID, r.ID); err != nil {
		return nil, errs.Wrap(errs.Operation, "move", err)
	}
	return s.GetMail(ctx, id)
}

// DeleteMail moves id to Deleted Items, or removes it when it is already
// there.
func (s *Store) DeleteMail(ctx context.Context, id types.ItemID) error {
	r, err := s.row(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.DefaultFolder(ctx, automation.Deleted)
	if err != nil {
		return err
	}
	if r.FolderID == deleted.ID {
		_, err = s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", r.ID)
	} else {
		_, err = s.db.ExecContext(ctx, "UPDATE messages SET folder_id = ? WHERE id = ?", deleted.ID, r.ID)
	}
	return errs.Wrap(errs.Operation, "delete", err)
}

// SetUnread flips the read flag.
func (s *Store) SetUnread(ctx context.Context, id types.ItemID, unread bool) error {
	r, err := s.row(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "UPDATE messages SET is_read = ? WHERE id = ?", !unread, r.ID)
	return errs.Wrap(errs.Operation, "mark read", err)
}

// SaveAttachments writes every attachment of id into dir.
func (s *Store) SaveAttachments(ctx context.Context, id types.ItemID, dir string) ([]string, error) {
	if _, err := s.row(ctx, id); err != nil {
		return nil, err
	}
	var atts []Attachment
	if err := s.db.SelectContext(ctx, &atts, "SELECT name, data FROM attachments WHERE message_id = ? ORDER BY position", id.EntryID); err != nil {
		return nil, errs.Wrap(errs.Operation, "save attachments", err)
	}
	if err := automation.PrepareDir(dir); err != nil {
		return nil, err
	}
	saved := []string{}
	for i, a := range atts {
		path := automation.UniquePath(dir, automation.SafeFileName(a.Name, i+1))
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return saved, errs.Wrap(errs.Attachment, "save attachments", fmt.Errorf("write %s: %w", path, err))
		}
		saved = append(saved, path)
	}
	return saved, nil
}
