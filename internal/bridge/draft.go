package bridge

import (
	"context"
	"strings"

	"github.com/daviddao/outlookctl/internal/audit"
	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/confirm"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/record"
	"github.com/daviddao/outlookctl/internal/types"
)

// DraftRequest carries the fields of a new draft, or the additions to a
// reply or forward.
type DraftRequest struct {
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []string
}

func (r DraftRequest) spec() automation.DraftSpec {
	return automation.DraftSpec{
		To:          r.To,
		CC:          r.CC,
		BCC:         r.BCC,
		Subject:     r.Subject,
		Body:        r.Body,
		HTMLBody:    r.HTMLBody,
		Attachments: r.Attachments,
	}
}

func (r DraftRequest) body() string {
	if r.Body != "" {
		return r.Body
	}
	return r.HTMLBody
}

// check validates r before any backend call. needRecipient is false for
// replies, whose addressees come from the original.
func (r DraftRequest) check(op string, needRecipient bool) error {
	if r.Body != "" && r.HTMLBody != "" {
		return errs.New(errs.Validation, op, "body text and body HTML are mutually exclusive").
			WithHint("Pass either --body-text or --body-html, not both.")
	}
	if needRecipient && len(r.To)+len(r.CC)+len(r.BCC) == 0 {
		return errs.New(errs.Validation, op, "at least one recipient is required").
			WithHint("Add --to, --cc or --bcc.")
	}
	for _, a := range append(append(append([]string{}, r.To...), r.CC...), r.BCC...) {
		if !strings.Contains(a, "@") {
			return errs.New(errs.Validation, op, "invalid recipient %q", a)
		}
	}
	return automation.CheckAttachments(r.Attachments)
}

func (b *Bridge) draftResult(m *automation.Mail, original string) *types.DraftResult {
	bcc := m.Addresses(automation.BCC)
	if len(bcc) == 0 {
		bcc = nil
	}
	return &types.DraftResult{
		Version:         types.Version,
		Success:         true,
		ID:              m.ID,
		SavedTo:         "Drafts",
		Subject:         m.Subject,
		To:              m.Addresses(automation.To),
		CC:              m.Addresses(automation.CC),
		BCC:             bcc,
		OriginalSubject: original,
	}
}

// recordDraft writes the draft audit line. m is nil when the backend failed.
func (b *Bridge) recordDraft(m *automation.Mail, req DraftRequest, err error) {
	e := audit.Entry{Operation: audit.OpDraft, Err: err, To: req.To, CC: req.CC, BCC: req.BCC, Subject: req.Subject}
	if m != nil {
		e.To = m.Addresses(automation.To)
		e.CC = m.Addresses(automation.CC)
		e.BCC = m.Addresses(automation.BCC)
		e.Subject = m.Subject
		e.EntryID = m.ID.EntryID
	}
	b.audit.Record(e)
}

// CreateDraft saves a new message to Drafts. Nothing is sent.
func (b *Bridge) CreateDraft(ctx context.Context, req DraftRequest) (*types.DraftResult, error) {
	if err := req.check("draft", true); err != nil {
		return nil, err
	}
	m, err := b.sess.Mail().CreateDraft(ctx, req.spec())
	b.recordDraft(m, req, err)
	if err != nil {
		return nil, err
	}
	b.log.Info("draft saved", "entry_id", m.ID.EntryID)
	return b.draftResult(m, ""), nil
}

// Reply saves a reply to id in Drafts. With all set, every original
// recipient except the mailbox owner is addressed.
func (b *Bridge) Reply(ctx context.Context, id types.ItemID, all bool, req DraftRequest) (*types.DraftResult, error) {
	if err := req.check("reply", false); err != nil {
		return nil, err
	}
	c := b.sess.Mail()
	orig, err := c.GetMail(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := c.ReplyDraft(ctx, id, all, req.spec())
	b.recordDraft(m, req, err)
	if err != nil {
		return nil, err
	}
	return b.draftResult(m, orig.Subject), nil
}

// Forward saves a forward of id, with its attachments, in Drafts.
func (b *Bridge) Forward(ctx context.Context, id types.ItemID, req DraftRequest) (*types.DraftResult, error) {
	if err := req.check("forward", true); err != nil {
		return nil, err
	}
	c := b.sess.Mail()
	orig, err := c.GetMail(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := c.ForwardDraft(ctx, id, req.spec())
	b.recordDraft(m, req, err)
	if err != nil {
		return nil, err
	}
	return b.draftResult(m, orig.Subject), nil
}

// SendRequest dispatches an existing draft.
type SendRequest struct {
	ID      types.ItemID
	Confirm confirm.Confirmation
	// LogBody copies the raw body into the audit record.
	LogBody bool
}

// Send dispatches the draft. The confirmation is checked before the
// mailbox is touched; a missing or already-sent item leaves no trace in
// the audit log. Every dispatch attempt writes exactly one audit record.
func (b *Bridge) Send(ctx context.Context, req SendRequest) (*types.SendResult, error) {
	if err := req.Confirm.Check("send"); err != nil {
		return nil, err
	}
	c := b.sess.Mail()
	m, err := c.GetMail(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if m.Sent {
		return nil, errs.New(errs.Validation, "send", "message %s is not an unsent draft", req.ID.EntryID).
			WithHint("Create a draft with 'outlookctl draft' and send that.")
	}

	err = c.SendDraft(ctx, req.ID)
	b.audit.Record(audit.Entry{
		Operation:   audit.OpSend,
		Err:         err,
		To:          m.Addresses(automation.To),
		CC:          m.Addresses(automation.CC),
		BCC:         m.Addresses(automation.BCC),
		Subject:     m.Subject,
		EntryID:     req.ID.EntryID,
		IncludeBody: req.LogBody,
		Body:        m.Body,
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("draft sent", "entry_id", req.ID.EntryID)
	return &types.SendResult{
		Version: types.Version,
		Success: true,
		Message: "Draft sent successfully",
		SentAt:  record.Timestamp(b.now()),
		To:      m.Addresses(automation.To),
		Subject: m.Subject,
	}, nil
}

// SendNewRequest sends a message without drafting it first.
type SendNewRequest struct {
	DraftRequest
	// UnsafeNew must be set; the confirmation alone is not enough.
	UnsafeNew bool
	Confirm   confirm.Confirmation
	LogBody   bool
}

// SendNew dispatches a new message directly. Both gates must hold.
func (b *Bridge) SendNew(ctx context.Context, req SendNewRequest) (*types.SendResult, error) {
	if !req.UnsafeNew {
		return nil, errs.New(errs.ConfirmationRequired, "send", "sending a new message requires the unsafe-send-new flag").
			WithHint("Prefer 'outlookctl draft' then 'outlookctl send --draft-id'. Pass --unsafe-send-new together with --confirm-send YES to bypass.")
	}
	if err := req.Confirm.Check("send"); err != nil {
		return nil, err
	}
	if err := req.check("send", true); err != nil {
		return nil, err
	}

	err := b.sess.Mail().SendNew(ctx, req.spec())
	b.audit.Record(audit.Entry{
		Operation:   audit.OpSend,
		Err:         err,
		To:          req.To,
		CC:          req.CC,
		BCC:         req.BCC,
		Subject:     req.Subject,
		IncludeBody: req.LogBody,
		Body:        req.body(),
	})
	if err != nil {
		return nil, err
	}
	b.log.Warn("message sent without a draft", "to_count", len(req.To))
	return &types.SendResult{
		Version: types.Version,
		Success: true,
		Message: "Message sent successfully",
		SentAt:  record.Timestamp(b.now()),
		To:      req.To,
		Subject: req.Subject,
	}, nil
}
