package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	gm "google.golang.org/api/gmail/v1"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/types"
)

// System label ids.
const (
	labelInbox  = "INBOX"
	labelSent   = "SENT"
	labelDraft  = "DRAFT"
	labelTrash  = "TRASH"
	labelSpam   = "SPAM"
	labelUnread = "UNREAD"
)

// decodeBase64URL decodes Gmail's URL-safe base64, padded or not.
func decodeBase64URL(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

func hasLabel(m *gm.Message, id string) bool {
	for _, l := range m.LabelIds {
		if l == id {
			return true
		}
	}
	return false
}

// headerBlock renders the payload headers as an RFC 5322 header block.
func headerBlock(headers []*gm.MessagePartHeader) string {
	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	return b.String()
}

// header returns the first value of name, case-insensitively.
func header(headers []*gm.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func addresses(v string) []*mail.Address {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(v)
	if err != nil {
		return []*mail.Address{{Address: strings.TrimSpace(v)}}
	}
	return list
}

// bodies walks the part tree for the first text/plain and text/html parts
// and every named attachment.
func bodies(p *gm.MessagePart) (text, html string, attachments []*gm.MessagePart) {
	var walk func(p *gm.MessagePart)
	walk = func(p *gm.MessagePart) {
		if p == nil {
			return
		}
		if p.Filename != "" {
			attachments = append(attachments, p)
			return
		}
		if p.Body != nil && p.Body.Data != "" {
			data, err := decodeBase64URL(p.Body.Data)
			if err == nil {
				switch {
				case strings.HasPrefix(p.MimeType, "text/plain") && text == "":
					text = string(data)
				case strings.HasPrefix(p.MimeType, "text/html") && html == "":
					html = string(data)
				}
			}
		}
		for _, c := range p.Parts {
			walk(c)
		}
	}
	walk(p)
	return text, html, attachments
}

// toMail converts a message fetched with format "full".
func toMail(account string, m *gm.Message) automation.Mail {
	out := automation.Mail{
		ID:          types.ItemID{EntryID: m.Id, StoreID: account},
		ReceivedAt:  time.UnixMilli(m.InternalDate),
		Unread:      hasLabel(m, labelUnread),
		Sent:        !hasLabel(m, labelDraft),
		Attachments: []string{},
	}
	if m.Payload == nil {
		return out
	}
	hs := m.Payload.Headers
	out.Subject = header(hs, "Subject")
	out.RawHeaders = headerBlock(hs)
	if from := addresses(header(hs, "From")); len(from) > 0 {
		out.From = types.EmailAddress{Name: from[0].Name, Email: from[0].Address}
	}
	for _, line := range []struct {
		name string
		kind automation.RecipientKind
	}{{"To", automation.To}, {"Cc", automation.CC}, {"Bcc", automation.BCC}} {
		for _, a := range addresses(header(hs, line.name)) {
			out.Recipients = append(out.Recipients, automation.Recipient{Kind: line.kind, Name: a.Name, Address: a.Address})
		}
	}
	var atts []*gm.MessagePart
	out.Body, out.HTMLBody, atts = bodies(m.Payload)
	for _, a := range atts {
		out.Attachments = append(out.Attachments, a.Filename)
	}
	return out
}

// file is one attachment to put on an outgoing message.
type file struct {
	Name string
	Data []byte
}

// outgoing is everything needed to compose an RFC 5322 message.
type outgoing struct {
	From       types.EmailAddress
	To, CC     []string
	BCC        []string
	Subject    string
	Body       string
	HTMLBody   string
	InReplyTo  string
	References []string
	Files      []file
	Date       time.Time
}

func addrList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Address: a})
	}
	return out
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// compose renders o as a MIME message: a single inline part when there
// are no files, multipart/mixed otherwise.
func compose(o outgoing) ([]byte, error) {
	var h mail.Header
	h.SetDate(o.Date)
	h.SetSubject(o.Subject)
	if o.From.Email != "" {
		h.SetAddressList("From", []*mail.Address{{Name: o.From.Name, Address: o.From.Email}})
	}
	for _, line := range []struct {
		key   string
		addrs []string
	}{{"To", o.To}, {"Cc", o.CC}, {"Bcc", o.BCC}} {
		if len(line.addrs) > 0 {
			h.SetAddressList(line.key, addrList(line.addrs))
		}
	}
	if o.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{o.InReplyTo})
		h.SetMsgIDList("References", append(o.References, o.InReplyTo))
	}

	textType, text := "text/plain", o.Body
	if o.HTMLBody != "" {
		textType, text = "text/html", o.HTMLBody
	}

	var buf bytes.Buffer
	if len(o.Files) == 0 {
		h.SetContentType(textType, map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("create message: %w", err)
		}
		if _, err := io.WriteString(w, text); err != nil {
			return nil, fmt.Errorf("write body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("close message: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType(textType, map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(pw, text); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	pw.Close()
	tw.Close()

	for _, f := range o.Files {
		var ah mail.AttachmentHeader
		ah.SetContentType(contentType(f.Name), nil)
		ah.SetFilename(f.Name)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", f.Name, err)
		}
		if _, err := aw.Write(f.Data); err != nil {
			return nil, fmt.Errorf("attach %s: %w", f.Name, err)
		}
		aw.Close()
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

// raw encodes a composed message for the Gmail API.
func raw(msg []byte) string {
	return base64.URLEncoding.EncodeToString(msg)
}
