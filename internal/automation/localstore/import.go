package localstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/types"
)

// Import parses an RFC 5322 message and delivers it, unread, into folder.
func (s *Store) Import(ctx context.Context, folder automation.Folder, r io.Reader) (types.ItemID, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return types.ItemID{}, fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	var raw bytes.Buffer
	if err := textproto.WriteHeader(&raw, mr.Header.Header.Header); err != nil {
		return types.ItemID{}, fmt.Errorf("copy headers: %w", err)
	}

	m := automation.Mail{Unread: true, Sent: true, RawHeaders: raw.String()}
	m.Subject, _ = mr.Header.Subject()
	m.ReceivedAt, _ = mr.Header.Date()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		m.From = types.EmailAddress{Name: from[0].Name, Email: from[0].Address}
	}
	for _, line := range []struct {
		key  string
		kind automation.RecipientKind
	}{{"To", automation.To}, {"Cc", automation.CC}, {"Bcc", automation.BCC}} {
		addrs, err := mr.Header.AddressList(line.key)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			m.Recipients = append(m.Recipients, automation.Recipient{Kind: line.kind, Name: a.Name, Address: a.Address})
		}
	}

	var atts []Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain") && m.Body == "":
				m.Body = string(body)
			case strings.HasPrefix(contentType, "text/html") && m.HTMLBody == "":
				m.HTMLBody = string(body)
			}
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			atts = append(atts, Attachment{Name: name, Data: data})
		}
	}

	return s.Deliver(ctx, folder, m, atts)
}
