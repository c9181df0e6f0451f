// Package bridge implements outlookctl's operations on top of a live
// automation session: reads go through the folder resolver, filter engine
// and record serializer; writes go through the draft-safety gates and the
// audit log.
package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/daviddao/outlookctl/internal/audit"
	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/filter"
	"github.com/daviddao/outlookctl/internal/folder"
	"github.com/daviddao/outlookctl/internal/record"
	"github.com/daviddao/outlookctl/internal/types"
)

// Default result sizes.
const (
	DefaultListCount   = 10
	DefaultSearchLimit = 50
	DefaultEventCount  = 100
	DefaultEventDays   = 7
)

// Bridge borrows a session for one invocation. It never releases it.
type Bridge struct {
	sess  *automation.Session
	audit *audit.Logger
	log   *slog.Logger
	now   func() time.Time
}

// New returns a bridge over sess. Dispatches are recorded in auditLog.
func New(sess *automation.Session, auditLog *audit.Logger, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{sess: sess, audit: auditLog, log: log, now: time.Now}
}

func folderInfo(f automation.Folder) types.FolderInfo {
	return types.FolderInfo{Name: f.Name, Path: f.Path, StoreID: f.StoreID}
}

func summaries(items []automation.Mail, snippetChars int) []types.MessageSummary {
	out := make([]types.MessageSummary, 0, len(items))
	for i := range items {
		out = append(out, record.Summarize(&items[i], snippetChars))
	}
	return out
}

// ListRequest selects the newest messages of one folder.
type ListRequest struct {
	Folder     string
	Count      int
	UnreadOnly bool
	Since      time.Time
	Until      time.Time
	// SnippetChars > 0 adds body_snippet to every item.
	SnippetChars int
}

// List returns up to Count messages from the folder, newest first.
func (b *Bridge) List(ctx context.Context, req ListRequest) (*types.ListResult, error) {
	c := b.sess.Mail()
	f, err := folder.ResolveString(ctx, c, req.Folder)
	if err != nil {
		return nil, err
	}
	p := filter.Predicate{UnreadOnly: req.UnreadOnly, Since: req.Since, Until: req.Until}
	items, err := filter.Search(ctx, c, f, p, req.Count)
	if err != nil {
		return nil, err
	}
	b.log.Debug("listed messages", "folder", f.Path, "count", len(items))
	return &types.ListResult{
		Version: types.Version,
		Folder:  folderInfo(f),
		Items:   summaries(items, req.SnippetChars),
	}, nil
}

// SearchRequest runs a predicate over one folder.
type SearchRequest struct {
	Folder       string
	Predicate    filter.Predicate
	Limit        int
	SnippetChars int
}

// Search returns at most Limit matching messages, newest first.
func (b *Bridge) Search(ctx context.Context, req SearchRequest) (*types.SearchResult, error) {
	c := b.sess.Mail()
	f, err := folder.ResolveString(ctx, c, req.Folder)
	if err != nil {
		return nil, err
	}
	items, err := filter.Search(ctx, c, f, req.Predicate, req.Limit)
	if err != nil {
		return nil, err
	}
	p := req.Predicate
	return &types.SearchResult{
		Version: types.Version,
		Query: types.SearchQuery{
			Folder:         f.Path,
			From:           p.From,
			To:             p.To,
			CC:             p.CC,
			Subject:        p.Subject,
			Text:           p.Text,
			UnreadOnly:     p.UnreadOnly,
			HasAttachments: p.HasAttachments,
			Since:          record.Timestamp(p.Since),
			Until:          record.Timestamp(p.Until),
			Limit:          req.Limit,
		},
		Items: summaries(items, req.SnippetChars),
	}, nil
}

// GetMessage returns one message, disclosing only what opts asks for.
func (b *Bridge) GetMessage(ctx context.Context, id types.ItemID, opts record.DetailOptions) (*types.MessageResult, error) {
	m, err := b.sess.Mail().GetMail(ctx, id)
	if err != nil {
		return nil, err
	}
	return &types.MessageResult{Version: types.Version, MessageDetail: record.Detail(m, opts)}, nil
}
