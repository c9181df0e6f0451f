package bridge

import (
	"context"
	"path/filepath"

	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/folder"
	"github.com/daviddao/outlookctl/internal/types"
)

// Move puts id into the destination folder and returns the item's new id.
func (b *Bridge) Move(ctx context.Context, id types.ItemID, dest string) (*types.MoveResult, error) {
	c := b.sess.Mail()
	f, err := folder.ResolveString(ctx, c, dest)
	if err != nil {
		return nil, err
	}
	m, err := c.MoveMail(ctx, id, f)
	if err != nil {
		return nil, err
	}
	b.log.Info("message moved", "entry_id", id.EntryID, "to", f.Path)
	return &types.MoveResult{
		Version:  types.Version,
		Success:  true,
		ID:       m.ID,
		MovedTo:  f.Path,
		Subject:  m.Subject,
		Previous: id,
	}, nil
}

// Delete moves id to Deleted Items.
func (b *Bridge) Delete(ctx context.Context, id types.ItemID) (*types.DeleteResult, error) {
	c := b.sess.Mail()
	m, err := c.GetMail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.DeleteMail(ctx, id); err != nil {
		return nil, err
	}
	return &types.DeleteResult{
		Version: types.Version,
		Success: true,
		Message: "Message moved to Deleted Items",
		Subject: m.Subject,
	}, nil
}

// MarkRead sets the read state of every id. Every id is looked up first,
// so an unknown id changes nothing.
func (b *Bridge) MarkRead(ctx context.Context, ids []types.ItemID, unread bool) (*types.MarkReadResult, error) {
	if len(ids) == 0 {
		return nil, errs.New(errs.Validation, "mark read", "no message ids given")
	}
	c := b.sess.Mail()
	for _, id := range ids {
		if _, err := c.GetMail(ctx, id); err != nil {
			return nil, err
		}
	}
	updated := make([]types.ItemID, 0, len(ids))
	for _, id := range ids {
		if err := c.SetUnread(ctx, id, unread); err != nil {
			return nil, err
		}
		updated = append(updated, id)
	}
	return &types.MarkReadResult{Version: types.Version, Success: true, Unread: unread, Updated: updated}, nil
}

// SaveAttachments writes the attachments of id into dir.
func (b *Bridge) SaveAttachments(ctx context.Context, id types.ItemID, dir string) (*types.AttachmentSaveResult, error) {
	if dir == "" {
		return nil, errs.New(errs.Validation, "save attachments", "destination directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errs.Wrap(errs.Attachment, "save attachments", err)
	}
	saved, err := b.sess.Mail().SaveAttachments(ctx, id, abs)
	if err != nil {
		return nil, err
	}
	return &types.AttachmentSaveResult{Version: types.Version, Success: true, Directory: abs, Saved: saved}, nil
}
