package folder

import (
	"context"
	"testing"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeClient serves a fixed folder tree keyed by folder id.
type treeClient struct {
	automation.MailClient
	roots    []automation.Folder
	children map[string][]automation.Folder
}

func (c *treeClient) DefaultFolder(ctx context.Context, name automation.WellKnown) (automation.Folder, error) {
	_ = ctx
	for _, f := range c.roots {
		if f.ID == string(name) {
			return f, nil
		}
	}
	return automation.Folder{}, errs.New(errs.FolderNotFound, "default", "%s", name)
}

func (c *treeClient) RootFolders(ctx context.Context) ([]automation.Folder, error) {
	_ = ctx
	return c.roots, nil
}

func (c *treeClient) Subfolders(ctx context.Context, parent automation.Folder) ([]automation.Folder, error) {
	_ = ctx
	return c.children[parent.ID], nil
}

func f(id, name string) automation.Folder {
	return automation.Folder{ID: id, Name: name}
}

func newTree() *treeClient {
	return &treeClient{
		roots: []automation.Folder{f("inbox", "Inbox"), f("sent", "Sent Items"), f("archive", "Archive")},
		children: map[string][]automation.Folder{
			"inbox":   {f("inbox/projects", "Projects"), f("inbox/receipts", "Receipts")},
			"archive": {f("archive/2024", "2024"), f("archive/projects", "Projects")},
			"inbox/projects": {
				f("inbox/projects/alpha", "Alpha"),
			},
			"archive/2024": {f("archive/2024/reports", "Reports")},
		},
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
	}{
		{"inbox", Spec{Kind: KindWellKnown, WellKnown: automation.Inbox}},
		{"INBOX", Spec{Kind: KindWellKnown, WellKnown: automation.Inbox}},
		{" Junk ", Spec{Kind: KindWellKnown, WellKnown: automation.Junk}},
		{"by-name:Projects", Spec{Kind: KindByName, Value: "Projects"}},
		{"BY-NAME:Projects", Spec{Kind: KindByName, Value: "Projects"}},
		{"by-path:/Inbox/Projects/", Spec{Kind: KindByPath, Value: "Inbox/Projects"}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseRejects(t *testing.T) {
	_, err := Parse("calendar")
	assert.True(t, errs.Is(err, errs.FolderNotFound))
	_, err = Parse("by-name:")
	assert.True(t, errs.Is(err, errs.Validation))
	_, err = Parse("by-path:/")
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestResolveCaseInsensitive(t *testing.T) {
	c := newTree()
	a, err := ResolveString(context.Background(), c, "INBOX")
	require.NoError(t, err)
	b, err := ResolveString(context.Background(), c, "inbox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestByNameBreadthFirstFirstMatch(t *testing.T) {
	got, err := ResolveString(context.Background(), newTree(), "by-name:projects")
	require.NoError(t, err)
	assert.Equal(t, "inbox/projects", got.ID)

	got, err = ResolveString(context.Background(), newTree(), "by-name:reports")
	require.NoError(t, err)
	assert.Equal(t, "archive/2024/reports", got.ID)
}

func TestByNameMissing(t *testing.T) {
	_, err := ResolveString(context.Background(), newTree(), "by-name:nothing")
	assert.True(t, errs.Is(err, errs.FolderNotFound))
}

func TestByPath(t *testing.T) {
	got, err := ResolveString(context.Background(), newTree(), "by-path:inbox/PROJECTS/alpha")
	require.NoError(t, err)
	assert.Equal(t, "inbox/projects/alpha", got.ID)

	got, err = ResolveString(context.Background(), newTree(), "by-path:Archive/Projects")
	require.NoError(t, err)
	assert.Equal(t, "archive/projects", got.ID)
}

func TestByPathMissingSegment(t *testing.T) {
	_, err := ResolveString(context.Background(), newTree(), "by-path:Inbox/Nope/Alpha")
	assert.True(t, errs.Is(err, errs.FolderNotFound))
}
