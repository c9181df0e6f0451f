// Package folder turns folder specifications into concrete folder handles.
//
// A specification is one of:
//
//	inbox | sent | drafts | deleted | outbox | junk
//	by-name:<name>      breadth-first search from the mailbox roots
//	by-path:<a/b/c>     walk child folders segment by segment
//
// Prefixes and names compare case-insensitively.
package folder

import (
	"context"
	"strings"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
)

// Kind tags a Spec.
type Kind int

const (
	KindWellKnown Kind = iota
	KindByName
	KindByPath
)

const (
	prefixByName = "by-name:"
	prefixByPath = "by-path:"
)

// Spec is a parsed folder specification.
type Spec struct {
	Kind      Kind
	WellKnown automation.WellKnown
	Value     string
}

func (s Spec) String() string {
	switch s.Kind {
	case KindByName:
		return prefixByName + s.Value
	case KindByPath:
		return prefixByPath + s.Value
	default:
		return string(s.WellKnown)
	}
}

func notFound(format string, args ...any) error {
	return errs.New(errs.FolderNotFound, "resolve folder", format, args...)
}

// Parse reads a specification string.
func Parse(s string) (Spec, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, prefixByName):
		name := strings.TrimSpace(raw[len(prefixByName):])
		if name == "" {
			return Spec{}, errs.New(errs.Validation, "resolve folder", "by-name: needs a folder name")
		}
		return Spec{Kind: KindByName, Value: name}, nil
	case strings.HasPrefix(lower, prefixByPath):
		path := strings.Trim(strings.TrimSpace(raw[len(prefixByPath):]), "/")
		if path == "" {
			return Spec{}, errs.New(errs.Validation, "resolve folder", "by-path: needs a folder path")
		}
		return Spec{Kind: KindByPath, Value: path}, nil
	}
	for _, wk := range automation.MailFolders {
		if lower == string(wk) {
			return Spec{Kind: KindWellKnown, WellKnown: wk}, nil
		}
	}
	return Spec{}, notFound("unknown folder %q", raw)
}

// Resolve maps spec to exactly one folder.
func Resolve(ctx context.Context, c automation.MailClient, spec Spec) (automation.Folder, error) {
	switch spec.Kind {
	case KindByName:
		return byName(ctx, c, spec.Value)
	case KindByPath:
		return byPath(ctx, c, spec.Value)
	default:
		return c.DefaultFolder(ctx, spec.WellKnown)
	}
}

// ResolveString parses and resolves in one step.
func ResolveString(ctx context.Context, c automation.MailClient, s string) (automation.Folder, error) {
	spec, err := Parse(s)
	if err != nil {
		return automation.Folder{}, err
	}
	return Resolve(ctx, c, spec)
}

// byName returns the first folder named name in breadth-first order.
func byName(ctx context.Context, c automation.MailClient, name string) (automation.Folder, error) {
	queue, err := c.RootFolders(ctx)
	if err != nil {
		return automation.Folder{}, err
	}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
		children, err := c.Subfolders(ctx, f)
		if err != nil {
			return automation.Folder{}, err
		}
		queue = append(queue, children...)
	}
	return automation.Folder{}, notFound("no folder named %q", name)
}

func byPath(ctx context.Context, c automation.MailClient, path string) (automation.Folder, error) {
	level, err := c.RootFolders(ctx)
	if err != nil {
		return automation.Folder{}, err
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		var found *automation.Folder
		for j := range level {
			if strings.EqualFold(level[j].Name, seg) {
				found = &level[j]
				break
			}
		}
		if found == nil {
			return automation.Folder{}, notFound("folder path %q: segment %q not found", path, seg)
		}
		if i == len(segments)-1 {
			return *found, nil
		}
		if level, err = c.Subfolders(ctx, *found); err != nil {
			return automation.Folder{}, err
		}
	}
	return automation.Folder{}, notFound("empty folder path")
}
