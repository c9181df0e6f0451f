// Package localstore is a SQLite-backed mailbox that implements the
// automation capability interfaces.
//
// It serves development and CI machines without a desktop client, and it
// is the fixture the bridge tests run against. Entry ids are UUIDs; the
// store id is generated once per database and kept in the meta table.
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

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// tsLayout is fixed-width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

var defaultFolders = []struct {
	wk   automation.WellKnown
	name string
}{
	{automation.Inbox, "Inbox"},
	{automation.Drafts, "Drafts"},
	{automation.Sent, "Sent Items"},
	{automation.Deleted, "Deleted Items"},
	{automation.Outbox, "Outbox"},
	{automation.Junk, "Junk Email"},
}

// Store wraps a SQLite connection holding one mailbox.
type Store struct {
	db      *sqlx.DB
	path    string
	storeID string
	owner   types.EmailAddress
	now     func() time.Time
}

// Open opens (or creates) a mailbox database at path. owner is the
// address drafts are sent from and meetings are organized by.
func Open(path string, owner types.EmailAddress) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(ON)"
	if path != Memory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &Store{db: db, path: path, owner: owner, now: time.Now}
	if s.owner.Email == "" {
		s.owner = types.EmailAddress{Name: "Me", Email: "me@localhost"}
	}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) bootstrap() error {
	err := s.db.Get(&s.storeID, "SELECT value FROM meta WHERE key = 'store_id'")
	if errors.Is(err, sql.ErrNoRows) {
		s.storeID = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
		if _, err := s.db.Exec("INSERT INTO meta (key, value) VALUES ('store_id', ?)", s.storeID); err != nil {
			return fmt.Errorf("write store id: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("read store id: %w", err)
	}

	for i, f := range defaultFolders {
		_, err := s.db.Exec(`
			INSERT OR IGNORE INTO folders (id, parent_id, name, well_known, position)
			VALUES (?, NULL, ?, ?, ?)`,
			genID(), f.name, string(f.wk), i)
		if err != nil {
			return fmt.Errorf("create folder %s: %w", f.name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// StoreID returns the mailbox's store id.
func (s *Store) StoreID() string { return s.storeID }

// Owner returns the mailbox owner.
func (s *Store) Owner() types.EmailAddress { return s.owner }

// genID generates a 32-character upper-case hex entry id.
func genID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func (s *Store) itemID(entry string) types.ItemID {
	return types.ItemID{EntryID: entry, StoreID: s.storeID}
}

// owns reports whether id belongs to this mailbox.
func (s *Store) owns(id types.ItemID) bool {
	return id.StoreID == s.storeID && id.EntryID != ""
}

// --- Folders ---

type folderRow struct {
	ID        string         `db:"id"`
	ParentID  sql.NullString `db:"parent_id"`
	Name      string         `db:"name"`
	WellKnown sql.NullString `db:"well_known"`
}

func (s *Store) toFolder(ctx context.Context, r folderRow) automation.Folder {
	return automation.Folder{ID: r.ID, Name: r.Name, Path: s.folderPath(ctx, r), StoreID: s.storeID}
}

func (s *Store) folderPath(ctx context.Context, r folderRow) string {
	parts := []string{r.Name}
	for r.ParentID.Valid {
		var parent folderRow
		if err := s.db.GetContext(ctx, &parent, "SELECT id, parent_id, name, well_known FROM folders WHERE id = ?", r.ParentID.String); err != nil {
			break
		}
		parts = append([]string{parent.Name}, parts...)
		r = parent
	}
	return strings.Join(parts, "/")
}

// DefaultFolder returns a well-known folder.
func (s *Store) DefaultFolder(ctx context.Context, name automation.WellKnown) (automation.Folder, error) {
	var r folderRow
	err := s.db.GetContext(ctx, &r, "SELECT id, parent_id, name, well_known FROM folders WHERE well_known = ?", string(name))
	if errors.Is(err, sql.ErrNoRows) {
		return automation.Folder{}, errs.New(errs.FolderNotFound, "default folder", "no %s folder", name)
	}
	if err != nil {
		return automation.Folder{}, errs.Wrap(errs.Operation, "default folder", err)
	}
	return s.toFolder(ctx, r), nil
}

// RootFolders lists the top-level folders.
func (s *Store) RootFolders(ctx context.Context) ([]automation.Folder, error) {
	return s.children(ctx, sql.NullString{})
}

// Subfolders lists the direct children of parent.
func (s *Store) Subfolders(ctx context.Context, parent automation.Folder) ([]automation.Folder, error) {
	return s.children(ctx, sql.NullString{String: parent.ID, Valid: true})
}

func (s *Store) children(ctx context.Context, parent sql.NullString) ([]automation.Folder, error) {
	var rows []folderRow
	var err error
	if parent.Valid {
		err = s.db.SelectContext(ctx, &rows, "SELECT id, parent_id, name, well_known FROM folders WHERE parent_id = ? ORDER BY position, name", parent.String)
	} else {
		err = s.db.SelectContext(ctx, &rows, "SELECT id, parent_id, name, well_known FROM folders WHERE parent_id IS NULL ORDER BY position, name")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list folders", err)
	}
	out := make([]automation.Folder, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.toFolder(ctx, r))
	}
	return out, nil
}

// AddFolder creates a folder under parent, or at the top level when
// parent is nil.
func (s *Store) AddFolder(ctx context.Context, parent *automation.Folder, name string) (automation.Folder, error) {
	var parentID sql.NullString
	if parent != nil {
		parentID = sql.NullString{String: parent.ID, Valid: true}
	}
	id := genID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, parent_id, name, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM folders))`,
		id, parentID, name)
	if err != nil {
		return automation.Folder{}, fmt.Errorf("add folder %s: %w", name, err)
	}
	return s.toFolder(ctx, folderRow{ID: id, ParentID: parentID, Name: name}), nil
}
