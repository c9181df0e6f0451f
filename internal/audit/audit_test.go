package audit

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := New(filepath.Join(t.TempDir(), "nested", "audit.log"), slog.New(slog.NewTextHandler(&buf, nil)))
	l.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, &buf
}

func TestRecordMinimalDisclosure(t *testing.T) {
	l, _ := newTestLogger(t)
	l.Record(Entry{
		Operation: OpSend,
		To:        []string{"a@x.com", "b@x.com"},
		CC:        []string{"c@x.com"},
		Subject:   "Héllo",
		EntryID:   "E1",
		Body:      "secret body",
	})

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret body")
	assert.NotContains(t, string(data), "a@x.com")
	assert.NotContains(t, string(data), "body_included")

	recs, err := Read(l.Path())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "2025-01-02T03:04:05Z", r.Timestamp)
	assert.Equal(t, OpSend, r.Operation)
	assert.True(t, r.Success)
	assert.Equal(t, Recipients{ToCount: 2, CCCount: 1}, r.Recipients)
	assert.Equal(t, 5, r.SubjectLength)
	assert.Equal(t, "E1", r.EntryID)
}

func TestRecordBodyOptIn(t *testing.T) {
	l, _ := newTestLogger(t)
	l.Record(Entry{Operation: OpSend, Body: "the body", IncludeBody: true})

	recs, err := Read(l.Path())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].BodyIncluded)
	assert.True(t, *recs[0].BodyIncluded)
	assert.Equal(t, "the body", recs[0].Body)
}

func TestRecordFailure(t *testing.T) {
	l, _ := newTestLogger(t)
	l.Record(Entry{Operation: OpSend, Err: errors.New("rejected")})
	l.Record(Entry{Operation: OpDraft})

	recs, err := Read(l.Path())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "rejected", recs[0].Error)
	assert.True(t, recs[1].Success)
}

func TestWriteFailureOnlyWarns(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	var buf bytes.Buffer
	l := New(filepath.Join(blocker, "audit.log"), slog.New(slog.NewTextHandler(&buf, nil)))
	assert.NotPanics(t, func() { l.Record(Entry{Operation: OpSend}) })
	assert.True(t, strings.Contains(buf.String(), "audit log write failed"))
}

func TestReadMissingFile(t *testing.T) {
	recs, err := Read(filepath.Join(t.TempDir(), "none.log"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("LOCALAPPDATA", "/tmp/lad")
	assert.Equal(t, filepath.Join("/tmp/lad", "outlookctl", "audit.log"), DefaultPath())

	t.Setenv("LOCALAPPDATA", "")
	assert.True(t, strings.HasSuffix(DefaultPath(), filepath.Join(".outlookctl", "audit.log")))
}
