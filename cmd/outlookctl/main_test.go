package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	started = false
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDraftSendAuditAgainstLocalStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUTLOOKCTL_LOCAL_PATH", filepath.Join(dir, "mailbox.db"))
	t.Setenv("OUTLOOKCTL_AUDIT_PATH", filepath.Join(dir, "audit.log"))
	global := []string{"--config", filepath.Join(dir, "missing.yaml"), "--backend", "local"}
	run := func(args ...string) (string, error) {
		return execute(t, append(append([]string{}, global...), args...)...)
	}

	out, err := run("draft", "--to", "bob@example.com", "--subject", "Hello", "--body-text", "Hi Bob")
	require.NoError(t, err)
	var draft types.DraftResult
	require.NoError(t, json.Unmarshal([]byte(out), &draft))
	assert.True(t, draft.Success)
	assert.Equal(t, "Drafts", draft.SavedTo)
	assert.Equal(t, []string{"bob@example.com"}, draft.To)
	require.NotEmpty(t, draft.ID.EntryID)

	out, err = run("list", "--folder", "drafts")
	require.NoError(t, err)
	var list types.ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Hello", list.Items[0].Subject)
	assert.Nil(t, list.Items[0].BodySnippet)

	_, err = run("send", "--draft-id", draft.ID.EntryID, "--draft-store", draft.ID.StoreID)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ConfirmationRequired))

	out, err = run("send", "--draft-id", draft.ID.EntryID, "--draft-store", draft.ID.StoreID, "--confirm-send", "YES")
	require.NoError(t, err)
	var sent types.SendResult
	require.NoError(t, json.Unmarshal([]byte(out), &sent))
	assert.True(t, sent.Success)

	out, err = run("audit", "show")
	require.NoError(t, err)
	var log auditResult
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	require.Len(t, log.Records, 2)
	assert.Equal(t, "draft", log.Records[0].Operation)
	assert.Equal(t, "send", log.Records[1].Operation)
	assert.Equal(t, 1, log.Records[1].Recipients.ToCount)
	assert.Empty(t, log.Records[1].Body)
}

func TestErrorResult(t *testing.T) {
	res := errorResult(errs.New(errs.FolderNotFound, "list", "no folder %q", "Projects"))
	assert.False(t, res.Success)
	assert.Equal(t, types.Version, res.Version)
	assert.Equal(t, "FOLDER_NOT_FOUND", res.ErrorCode)
	assert.Contains(t, res.Error, "Projects")
	assert.NotEmpty(t, res.Remediation)
}

func TestClassify(t *testing.T) {
	started = false
	usage := classify(errors.New(`required flag(s) "id" not set`))
	assert.True(t, errs.Is(usage, errs.Validation))

	started = true
	defer func() { started = false }()
	assert.Equal(t, errs.Operation, errs.KindOf(classify(errors.New("disk full"))))

	typed := errs.New(errs.MessageNotFound, "get", "gone")
	assert.Same(t, typed, classify(typed))
}
