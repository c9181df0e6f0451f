package automation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "report v2.pdf", SafeFileName("report v2.pdf", 1))
	assert.Equal(t, "....etcpasswd", SafeFileName("../../etc/passwd", 1))
	assert.Equal(t, "attachment_3", SafeFileName("///", 3))
	assert.Equal(t, "attachment_4", SafeFileName("..", 4))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	first := UniquePath(dir, "a.txt")
	assert.Equal(t, filepath.Join(dir, "a.txt"), first)
	require.NoError(t, os.WriteFile(first, nil, 0o600))

	second := UniquePath(dir, "a.txt")
	assert.Equal(t, filepath.Join(dir, "a_1.txt"), second)
	require.NoError(t, os.WriteFile(second, nil, 0o600))

	assert.Equal(t, filepath.Join(dir, "a_2.txt"), UniquePath(dir, "a.txt"))
}

func TestCheckAttachments(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.txt")
	require.NoError(t, os.WriteFile(ok, []byte("x"), 0o600))

	require.NoError(t, CheckAttachments([]string{ok}))
	assert.True(t, errs.Is(CheckAttachments([]string{ok, filepath.Join(dir, "missing")}), errs.Attachment))
	assert.True(t, errs.Is(CheckAttachments([]string{dir}), errs.Attachment))
}
