package confirm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confirm.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestInlineYesPasses(t *testing.T) {
	require.NoError(t, Confirmation{Value: "YES"}.Check("send"))
}

func TestInlineNonYesRejected(t *testing.T) {
	for _, v := range []string{"yes", "Yes", "YES ", " YES", "Y", "true", "1", "YESS", "NO"} {
		err := Confirmation{Value: v}.Check("send")
		require.Error(t, err, "value %q", v)
		assert.True(t, errs.Is(err, errs.ConfirmationRequired), "value %q", v)
	}
}

func TestMissingConfirmation(t *testing.T) {
	c := Confirmation{}
	assert.False(t, c.Provided())
	assert.True(t, errs.Is(c.Check("send"), errs.ConfirmationRequired))
}

func TestFileContentsTrimmed(t *testing.T) {
	path := writeFile(t, "  YES\n")
	require.NoError(t, Confirmation{File: path}.Check("send"))
}

func TestFileWrongContents(t *testing.T) {
	path := writeFile(t, "yes please")
	err := Confirmation{File: path}.Check("send")
	assert.True(t, errs.Is(err, errs.ConfirmationRequired))
}

func TestFileMissing(t *testing.T) {
	err := Confirmation{File: filepath.Join(t.TempDir(), "nope")}.Check("send")
	assert.True(t, errs.Is(err, errs.ConfirmationRequired))
}

func TestBadInlineNotRescuedByFile(t *testing.T) {
	path := writeFile(t, "YES")
	err := Confirmation{Value: "no", File: path}.Check("send")
	assert.True(t, errs.Is(err, errs.ConfirmationRequired))
}
