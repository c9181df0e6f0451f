package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(FolderNotFound, "resolve", "folder %q not found", "Projects")
	wrapped := fmt.Errorf("list: %w", base)

	assert.Equal(t, FolderNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, FolderNotFound))
	assert.False(t, Is(wrapped, MessageNotFound))
	assert.Equal(t, "FOLDER_NOT_FOUND", KindOf(wrapped).Code())
}

func TestUnclassifiedErrorIsOperation(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Operation, KindOf(err))
	assert.NotEmpty(t, Remediation(err))
}

func TestEveryKindHasCodeAndHint(t *testing.T) {
	for k := Operation; k <= Attachment; k++ {
		e := &Error{Kind: k}
		assert.NotEmpty(t, e.Code(), "kind %d", k)
		assert.NotEmpty(t, e.Hint(), "kind %d", k)
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("rpc failed")
	err := Wrap(Send, "send", cause)
	require.Error(t, err)
	assert.Equal(t, "send: rpc failed", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(Send, "send", nil))

	e := New(Validation, "", "bad input")
	assert.Equal(t, "bad input", e.Error())
	assert.Equal(t, "custom", e.WithHint("custom").Hint())
	assert.NotEqual(t, "custom", e.Hint())
}
