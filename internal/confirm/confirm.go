// Package confirm validates the confirmation token that gates every
// dispatch operation.
package confirm

import (
	"os"
	"strings"

	"github.com/daviddao/outlookctl/internal/errs"
)

// Token is the only accepted confirmation value.
const Token = "YES"

// Confirmation is what the caller supplied: an inline value, a file path,
// or neither.
type Confirmation struct {
	Value string
	File  string
}

// Provided reports whether the caller supplied anything at all.
func (c Confirmation) Provided() bool {
	return c.Value != "" || c.File != ""
}

// Check returns nil only when the inline value is exactly "YES", or, with
// no inline value, when the file's trimmed contents are exactly "YES".
// An inline value other than "YES" is rejected even if the file would pass.
func (c Confirmation) Check(op string) error {
	if c.Value != "" {
		if c.Value == Token {
			return nil
		}
		return errs.New(errs.ConfirmationRequired, op, "confirmation must be exactly %q", Token)
	}
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return &errs.Error{
				Kind:        errs.ConfirmationRequired,
				Op:          op,
				Msg:         "cannot read confirmation file",
				Err:         err,
				Remediation: "Write YES into the confirmation file and pass its path with --confirm-send-file.",
			}
		}
		if strings.TrimSpace(string(data)) == Token {
			return nil
		}
		return errs.New(errs.ConfirmationRequired, op, "confirmation file %s does not contain %q", c.File, Token)
	}
	return errs.New(errs.ConfirmationRequired, op, "sending requires explicit confirmation")
}
