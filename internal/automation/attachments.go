package automation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/daviddao/outlookctl/internal/errs"
)

// SafeFileName keeps letters, digits, '.', '_', '-' and spaces. An empty
// result becomes attachment_<index>.
func SafeFileName(name string, index int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" || strings.Trim(safe, ".") == "" {
		return fmt.Sprintf("attachment_%d", index)
	}
	return safe
}

// UniquePath returns a path in dir for name that does not exist yet,
// appending _1, _2 ... before the extension as needed.
func UniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

// PrepareDir creates dir for saved attachments.
func PrepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.Attachment, "save attachments", fmt.Errorf("create %s: %w", dir, err))
	}
	return nil
}

// CheckAttachments fails when any source file is missing.
func CheckAttachments(paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return errs.Wrap(errs.Attachment, "attach", fmt.Errorf("attachment %s: %w", p, err))
		}
		if info.IsDir() {
			return errs.New(errs.Attachment, "attach", "attachment %s is a directory", p)
		}
	}
	return nil
}
