package localstore

import (
	"context"
	"fmt"
	"os"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

var (
	_ automation.Conn           = (*Store)(nil)
	_ automation.CalendarClient = (*Store)(nil)
)

// Dialer opens the mailbox at Path.
type Dialer struct {
	Path  string
	Owner types.EmailAddress
}

// Name implements automation.Dialer.
func (d Dialer) Name() string { return "local" }

// Dial implements automation.Dialer.
func (d Dialer) Dial(ctx context.Context) (automation.Conn, error) {
	_ = ctx
	s, err := Open(d.Path, d.Owner)
	if err != nil {
		return nil, &errs.Error{
			Kind:        errs.Unavailable,
			Op:          "open local store",
			Err:         err,
			Remediation: fmt.Sprintf("Check that %s is a writable SQLite file or set local.path in the config.", d.Path),
		}
	}
	return s, nil
}

// Diagnose implements automation.Dialer.
func (d Dialer) Diagnose(ctx context.Context) []types.DoctorCheck {
	checks := []types.DoctorCheck{
		automation.HostCheck(ctx, ""),
		{Name: automation.CheckBinding, Passed: true, Message: "modernc.org/sqlite driver linked"},
	}

	iface := types.DoctorCheck{Name: automation.CheckInterface}
	if s, err := Open(d.Path, d.Owner); err != nil {
		iface.Message = err.Error()
		iface.Remediation = "Set local.path to a writable location."
	} else {
		iface.Passed = true
		iface.Message = fmt.Sprintf("opened %s (store %s)", d.Path, s.StoreID())
		s.Close()
	}
	checks = append(checks, iface)

	exe := types.DoctorCheck{Name: automation.CheckExecutable, Passed: true, Message: "no client process needed"}
	if d.Path != Memory {
		if _, err := os.Stat(d.Path); err != nil {
			exe.Message = "database will be created at " + d.Path
		}
	}
	return append(checks, exe)
}
