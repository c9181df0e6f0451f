//go:build !windows

package outlook

import (
	"context"
	"runtime"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

const notWindows = "Classic Outlook automation needs Windows; use --backend local or gmail here."

// Dial implements automation.Dialer. There is no COM host off Windows.
func (d Dialer) Dial(ctx context.Context) (automation.Conn, error) {
	return nil, errs.New(errs.Unavailable, "connect outlook", "COM is not available on %s", runtime.GOOS).
		WithHint(notWindows)
}

func bindingCheck() types.DoctorCheck {
	return types.DoctorCheck{
		Name:        automation.CheckBinding,
		Message:     "COM bindings are only built for windows",
		Remediation: notWindows,
	}
}

func (d Dialer) interfaceCheck(ctx context.Context) types.DoctorCheck {
	return types.DoctorCheck{
		Name:        automation.CheckInterface,
		Message:     progID + " cannot be reached from " + runtime.GOOS,
		Remediation: notWindows,
	}
}
