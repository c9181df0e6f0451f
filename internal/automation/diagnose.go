package automation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/daviddao/outlookctl/internal/types"
)

// HostCheck reports the host OS. A non-empty want restricts the check to
// that GOOS value.
func HostCheck(ctx context.Context, want string) types.DoctorCheck {
	c := types.DoctorCheck{Name: CheckHostOS}
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		c.Message = fmt.Sprintf("cannot read host info: %v", err)
		c.Remediation = "Run outlookctl on the machine where the mail client is installed."
		return c
	}
	desc := strings.TrimSpace(fmt.Sprintf("%s %s %s", info.OS, info.Platform, info.PlatformVersion))
	if want != "" && info.OS != want {
		c.Message = fmt.Sprintf("running on %s; this backend needs %s", desc, want)
		c.Remediation = fmt.Sprintf("Run outlookctl on %s or pick another backend with --backend.", want)
		return c
	}
	c.Passed = true
	c.Message = desc
	return c
}

// ProcessCheck looks for a running process named exe.
func ProcessCheck(ctx context.Context, exe string) types.DoctorCheck {
	c := types.DoctorCheck{Name: CheckExecutable}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		c.Message = fmt.Sprintf("cannot list processes: %v", err)
		return c
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(name, exe) {
			c.Passed = true
			c.Message = fmt.Sprintf("%s running (pid %d)", name, p.Pid)
			return c
		}
	}
	c.Message = exe + " is not running"
	c.Remediation = "Start the mail client; outlookctl attaches to a running instance."
	return c
}

// FileCheck reports whether the first existing path in candidates exists.
func FileCheck(name string, candidates []string, remediation string) types.DoctorCheck {
	c := types.DoctorCheck{Name: name}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			c.Passed = true
			c.Message = "found " + p
			return c
		}
	}
	c.Message = "not found in " + strings.Join(candidates, ", ")
	c.Remediation = remediation
	return c
}
