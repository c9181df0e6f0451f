package gmail

import (
	"context"
	"log/slog"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

// Dialer authenticates against the Gmail API.
type Dialer struct {
	Credentials string
	Token       string
	Log         *slog.Logger
}

// Name implements automation.Dialer.
func (d Dialer) Name() string { return "gmail" }

func (d Dialer) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// Dial implements automation.Dialer. Every failure is reported as
// Unavailable; a network blip during the profile lookup is retried.
func (d Dialer) Dial(ctx context.Context) (automation.Conn, error) {
	svc, err := NewService(ctx, d.Credentials, d.Token, d.logger())
	if err != nil {
		return nil, &errs.Error{Kind: errs.Unavailable, Op: "connect gmail", Err: err,
			Remediation: "Check gmail.credentials and gmail.token in the config; run the OAuth flow again if the token was revoked."}
	}
	profile, err := svc.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return nil, &errs.Error{Kind: errs.Unavailable, Op: "connect gmail", Err: err,
			Remediation: "Check network access to gmail.googleapis.com."}
	}
	d.logger().Debug("gmail connected", "account", profile.EmailAddress)
	return New(svc, types.EmailAddress{Email: profile.EmailAddress}), nil
}

// Diagnose implements automation.Dialer.
func (d Dialer) Diagnose(ctx context.Context) []types.DoctorCheck {
	checks := []types.DoctorCheck{
		automation.HostCheck(ctx, ""),
		{Name: automation.CheckBinding, Passed: true, Message: "google.golang.org/api/gmail/v1 linked"},
		automation.FileCheck(automation.CheckInterface, []string{d.Credentials},
			"Download an OAuth client file from the Google Cloud console and set gmail.credentials."),
	}
	return append(checks, d.tokenCheck())
}

func (d Dialer) tokenCheck() types.DoctorCheck {
	const hint = "Authorize the account once, then point gmail.token at the token file or keyring:<key>."
	if _, ok := keyringKey(d.Token); !ok {
		return automation.FileCheck(automation.CheckExecutable, []string{d.Token}, hint)
	}
	c := types.DoctorCheck{Name: automation.CheckExecutable}
	if _, err := loadTokenData(d.Token); err != nil {
		c.Message = err.Error()
		c.Remediation = hint
		return c
	}
	c.Passed = true
	c.Message = "token found in " + d.Token
	return c
}
