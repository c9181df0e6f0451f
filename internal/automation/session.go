package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

// Dialer opens connections to one kind of host.
type Dialer interface {
	// Name identifies the backend in logs and doctor output.
	Name() string
	// Dial connects to the running host. A host that is not reachable yet
	// must be reported as errs.Unavailable so Acquire can retry it.
	Dial(ctx context.Context) (Conn, error)
	// Diagnose probes prerequisites without failing.
	Diagnose(ctx context.Context) []types.DoctorCheck
}

// RetryPolicy bounds connection attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry gives a starting client a few seconds to register.
var DefaultRetry = RetryPolicy{Attempts: 3, Delay: time.Second}

// Session owns one live connection for the duration of an invocation.
type Session struct {
	conn    Conn
	backend string
	log     *slog.Logger
	once    sync.Once
}

// Acquire dials the host, retrying Unavailable failures with a fixed
// backoff. Any other failure is returned at once.
func Acquire(ctx context.Context, d Dialer, policy RetryPolicy, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := d.Dial(ctx)
		if err == nil {
			log.Debug("session acquired", "backend", d.Name(), "attempt", i)
			return &Session{conn: conn, backend: d.Name(), log: log}, nil
		}
		if !errs.Is(err, errs.Unavailable) {
			return nil, err
		}
		lastErr = err
		log.Debug("host not reachable", "backend", d.Name(), "attempt", i, "err", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.Unavailable, "connect", fmt.Errorf("connect canceled: %w", ctx.Err()))
		case <-time.After(policy.Delay):
		}
	}

	return nil, &errs.Error{
		Kind: errs.Unavailable,
		Op:   "connect",
		Msg:  fmt.Sprintf("%s not reachable after %d attempts", d.Name(), attempts),
		Err:  lastErr,
	}
}

// Backend names the host the session is connected to.
func (s *Session) Backend() string { return s.backend }

// Mail returns the mail capability.
func (s *Session) Mail() MailClient { return s.conn }

// Calendar returns the calendar capability, or Unavailable when the host
// has none.
func (s *Session) Calendar() (CalendarClient, error) {
	cal, ok := s.conn.(CalendarClient)
	if !ok {
		return nil, errs.New(errs.Unavailable, "calendar", "backend %s has no calendar", s.backend).
			WithHint("Use a backend with calendar support (outlook or local).")
	}
	return cal, nil
}

// Release closes the connection. It is safe to call more than once.
func (s *Session) Release() {
	s.once.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.log.Warn("release session", "backend", s.backend, "err", err)
		}
	})
}

// Diagnose runs the dialer's prerequisite checks. The executable check is
// advisory and does not affect AllPassed.
func Diagnose(ctx context.Context, d Dialer) types.DoctorResult {
	checks := d.Diagnose(ctx)
	all := true
	for _, c := range checks {
		if !c.Passed && c.Name != CheckExecutable {
			all = false
		}
	}
	return types.DoctorResult{
		Version:   types.Version,
		AllPassed: all,
		Backend:   d.Name(),
		Checks:    checks,
	}
}

// Doctor check names shared by every backend.
const (
	CheckHostOS     = "host_os"
	CheckBinding    = "binding"
	CheckInterface  = "interface"
	CheckExecutable = "executable"
)
