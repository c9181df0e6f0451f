package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/audit"
	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/automation/gmail"
	"github.com/daviddao/outlookctl/internal/automation/localstore"
	"github.com/daviddao/outlookctl/internal/automation/outlook"
	"github.com/daviddao/outlookctl/internal/bridge"
	"github.com/daviddao/outlookctl/internal/config"
	"github.com/daviddao/outlookctl/internal/display"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

// Version is set via ldflags at build time.
var Version = "dev"

const (
	outputJSON = "json"
	outputText = "text"
)

var (
	cfgPath     string
	backendFlag string
	outputFlag  string

	cfg      *config.Config
	logger   *slog.Logger
	auditLog *audit.Logger

	// started is set once a command's own work begins. Plain errors before
	// that point come from flag and argument parsing.
	started bool
)

var rootCmd = &cobra.Command{
	Use:   "outlookctl",
	Short: "outlookctl - mail and calendar automation for scripts and agents",
	Long: `outlookctl reads, drafts and sends mail and manages calendar entries in a
locally running mail client. Every command prints one JSON document on stdout.

Sending is gated: drafts are the default, and every send needs an explicit
confirmation. Dispatches are recorded in an audit log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}
		if outputFlag != outputJSON && outputFlag != outputText {
			return errs.New(errs.Validation, "output", "unknown output format %q", outputFlag).
				WithHint("Use --output json or --output text.")
		}

		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if backendFlag != "" {
			c.Backend = backendFlag
			if err := c.Validate(); err != nil {
				return err
			}
		}
		cfg = c
		logger = c.Logger(os.Stderr)
		auditLog = audit.New(c.Audit.Path, logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "outlookctl version %s\n", Version)
	},
}

// dialer picks the host for the configured backend.
func dialer() automation.Dialer {
	switch cfg.Backend {
	case config.BackendLocal:
		return localstore.Dialer{Path: cfg.Local.Path, Owner: owner()}
	case config.BackendGmail:
		return gmail.Dialer{Credentials: cfg.Gmail.Credentials, Token: cfg.Gmail.Token, Log: logger}
	default:
		return outlook.Dialer{Log: logger}
	}
}

func owner() types.EmailAddress {
	return types.EmailAddress{Name: cfg.Local.OwnerName, Email: cfg.Local.OwnerEmail}
}

// withBridge acquires a session for the duration of fn and prints its
// result.
func withBridge(cmd *cobra.Command, fn func(ctx context.Context, b *bridge.Bridge) (any, error)) error {
	started = true
	ctx := cmd.Context()
	policy := automation.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}
	sess, err := automation.Acquire(ctx, dialer(), policy, logger)
	if err != nil {
		return err
	}
	defer sess.Release()

	res, err := fn(ctx, bridge.New(sess, auditLog, logger))
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), res)
}

func emit(w io.Writer, v any) error {
	if outputFlag == outputText {
		display.Render(w, v, time.Now())
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errorResult(err error) types.ErrorResult {
	return types.ErrorResult{
		Version:     types.Version,
		Success:     false,
		Error:       err.Error(),
		ErrorCode:   errs.KindOf(err).Code(),
		Remediation: errs.Remediation(err),
	}
}

// classify gives parse failures from cobra a validation kind.
func classify(err error) error {
	var e *errs.Error
	if errors.As(err, &e) || started {
		return err
	}
	return &errs.Error{
		Kind:        errs.Validation,
		Op:          "usage",
		Err:         err,
		Remediation: "Run 'outlookctl --help' for the accepted commands and flags.",
	}
}

func fail(stdout, stderr io.Writer, err error) {
	res := errorResult(classify(err))
	if outputFlag == outputText {
		display.Error(stderr, res)
		return
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		fmt.Fprintln(stderr, err)
	}
}

func itemID(entry, store string) types.ItemID {
	return types.ItemID{EntryID: strings.TrimSpace(entry), StoreID: strings.TrimSpace(store)}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend: "+strings.Join(config.Backends, ", ")+" (default: from config)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", outputJSON, "Output format: json or text")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errs.Wrap(errs.Validation, "flags", err)
	})

	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errChecksFailed) {
			fail(os.Stdout, os.Stderr, err)
		}
		os.Exit(1)
	}
}
