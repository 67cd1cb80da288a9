// File: cmd/flow.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowrunner/internal/browser"
	"github.com/xkilldash9x/flowrunner/internal/config"
	"github.com/xkilldash9x/flowrunner/internal/flow"
	"github.com/xkilldash9x/flowrunner/internal/observability"
)

// session is what a flow command needs from a browser: the Driver surface
// plus the ability to stay open until interrupted.
type session interface {
	browser.Driver
	Hold(ctx context.Context) error
}

// launchBrowser is a variable so tests can substitute a fake browser.
var launchBrowser = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (session, error) {
	s, err := browser.Launch(ctx, cfg.Browser(), cfg.Wait(), logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// shutdownTimeout bounds closing the browser once the command context is gone.
const shutdownTimeout = 15 * time.Second

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to the target application with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd, "login")
		},
	}
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account through the target application's registration form",
		Long: `Create an account through the target application's registration form.

The browser stays open afterwards by default (flows.register.keep_open);
press Ctrl+C to close it. Running this twice with the same email will
usually be rejected by the application.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd, "register")
		},
	}
}

// runFlow builds the named plan, runs it in a fresh browser and reports the
// outcome. With keep-open the browser is held after a successful run until
// the command context is cancelled, which still counts as success. A
// cancellation during the run itself is returned as ErrInterrupted.
func runFlow(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger().With(zap.String("flow", name))

	plan, err := flow.Build(name, cfg)
	if err != nil {
		return err
	}

	sess, err := launchBrowser(ctx, cfg, logger)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: interrupted before the browser started\n", name)
			return fmt.Errorf("%w: %s: %w", ErrInterrupted, name, ctx.Err())
		}
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			logger.Warn("Error closing browser.", zap.Error(err))
		}
	}()

	runner := flow.NewRunner(logger, flow.WithScreenshotDir(cfg.Browser().FailureScreenshotDir))
	res, runErr := runner.Run(ctx, sess, plan)
	if runErr != nil {
		if ctx.Err() != nil || errors.Is(runErr, context.Canceled) {
			printInterrupted(cmd.OutOrStdout(), res)
			return fmt.Errorf("%w: %s: %w", ErrInterrupted, name, runErr)
		}
		printFailure(cmd.OutOrStdout(), res, runErr)
		return runErr
	}

	if plan.KeepOpen {
		res.KeptOpen = true
	}
	printResult(cmd.OutOrStdout(), res)

	if res.KeptOpen {
		if err := sess.Hold(ctx); err != nil && !errors.Is(err, browser.ErrSessionClosed) {
			return err
		}
	}
	return nil
}

func printResult(w io.Writer, res *flow.Result) {
	fmt.Fprintf(w, "%s: completed %d steps in %s (run %s)\n", res.Flow, len(res.Steps), res.Duration.Round(time.Millisecond), res.RunID)
	if res.FinalURL != "" {
		fmt.Fprintf(w, "  final url: %s\n", res.FinalURL)
	}
}

func printInterrupted(w io.Writer, res *flow.Result) {
	fmt.Fprintf(w, "%s: interrupted after %d completed steps (run %s)\n", res.Flow, len(res.Steps), res.RunID)
}

func printFailure(w io.Writer, res *flow.Result, err error) {
	if res == nil {
		fmt.Fprintf(w, "flow failed: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%s: failed after %d completed steps (run %s)\n", res.Flow, len(res.Steps), res.RunID)
	fmt.Fprintf(w, "  error: %v\n", err)
	if res.Screenshot != "" {
		fmt.Fprintf(w, "  screenshot: %s\n", res.Screenshot)
	}
}
