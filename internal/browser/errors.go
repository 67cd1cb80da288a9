package browser

import (
	"context"
	"errors"
	"fmt"
)

// Each driver operation fails with exactly one of these, wrapped together
// with the underlying cause, so callers can tell failures apart with errors.Is.
var (
	ErrLaunchFailed      = errors.New("browser launch failed")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrNavigationTimeout = errors.New("navigation timed out")
	ErrElementNotFound   = errors.New("element not found")
	ErrTypeFailed        = errors.New("typing failed")
	ErrClickFailed       = errors.New("click failed")
	ErrSessionClosed     = errors.New("browser session closed")
)

// classify maps the raw error of an operation onto its sentinel.
//
// Cancellation of the caller's context wins over everything else and is
// returned as-is. Expiry of the operation's own deadline becomes timeoutKind;
// anything else becomes failKind.
func classify(ctx, opCtx context.Context, err error, timeoutKind, failKind error, what string) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", timeoutKind, what, opCtx.Err())
	}
	return fmt.Errorf("%w: %s: %w", failKind, what, err)
}
