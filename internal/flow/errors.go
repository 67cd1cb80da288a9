package flow

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
)

// ErrUnknownFlow is returned by Build for names missing from the registry.
var ErrUnknownFlow = errors.New("unknown flow")

// StepError reports which step of which flow failed. Err wraps one of the
// browser sentinels (browser.ErrElementNotFound, browser.ErrClickFailed...),
// so errors.Is works straight through a StepError.
type StepError struct {
	Flow    string
	Index   int
	Step    string
	Action  Action
	Locator locator.Locator
	Err     error
}

func (e *StepError) Error() string {
	if e.Locator.Strategy != "" {
		return fmt.Sprintf("flow %q: step %d %q (%s %s): %v", e.Flow, e.Index+1, e.Step, e.Action, e.Locator, e.Err)
	}
	return fmt.Sprintf("flow %q: step %d %q (%s): %v", e.Flow, e.Index+1, e.Step, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
