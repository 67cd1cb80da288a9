package flow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowrunner/internal/browser"
)

// StepRecord is the outcome of one completed step.
type StepRecord struct {
	Name     string
	Action   Action
	Duration time.Duration
}

// Result summarizes a run. On failure it holds the steps completed before
// the failing one.
type Result struct {
	RunID     string
	Flow      string
	StartedAt time.Time
	Duration  time.Duration
	Steps     []StepRecord
	FinalURL  string
	// Screenshot is the path of the failure screenshot, if one was written.
	Screenshot string
	// KeptOpen is set by the caller when the browser outlives the run.
	KeptOpen bool
}

// Runner executes plans strictly in order, stopping at the first failure.
type Runner struct {
	logger        *zap.Logger
	screenshotDir string
	now           func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithScreenshotDir writes a PNG of the page into dir when a step fails.
func WithScreenshotDir(dir string) Option {
	return func(r *Runner) { r.screenshotDir = dir }
}

// NewRunner creates a Runner that logs through logger.
func NewRunner(logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger: logger.Named("runner"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// runState carries what later steps need to know about earlier ones.
type runState struct {
	// urlBeforeClick is the page location read just before the last click.
	urlBeforeClick string
}

// Run executes every step of plan against d. The driver is not closed;
// the caller owns its lifetime (and decides whether to keep it open).
func (r *Runner) Run(ctx context.Context, d browser.Driver, plan Plan) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		Flow:      plan.Name,
		StartedAt: r.now(),
	}
	log := r.logger.With(zap.String("run_id", res.RunID), zap.String("flow", plan.Name))
	log.Info("Starting flow.", zap.Int("steps", len(plan.Steps)))

	var state runState
	for i, step := range plan.Steps {
		stepLog := log.With(zap.Int("step", i+1), zap.String("name", step.Name), zap.String("action", string(step.Action)))
		if err := ctx.Err(); err != nil {
			res.Duration = r.now().Sub(res.StartedAt)
			stepLog.Warn("Flow interrupted before step.", zap.Error(err))
			return res, err
		}
		started := r.now()

		if err := r.runStep(ctx, d, step, &state, stepLog); err != nil {
			res.Duration = r.now().Sub(res.StartedAt)
			if ctx.Err() != nil {
				stepLog.Warn("Flow interrupted.", zap.Error(err))
				return res, err
			}
			stepErr := &StepError{
				Flow:    plan.Name,
				Index:   i,
				Step:    step.Name,
				Action:  step.Action,
				Locator: step.Locator,
				Err:     err,
			}
			stepLog.Error("Step failed; aborting flow.", zap.Error(err))
			res.Screenshot = r.captureFailure(ctx, d, res.RunID, plan.Name, i, log)
			return res, stepErr
		}

		elapsed := r.now().Sub(started)
		res.Steps = append(res.Steps, StepRecord{Name: step.Name, Action: step.Action, Duration: elapsed})
		stepLog.Info("Step completed.", zap.Duration("elapsed", elapsed))
	}

	if u, err := d.CurrentURL(ctx); err == nil {
		res.FinalURL = u
	} else {
		log.Debug("Could not read final page location.", zap.Error(err))
	}
	res.Duration = r.now().Sub(res.StartedAt)
	log.Info("Flow completed.", zap.String("final_url", res.FinalURL), zap.Duration("elapsed", res.Duration))
	return res, nil
}

func (r *Runner) runStep(ctx context.Context, d browser.Driver, step Step, state *runState, log *zap.Logger) error {
	switch step.Action {
	case ActionNavigate:
		return d.Navigate(ctx, step.URL)

	case ActionFill:
		el, err := d.Find(ctx, step.Locator)
		if err != nil {
			return err
		}
		log.Debug("Typing into element.", zap.Stringer("locator", step.Locator), zap.Int("length", len([]rune(step.Value))))
		return d.SendKeys(ctx, el, step.Value)

	case ActionClick:
		el, err := d.Find(ctx, step.Locator)
		if err != nil {
			return err
		}
		if u, err := d.CurrentURL(ctx); err == nil {
			state.urlBeforeClick = u
		}
		return d.Click(ctx, el)

	case ActionWaitURLChange:
		from := step.URL
		if from == "" {
			from = state.urlBeforeClick
		}
		if from == "" {
			return fmt.Errorf("no reference location to wait on")
		}
		to, err := d.WaitURLChange(ctx, from)
		if err != nil {
			return err
		}
		log.Debug("Left page.", zap.String("from", from), zap.String("to", to))
		return nil

	case ActionSettle:
		return sleep(ctx, step.Duration)

	default:
		return fmt.Errorf("unsupported action %q", step.Action)
	}
}

// captureFailure writes a screenshot when a directory is configured. It
// never fails the run; problems are only logged.
func (r *Runner) captureFailure(ctx context.Context, d browser.Driver, runID, flowName string, index int, log *zap.Logger) string {
	if r.screenshotDir == "" {
		return ""
	}
	png, err := d.Screenshot(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("Could not capture failure screenshot.", zap.Error(err))
		}
		return ""
	}
	if err := os.MkdirAll(r.screenshotDir, 0o755); err != nil {
		log.Warn("Could not create screenshot directory.", zap.String("dir", r.screenshotDir), zap.Error(err))
		return ""
	}
	name := fmt.Sprintf("%s-%s-step%02d.png", flowName, strings.SplitN(runID, "-", 2)[0], index+1)
	path := filepath.Join(r.screenshotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Warn("Could not write failure screenshot.", zap.String("path", path), zap.Error(err))
		return ""
	}
	log.Info("Failure screenshot written.", zap.String("path", path))
	return path
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
