// Package flow turns configuration into linear step plans (login,
// registration) and runs them against a browser.Driver.
package flow

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
	"github.com/xkilldash9x/flowrunner/internal/config"
)

// Action is the kind of browser interaction a Step performs.
type Action string

const (
	ActionNavigate      Action = "navigate"
	ActionFill          Action = "fill"
	ActionClick         Action = "click"
	ActionWaitURLChange Action = "wait_url_change"
	ActionSettle        Action = "settle"
)

// Step is one browser action in a Plan.
type Step struct {
	Name    string
	Action  Action
	Locator locator.Locator
	// Value is the text typed by a fill step.
	Value string
	// Secret keeps Value out of logs and listings.
	Secret bool
	// URL is the target of a navigate step, or the location a
	// wait_url_change step waits to leave. An empty URL on wait_url_change
	// means the location observed just before the preceding click.
	URL string
	// Duration is the pause of a settle step.
	Duration time.Duration
}

// DisplayValue returns the value as it may be shown to a user.
func (s Step) DisplayValue() string {
	if s.Secret && s.Value != "" {
		return "********"
	}
	return s.Value
}

// Plan is the ordered list of steps of one flow.
type Plan struct {
	Name  string
	Steps []Step
	// KeepOpen leaves the browser running after the last step.
	KeepOpen bool
}

// LoginPlan builds the login journey: open the login page, type the
// credential pair, submit, then wait for the app to leave the login page.
func LoginPlan(cfg config.Interface) (Plan, error) {
	loginURL, err := cfg.Target().LoginURL()
	if err != nil {
		return Plan{}, err
	}
	lc := cfg.Flows().Login

	locs, err := parseLocators(
		"flows.login.email_locator", lc.EmailLocator,
		"flows.login.password_locator", lc.PasswordLocator,
		"flows.login.submit_locator", lc.SubmitLocator,
	)
	if err != nil {
		return Plan{}, err
	}

	steps := []Step{
		{Name: "open login page", Action: ActionNavigate, URL: loginURL},
		{Name: "enter email", Action: ActionFill, Locator: locs[0], Value: lc.Email},
		{Name: "enter password", Action: ActionFill, Locator: locs[1], Value: lc.Password, Secret: true},
		{Name: "submit login form", Action: ActionClick, Locator: locs[2]},
	}
	if lc.WaitForRedirect {
		steps = append(steps, Step{Name: "wait for redirect", Action: ActionWaitURLChange, URL: loginURL})
	}

	return Plan{Name: "login", Steps: steps, KeepOpen: lc.KeepOpen}, nil
}

// RegisterPlan builds the registration journey: open the login page, follow
// the registration link, fill name, email and password, then submit.
func RegisterPlan(cfg config.Interface) (Plan, error) {
	loginURL, err := cfg.Target().LoginURL()
	if err != nil {
		return Plan{}, err
	}
	rc := cfg.Flows().Register

	locs, err := parseLocators(
		"flows.register.link_locator", rc.LinkLocator,
		"flows.register.name_locator", rc.NameLocator,
		"flows.register.email_locator", rc.EmailLocator,
		"flows.register.password_locator", rc.PasswordLocator,
		"flows.register.submit_locator", rc.SubmitLocator,
	)
	if err != nil {
		return Plan{}, err
	}

	steps := []Step{
		{Name: "open login page", Action: ActionNavigate, URL: loginURL},
		{Name: "open registration form", Action: ActionClick, Locator: locs[0]},
		{Name: "enter name", Action: ActionFill, Locator: locs[1], Value: rc.Name},
		{Name: "enter email", Action: ActionFill, Locator: locs[2], Value: rc.Email},
		{Name: "enter password", Action: ActionFill, Locator: locs[3], Value: rc.Password, Secret: true},
		{Name: "submit registration form", Action: ActionClick, Locator: locs[4]},
	}
	if rc.WaitForRedirect {
		steps = append(steps, Step{Name: "wait for redirect", Action: ActionWaitURLChange})
	}
	if rc.SettleTime > 0 {
		steps = append(steps, Step{Name: "let submission settle", Action: ActionSettle, Duration: rc.SettleTime})
	}

	return Plan{Name: "register", Steps: steps, KeepOpen: rc.KeepOpen}, nil
}

// parseLocators takes (key, raw) pairs and parses every raw locator.
func parseLocators(pairs ...string) ([]locator.Locator, error) {
	out := make([]locator.Locator, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		loc, err := locator.Parse(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pairs[i], err)
		}
		out = append(out, loc)
	}
	return out, nil
}
