package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/flowrunner/internal/browser"
	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
)

// fakeDriver records every call and simulates a tiny app: clicking an
// element listed in redirects moves the page to the mapped URL.
type fakeDriver struct {
	mu sync.Mutex

	url        string
	calls      []string
	typed      map[string]string
	missing    map[string]bool
	failClick  map[string]error
	redirects  map[string]string
	waitErr    error
	shot       []byte
	shotErr    error
	navErr     error
	closeCalls int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		typed:     make(map[string]string),
		missing:   make(map[string]bool),
		failClick: make(map[string]error),
		redirects: make(map[string]string),
		shot:      []byte("\x89PNG fake"),
	}
}

var _ browser.Driver = (*fakeDriver)(nil)

func (f *fakeDriver) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	if f.navErr != nil {
		return f.navErr
	}
	f.url = url
	return nil
}

func (f *fakeDriver) Find(ctx context.Context, loc locator.Locator) (browser.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("find %s", loc)
	if f.missing[loc.String()] {
		return browser.Element{}, fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}
	return browser.NewElement(loc, 1), nil
}

func (f *fakeDriver) SendKeys(ctx context.Context, el browser.Element, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("type %s", el.Locator)
	f.typed[el.Locator.String()] += text
	return nil
}

func (f *fakeDriver) Click(ctx context.Context, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click %s", el.Locator)
	if err := f.failClick[el.Locator.String()]; err != nil {
		return err
	}
	if to, ok := f.redirects[el.Locator.String()]; ok {
		f.url = to
	}
	return nil
}

func (f *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakeDriver) WaitURLChange(ctx context.Context, from string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait-leave %s", from)
	if f.waitErr != nil {
		return "", f.waitErr
	}
	if f.url == from {
		return "", fmt.Errorf("%w: still on %s", browser.ErrNavigationTimeout, from)
	}
	return f.url, nil
}

func (f *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("screenshot")
	return f.shot, f.shotErr
}

func (f *fakeDriver) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeDriver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
