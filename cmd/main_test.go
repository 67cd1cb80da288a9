// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowrunner/internal/browser"
	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
	"github.com/xkilldash9x/flowrunner/internal/config"
	"github.com/xkilldash9x/flowrunner/internal/observability"
)

// resetForTest silences the global logger and restores the real launcher.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})

	original := launchBrowser
	t.Cleanup(func() {
		launchBrowser = original
		observability.ResetForTest()
	})
}

// executeCommand runs the root command with args and returns stdout.
func executeCommand(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// fakeSession is an in-memory browser: every click "navigates" to afterClick.
type fakeSession struct {
	mu         sync.Mutex
	url        string
	afterClick string
	missing    map[string]bool
	// blockFind makes Find on that locator wait until the context is done.
	blockFind string
	blocked   chan struct{}
	held      bool
	closed    int
}

func newFakeSession() *fakeSession {
	return &fakeSession{afterClick: "http://localhost:3001/dashboard", missing: map[string]bool{}, blocked: make(chan struct{})}
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	return nil
}

func (f *fakeSession) Find(ctx context.Context, loc locator.Locator) (browser.Element, error) {
	if f.blockFind != "" && loc.String() == f.blockFind {
		close(f.blocked)
		<-ctx.Done()
		return browser.Element{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[loc.String()] {
		return browser.Element{}, fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}
	return browser.NewElement(loc, 7), nil
}

func (f *fakeSession) SendKeys(ctx context.Context, el browser.Element, text string) error { return nil }

func (f *fakeSession) Click(ctx context.Context, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = f.afterClick
	return nil
}

func (f *fakeSession) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakeSession) WaitURLChange(ctx context.Context, from string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.url == from {
		return "", browser.ErrNavigationTimeout
	}
	return f.url, nil
}

func (f *fakeSession) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }

func (f *fakeSession) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSession) Hold(ctx context.Context) error {
	f.mu.Lock()
	f.held = true
	f.mu.Unlock()
	<-ctx.Done()
	return nil
}

// useFakeBrowser routes launches to s and records the config they saw.
func useFakeBrowser(s *fakeSession, seen *config.Interface) {
	launchBrowser = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (session, error) {
		if seen != nil {
			*seen = cfg
		}
		return s, nil
	}
}
