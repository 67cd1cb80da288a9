// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
	"github.com/xkilldash9x/flowrunner/internal/config"
)

// closeTimeout bounds the graceful browser shutdown in Close.
const closeTimeout = 10 * time.Second

// Session is one browser tab driven over the DevTools protocol. It owns the
// browser process it launched (or the tab it opened on a remote browser).
type Session struct {
	id     string
	ctx    context.Context
	logger *zap.Logger
	wait   config.WaitConfig

	// locate reads the page location. Tests replace it.
	locate func(ctx context.Context) (string, error)

	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

// Ensure Session implements the interface.
var _ Driver = (*Session)(nil)

// Launch starts (or attaches to) a browser and opens a tab. The returned
// session lives until Close is called or ctx is canceled.
func Launch(ctx context.Context, cfg config.BrowserConfig, wait config.WaitConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		log.Info("Attaching to remote browser.", zap.String("remote_url", cfg.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		log.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execAllocatorOptions(cfg)...)
	}

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Warnf),
	}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(log.Sugar().Debugf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// The first Run allocates the browser and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	s := &Session{
		id:          sessionID,
		ctx:         tabCtx,
		logger:      log,
		wait:        wait,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}
	s.locate = s.location
	log.Debug("Browser session ready.")
	return s, nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// RunActions executes chromedp actions, ensuring they respect both the
// session lifetime and the incoming operation context.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed() {
		return ErrSessionClosed
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	// Prefer the operation's own context error so deadlines are reported as such.
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the load event, bounded by the navigation timeout.
func (s *Session) Navigate(ctx context.Context, target string) error {
	s.logger.Info("Navigating.", zap.String("url", target))

	navCtx, navCancel := context.WithTimeout(ctx, s.wait.NavigationTimeout)
	defer navCancel()

	err := s.RunActions(navCtx, chromedp.Navigate(target))
	if err != nil {
		return classify(ctx, navCtx, err, ErrNavigationTimeout, ErrNavigationFailed, target)
	}
	return nil
}

// Find polls until an element matching loc is visible, or the element
// timeout expires. Polling replaces fixed sleeps before each lookup.
func (s *Session) Find(ctx context.Context, loc locator.Locator) (Element, error) {
	sel, by, err := loc.Query()
	if err != nil {
		return Element{}, err
	}

	findCtx, cancel := context.WithTimeout(ctx, s.wait.ElementTimeout)
	defer cancel()

	var nodes []*cdp.Node
	err = s.RunActions(findCtx,
		chromedp.Nodes(sel, &nodes, by, chromedp.NodeVisible, chromedp.RetryInterval(s.wait.PollInterval)),
	)
	if err != nil {
		return Element{}, classify(ctx, findCtx, err, ErrElementNotFound, ErrElementNotFound, loc.String())
	}
	if len(nodes) == 0 {
		return Element{}, fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	if len(nodes) > 1 {
		s.logger.Debug("Locator matched several elements; using the first.", zap.Stringer("locator", loc), zap.Int("matches", len(nodes)))
	}

	s.logger.Debug("Element located.", zap.Stringer("locator", loc), zap.Int64("node_id", int64(nodes[0].NodeID)))
	return NewElement(loc, nodes[0].NodeID), nil
}

// SendKeys types text into el. With a typing delay configured, keys are
// dispatched one at a time at that cadence.
func (s *Session) SendKeys(ctx context.Context, el Element, text string) error {
	if el.nodeID == 0 {
		return fmt.Errorf("%w: %s: element handle is empty", ErrTypeFailed, el.Locator)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.typeTimeout(text))
	defer cancel()

	ids := []cdp.NodeID{el.nodeID}
	var err error
	if s.wait.TypingDelay > 0 {
		err = s.typePaced(opCtx, ids, text)
	} else {
		err = s.RunActions(opCtx, chromedp.SendKeys(ids, text, chromedp.ByNodeID))
	}
	return classify(ctx, opCtx, err, ErrTypeFailed, ErrTypeFailed, el.Locator.String())
}

// Click clicks el.
func (s *Session) Click(ctx context.Context, el Element) error {
	if el.nodeID == 0 {
		return fmt.Errorf("%w: %s: element handle is empty", ErrClickFailed, el.Locator)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.wait.ElementTimeout)
	defer cancel()

	err := s.RunActions(opCtx, chromedp.Click([]cdp.NodeID{el.nodeID}, chromedp.ByNodeID))
	return classify(ctx, opCtx, err, ErrClickFailed, ErrClickFailed, el.Locator.String())
}

// CurrentURL returns the location of the current page, bounded by the
// element timeout.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.wait.ElementTimeout)
	defer cancel()

	loc, err := s.locate(opCtx)
	if err != nil {
		return "", classify(ctx, opCtx, err, ErrNavigationTimeout, ErrNavigationFailed, "reading page location")
	}
	return loc, nil
}

func (s *Session) location(ctx context.Context) (string, error) {
	var loc string
	if err := s.RunActions(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitURLChange polls the page location until it differs from from, bounded
// by the navigation timeout. It returns the new location.
//
// Read errors are retried: while a submitted form navigates, the page's
// execution context is torn down and location reads fail for a moment.
// Only a closed session ends the wait early.
func (s *Session) WaitURLChange(ctx context.Context, from string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.wait.NavigationTimeout)
	defer cancel()

	ticker := time.NewTicker(s.wait.PollInterval)
	defer ticker.Stop()

	what := "waiting to leave " + from
	var lastErr error
	for {
		cur, err := s.locate(opCtx)
		switch {
		case err == nil:
			if !sameURL(cur, from) {
				s.logger.Debug("Page location changed.", zap.String("from", from), zap.String("to", cur))
				return cur, nil
			}
		case errors.Is(err, ErrSessionClosed) || s.ctx.Err() != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %s: %w", ErrNavigationFailed, what, ErrSessionClosed)
		case opCtx.Err() == nil:
			lastErr = err
			s.logger.Debug("Location read failed; retrying.", zap.Error(err))
		}

		select {
		case <-opCtx.Done():
			if lastErr != nil {
				what += " (last error: " + lastErr.Error() + ")"
			}
			return "", classify(ctx, opCtx, opCtx.Err(), ErrNavigationTimeout, ErrNavigationFailed, what)
		case <-ticker.C:
		}
	}
}

// Screenshot captures the visible viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.wait.ElementTimeout)
	defer cancel()

	var buf []byte
	if err := s.RunActions(opCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("could not capture screenshot: %w", err)
	}
	return buf, nil
}

// Hold keeps the session open until ctx is canceled or the browser goes away.
func (s *Session) Hold(ctx context.Context) error {
	s.logger.Info("Keeping browser open; interrupt to close.")
	select {
	case <-ctx.Done():
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Close terminates the browser session gracefully.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	defer s.allocCancel()
	defer s.tabCancel()

	if s.ctx.Err() != nil {
		// Already torn down (e.g. parent context canceled).
		return nil
	}

	closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		// chromedp.Cancel closes the tab and, for launched browsers, the process.
		done <- chromedp.Cancel(s.ctx)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to close browser: %w", err)
		}
		return nil
	case <-closeCtx.Done():
		s.logger.Warn("Timed out closing browser gracefully; forcing shutdown.")
		return closeCtx.Err()
	}
}

func (s *Session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}

// typeTimeout scales the typing budget with the text length when keys are paced.
func (s *Session) typeTimeout(text string) time.Duration {
	return s.wait.ElementTimeout + 2*time.Duration(len([]rune(text)))*s.wait.TypingDelay
}

// sameURL compares two locations ignoring fragments and a trailing slash.
func sameURL(a, b string) bool {
	return normalizeURL(a) == normalizeURL(b)
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
