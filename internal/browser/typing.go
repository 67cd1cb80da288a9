// internal/browser/typing.go
package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// typePaced focuses the node and dispatches one key event per rune, waiting
// on a limiter between keys so the page sees a steady typing cadence.
func (s *Session) typePaced(ctx context.Context, ids []cdp.NodeID, text string) error {
	if err := s.RunActions(ctx, chromedp.Focus(ids, chromedp.ByNodeID)); err != nil {
		return err
	}

	limiter := newKeyLimiter(s.wait.TypingDelay)
	for _, r := range text {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.RunActions(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return err
		}
	}
	return nil
}

// newKeyLimiter allows one key immediately, then one per delay.
func newKeyLimiter(delay time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(delay), 1)
}
