// internal/browser/interface.go
package browser

import (
	"context"

	"github.com/chromedp/cdproto/cdp"

	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
)

// Driver is the browser-automation surface the flows are written against.
// Every blocking call takes a context and reports failures through the
// sentinels in errors.go.
type Driver interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Find waits until the element described by loc is present and visible.
	Find(ctx context.Context, loc locator.Locator) (Element, error)
	// SendKeys types text into a previously found element.
	SendKeys(ctx context.Context, el Element, text string) error
	// Click clicks a previously found element.
	Click(ctx context.Context, el Element) error
	// CurrentURL returns the location of the current page.
	CurrentURL(ctx context.Context) (string, error)
	// WaitURLChange blocks until the page location differs from from.
	WaitURLChange(ctx context.Context, from string) (string, error)
	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the browser. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Element is a handle to a DOM node resolved by Find. It is only valid until
// the page navigates.
type Element struct {
	Locator locator.Locator
	nodeID  cdp.NodeID
}

// NewElement builds a handle for a node id, mainly for alternate Driver implementations.
func NewElement(loc locator.Locator, id cdp.NodeID) Element {
	return Element{Locator: loc, nodeID: id}
}

// NodeID returns the DevTools node id backing the handle.
func (e Element) NodeID() cdp.NodeID { return e.nodeID }
