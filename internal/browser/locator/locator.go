// Package locator describes how a page element is found: a strategy plus a
// value, written in configuration as "strategy=value".
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// Strategy names the way a Locator's value is interpreted.
type Strategy string

const (
	// ByID matches the element whose id attribute equals the value.
	ByID Strategy = "id"
	// ByLinkText matches an anchor whose visible, whitespace-normalized text equals the value.
	ByLinkText Strategy = "link"
	// ByXPath treats the value as an XPath expression over the page.
	ByXPath Strategy = "xpath"
	// ByCSS treats the value as a CSS selector.
	ByCSS Strategy = "css"
)

// ErrInvalid is returned for unparseable or unsupported locators.
var ErrInvalid = errors.New("invalid locator")

// Locator is a strategy + value pair used to find a page element.
type Locator struct {
	Strategy Strategy
	Value    string
}

// ID, LinkText, XPath and CSS are shorthand constructors.
func ID(v string) Locator       { return Locator{Strategy: ByID, Value: v} }
func LinkText(v string) Locator { return Locator{Strategy: ByLinkText, Value: v} }
func XPath(v string) Locator    { return Locator{Strategy: ByXPath, Value: v} }
func CSS(v string) Locator      { return Locator{Strategy: ByCSS, Value: v} }

// Parse reads a "strategy=value" string. Only the first '=' separates the
// two parts so XPath predicates like [@id='x'] survive intact.
func Parse(raw string) (Locator, error) {
	s, v, ok := strings.Cut(strings.TrimSpace(raw), "=")
	if !ok {
		return Locator{}, fmt.Errorf("%w: %q is not in strategy=value form", ErrInvalid, raw)
	}
	loc := Locator{Strategy: Strategy(strings.ToLower(strings.TrimSpace(s))), Value: v}
	if err := loc.Validate(); err != nil {
		return Locator{}, err
	}
	return loc, nil
}

// Validate reports whether the locator can be turned into a query.
func (l Locator) Validate() error {
	switch l.Strategy {
	case ByID, ByLinkText, ByXPath, ByCSS:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalid, l.Strategy)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("%w: empty value for strategy %q", ErrInvalid, l.Strategy)
	}
	return nil
}

// String renders the locator back into its configuration form.
func (l Locator) String() string {
	return string(l.Strategy) + "=" + l.Value
}

// Query translates the locator into a chromedp selector and query option.
//
// Ids become CSS attribute selectors so values needing escaping (or
// starting with a digit) still work. Link text and XPath go through DOM
// search, which evaluates XPath expressions.
func (l Locator) Query() (string, chromedp.QueryOption, error) {
	if err := l.Validate(); err != nil {
		return "", nil, err
	}
	switch l.Strategy {
	case ByID:
		return `[id="` + cssEscape(l.Value) + `"]`, chromedp.ByQuery, nil
	case ByCSS:
		return l.Value, chromedp.ByQuery, nil
	case ByLinkText:
		return "//a[normalize-space(.)=" + xpathLiteral(strings.TrimSpace(l.Value)) + "]", chromedp.BySearch, nil
	default:
		return l.Value, chromedp.BySearch, nil
	}
}

// cssEscape escapes a value for use inside a double-quoted CSS string.
func cssEscape(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(v)
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so values containing both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
