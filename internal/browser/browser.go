// Package browser defines the browser-control capability the acquisition
// engine drives, plus the Playwright adapter that backs it in production.
package browser

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("wait timed out")
)

// DomInteractionError reports a failed query, click or read against the page.
// It is always recoverable by the caller.
type DomInteractionError struct {
	Op       string
	Selector string
	Err      error
}

func (e *DomInteractionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("dom %s %q: %v", e.Op, e.Selector, e.Err)
	}
	return fmt.Sprintf("dom %s: %v", e.Op, e.Err)
}

func (e *DomInteractionError) Unwrap() error {
	return e.Err
}

// NotFound builds the error adapters return for an empty selector match.
func NotFound(op, selector string) error {
	return &DomInteractionError{Op: op, Selector: selector, Err: ErrElementNotFound}
}

// Scripts understood by every adapter. The fake adapter recognises them verbatim.
const (
	ScriptScrollHeight   = "() => document.body.scrollHeight"
	ScriptScrollToBottom = "() => window.scrollTo(0, document.body.scrollHeight)"
)

// Querier is anything selectors can be evaluated against: the whole page or one element.
type Querier interface {
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
}

// Element is an opaque handle to one node. It is valid only until the page state changes.
type Element interface {
	Querier
	Click() error
	Type(text string) error
	Text() (string, error)
	// Attribute reports ok=false when the attribute is absent.
	Attribute(name string) (value string, ok bool, err error)
}

// Page is one browsing tab. Calls must be serialized: one in flight at a time.
type Page interface {
	Querier
	Navigate(url string) error
	Reload() error
	CurrentURL() string
	Content() (string, error)
	WaitForSelector(selector string, timeout time.Duration) (Element, error)
	Evaluate(script string) (any, error)
	Cookies() ([]Cookie, error)
	AddCookies(cookies []Cookie) error
}

// Cookie is the adapter-neutral cookie shape, also the on-disk JSON format.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// ToInt converts a numeric script result into an int.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected script result %T", v)
	}
}
