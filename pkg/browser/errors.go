package browser

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// AssertionError reports a UI expectation that did not hold within its wait
// budget. Snapshot holds a cleaned copy of the DOM at the time of failure
// when one could be captured.
type AssertionError struct {
	Expectation string
	Selector    string
	Snapshot    string
	Err         error
}

func (e *AssertionError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("assertion failed: %s: %v", e.Expectation, e.Err)
	}
	return fmt.Sprintf("assertion failed: %s (%s): %v", e.Expectation, e.Selector, e.Err)
}

// Unwrap returns the underlying error
func (e *AssertionError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the assertion failed because its wait budget ran out.
func (e *AssertionError) Timeout() bool {
	return errors.Is(e.Err, playwright.ErrTimeout)
}

// NavigationError reports a document that could not be resolved or loaded.
type NavigationError struct {
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.Target, e.Err)
}

// Unwrap returns the underlying error
func (e *NavigationError) Unwrap() error {
	return e.Err
}

// MissingPageError reports that a triggering action did not produce exactly
// one new page. TriggerFired separates a regressed feature (the click worked,
// nothing opened) from a selector mismatch (the click itself failed).
type MissingPageError struct {
	Trigger      string
	TriggerFired bool
	Spawned      int
	Err          error
}

func (e *MissingPageError) Error() string {
	switch {
	case !e.TriggerFired:
		return fmt.Sprintf("trigger %q failed before any page could open: %v", e.Trigger, e.Err)
	case e.Spawned > 1:
		return fmt.Sprintf("trigger %q opened %d pages, expected exactly one", e.Trigger, e.Spawned)
	default:
		return fmt.Sprintf("trigger %q did not open a new page: %v", e.Trigger, e.Err)
	}
}

// Unwrap returns the underlying error
func (e *MissingPageError) Unwrap() error {
	return e.Err
}

// ErrNoSession is returned when an operation needs a session that is not there.
var ErrNoSession = errors.New("no active browser session")

// ErrNotInitialized is returned when the manager is used before Initialize.
var ErrNotInitialized = errors.New("session manager not initialized")
