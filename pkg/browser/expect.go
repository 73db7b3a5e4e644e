package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Target is a located element plus the human-readable selector used in
// failure messages.
type Target struct {
	Locator  playwright.Locator
	Selector string
}

// CSS locates elements by CSS selector.
func CSS(page playwright.Page, selector string) Target {
	return Target{Locator: page.Locator(selector), Selector: selector}
}

// Button locates a button whose accessible name contains name, ignoring
// case, so "Begin Quest" also finds "Begin Quest »".
func Button(page playwright.Page, name string) Target {
	return Target{
		Locator: page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{
			Name: name,
		}),
		Selector: fmt.Sprintf("button[name=%q]", name),
	}
}

// Heading locates a heading by its exact accessible name.
func Heading(page playwright.Page, name string) Target {
	return Target{
		Locator: page.GetByRole(*playwright.AriaRoleHeading, playwright.PageGetByRoleOptions{
			Name:  name,
			Exact: playwright.Bool(true),
		}),
		Selector: fmt.Sprintf("heading[name=%q]", name),
	}
}

// Assert waits for UI state on a single page. Each check polls until it holds
// or its timeout elapses, then fails with an *AssertionError carrying a DOM
// snapshot of the page.
type Assert struct {
	session *Session
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
}

// Expect returns an Assert bound to page with the given wait budget in
// milliseconds. A non-positive timeout uses DefaultAssertionTimeout.
func (s *Session) Expect(page playwright.Page, timeout float64) *Assert {
	if timeout <= 0 {
		timeout = DefaultAssertionTimeout
	}
	return &Assert{
		session: s,
		page:    page,
		expect:  playwright.NewPlaywrightAssertions(timeout),
	}
}

// Visible asserts the target is rendered and visible.
func (a *Assert) Visible(t Target) error {
	return a.wrap("to be visible", t, a.expect.Locator(t.Locator).ToBeVisible())
}

// Hidden asserts the target is hidden or absent.
func (a *Assert) Hidden(t Target) error {
	return a.wrap("to be hidden", t, a.expect.Locator(t.Locator).ToBeHidden())
}

// Text asserts the target's full text equals want.
func (a *Assert) Text(t Target, want string) error {
	return a.wrap(fmt.Sprintf("to have text %q", want), t, a.expect.Locator(t.Locator).ToHaveText(want))
}

// Disabled asserts the target is disabled.
func (a *Assert) Disabled(t Target) error {
	return a.wrap("to be disabled", t, a.expect.Locator(t.Locator).ToBeDisabled())
}

// Enabled asserts the target is enabled.
func (a *Assert) Enabled(t Target) error {
	return a.wrap("to be enabled", t, a.expect.Locator(t.Locator).ToBeEnabled())
}

func (a *Assert) wrap(expectation string, t Target, err error) error {
	if err == nil {
		return nil
	}
	a.session.UpdateLastUsed()
	return &AssertionError{
		Expectation: "expected " + expectation,
		Selector:    t.Selector,
		Snapshot:    a.session.Snapshot(a.page),
		Err:         err,
	}
}
