package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

// trackSpawnedPages registers the page counter on the context. It runs once,
// at session start, so the counter is armed before any user action.
func (s *Session) trackSpawnedPages() {
	s.Context.OnPage(func(p playwright.Page) {
		if p == s.Page {
			return
		}
		s.mu.Lock()
		s.spawned = append(s.spawned, p)
		s.mu.Unlock()
	})
}

// SpawnedPages returns the pages opened by the document itself, in order.
func (s *Session) SpawnedPages() []playwright.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]playwright.Page, len(s.spawned))
	copy(out, s.spawned)
	return out
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	resp, err := s.Page.Goto(url, playwrightOpts)
	if err != nil {
		return &NavigationError{Target: url, Err: err}
	}
	// file:// loads have no response; HTTP loads must not be errors
	if resp != nil && resp.Status() >= 400 {
		return &NavigationError{Target: url, Err: fmt.Errorf("HTTP status %d", resp.Status())}
	}

	s.CurrentURL = s.Page.URL()
	return nil
}

// NavigateFile loads a local document into the session's page.
func (s *Session) NavigateFile(path string) error {
	fileURL, err := FileURL(path)
	if err != nil {
		return err
	}
	return s.Navigate(fileURL, NavigateOptions{WaitUntil: "load"})
}

// Evaluate runs a JavaScript expression or function in the page, passing arg
// to it when the expression is a function.
func (s *Session) Evaluate(page playwright.Page, expression string, arg interface{}) (interface{}, error) {
	s.UpdateLastUsed()

	result, err := page.Evaluate(expression, arg)
	if err != nil {
		return nil, fmt.Errorf("JavaScript execution failed: %w", err)
	}
	return result, nil
}

// ExpectSpawnedPage fires trigger and returns the single page it opens,
// loaded to opts.LoadState. The page listener is armed before trigger runs.
// Zero pages, or more than one, is a *MissingPageError.
//
// Pages are counted until the first one has loaded and opts.Settle has
// passed. A page the document opens after that is not seen here.
func (s *Session) ExpectSpawnedPage(description string, trigger func() error, opts SpawnOptions) (playwright.Page, error) {
	s.UpdateLastUsed()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.Timeout
	}
	loadState := opts.LoadState
	if loadState == "" {
		loadState = "load"
	}

	before := len(s.SpawnedPages())
	fired := false

	page, err := s.Context.ExpectPage(func() error {
		if err := trigger(); err != nil {
			return err
		}
		fired = true
		return nil
	}, playwright.BrowserContextExpectPageOptions{
		Timeout: playwright.Float(timeout),
	})
	if err != nil {
		return nil, &MissingPageError{
			Trigger:      description,
			TriggerFired: fired,
			Spawned:      len(s.SpawnedPages()) - before,
			Err:          err,
		}
	}

	state := playwright.LoadState(loadState)
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &state,
		Timeout: playwright.Float(timeout),
	}); err != nil {
		return nil, &NavigationError{Target: page.URL(), Err: err}
	}

	settle := opts.Settle
	if settle == 0 {
		settle = DefaultSpawnSettle
	}
	if settle > 0 {
		time.Sleep(settle)
	}

	if spawned := len(s.SpawnedPages()) - before; spawned > 1 {
		return nil, &MissingPageError{
			Trigger:      description,
			TriggerFired: true,
			Spawned:      spawned,
		}
	}

	return page, nil
}

// CheckAll checks every element matching selector on page and returns how
// many were checked. No matching element is an *AssertionError.
func (s *Session) CheckAll(page playwright.Page, selector string) (int, error) {
	s.UpdateLastUsed()

	boxes, err := page.Locator(selector).All()
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate %s: %w", selector, err)
	}
	if len(boxes) == 0 {
		return 0, &AssertionError{
			Expectation: "at least one element to check",
			Selector:    selector,
			Snapshot:    s.Snapshot(page),
			Err:         errors.New("no elements matched"),
		}
	}

	for i, box := range boxes {
		if err := box.Check(); err != nil {
			return i, &AssertionError{
				Expectation: fmt.Sprintf("element %d of %d to become checked", i+1, len(boxes)),
				Selector:    selector,
				Snapshot:    s.Snapshot(page),
				Err:         err,
			}
		}
	}

	return len(boxes), nil
}

// Screenshot writes a PNG of page to opts.Path and returns the image bytes.
func (s *Session) Screenshot(page playwright.Page, opts ScreenshotOptions) ([]byte, error) {
	s.UpdateLastUsed()

	if opts.Path == "" {
		return nil, fmt.Errorf("screenshot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(opts.Path),
		FullPage: playwright.Bool(opts.FullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	return data, nil
}

// Snapshot returns a cleaned DOM rendering of page for diagnostics. It never
// fails; an unreadable page yields a short note instead.
func (s *Session) Snapshot(page playwright.Page) string {
	if page == nil {
		return ""
	}
	content, err := page.Content()
	if err != nil {
		return fmt.Sprintf("[snapshot unavailable: %v]", err)
	}
	snap, err := BuildSnapshot(content, DefaultSnapshotLength)
	if err != nil {
		return fmt.Sprintf("[snapshot unavailable: %v]", err)
	}
	return snap.String()
}

// close releases the spawned pages, the main page, the context and the
// browser, collecting every error rather than stopping at the first.
func (s *Session) close() error {
	var errs []error
	for _, p := range s.SpawnedPages() {
		if p.IsClosed() {
			continue
		}
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Page != nil && !s.Page.IsClosed() {
		if err := s.Page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Browser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
