// Package browser drives Chromium through Playwright for scripted acceptance
// checks against a local web application.
//
// # Architecture
//
// The package is built around three core concepts:
//
// 1. Session: a Chromium instance with one isolated context and its main page
// 2. SessionManager: owns the Playwright driver and every session started through it
// 3. Assert: polling UI expectations that fail with a DOM snapshot attached
//
// # Session Lifecycle
//
//  1. Initialize: the manager starts (and optionally installs) the driver
//  2. Start: StartSession launches Chromium and arms the spawned-page counter
//  3. Use: navigation, evaluation, clicks and assertions operate on pages
//  4. Close: CloseSession or Shutdown releases pages, context, browser and driver
//
// Shutdown is safe to call on every exit path, including after a failed
// Initialize, so callers defer it right after constructing the manager.
//
// # Failures
//
// Three error types classify what went wrong:
//
//   - *AssertionError: a UI expectation did not hold within its wait budget
//   - *NavigationError: a document could not be resolved or loaded
//   - *MissingPageError: an action did not open exactly one new page
//
// # Example Usage
//
//	manager := NewSessionManager()
//	defer manager.Shutdown()
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	session, err := manager.StartSession("quest", SessionOptions{Headless: true})
//	if err != nil {
//	    return err
//	}
//	if err := session.NavigateFile("index.html"); err != nil {
//	    return err
//	}
//	err = session.Expect(session.Page, 0).Visible(CSS(session.Page, "#login-screen"))
package browser
