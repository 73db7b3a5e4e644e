package browser

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/entrhq/questcheck/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

// SessionManager owns the Playwright driver and every browser session
// started through it.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	maxSessions int
	install     bool
	initialized bool
	output      io.Writer
	log         *logging.Logger
}

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithInstall makes Initialize download the driver and Chromium first.
func WithInstall(install bool) ManagerOption {
	return func(m *SessionManager) {
		m.install = install
	}
}

// WithDriverOutput sets where driver install/run output goes. Defaults to io.Discard.
func WithDriverOutput(w io.Writer) ManagerOption {
	return func(m *SessionManager) {
		m.output = w
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *SessionManager) {
		m.log = l
	}
}

// WithMaxSessions caps the number of concurrent sessions.
func WithMaxSessions(n int) ManagerOption {
	return func(m *SessionManager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// NewSessionManager creates a new session manager.
func NewSessionManager(opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
		output:      io.Discard,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize starts the Playwright driver. It must be called before creating
// any sessions and is a no-op once it has succeeded.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   m.output,
		Stderr:   m.output,
	}

	if m.install {
		m.log.Infof("installing playwright driver and chromium")
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	m.log.Debugf("playwright driver started")
	return nil
}

// StartSession launches Chromium and opens an isolated context with one page.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}
	if !m.initialized {
		return nil, ErrNotInitialized
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	context.SetDefaultTimeout(opts.Timeout)
	page.SetDefaultTimeout(opts.Timeout)

	now := time.Now()
	session := &Session{
		Name:       name,
		Browser:    browser,
		Context:    context,
		Page:       page,
		Headless:   opts.Headless,
		CreatedAt:  now,
		LastUsedAt: now,
		CurrentURL: "about:blank",
		Timeout:    opts.Timeout,
	}
	session.trackSpawnedPages()

	m.sessions[name] = session
	m.log.Infof("session %q started (headless=%v, viewport=%dx%d)", name, opts.Headless, opts.Viewport.Width, opts.Viewport.Height)
	return session, nil
}

// CloseSession closes and removes a browser session.
func (m *SessionManager) CloseSession(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[name]
	if !exists {
		return fmt.Errorf("session %q: %w", name, ErrNoSession)
	}

	delete(m.sessions, name)
	m.log.Infof("session %q closed", name)
	return session.close()
}

// ListSessions returns information about all active sessions.
func (m *SessionManager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, SessionInfo{
			Name:        session.Name,
			CurrentURL:  session.CurrentURL,
			Headless:    session.Headless,
			SpawnedPage: len(session.SpawnedPages()),
			CreatedAt:   session.CreatedAt,
			LastUsedAt:  session.LastUsedAt,
		})
	}

	return infos
}

func (m *SessionManager) closeAllLocked() error {
	var errs []error
	for name, session := range m.sessions {
		if err := session.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", name, err))
		}
		delete(m.sessions, name)
	}
	return errors.Join(errs...)
}

// Shutdown closes all sessions and stops the Playwright driver. Safe to call
// more than once and on a manager that never initialized.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.closeAllLocked()

	if m.initialized && m.playwright != nil {
		if stopErr := m.playwright.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to stop playwright: %w", stopErr))
		}
		m.initialized = false
		m.playwright = nil
		m.log.Debugf("playwright driver stopped")
	}

	return err
}
