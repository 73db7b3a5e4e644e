package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents an active browser session with its associated resources.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the page opened with the session. Pages spawned later by the
	// document itself are tracked separately and never replace it.
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// LastUsedAt is the timestamp of the last operation on this session
	LastUsedAt time.Time

	// CurrentURL is the URL of the main page
	CurrentURL string

	// Timeout is the default wait budget for this session, in milliseconds
	Timeout float64

	mu      sync.Mutex
	spawned []playwright.Page
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// SpawnOptions configures ExpectSpawnedPage.
type SpawnOptions struct {
	// Timeout bounds the wait for the new page, in milliseconds
	Timeout float64

	// LoadState is the state the new page must reach before it is returned.
	// Defaults to "load".
	LoadState string

	// Settle is how long to keep counting pages after the new one loads.
	// Zero uses DefaultSpawnSettle; a negative value skips the wait.
	Settle time.Duration
}

// ScreenshotOptions configures evidence capture.
type ScreenshotOptions struct {
	// Path is where the PNG is written. Parent directories are created.
	Path string

	// FullPage captures the full scrollable page instead of the viewport
	FullPage bool
}

// SessionInfo contains metadata about a browser session.
type SessionInfo struct {
	Name        string
	CurrentURL  string
	Headless    bool
	SpawnedPage int
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Default values for various operations
const (
	DefaultTimeout          = 30000.0 // 30 seconds in milliseconds
	DefaultAssertionTimeout = 5000.0  // Playwright's own expect() budget
	DefaultSnapshotLength   = 4000
	DefaultViewportWidth    = 1280
	DefaultViewportHeight   = 720
	DefaultMaxSessions      = 5
)

// DefaultSpawnSettle is the quiet period ExpectSpawnedPage waits for a second
// page before accepting the first.
const DefaultSpawnSettle = 250 * time.Millisecond
