package scenario

import (
	"context"
	"fmt"

	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/playwright-community/playwright-go"
)

// MockUser is the user record handed to the application in place of a real
// sign-in.
type MockUser struct {
	ID          string `yaml:"uid" json:"uid"`
	DisplayName string `yaml:"display_name" json:"displayName"`
}

// LoginFixture puts a freshly loaded page into its signed-in state.
type LoginFixture interface {
	Inject(ctx context.Context, session *browser.Session, page playwright.Page) error
}

// ScriptLoginFixture signs in by toggling the login and app containers and
// calling the application's init entry point with a mock user.
//
// The container selectors are normally left blank and taken from the
// Expectations, so the fixture toggles the elements the quest asserts on.
type ScriptLoginFixture struct {
	LoginSelector string   `yaml:"login_selector,omitempty" json:"login_selector,omitempty"`
	AppSelector   string   `yaml:"app_selector,omitempty" json:"app_selector,omitempty"`
	HiddenClass   string   `yaml:"hidden_class" json:"hidden_class"`
	EntryPoint    string   `yaml:"entry_point" json:"entry_point"` // dotted path from window, e.g. app.init
	DataHandle    string   `yaml:"data_handle" json:"data_handle"` // dotted path from window, may be undefined
	User          MockUser `yaml:"user" json:"user"`
}

// DefaultLoginFixture returns the fixture for the Ascension app. Its
// container selectors come from WithSelectors.
func DefaultLoginFixture() *ScriptLoginFixture {
	return &ScriptLoginFixture{
		HiddenClass:   "hidden",
		EntryPoint:    "app.init",
		DataHandle:    "firebase_db",
		User: MockUser{
			ID:          "test-uid-123",
			DisplayName: "Test User",
		},
	}
}

// loginScript receives every value as an argument; nothing is spliced into
// the source. It returns an empty string on success or a description of what
// was missing.
const loginScript = `async (args) => {
	const resolve = (path) => path.split(".").filter(Boolean)
		.reduce((o, k) => (o == null ? undefined : o[k]), window);
	const login = document.querySelector(args.login);
	if (!login) return "login container " + args.login + " not found";
	const app = document.querySelector(args.app);
	if (!app) return "app container " + args.app + " not found";
	const entry = resolve(args.entry);
	if (typeof entry !== "function") return "entry point " + args.entry + " is not a function";
	const owner = resolve(args.entry.split(".").slice(0, -1).join("."));
	login.classList.add(args.hidden);
	app.classList.remove(args.hidden);
	await entry.call(owner === undefined ? window : owner, args.user, args.handle ? resolve(args.handle) : undefined);
	return "";
}`

// WithSelectors returns a copy of f whose blank container selectors are
// filled from e.
func (f ScriptLoginFixture) WithSelectors(e Expectations) *ScriptLoginFixture {
	if f.LoginSelector == "" {
		f.LoginSelector = e.LoginSelector
	}
	if f.AppSelector == "" {
		f.AppSelector = e.AppSelector
	}
	return &f
}

// Validate checks that the fixture can build its script.
func (f *ScriptLoginFixture) Validate() error {
	switch {
	case f.LoginSelector == "":
		return fmt.Errorf("fixture login_selector is required")
	case f.AppSelector == "":
		return fmt.Errorf("fixture app_selector is required")
	case f.HiddenClass == "":
		return fmt.Errorf("fixture hidden_class is required")
	case f.EntryPoint == "":
		return fmt.Errorf("fixture entry_point is required")
	case f.User.ID == "":
		return fmt.Errorf("fixture user uid is required")
	}
	return nil
}

func (f *ScriptLoginFixture) args() map[string]interface{} {
	return map[string]interface{}{
		"login":  f.LoginSelector,
		"app":    f.AppSelector,
		"hidden": f.HiddenClass,
		"entry":  f.EntryPoint,
		"handle": f.DataHandle,
		"user": map[string]interface{}{
			"uid":         f.User.ID,
			"displayName": f.User.DisplayName,
		},
	}
}

// Inject runs the login script in page through session. Missing containers
// or entry point are an *browser.AssertionError; an exception thrown by the
// entry point is returned wrapped.
func (f *ScriptLoginFixture) Inject(ctx context.Context, session *browser.Session, page playwright.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	result, err := session.Evaluate(page, loginScript, f.args())
	if err != nil {
		return fmt.Errorf("login fixture failed: %w", err)
	}

	if msg, ok := result.(string); ok && msg != "" {
		return &browser.AssertionError{
			Expectation: "login fixture preconditions",
			Selector:    f.EntryPoint,
			Err:         fmt.Errorf("%s", msg),
		}
	}
	return nil
}
