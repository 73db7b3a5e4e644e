package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/entrhq/questcheck/pkg/types"
	"github.com/playwright-community/playwright-go"
)

// QuestScenario is the scenario name used in reports and history.
const QuestScenario = "ascension-quest"

// Step names, in run order.
const (
	StepLaunch        = "launch"
	StepInitialState  = "initial-state"
	StepMockLogin     = "mock-login"
	StepAppVisible    = "app-visible"
	StepConfirmDialog = "confirm-dialog"
	StepSpawnPage     = "spawn-page"
	StepDungeonState  = "dungeon-state"
	StepCheckSets     = "check-sets"
	StepNextEnabled   = "next-enabled"
	StepEvidence      = "evidence"
	StepTeardown      = "teardown"
)

// SessionStarter opens and closes the browser session the quest runs in.
// *browser.SessionManager satisfies it.
type SessionStarter interface {
	StartSession(name string, opts browser.SessionOptions) (*browser.Session, error)
	CloseSession(name string) error
}

// Quest is the login → begin quest → dungeon acceptance flow.
type Quest struct {
	Sessions       SessionStarter
	SessionName    string
	SessionOptions browser.SessionOptions
	AppPath        string
	Fixture        LoginFixture
	Expect         Expectations
	ScreenshotPath string
	FullPage       bool
}

// Steps validates the quest and returns its steps in run order.
func (q *Quest) Steps() ([]Step, error) {
	if q.Sessions == nil {
		return nil, fmt.Errorf("quest needs a session starter")
	}
	if q.AppPath == "" {
		return nil, fmt.Errorf("quest needs an app path")
	}
	if q.ScreenshotPath == "" {
		return nil, fmt.Errorf("quest needs a screenshot path")
	}
	switch f := q.Fixture.(type) {
	case nil:
		q.Fixture = DefaultLoginFixture().WithSelectors(q.Expect)
	case *ScriptLoginFixture:
		q.Fixture = f.WithSelectors(q.Expect)
	}
	if q.SessionName == "" {
		q.SessionName = QuestScenario
	}
	if err := q.Expect.Validate(); err != nil {
		return nil, err
	}
	matcher, err := NewURLMatcher(q.Expect.SpawnedURL)
	if err != nil {
		return nil, err
	}

	return []Step{
		{Name: StepLaunch, Description: "Launch the browser and load the app", Run: q.launch},
		{Name: StepInitialState, Description: "Login screen visible, app hidden", Run: q.initialState},
		{Name: StepMockLogin, Description: "Sign in with the mock user", Run: q.mockLogin},
		{Name: StepAppVisible, Description: "App visible after sign-in", Run: q.appVisible},
		{Name: StepConfirmDialog, Description: "Begin Quest opens the confirmation dialog", Run: q.confirmDialog},
		{Name: StepSpawnPage, Description: "Confirming opens the dungeon page", Run: func(ctx context.Context, st *State) error {
			return q.spawnPage(ctx, st, matcher)
		}},
		{Name: StepDungeonState, Description: "First task shown, next disabled", Run: q.dungeonState},
		{Name: StepCheckSets, Description: "Check every set", Run: q.checkSets},
		{Name: StepNextEnabled, Description: "Next enabled once all sets are checked", Run: q.nextEnabled},
		{Name: StepEvidence, Description: "Capture the dungeon screenshot", Run: q.evidence},
		{Name: StepTeardown, Description: "Close the browser", Always: true, Run: q.teardown},
	}, nil
}

func (q *Quest) expect(st *State, page playwright.Page) *browser.Assert {
	return st.Session.Expect(page, q.Expect.TimeoutMS)
}

func spawnedPage(st *State) (playwright.Page, error) {
	if st.Spawned == nil {
		return nil, errors.New("no dungeon page in this run")
	}
	return st.Spawned, nil
}

func (q *Quest) launch(ctx context.Context, st *State) error {
	session, err := q.Sessions.StartSession(q.SessionName, q.SessionOptions)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	st.Session = session
	st.Page = session.Page
	return session.NavigateFile(q.AppPath)
}

func (q *Quest) initialState(ctx context.Context, st *State) error {
	a := q.expect(st, st.Page)
	if err := a.Visible(browser.CSS(st.Page, q.Expect.LoginSelector)); err != nil {
		return err
	}
	return a.Hidden(browser.CSS(st.Page, q.Expect.AppSelector))
}

func (q *Quest) mockLogin(ctx context.Context, st *State) error {
	err := q.Fixture.Inject(ctx, st.Session, st.Page)
	var assertErr *browser.AssertionError
	if errors.As(err, &assertErr) && assertErr.Snapshot == "" {
		assertErr.Snapshot = st.Session.Snapshot(st.Page)
	}
	return err
}

func (q *Quest) appVisible(ctx context.Context, st *State) error {
	return q.expect(st, st.Page).Visible(browser.CSS(st.Page, q.Expect.AppSelector))
}

func (q *Quest) confirmDialog(ctx context.Context, st *State) error {
	action := browser.Button(st.Page, q.Expect.ActionButton)
	if err := action.Locator.Click(); err != nil {
		return &browser.AssertionError{
			Expectation: "expected to be clickable",
			Selector:    action.Selector,
			Snapshot:    st.Session.Snapshot(st.Page),
			Err:         err,
		}
	}
	return q.expect(st, st.Page).Text(browser.CSS(st.Page, q.Expect.ModalTitle), q.Expect.ModalText)
}

func (q *Quest) spawnPage(ctx context.Context, st *State, matcher *URLMatcher) error {
	confirm := browser.Button(st.Page, q.Expect.ConfirmButton)
	trigger := fmt.Sprintf("click %s", confirm.Selector)

	page, err := st.Session.ExpectSpawnedPage(trigger, func() error {
		return confirm.Locator.Click()
	}, browser.SpawnOptions{Timeout: q.SessionOptions.Timeout})
	if err != nil {
		return err
	}

	st.Spawned = page
	st.SpawnedURL = page.URL()
	st.Emit(types.NewPageSpawnedEvent(st.Scenario(), trigger, st.SpawnedURL))

	if !matcher.Match(st.SpawnedURL) {
		return &browser.AssertionError{
			Expectation: fmt.Sprintf("expected spawned page URL to match %q", matcher),
			Snapshot:    st.Session.Snapshot(page),
			Err:         fmt.Errorf("got %s", st.SpawnedURL),
		}
	}
	return nil
}

func (q *Quest) dungeonState(ctx context.Context, st *State) error {
	page, err := spawnedPage(st)
	if err != nil {
		return err
	}
	a := q.expect(st, page)
	if err := a.Visible(browser.Heading(page, q.Expect.Heading)); err != nil {
		return err
	}
	return a.Disabled(browser.CSS(page, q.Expect.NextButton))
}

func (q *Quest) checkSets(ctx context.Context, st *State) error {
	page, err := spawnedPage(st)
	if err != nil {
		return err
	}
	n, err := st.Session.CheckAll(page, q.Expect.CheckboxSelector)
	st.Checked = n
	return err
}

func (q *Quest) nextEnabled(ctx context.Context, st *State) error {
	page, err := spawnedPage(st)
	if err != nil {
		return err
	}
	return q.expect(st, page).Enabled(browser.CSS(page, q.Expect.NextButton))
}

func (q *Quest) evidence(ctx context.Context, st *State) error {
	page, err := spawnedPage(st)
	if err != nil {
		return err
	}
	data, err := st.Session.Screenshot(page, browser.ScreenshotOptions{
		Path:     q.ScreenshotPath,
		FullPage: q.FullPage,
	})
	if err != nil {
		return err
	}
	st.Screenshot = q.ScreenshotPath
	st.ShotBytes = int64(len(data))
	st.Emit(types.NewArtifactWrittenEvent(st.Scenario(), "screenshot", q.ScreenshotPath, st.ShotBytes))
	return nil
}

func (q *Quest) teardown(ctx context.Context, st *State) error {
	if st.Session == nil {
		return nil
	}
	err := q.Sessions.CloseSession(st.Session.Name)
	st.Session = nil
	st.Page = nil
	st.Spawned = nil
	return err
}
