package scenario

import (
	"fmt"

	"github.com/entrhq/questcheck/pkg/browser"
)

// Expectations holds every selector and literal the quest scenario reads
// from the application's DOM.
type Expectations struct {
	LoginSelector    string  `yaml:"login_selector" json:"login_selector"`
	AppSelector      string  `yaml:"app_selector" json:"app_selector"`
	ActionButton     string  `yaml:"action_button" json:"action_button"`
	ModalTitle       string  `yaml:"modal_title_selector" json:"modal_title_selector"`
	ModalText        string  `yaml:"modal_title_text" json:"modal_title_text"`
	ConfirmButton    string  `yaml:"confirm_button" json:"confirm_button"`
	SpawnedURL       string  `yaml:"spawned_url" json:"spawned_url"`
	Heading          string  `yaml:"heading" json:"heading"`
	NextButton       string  `yaml:"next_button_selector" json:"next_button_selector"`
	CheckboxSelector string  `yaml:"checkbox_selector" json:"checkbox_selector"`
	TimeoutMS        float64 `yaml:"timeout_ms" json:"timeout_ms"`
}

// DefaultExpectations returns the values for the Ascension quest flow.
func DefaultExpectations() Expectations {
	return Expectations{
		LoginSelector:    "#login-screen",
		AppSelector:      "#app",
		ActionButton:     "Begin Quest",
		ModalTitle:       "#modal-title",
		ModalText:        "Begin Quest?",
		ConfirmButton:    "Yes",
		SpawnedURL:       "dungeon.html",
		Heading:          "Task 1 / 5",
		NextButton:       "#next-task-btn",
		CheckboxSelector: ".set-checkbox",
		TimeoutMS:        browser.DefaultAssertionTimeout,
	}
}

// Validate checks that no expectation is blank.
func (e Expectations) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"login_selector", e.LoginSelector},
		{"app_selector", e.AppSelector},
		{"action_button", e.ActionButton},
		{"modal_title_selector", e.ModalTitle},
		{"modal_title_text", e.ModalText},
		{"confirm_button", e.ConfirmButton},
		{"spawned_url", e.SpawnedURL},
		{"heading", e.Heading},
		{"next_button_selector", e.NextButton},
		{"checkbox_selector", e.CheckboxSelector},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("expectation %s is required", f.name)
		}
	}
	if e.TimeoutMS < 0 {
		return fmt.Errorf("expectation timeout_ms must be non-negative")
	}
	if _, err := NewURLMatcher(e.SpawnedURL); err != nil {
		return err
	}
	return nil
}
