// Package lockscreen is the full-screen terminal presenter for a locked gate.
package lockscreen

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/dailygate/internal/gate"
)

// Actions are the gate operations the screen can trigger. They may block on
// I/O, so the model only calls them from commands.
type Actions interface {
	Override() error
	RequestExit() bool
	SubmitCredential(ctx context.Context, token string) gate.Validation
}

// Opener opens a URL in the user's browser
type Opener func(url string) error

// Mode is the screen's current interaction mode
type Mode int

const (
	ModeLocked Mode = iota
	ModeConfirmExit
	ModeSession
)

// URLs the screen can open
type URLs struct {
	Daily    string
	Problems string
	Login    string
}

// MinWidth is the narrowest terminal the boxed layout fits in
const MinWidth = 50

// validateTimeout bounds a credential check started from the screen
const validateTimeout = 30 * time.Second

// StatusMsg replaces the status line
type StatusMsg string

// UnlockedMsg tells the screen the gate has been released
type UnlockedMsg struct{}

type validatedMsg struct{ v gate.Validation }

type exitResultMsg struct{ allowed bool }

type overrideResultMsg struct{ err error }

type openedMsg struct {
	url string
	err error
}

// Model is the Bubble Tea model for the lock screen
type Model struct {
	actions Actions
	open    Opener
	urls    URLs

	Width  int
	Height int

	Mode       Mode
	Status     string
	Notice     string // transient line under the status: open results, save errors
	Today      string
	LastUnlock string
	Interval   time.Duration
	ShowHelp   bool
	HelpText   string // pre-rendered markdown
	Validating bool
	Unlocked   bool

	Input   textinput.Model
	Spinner spinner.Model
}

// Options configure a new model
type Options struct {
	URLs       URLs
	Open       Opener
	Today      string
	LastUnlock string
	Interval   time.Duration
	HelpText   string
}

// NewModel creates a lock screen bound to actions
func NewModel(actions Actions, opts Options) Model {
	in := textinput.New()
	in.Placeholder = "Paste the session cookie value here"
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.Width = 44

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = subtleStyle

	return Model{
		actions:    actions,
		open:       opts.Open,
		urls:       opts.URLs,
		Status:     gate.StatusLocked,
		Today:      opts.Today,
		LastUnlock: opts.LastUnlock,
		Interval:   opts.Interval,
		HelpText:   opts.HelpText,
		Input:      in,
		Spinner:    sp,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.Status = string(msg)
		return m, nil

	case UnlockedMsg:
		m.Unlocked = true
		return m, tea.Quit

	case exitResultMsg:
		if msg.allowed {
			return m, tea.Quit
		}
		return m, nil

	case overrideResultMsg:
		if msg.err != nil {
			m.Notice = errorStyle.Render("Unlock could not be saved: " + msg.err.Error())
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.Notice = errorStyle.Render("Could not open browser: " + msg.err.Error())
		} else {
			m.Notice = subtleStyle.Render("Opened " + msg.url)
		}
		return m, nil

	case validatedMsg:
		return m.handleValidated(msg.v)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Mode {
	case ModeConfirmExit:
		return m.handleConfirmKey(msg)
	case ModeSession:
		return m.handleSessionKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, m.requestExit()

	case "e":
		m.Mode = ModeConfirmExit
		m.ShowHelp = false
		return m, nil

	case "u":
		m.Mode = ModeSession
		m.ShowHelp = false
		m.Notice = ""
		m.Input.Reset()
		return m, m.Input.Focus()

	case "d":
		return m, m.openURL(m.urls.Daily)

	case "p":
		return m, m.openURL(m.urls.Problems)

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.Mode = ModeLocked
	if msg.String() != "y" {
		return m, nil
	}
	actions := m.actions
	return m, func() tea.Msg {
		return overrideResultMsg{err: actions.Override()}
	}
}

func (m Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Validating {
		// Input is frozen until the check returns.
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.Mode = ModeLocked
		m.Input.Blur()
		m.Input.Reset()
		m.Notice = ""
		return m, nil

	case "ctrl+o":
		return m, m.openURL(m.urls.Login)

	case "enter":
		m.Validating = true
		m.Notice = ""
		token := m.Input.Value()
		actions := m.actions
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
			defer cancel()
			return validatedMsg{v: actions.SubmitCredential(ctx, token)}
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m Model) handleValidated(v gate.Validation) (tea.Model, tea.Cmd) {
	m.Validating = false
	m.Status = v.Message

	switch v.Outcome {
	case gate.ValidationOK, gate.ValidationUncertain:
		m.Mode = ModeLocked
		m.Input.Blur()
		m.Input.Reset()
		if v.Outcome == gate.ValidationOK {
			m.Notice = successStyle.Render("Cookie saved")
		}
	case gate.ValidationInvalid:
		m.Input.Reset()
		m.Notice = errorStyle.Render(v.Message)
	case gate.ValidationEmpty, gate.ValidationStoreFailed:
		m.Notice = errorStyle.Render(v.Message)
	}
	return m, nil
}

func (m Model) requestExit() tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		return exitResultMsg{allowed: actions.RequestExit()}
	}
}

func (m Model) openURL(url string) tea.Cmd {
	if url == "" || m.open == nil {
		return nil
	}
	open := m.open
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}
