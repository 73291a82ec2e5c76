package lockscreen

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// SessionHelp explains how to obtain a fresh session cookie
const SessionHelp = `Your session cookie is stored in the OS keyring.
1) Press ctrl+o to open the login page and sign in.
2) Open DevTools > Application/Storage > Cookies.
3) Copy the value of LEETCODE_SESSION and paste it below.`

func (m Model) renderView() string {
	if m.Unlocked {
		return ""
	}
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Width < MinWidth {
		return m.renderCompact()
	}

	var body string
	switch {
	case m.ShowHelp && m.HelpText != "":
		body = m.renderHelp()
	case m.Mode == ModeConfirmExit:
		body = m.renderConfirm()
	case m.Mode == ModeSession:
		body = m.renderSession()
	default:
		body = m.renderLocked()
	}

	box := boxStyle.Width(m.contentWidth() + 6).Render(body)
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}

// contentWidth is the usable text width inside the box
func (m Model) contentWidth() int {
	w := m.Width - 10
	if w > 72 {
		w = 72
	}
	return w
}

func (m Model) statusLine() string {
	line := m.Spinner.View() + " " + statusStyle.Render(m.Status)
	return ansi.Truncate(line, m.contentWidth(), "…")
}

func (m Model) renderLocked() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("🔒 Daily Gate"))
	if m.Today != "" {
		s.WriteString(subtleStyle.Render("  " + m.Today))
	}
	s.WriteString("\n\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	if m.Notice != "" {
		s.WriteString(ansi.Truncate(m.Notice, m.contentWidth(), "…"))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(keyLine("d", "open daily challenge"))
	s.WriteString(keyLine("p", "open problem set"))
	s.WriteString(keyLine("u", "update session cookie"))
	s.WriteString(keyLine("e", "emergency exit (logged)"))
	s.WriteString(keyLine("?", "help"))

	s.WriteString("\n")
	tip := "Tip: solved a problem already? The gate checks"
	if m.Interval > 0 {
		tip += fmt.Sprintf(" every %s.", m.Interval)
	} else {
		tip += " periodically."
	}
	s.WriteString(helpStyle.Render(ansi.Truncate(tip, m.contentWidth(), "…")))
	if m.LastUnlock != "" {
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("Last unlock: " + m.LastUnlock))
	}
	return s.String()
}

func (m Model) renderConfirm() string {
	var s strings.Builder
	s.WriteString(warningStyle.Render("Emergency exit"))
	s.WriteString("\n\n")
	s.WriteString("This unlocks the gate for the rest of today and is written to the gate log.\n\n")
	s.WriteString(keyLine("y", "confirm"))
	s.WriteString(helpStyle.Render("any other key cancels"))
	return s.String()
}

func (m Model) renderSession() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Update session"))
	s.WriteString("\n\n")
	s.WriteString(subtleStyle.Render(SessionHelp))
	s.WriteString("\n\n")
	s.WriteString(m.Input.View())
	s.WriteString("\n\n")
	if m.Validating {
		s.WriteString(m.Spinner.View() + " Validating...")
	} else if m.Notice != "" {
		s.WriteString(ansi.Truncate(m.Notice, m.contentWidth(), "…"))
	}
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("enter: save & validate  ctrl+o: open login  esc: cancel"))
	return s.String()
}

func (m Model) renderHelp() string {
	return m.HelpText + "\n\n" + helpStyle.Render("?: close help")
}

func (m Model) renderCompact() string {
	var s strings.Builder
	s.WriteString("Daily Gate (locked)\n\n")
	s.WriteString(ansi.Truncate(m.Status, m.Width, "…"))
	s.WriteString("\n\n")
	switch m.Mode {
	case ModeConfirmExit:
		s.WriteString("y: confirm emergency exit")
	case ModeSession:
		s.WriteString(m.Input.View())
		s.WriteString("\nenter:save esc:cancel")
	default:
		s.WriteString("d:daily p:set u:cookie e:exit")
	}
	return s.String()
}

func keyLine(key, desc string) string {
	return fmt.Sprintf("  %s  %s\n", keyStyle.Render(key), desc)
}
