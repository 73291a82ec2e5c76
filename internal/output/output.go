// Package output provides styled terminal output helpers (success, error,
// warning, gate state formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/dailygate/internal/models"
)

var (
	// Styles
	labelStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	stateStyles  = map[models.GateState]lipgloss.Style{
		models.StateLocked:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		models.StateUnlocked: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
	reasonStyles = map[models.UnlockReason]lipgloss.Style{
		models.ReasonSolved:            lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.ReasonEmergencyOverride: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.ReasonCrashFailsafe:     lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatState formats a gate state with color
func FormatState(s models.GateState) string {
	style, ok := stateStyles[s]
	if !ok {
		return s.String()
	}
	return style.Render(strings.ToUpper(s.String()))
}

// FormatReason formats an unlock reason with color
func FormatReason(r models.UnlockReason) string {
	style, ok := reasonStyles[r]
	if !ok {
		return string(r)
	}
	return style.Render(string(r))
}

// FormatRecord renders an unlock record on one line, e.g.
// "2024-06-01 solved (42)"
func FormatRecord(rec models.UnlockRecord) string {
	if rec.IsZero() {
		return subtleStyle.Render("never")
	}
	s := rec.Date + " " + FormatReason(rec.Reason)
	if rec.SourceID != "" {
		s += fmt.Sprintf(" (%s)", rec.SourceID)
	}
	if !rec.UnlockedAt.IsZero() {
		s += subtleStyle.Render(" " + FormatTimeAgo(rec.UnlockedAt))
	}
	return s
}

// KeyValue renders an aligned "label: value" line
func KeyValue(label, value string, width int) string {
	return labelStyle.Render(fmt.Sprintf("%-*s", width, label+":")) + " " + value
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nRECENT LOG:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentLines indents each line by the specified number of spaces
func IndentLines(lines []string, spaces int) []string {
	indent := strings.Repeat(" ", spaces)
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = indent + line
	}
	return result
}
