package ux

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles of terminal output.
type Styles struct {
	Title    lipgloss.Style
	Category lipgloss.Style
	Task     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the colored styles
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Category: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Task: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")), // Cyan
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Title:    plain,
		Category: plain,
		Task:     plain,
		Muted:    plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
	}
}

// NewStyles picks colored or plain styles.
func NewStyles(color bool) *Styles {
	if color {
		return DefaultStyles()
	}
	return PlainStyles()
}

// BuildDone renders the completion line of a successful flow.
func (s *Styles) BuildDone(d time.Duration) string {
	return s.Success.Render(fmt.Sprintf("Build Done in %.2f seconds.", d.Seconds()))
}

// BuildFailed renders the completion line of a failed flow.
func (s *Styles) BuildFailed(task string) string {
	return s.Error.Render(fmt.Sprintf("Build Failed: task %s did not complete.", task))
}
