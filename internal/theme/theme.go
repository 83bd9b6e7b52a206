// Package theme provides the Lip Gloss palette and shared styles for the
// fzm terminal UI. It imports nothing internal so every view can use it.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fzmanager/fzm/internal/client"
)

// Factorio brand colors.
var (
	ColorFactorio   = lipgloss.Color("#ff9f1c")
	ColorFactorioBg = lipgloss.Color("#2b2118")
)

// Server status colors.
var (
	ColorOffline  = lipgloss.Color("#6b7280")
	ColorStarting = lipgloss.Color("#7c3aed")
	ColorRunning  = lipgloss.Color("#16a34a")
	ColorStopping = lipgloss.Color("#d97706")
)

// Console line colors.
var (
	ColorLog   = lipgloss.Color("#d1d5db")
	ColorInfo  = lipgloss.Color("#2563eb")
	ColorWarn  = lipgloss.Color("#d97706")
	ColorError = lipgloss.Color("#dc2626")
	ColorInput = lipgloss.Color("#22c55e")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StatusColor returns the color for a server lifecycle status.
func StatusColor(s client.ServerStatus) lipgloss.Color {
	switch s {
	case client.StatusStarting:
		return ColorStarting
	case client.StatusRunning:
		return ColorRunning
	case client.StatusStopping:
		return ColorStopping
	default:
		return ColorOffline
	}
}

// StatusGlyph returns a glyph for a server lifecycle status.
func StatusGlyph(s client.ServerStatus) string {
	switch s {
	case client.StatusStarting:
		return "◎"
	case client.StatusRunning:
		return "●"
	case client.StatusStopping:
		return "◌"
	default:
		return "○"
	}
}

// Reusable styles.
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFactorio).
			Background(ColorFactorioBg).
			Padding(0, 1)

	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFactorio)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)
