// Package theme provides the Lip Gloss color palette and reusable styles
// for the scoreboard. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Team colors.
var (
	ColorSideA = lipgloss.Color("#dc2626")
	ColorSideB = lipgloss.Color("#2563eb")
)

// Session state colors.
var (
	ColorIdle         = lipgloss.Color("#4b5563")
	ColorRunning      = lipgloss.Color("#16a34a")
	ColorShuttingDown = lipgloss.Color("#d97706")
	ColorCompleted    = lipgloss.Color("#a855f7")
	ColorDefault      = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// SideColor returns the color for side "a" or "b".
func SideColor(side string) lipgloss.Color {
	switch side {
	case "a":
		return ColorSideA
	case "b":
		return ColorSideB
	default:
		return ColorDefault
	}
}

// StateColor returns the color for a session state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "idle":
		return ColorIdle
	case "running":
		return ColorRunning
	case "shutting_down":
		return ColorShuttingDown
	case "completed":
		return ColorCompleted
	default:
		return ColorDefault
	}
}

// Reusable styles.
var (
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
			Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)

// HolderGlyph marks which side holds a node.
func HolderGlyph(side string) string {
	switch side {
	case "a":
		return "◀"
	case "b":
		return "▶"
	default:
		return "·"
	}
}
