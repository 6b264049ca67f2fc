package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray-500
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Gradient ends for progress bars
	GradientStart = "#7C3AED"
	GradientEnd   = "#10B981"

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Account/IO status colors
	StatusRunning      = lipgloss.Color("#10B981") // Green
	StatusIdle         = lipgloss.Color("#9CA3AF") // Gray
	StatusFetching     = lipgloss.Color("#60A5FA") // Blue
	StatusUnconfigured = lipgloss.Color("#F59E0B") // Amber
	StatusDone         = lipgloss.Color("#A78BFA") // Purple
	StatusError        = lipgloss.Color("#F87171") // Red

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	// Table cells for account listings
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			PaddingRight(2)

	TableCell = lipgloss.NewStyle().
			PaddingRight(2)

	SelectedMarker = lipgloss.NewStyle().
			Bold(true).
			Foreground(SecondaryColor)

	// Help bar
	HelpKey = lipgloss.NewStyle().
		Foreground(BlueColor).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// StatusColor returns the color for a given status
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "main_io_running", "configured":
		return StatusRunning
	case "idle":
		return StatusIdle
	case "background_fetching", "working":
		return StatusFetching
	case "unconfigured":
		return StatusUnconfigured
	case "done":
		return StatusDone
	case "error", "canceled":
		return StatusError
	default:
		return MutedColor
	}
}

// StatusIcon returns an icon for a given status
func StatusIcon(status string) string {
	switch status {
	case "main_io_running", "configured":
		return "●"
	case "idle":
		return "○"
	case "background_fetching", "working":
		return "↻"
	case "unconfigured":
		return "?"
	case "done":
		return "✓"
	case "error":
		return "✗"
	case "canceled":
		return "⏹"
	default:
		return "●"
	}
}

// Status renders an icon and label in the status color.
func Status(status string) string {
	return lipgloss.NewStyle().
		Foreground(StatusColor(status)).
		Render(StatusIcon(status) + " " + status)
}
