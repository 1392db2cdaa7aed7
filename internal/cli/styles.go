// Package cli renders products, history and reference data for the terminal
// using lipgloss.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/franckalain/eatsmarty/internal/catalog"
)

var (
	// PrimaryColor is the brand green
	PrimaryColor = lipgloss.Color("#16A34A")
	SuccessColor = lipgloss.Color("#22C55E")
	WarningColor = lipgloss.Color("#EAB308")
	ErrorColor   = lipgloss.Color("#DC2626")
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF"))
)

// gradeColors follows the Nutri-Score and Eco-Score palette, a (best) to e.
var gradeColors = map[string]lipgloss.Color{
	"a": lipgloss.Color("#038141"),
	"b": lipgloss.Color("#85BB2F"),
	"c": lipgloss.Color("#FECB02"),
	"d": lipgloss.Color("#EE8100"),
	"e": lipgloss.Color("#E63E11"),
}

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
)

// GradeBadge renders a score grade as a coloured badge. Grades outside a-e
// are shown as-is on grey.
func GradeBadge(grade string) string {
	g := strings.ToLower(strings.TrimSpace(grade))
	color, ok := gradeColors[g]
	if !ok {
		color = SubtleColor
	}
	return badgeStyle.Background(color).Render(strings.ToUpper(g))
}

// SafetyStyle returns the style for a safety rating
func SafetyStyle(s catalog.Safety) lipgloss.Style {
	switch s {
	case catalog.SafetySafe:
		return SuccessStyle
	case catalog.SafetyCaution:
		return WarningStyle
	case catalog.SafetyAvoid:
		return ErrorStyle
	default:
		return SubtleStyle
	}
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// RenderBox renders content in a bordered box under a title.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
