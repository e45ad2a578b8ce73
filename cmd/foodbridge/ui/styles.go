// Package ui implements the interactive terminal frontend: login and
// registration, the donor and NGO dashboards, and the donation form.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"foodbridge/internal/donation"
)

var (
	// Light mode colors
	LightBackground = lipgloss.Color("#f6f7f4")
	LightForeground = lipgloss.Color("#1b2b1b")
	LightPrimary    = lipgloss.Color("#2e7d32") // Green
	LightAccent     = lipgloss.Color("#ff8f00") // Amber
	LightSecondary  = lipgloss.Color("#e4e8e1")
	LightMuted      = lipgloss.Color("#8a948a")
	LightBorder     = lipgloss.Color("#d7ddd4")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark mode colors
	DarkBackground = lipgloss.Color("#161d16")
	DarkForeground = lipgloss.Color("#eef2ee")
	DarkPrimary    = lipgloss.Color("#66bb6a")
	DarkAccent     = lipgloss.Color("#ffb300")
	DarkSecondary  = lipgloss.Color("#21301f")
	DarkMuted      = lipgloss.Color("#6e7a6e")
	DarkBorder     = lipgloss.Color("#2c3b2a")
	DarkCard       = lipgloss.Color("#1d291c")

	// Semantic colors, same in both modes
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#66bb6a")
	Warning     = lipgloss.Color("#ffc107")
	Info        = lipgloss.Color("#2196f3")
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeByName resolves a configured theme name; "auto" detects.
func ThemeByName(name string) Theme {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}
	return DetectTheme()
}

// DetectTheme picks dark mode when the terminal background looks dark.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		// Format is "foreground;background"; ANSI indexes 0-6 and 8 are
		// the usual dark backgrounds.
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	if os.Getenv("FOODBRIDGE_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Card        lipgloss.Style
	CardTitle   lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Badge       lipgloss.Style
	FieldLabel  lipgloss.Style
	FieldError  lipgloss.Style
	Spinner     lipgloss.Style
	Modal       lipgloss.Style
}

// NewStyles creates a Styles instance for the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Card: lipgloss.NewStyle().
			Background(theme.Card).
			Foreground(theme.Foreground).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		CardTitle: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		TabActive: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Underline(true).
			Padding(0, 1),

		TabInactive: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Badge: lipgloss.NewStyle().
			Background(theme.Secondary).
			Foreground(theme.Foreground).
			Padding(0, 1),

		FieldLabel: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		FieldError: lipgloss.NewStyle().
			Foreground(Destructive),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Modal: lipgloss.NewStyle().
			Padding(1, 3).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Destructive),
	}
}

// DefaultStyles returns styles with the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// StatusStyle colors a lifecycle state the way the dashboards badge it.
func (s Styles) StatusStyle(st donation.Status) lipgloss.Style {
	switch st {
	case donation.StatusAvailable:
		return lipgloss.NewStyle().Foreground(Success).Bold(true)
	case donation.StatusClaimed:
		return lipgloss.NewStyle().Foreground(Warning).Bold(true)
	case donation.StatusCompleted:
		return lipgloss.NewStyle().Foreground(Info).Bold(true)
	}
	return s.Muted
}
