package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/estibot/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Palette. Green marks money and completed steps, red marks rejections and
// errors, yellow marks warnings and cancellations.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorAqua   = lipgloss.Color("#689d6a")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// categoryColors gives each template category its own badge color so
// grouped template lists scan by color. Unknown labels fall back to purple.
var categoryColors = map[domain.Category]lipgloss.Color{
	domain.CategoryFrontend:  ColorBlue,
	domain.CategoryBackend:   ColorHeader,
	domain.CategoryDevOps:    ColorAqua,
	domain.CategoryDesign:    ColorPurple,
	domain.CategoryAnalytics: ColorYellow,
	domain.CategoryTesting:   ColorGreen,
	domain.CategoryMobile:    ColorBlue,
	domain.CategoryDatabase:  ColorAqua,
}

// Header upper-cases text and underlines it to its rendered width.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// CategoryBadge renders a category label in its color. An empty label
// renders as a dim "--".
func CategoryBadge(category string) string {
	if category == "" {
		return StyleDim.Render("--")
	}
	color, ok := categoryColors[domain.Category(category)]
	if !ok {
		color = ColorPurple
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(category)
}
