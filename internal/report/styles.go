// Package report renders command results for the terminal.
package report

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Colour palette.
var (
	ColorCyan    = lipgloss.Color("14")
	ColorGreen   = lipgloss.Color("82")
	ColorYellow  = lipgloss.Color("220")
	ColorRed     = lipgloss.Color("196")
	ColorBoldRed = lipgloss.Color("204")
	ColorDimGray = lipgloss.Color("240")
	ColorHeader  = lipgloss.Color("12")
)

var (
	// StyleNoun styles collection ids and paths.
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleDim styles structural chrome.
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles totals.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// StatusStyle returns the style for an outcome word.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "created", "up", "filled":
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case "updated", "staged":
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case "skipped", "empty", "dryrun":
		return lipgloss.NewStyle().Faint(true)
	case "deleted", "missing", "down":
		return lipgloss.NewStyle().Foreground(ColorRed)
	case "failed":
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// newTable returns a table with the shared border and header style.
func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorDimGray)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}
