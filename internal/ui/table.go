package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableStyle provides consistent styling for tables across the CLI.
type TableStyle struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
}

// DefaultTableStyle returns the default table styling.
func DefaultTableStyle() TableStyle {
	return TableStyle{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ColorMuted).
			BorderBottom(true),
		Cell: lipgloss.NewStyle().Foreground(ColorPrimary),
	}
}

// TableColumn defines a table column with name and width. A zero width
// fits the widest cell.
type TableColumn struct {
	Title string
	Width int
}

func fitColumns(columns []TableColumn, rows [][]string) []table.Column {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		width := c.Width
		if width == 0 {
			width = lipgloss.Width(c.Title)
			for _, row := range rows {
				if i < len(row) && lipgloss.Width(row[i]) > width {
					width = lipgloss.Width(row[i])
				}
			}
		}
		cols[i] = table.Column{Title: c.Title, Width: width}
	}
	return cols
}

// NewTable creates a Bubbles table with default styling.
func NewTable(columns []TableColumn, rows [][]string) table.Model {
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := table.New(
		table.WithColumns(fitColumns(columns, rows)),
		table.WithRows(tableRows),
		table.WithFocused(false),
	)

	style := DefaultTableStyle()
	s := table.DefaultStyles()
	s.Header = style.Header.Padding(0, 1)
	s.Cell = style.Cell.Padding(0, 1)
	// Unfocused tables still highlight the cursor row; render it plain.
	s.Selected = style.Cell
	t.SetStyles(s)
	// SetHeight counts the header, which the bottom border makes two lines.
	t.SetHeight(len(rows) + lipgloss.Height(s.Header.Render("")))
	return t
}

// RenderSimpleTable renders a non-interactive table, e.g. the df snapshots
// of a space check or the tags of a test file.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	return NewTable(columns, rows).View()
}

// DoctorCheckRow represents a row in the doctor diagnostic table.
type DoctorCheckRow struct {
	Status     string // "pass", "warn", "fail"
	Category   string
	Message    string
	Suggestion string
}

// RenderDoctorTable renders doctor check results grouped by category.
func RenderDoctorTable(rows []DoctorCheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	categories := make(map[string][]DoctorCheckRow)
	var order []string
	for _, row := range rows {
		if _, ok := categories[row.Category]; !ok {
			order = append(order, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	var b strings.Builder
	for _, cat := range order {
		b.WriteString(headerStyle.Render(cat) + "\n")
		for _, row := range categories[cat] {
			symbol, color := statusSymbol(row.Status)
			b.WriteString("  " + lipgloss.NewStyle().Foreground(color).Render(symbol) + " " + row.Message + "\n")
			if row.Suggestion != "" && row.Status != "pass" {
				b.WriteString("    " + mutedStyle.Render(row.Suggestion) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func statusSymbol(status string) (string, lipgloss.Color) {
	switch status {
	case "pass":
		return stateSymbol(SpinnerSuccess)
	case "warn":
		return stateSymbol(SpinnerWarned)
	case "fail":
		return stateSymbol(SpinnerFailed)
	default:
		return stateSymbol(SpinnerPending)
	}
}
