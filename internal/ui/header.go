package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version string // e.g. "v0.3.0"
	Test    string // Test being run, e.g. "UpgradeDowngradeTest.TestUpgradeDowngrade"
	Cluster string // e.g. "servers wolf-[1-3], clients wolf-[4-5]"
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 60

// RenderHeader renders the banner printed before a test run.
func RenderHeader(info HeaderInfo) string {
	title := lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	b.WriteString(title.Render("ftest"))
	if info.Version != "" {
		b.WriteString(" " + muted.Render(info.Version))
	}
	b.WriteString("\n")
	if info.Test != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(info.Test) + "\n")
	}
	if info.Cluster != "" {
		b.WriteString(muted.Render(info.Cluster) + "\n")
	}
	b.WriteString(muted.Render(strings.Repeat("━", HeaderWidth)) + "\n")
	return b.String()
}
