package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Test outcomes, named the way job reports name them.
const (
	OutcomePass  = "PASS"
	OutcomeFail  = "FAIL"
	OutcomeError = "ERROR"
	OutcomeSkip  = "SKIP"
)

// TestOutcome is the result of one test method.
type TestOutcome struct {
	Name     string        `json:"name"` // e.g. "VerifyPoolSpace.TestVerifyPoolSpace"
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration_ns"`
	// Step is the step that failed, when the test reached one.
	Step    string `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
}

// RenderSummary lists each test's outcome, then the failure details.
func RenderSummary(results []TestOutcome) string {
	if len(results) == 0 {
		return ""
	}
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	counts := make(map[string]int)
	var failed []TestOutcome
	for _, r := range results {
		counts[r.Outcome]++
		symbol, color := outcomeSymbol(r.Outcome)
		fmt.Fprintf(&b, "%s %-5s %s %s\n",
			lipgloss.NewStyle().Foreground(color).Render(symbol),
			r.Outcome, r.Name, muted.Render(formatDuration(r.Duration)))
		if r.Outcome == OutcomeFail || r.Outcome == OutcomeError {
			failed = append(failed, r)
		}
	}

	for _, r := range failed {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(ColorError).Render(r.Name) + "\n")
		if r.Step != "" {
			b.WriteString("  during: " + r.Step + "\n")
		}
		for _, line := range strings.Split(strings.TrimSpace(r.Message), "\n") {
			if line != "" {
				b.WriteString("  " + muted.Render(line) + "\n")
			}
		}
	}

	var parts []string
	for _, outcome := range []string{OutcomePass, OutcomeFail, OutcomeError, OutcomeSkip} {
		if n := counts[outcome]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(outcome)))
		}
	}
	b.WriteString("\n" + strings.Join(parts, ", ") + "\n")
	return b.String()
}

func outcomeSymbol(outcome string) (string, lipgloss.Color) {
	switch outcome {
	case OutcomePass:
		return stateSymbol(SpinnerSuccess)
	case OutcomeSkip:
		return stateSymbol(SpinnerSkipped)
	default:
		return stateSymbol(SpinnerFailed)
	}
}
