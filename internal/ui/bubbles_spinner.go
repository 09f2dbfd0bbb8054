package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames matches the plain Spinner's animation inside Bubble Tea
// programs.
var SpinnerFrames = spinner.Spinner{
	Frames: spinnerFrames,
	FPS:    time.Second / 12,
}

// SpinnerComponent is one animated row of a Bubble Tea model.
type SpinnerComponent struct {
	spinner   spinner.Model
	Label     string
	State     SpinnerState
	StartTime time.Time
	elapsed   time.Duration
}

// NewSpinnerComponent creates a pending row with the given label.
func NewSpinnerComponent(label string) SpinnerComponent {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)
	return SpinnerComponent{spinner: sp, Label: label}
}

// Update advances the animation while the row is in progress.
func (s SpinnerComponent) Update(msg tea.Msg) (SpinnerComponent, tea.Cmd) {
	if s.State != SpinnerInProgress {
		return s, nil
	}
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(tick)
		return s, cmd
	}
	return s, nil
}

// View renders the row in its current state.
func (s SpinnerComponent) View() string {
	if s.State == SpinnerInProgress {
		return s.spinner.View() + " " + s.Label + "..."
	}
	symbol, color := stateSymbol(s.State)
	out := lipgloss.NewStyle().Foreground(color).Render(symbol) + " " + s.Label
	if s.State != SpinnerPending {
		out += " " + lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(s.elapsed))
	}
	return out
}

// Start moves the row to in progress and returns its first tick.
func (s *SpinnerComponent) Start() tea.Cmd {
	s.State = SpinnerInProgress
	s.StartTime = time.Now()
	return s.spinner.Tick
}

// Finish freezes the row in a final state.
func (s *SpinnerComponent) Finish(state SpinnerState) {
	s.State = state
	if !s.StartTime.IsZero() {
		s.elapsed = time.Since(s.StartTime)
	}
}
