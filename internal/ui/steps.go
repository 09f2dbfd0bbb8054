package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/ftest/internal/logger"
)

// StepLogger numbers and times the steps of a test scenario.
// Shows: [Step 3] Upgrade servers to 2.4.0
type StepLogger struct {
	mu      sync.Mutex
	w       io.Writer
	log     logger.Logger
	count   int
	current string
	failed  string
	started time.Time
}

// NewStepLogger writes steps to w and mirrors them to log. Either may be nil.
func NewStepLogger(w io.Writer, log logger.Logger) *StepLogger {
	if w == nil {
		w = io.Discard
	}
	if log == nil {
		log = logger.Noop()
	}
	return &StepLogger{w: w, log: log}
}

// Step closes the previous step and starts the next one.
func (s *StepLogger) Step(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finish(nil)
	s.count++
	s.current = fmt.Sprintf(format, args...)
	s.started = time.Now()

	label := lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary).
		Render(fmt.Sprintf("[Step %d]", s.count))
	fmt.Fprintf(s.w, "%s %s\n", label, s.current)
	s.log.Info("[Step %d] %s", s.count, s.current)
}

// Done closes the last step, marking it failed when err is non-nil.
func (s *StepLogger) Done(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(err)
}

// Detail prints a block of text, such as a table, under the current step.
func (s *StepLogger) Detail(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, strings.TrimRight(text, "\n"))
}

// Spinner returns a spinner for a long wait inside the current step. It
// animates only when the step output is a terminal.
func (s *StepLogger) Spinner(label string) *Spinner {
	animated := false
	if f, ok := s.w.(*os.File); ok {
		animated = IsTerminal(f)
	}
	return NewSpinner(s.w, label, animated)
}

// Count returns the number of steps started.
func (s *StepLogger) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Current returns the description of the running step.
func (s *StepLogger) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Failed returns the last step that failed, e.g. "[Step 20] Verify old
// client cannot access new pool", or "" when none has.
func (s *StepLogger) Failed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *StepLogger) finish(err error) {
	if s.current == "" {
		return
	}
	timing := lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(time.Since(s.started)))
	if err != nil {
		symbol := lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail)
		fmt.Fprintf(s.w, "%s Step %d failed %s\n", symbol, s.count, timing)
		s.log.Error("[Step %d] %s failed: %v", s.count, s.current, err)
		s.failed = fmt.Sprintf("[Step %d] %s", s.count, s.current)
	} else {
		symbol := lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess)
		fmt.Fprintf(s.w, "%s Step %d %s\n", symbol, s.count, timing)
	}
	s.current = ""
}
