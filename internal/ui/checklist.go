package ui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Task is one row of a Checklist.
type Task struct {
	Label string
	Run   func(ctx context.Context) TaskResult
}

// TaskResult is the final state of a task and an optional detail line.
type TaskResult struct {
	State  SpinnerState
	Detail string
}

type taskDoneMsg struct {
	index  int
	result TaskResult
}

// ChecklistModel runs tasks concurrently and shows a spinner per task
// until each one reports.
type ChecklistModel struct {
	ctx     context.Context
	tasks   []Task
	rows    []SpinnerComponent
	results []TaskResult
	pending int
	start   []tea.Cmd
}

// NewChecklist prepares a model for tasks. Nothing runs until Init.
func NewChecklist(ctx context.Context, tasks []Task) ChecklistModel {
	m := ChecklistModel{
		ctx:     ctx,
		tasks:   tasks,
		rows:    make([]SpinnerComponent, len(tasks)),
		results: make([]TaskResult, len(tasks)),
		pending: len(tasks),
	}
	for i, t := range tasks {
		m.rows[i] = NewSpinnerComponent(t.Label)
		m.start = append(m.start, m.rows[i].Start(), m.runTask(i))
	}
	return m
}

func (m ChecklistModel) runTask(i int) tea.Cmd {
	task := m.tasks[i]
	ctx := m.ctx
	return func() tea.Msg {
		return taskDoneMsg{index: i, result: task.Run(ctx)}
	}
}

// Init starts every task.
func (m ChecklistModel) Init() tea.Cmd {
	if len(m.tasks) == 0 {
		return tea.Quit
	}
	return tea.Batch(m.start...)
}

// Update records task results and animates the rows still running.
func (m ChecklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.results[msg.index] = msg.result
		m.rows[msg.index].Finish(msg.result.State)
		m.pending--
		if m.pending == 0 {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmds []tea.Cmd
		for i := range m.rows {
			var cmd tea.Cmd
			m.rows[i], cmd = m.rows[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders one line per task, with details under finished tasks.
func (m ChecklistModel) View() string {
	muted := lipgloss.NewStyle().Foreground(ColorMuted)
	var b strings.Builder
	for i, row := range m.rows {
		b.WriteString(row.View())
		b.WriteString("\n")
		if d := m.results[i].Detail; d != "" && row.State != SpinnerInProgress {
			b.WriteString("    " + muted.Render(d) + "\n")
		}
	}
	return b.String()
}

// Done reports whether every task has finished.
func (m ChecklistModel) Done() bool { return m.pending == 0 }

// Results returns the task results in task order.
func (m ChecklistModel) Results() []TaskResult {
	return append([]TaskResult(nil), m.results...)
}

// RunChecklist runs tasks under a Bubble Tea program writing to w.
func RunChecklist(ctx context.Context, w io.Writer, tasks []Task) ([]TaskResult, error) {
	p := tea.NewProgram(NewChecklist(ctx, tasks),
		tea.WithContext(ctx),
		tea.WithOutput(w),
		tea.WithInput(nil),
	)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(ChecklistModel).Results(), nil
}
