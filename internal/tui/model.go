// Package tui renders a running batch in the terminal.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mj1618/list-import/internal/output"
	"github.com/mj1618/list-import/internal/workflow"
)

// Controller is the part of the orchestrator the view drives.
type Controller interface {
	Snapshot() workflow.Progress
	Subscribe(obs workflow.Observer) func()
	Stop() bool
}

var (
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

type progressMsg workflow.Progress

// Model is the bubbletea model for one batch.
type Model struct {
	ctrl     Controller
	updates  <-chan workflow.Progress
	spinner  spinner.Model
	progress workflow.Progress
	width    int
	quitting bool
}

// New builds a model fed by updates. Use Watch to obtain updates.
func New(ctrl Controller, updates <-chan workflow.Progress) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		ctrl:     ctrl,
		updates:  updates,
		spinner:  sp,
		progress: ctrl.Snapshot(),
	}
}

// Watch subscribes to ctrl and coalesces snapshots so a slow view only
// ever sees the newest one. Call the returned func to unsubscribe.
func Watch(ctrl Controller) (<-chan workflow.Progress, func()) {
	ch := make(chan workflow.Progress, 1)
	unsubscribe := ctrl.Subscribe(workflow.ObserverFunc(func(p workflow.Progress) {
		for {
			select {
			case ch <- p:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}))
	return ch, unsubscribe
}

// Progress returns the last snapshot the model rendered.
func (m Model) Progress() workflow.Progress {
	return m.progress
}

func (m Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.updates
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case progressMsg:
		m.progress = workflow.Progress(msg)
		if finished(m.progress) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitForProgress()
	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			if m.ctrl.Stop() {
				m.progress = m.ctrl.Snapshot()
			}
			return m, nil
		case "q", "ctrl+c", "esc":
			m.ctrl.Stop()
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	if m.progress.Running {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString("\n")
	b.WriteString(output.RenderStatus(m.progress))
	b.WriteString("\n")
	if !m.quitting {
		b.WriteString(helpStyle.Render("s stop after current user • q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// finished reports whether p is the final snapshot of a batch.
func finished(p workflow.Progress) bool {
	return !p.Running && !p.FinishedAt.IsZero()
}

// Run shows the batch until it finishes or the user quits, and returns the
// last snapshot seen.
func Run(ctx context.Context, ctrl Controller, updates <-chan workflow.Progress) (workflow.Progress, error) {
	prog := tea.NewProgram(New(ctrl, updates), tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return ctrl.Snapshot(), err
	}
	if m, ok := final.(Model); ok {
		return m.Progress(), nil
	}
	return ctrl.Snapshot(), nil
}
