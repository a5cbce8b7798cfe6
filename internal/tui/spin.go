package tui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// doneMsg is sent when the background work returns
type doneMsg struct {
	err error
}

// spinModel shows a spinner until work finishes
type spinModel struct {
	spinner spinner.Model
	title   string
	work    func() error
	done    bool
	err     error
}

func newSpinModel(title string, work func() error) spinModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)
	return spinModel{spinner: s, title: title, work: work}
}

func (m spinModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return doneMsg{err: work()} },
	)
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + mutedStyle.Render(m.title) + "\n"
}

// Spin runs work while drawing a spinner with title on out.
// It returns the error from work.
func Spin(ctx context.Context, out io.Writer, title string, work func() error) error {
	p := tea.NewProgram(
		newSpinModel(title, work),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(spinModel).err
}
