package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type actionMsg struct {
	details []string
	err     error
}

type model struct {
	title    string
	details  []string
	err      error
	done     bool
	canceled bool
	timeout  time.Duration
	spinner  spinner.Model
	action   func(context.Context) ([]string, error)
}

func newModel(title string, action func(context.Context) ([]string, error)) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return model{title: title, action: action, timeout: 2 * time.Minute, spinner: s}
}

func (m model) Init() tea.Cmd {
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		details, err := m.action(ctx)
		return actionMsg{details: details, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.canceled = true
			return m, tea.Quit
		}
	case actionMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done || m.canceled {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	switch {
	case m.canceled:
		b.WriteString(failStyle.Render("CANCELED"))
		b.WriteString("\n")
		return b.String()
	case !m.done:
		b.WriteString("\n" + m.spinner.View() + " running\n")
		return b.String()
	case m.err != nil:
		fmt.Fprintf(&b, "%s: %v\n", failStyle.Render("FAILED"), m.err)
	default:
		b.WriteString(okStyle.Render("OK"))
		b.WriteString("\n")
	}
	for _, d := range m.details {
		b.WriteString("- " + d + "\n")
	}
	return b.String()
}

// Run renders action in the terminal and returns its result. ctrl+c
// abandons the view and reports context.Canceled.
func Run(title string, action func(context.Context) ([]string, error)) ([]string, error) {
	final, err := tea.NewProgram(newModel(title, action)).Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	if res.canceled {
		return res.details, context.Canceled
	}
	return res.details, res.err
}
