package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	progressLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1).
				Bold(true)

	progressInfoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666"))
)

// RunDoneMsg reports one finished simulation run.
type RunDoneMsg struct {
	Label string
	Took  time.Duration
}

// ProgressModel shows how many of the planned runs have finished.
type ProgressModel struct {
	Total int
	Done  int
	Label string
	Last  time.Duration

	bar progress.Model
}

func NewProgressModel(total int) ProgressModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return ProgressModel{Total: total, bar: bar}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 10
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case RunDoneMsg:
		m.Done++
		m.Label = msg.Label
		m.Last = msg.Took
		if m.Done >= m.Total {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

// Percent is the finished share of runs, clamped to [0, 1].
func (m ProgressModel) Percent() float64 {
	if m.Total <= 0 {
		return 0
	}
	p := float64(m.Done) / float64(m.Total)
	if p > 1 {
		p = 1
	}
	return p
}

func (m ProgressModel) View() string {
	var s strings.Builder
	label := m.Label
	if label == "" {
		label = "starting"
	}
	s.WriteString(progressLabelStyle.Render(label))
	s.WriteString(" ")
	s.WriteString(m.bar.ViewAs(m.Percent()))
	s.WriteString("\n")
	info := fmt.Sprintf("run %d/%d", m.Done, m.Total)
	if m.Done > 0 {
		info += fmt.Sprintf(", last %s", m.Last.Round(time.Millisecond))
	}
	s.WriteString(progressInfoStyle.Render(info))
	s.WriteString("\n")
	return s.String()
}

// ProgressTracker drives a ProgressModel from benchmark observer callbacks.
type ProgressTracker struct {
	program *tea.Program
	done    chan struct{}
}

// StartProgress renders the bar to w until total runs are reported or Stop is
// called. Keyboard input is not read.
func StartProgress(w io.Writer, total int) *ProgressTracker {
	t := &ProgressTracker{
		program: tea.NewProgram(NewProgressModel(total), tea.WithOutput(w), tea.WithInput(nil)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		_, _ = t.program.Run()
	}()
	return t
}

func (t *ProgressTracker) ObserveStep(string, time.Duration) {}

func (t *ProgressTracker) ObserveRun(label string, took time.Duration, _ float64) {
	t.program.Send(RunDoneMsg{Label: label, Took: took})
}

// Stop ends the program and waits for the terminal to be restored.
func (t *ProgressTracker) Stop() {
	t.program.Quit()
	<-t.done
}
