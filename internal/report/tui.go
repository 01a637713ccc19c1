package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const maxShownFailures = 5

// TUI renders replay progress as an interactive terminal view.
type TUI struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

type eventMsg struct{ Event }

// NewTUI builds the view. onInterrupt is called when the operator presses
// ctrl+c; the view keeps running until Stop so the final summary is shown.
func NewTUI(out io.Writer, onInterrupt func()) *TUI {
	return &TUI{
		program: tea.NewProgram(newReplayModel(onInterrupt), tea.WithOutput(out)),
		done:    make(chan struct{}),
	}
}

// Start runs the view in the background.
func (t *TUI) Start() {
	go func() {
		defer close(t.done)
		_, t.err = t.program.Run()
	}()
}

func (t *TUI) Report(ev Event) {
	t.program.Send(eventMsg{ev})
}

// Stop waits for the view to exit, asking it to quit first.
func (t *TUI) Stop() error {
	t.program.Quit()
	<-t.done
	return t.err
}

type replayModel struct {
	spinner     spinner.Model
	bar         progress.Model
	runID       string
	total       int
	workers     int
	succeeded   int
	failed      int
	current     map[int]string
	failures    []string
	summary     string
	finished    bool
	interrupted bool
	onInterrupt func()
}

func newReplayModel(onInterrupt func()) replayModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = nameStyle
	return replayModel{
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		current:     make(map[int]string),
		onInterrupt: onInterrupt,
	}
}

func (m replayModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m replayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.bar.Width = width
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		return m.apply(msg.Event)
	}
	return m, nil
}

func (m replayModel) apply(ev Event) (tea.Model, tea.Cmd) {
	switch e := ev.(type) {
	case ReplayStarted:
		m.runID = e.RunID
		m.total = e.Items
		m.workers = e.Workers
	case StatementStarted:
		m.current[e.Worker] = e.Label
	case StatementFinished:
		delete(m.current, e.Worker)
		if e.Err == "" {
			m.succeeded++
		} else {
			m.failed++
			m.failures = append(m.failures, fmt.Sprintf("%s: %s", e.Label, e.Err))
			if len(m.failures) > maxShownFailures {
				m.failures = m.failures[len(m.failures)-maxShownFailures:]
			}
		}
	case WorkerFailed:
		delete(m.current, e.Worker)
		m.failures = append(m.failures, fmt.Sprintf("worker %d stopped: %s", e.Worker, e.Err))
	case ReplayFinished:
		m.finished = true
		m.summary = fmt.Sprintf("Succeeded: %d  Failed: %d  Skipped: %d  Worker failures: %d  (%s)",
			e.Succeeded, e.Failed, e.Skipped, e.WorkerFailures, round(e.Elapsed))
		return m, tea.Quit
	}
	return m, nil
}

func (m replayModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.succeeded+m.failed) / float64(m.total)
}

func (m replayModel) View() string {
	var b strings.Builder

	if m.finished {
		b.WriteString(successStyle.Render("DONE") + " ")
	} else {
		b.WriteString(m.spinner.View() + " ")
	}
	fmt.Fprintf(&b, "Replaying %d/%d statements with %d workers %s\n",
		m.succeeded+m.failed, m.total, m.workers, mutedStyle.Render("run "+m.runID))
	b.WriteString(m.bar.ViewAs(m.percent()) + "\n")
	fmt.Fprintf(&b, "%s %d  %s %d\n",
		successStyle.Render(iconSuccess), m.succeeded, errorStyle.Render(iconError), m.failed)

	if !m.finished {
		workers := make([]int, 0, len(m.current))
		for w := range m.current {
			workers = append(workers, w)
		}
		sort.Ints(workers)
		for _, w := range workers {
			fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render(fmt.Sprintf("[worker %d]", w)), m.current[w])
		}
	}

	for _, f := range m.failures {
		b.WriteString(errorStyle.Render(iconError+" "+f) + "\n")
	}

	if m.interrupted && !m.finished {
		b.WriteString(mutedStyle.Render("interrupted, waiting for running statements...") + "\n")
	}
	if m.finished {
		b.WriteString(m.summary + "\n")
	}
	return b.String()
}
