package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/tui/styles"
)

// Outcome is how a long-running operation ended.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeDone
	OutcomeFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "working"
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

const (
	maxBarWidth = 60
	maxLogLines = 5
)

// Messages

type eventMsg struct{ ev event.Event }

type streamClosedMsg struct{}

// waitForEvent blocks on the next forwarded event.
func waitForEvent(events <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{ev}
	}
}

// ProgressOption configures a ProgressModel.
type ProgressOption func(*ProgressModel)

// WithCancel sets the function called when the user aborts the operation,
// typically Context.StopOngoingProcess.
func WithCancel(cancel func()) ProgressOption {
	return func(m *ProgressModel) { m.cancel = cancel }
}

// ProgressModel shows one long-running operation (configure, imex,
// secure-join) until the engine reports it finished or failed.
type ProgressModel struct {
	title   string
	op      event.Operation
	events  <-chan event.Event
	cancel  func()
	bar     progress.Model
	spinner spinner.Model

	permille int
	message  string
	logs     []string
	outcome  Outcome
}

// NewProgressModel creates a model fed by events, usually the channel
// returned by Forward.
func NewProgressModel(title string, op event.Operation, events <-chan event.Event, opts ...ProgressOption) ProgressModel {
	m := ProgressModel{
		title:  title,
		op:     op,
		events: events,
		bar: progress.New(
			progress.WithGradient(styles.GradientStart, styles.GradientEnd),
			progress.WithWidth(40),
		),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.Primary),
		),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner and begins reading events.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles messages and updates the model
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.outcome == OutcomePending {
				if m.cancel != nil {
					m.cancel()
				}
				m.outcome = OutcomeCanceled
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-12, 10), maxBarWidth)
		return m, nil

	case spinner.TickMsg:
		if m.outcome != OutcomePending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m = m.apply(msg.ev)
		if m.outcome != OutcomePending {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		if m.outcome == OutcomePending {
			m.outcome = OutcomeFailed
			if m.message == "" {
				m.message = "event stream closed before the operation finished"
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m ProgressModel) apply(ev event.Event) ProgressModel {
	switch e := ev.(type) {
	case event.ProgressEvent:
		if e.Operation != m.op {
			return m
		}
		if e.Message != "" {
			m.message = e.Message
		}
		switch {
		case e.Error:
			m.outcome = OutcomeFailed
		case e.Done:
			m.permille = event.ProgressDone
			m.outcome = OutcomeDone
		default:
			m.permille = max(m.permille, e.Progress)
		}
	case event.LogEvent:
		if e.Level == event.LogInfo {
			return m
		}
		line := string(e.Level) + ": " + e.Message
		m.logs = append(m.logs, line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
	}
	return m
}

// View renders the model
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(m.title))
	b.WriteString("\n")

	percent := float64(m.permille) / event.ProgressDone
	if m.outcome == OutcomePending {
		b.WriteString(m.spinner.View())
	} else {
		b.WriteString(styles.Status(m.outcome.String()))
	}
	b.WriteString(" ")
	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n")

	if m.message != "" {
		style := styles.Muted
		if m.outcome == OutcomeFailed {
			style = styles.Error
		}
		b.WriteString(style.Render(m.message))
		b.WriteString("\n")
	}

	for _, line := range m.logs {
		style := styles.Warning
		if strings.HasPrefix(line, string(event.LogError)) {
			style = styles.Error
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if m.outcome == OutcomePending {
		b.WriteString("\n")
		b.WriteString(styles.HelpKey.Render("q") + " " + styles.HelpDesc.Render("cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

// Outcome reports how the operation ended and the last message the engine
// gave for it.
func (m ProgressModel) Outcome() (Outcome, string) {
	return m.outcome, m.message
}

// Err converts the outcome to an error, nil when the operation finished.
func (m ProgressModel) Err() error {
	switch m.outcome {
	case OutcomeDone:
		return nil
	case OutcomeCanceled:
		return fmt.Errorf("%s canceled", m.op)
	default:
		if m.message != "" {
			return fmt.Errorf("%s failed: %s", m.op, m.message)
		}
		return fmt.Errorf("%s failed", m.op)
	}
}
