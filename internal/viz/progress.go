package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/flocksim/internal/calibrate"
	"github.com/san-kum/flocksim/internal/optim"
)

// IterationMsg reports one finished simplex iteration.
type IterationMsg optim.Iteration

// DoneMsg ends the calibration view.
type DoneMsg struct {
	Result *calibrate.Result
	Err    error
}

// ProgressModel follows a calibration running in another goroutine. Feed it
// with Program.Send from the calibrator observer.
type ProgressModel struct {
	maxIterations int
	cancel        func()

	last     optim.Iteration
	started  bool
	history  []float64
	result   *calibrate.Result
	err      error
	done     bool
	canceled bool
}

// NewProgressModel builds the view. cancel is called when the user quits
// early and may be nil.
func NewProgressModel(maxIterations int, cancel func()) ProgressModel {
	return ProgressModel{
		maxIterations: maxIterations,
		cancel:        cancel,
		history:       make([]float64, 0, maxIterations),
	}
}

func (m ProgressModel) Init() tea.Cmd { return nil }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			m.canceled = !m.done
			return m, tea.Quit
		}
	case IterationMsg:
		m.last = optim.Iteration(msg)
		m.started = true
		m.history = append(m.history, msg.BestCost)
	case DoneMsg:
		m.result = msg.Result
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(Title.Render("Calibrating critical noise"))
	b.WriteString("\n\n")

	percent := 0.0
	if m.maxIterations > 0 {
		percent = float64(m.last.N) / float64(m.maxIterations)
	}
	b.WriteString(ProgressBar(percent, 30))
	b.WriteString(fmt.Sprintf(" %d/%d\n", m.last.N, m.maxIterations))

	if m.started {
		lines := []string{
			row("threshold", fmt.Sprintf("%.4f", m.last.Best[0])),
			row("speed", fmt.Sprintf("%.4f", m.last.Best[1])),
			row("residual", fmt.Sprintf("%.6f", m.last.BestCost)),
			row("spread", fmt.Sprintf("%.2e", m.last.Spread)),
		}
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, lines...))
		b.WriteString("\n")
		b.WriteString(Sparkline(m.history, 30))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(StatusFailed.Render("failed: " + m.err.Error()))
	case m.done:
		b.WriteString(StatusRunning.Render(fmt.Sprintf("done: threshold=%.4f speed=%.4f residual=%.6f",
			float64(m.result.Threshold), float64(m.result.Speed), m.result.Residual)))
	case m.canceled:
		b.WriteString(StatusFailed.Render("canceled"))
	default:
		b.WriteString(KeyHint.Render("q to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// Result returns the outcome delivered by DoneMsg.
func (m ProgressModel) Result() (*calibrate.Result, error) { return m.result, m.err }

func (m ProgressModel) Canceled() bool { return m.canceled }
