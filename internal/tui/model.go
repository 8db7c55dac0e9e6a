// Package tui is the terminal host: a bubbletea dashboard over a session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"breeze/internal/notify"
	"breeze/internal/services"
	"breeze/internal/types"
)

const (
	refreshInterval = time.Second
	workStep        = 5.0
	breakStep       = 1.0
)

// Controller is the part of a session the dashboard drives
type Controller interface {
	View() types.TimerView
	Start() types.TimerView
	Pause() types.TimerView
	Reset() types.TimerView
	Configure(cfg services.TimerConfig) types.TimerView
	Metrics() services.MetricsView
	Snapshot() types.ActivitySnapshot
	SetNotificationsEnabled(enabled bool)
	NotificationsEnabled() bool
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2E8B87")).
			Padding(0, 1).
			MarginBottom(1)

	workStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4A90E2")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2E8B87")).
			Padding(0, 2).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

type tickMsg time.Time

// ChangeMsg carries a session change into the program
type ChangeMsg services.Change

// NotificationMsg carries a phase-transition notification into the program
type NotificationMsg notify.Notification

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type Model struct {
	ctrl     Controller
	timer    types.TimerView
	metrics  services.MetricsView
	snapshot types.ActivitySnapshot
	note     *notify.Notification
	width    int
	height   int
}

func NewModel(ctrl Controller) Model {
	m := Model{ctrl: ctrl}
	m.refresh()
	return m
}

func (m *Model) refresh() {
	m.timer = m.ctrl.View()
	m.metrics = m.ctrl.Metrics()
	m.snapshot = m.ctrl.Snapshot()
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		m.refresh()
		return m, tickCmd()
	case ChangeMsg:
		m.timer, m.snapshot = msg.Timer, msg.Snapshot
		m.metrics = services.MetricsView{Scores: msg.Scores, Totals: msg.Totals}
	case NotificationMsg:
		n := notify.Notification(msg)
		m.note = &n
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "s":
		m.timer = m.ctrl.Start()
	case "p":
		m.timer = m.ctrl.Pause()
	case " ":
		if m.timer.IsActive {
			m.timer = m.ctrl.Pause()
		} else {
			m.timer = m.ctrl.Start()
		}
	case "r":
		m.timer = m.ctrl.Reset()
	case "+", "=":
		m.timer = m.adjust(workStep, 0)
	case "-":
		m.timer = m.adjust(-workStep, 0)
	case "]":
		m.timer = m.adjust(0, breakStep)
	case "[":
		m.timer = m.adjust(0, -breakStep)
	case "a":
		auto := !m.timer.AutoStartNextWork
		m.timer = m.ctrl.Configure(services.TimerConfig{AutoStartNextWork: &auto})
	case "n":
		m.ctrl.SetNotificationsEnabled(!m.ctrl.NotificationsEnabled())
	case "c":
		m.note = nil
	}
	return m, nil
}

// adjust changes the configured durations; the timer ignores it while running
func (m Model) adjust(workDelta, breakDelta float64) types.TimerView {
	var cfg services.TimerConfig
	if workDelta != 0 {
		work := max(float64(m.timer.WorkDurationSeconds)/60+workDelta, workStep)
		cfg.WorkMinutes = &work
	}
	if breakDelta != 0 {
		brk := max(float64(m.timer.BreakDurationSeconds)/60+breakDelta, breakStep)
		cfg.BreakMinutes = &brk
	}
	return m.ctrl.Configure(cfg)
}

// FormatClock renders milliseconds as mm:ss, rounding up to the next second
func FormatClock(ms int64) string {
	secs := (max(ms, 0) + 999) / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatDuration renders seconds as "1h 05m" or "12m"
func FormatDuration(secs int64) string {
	mins := secs / 60
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", mins/60, mins%60)
}

func progressBar(done, total int64, width int) string {
	if width < 10 {
		width = 10
	}
	filled := 0
	if total > 0 {
		filled = int(min(done*int64(width)/total, int64(width)))
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 60
	}
	boxWidth := max(width-4, 30)

	header := headerStyle.Width(width).Render("Breeze  " + time.Now().Format("Jan 2, 2006 15:04:05"))

	phaseStyle, phase := workStyle, "WORK"
	if m.timer.Phase == types.PhaseBreak {
		phaseStyle, phase = breakStyle, "BREAK"
	}
	state := "paused"
	if m.timer.IsActive {
		state = "running"
	}
	auto := "off"
	if m.timer.AutoStartNextWork {
		auto = "on"
	}
	timerBox := boxStyle.Width(boxWidth).Render(fmt.Sprintf(
		"%s  %s (%s)\n%s\nwork %s · break %s · auto-start %s",
		phaseStyle.Render(phase),
		FormatClock(m.timer.RemainingMs),
		state,
		phaseStyle.Render(progressBar(m.timer.ElapsedMs, m.timer.PhaseDurationMs, boxWidth-6)),
		FormatDuration(m.timer.WorkDurationSeconds),
		FormatDuration(m.timer.BreakDurationSeconds),
		auto,
	))

	activity := workStyle.Render("● active")
	if m.snapshot.IsCurrentlyIdle {
		activity = idleStyle.Render("● idle")
	}
	s := m.metrics.Scores
	statsBox := boxStyle.Width(boxWidth).Render(fmt.Sprintf(
		"%s · %d events/min\nproductivity %d · wellness %d · focus %d · eye strain %d\nbreaks %d/%d\ntoday: screen %s · work %s · break %s",
		activity, m.snapshot.EventsLastMinute,
		s.Productivity, s.Wellness, s.Focus, s.EyeStrain,
		s.Breaks.BreaksTaken, s.Breaks.SuggestedBreaks,
		FormatDuration(m.metrics.Totals.ActiveScreenTime),
		FormatDuration(m.metrics.Totals.WorkTime),
		FormatDuration(m.metrics.Totals.BreakTime),
	))

	sections := []string{header, timerBox, statsBox}
	if m.note != nil {
		sections = append(sections, boxStyle.Width(boxWidth).Render(noteStyle.Render(m.note.Title)+"\n"+m.note.Body))
	}

	bell := "on"
	if !m.ctrl.NotificationsEnabled() {
		bell = "off"
	}
	sections = append(sections, footerStyle.Width(width).Render(
		"s start · p pause · space toggle · r reset · +/- work · [/] break · a auto · n notifications ("+bell+") · c clear · q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Alerter forwards notifications to a running program
type Alerter struct {
	send func(tea.Msg)
}

func NewAlerter(send func(tea.Msg)) *Alerter {
	return &Alerter{send: send}
}

func (a *Alerter) Alert(_ context.Context, n notify.Notification) error {
	a.send(NotificationMsg(n))
	return nil
}
