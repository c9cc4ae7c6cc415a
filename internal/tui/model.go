package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vigil/internal/progress"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	barFill      = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

const barWidth = 30

type eventMsg struct {
	event progress.Event
	ok    bool
}

type uiModel struct {
	events <-chan progress.Event

	sessionID  string
	status     string
	scanError  string
	startedAt  time.Time
	finishedAt time.Time

	processed int
	total     int
	findings  int
	errors    int

	showLog bool
	done    bool

	logLines []string
	tick     int
}

func newModel(events <-chan progress.Event) uiModel {
	return uiModel{
		events:   events,
		status:   "running",
		showLog:  true,
		logLines: make([]string, 0, 16),
	}
}

func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

type tickMsg time.Time

func nextTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), nextTick())
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "l":
			m.showLog = !m.showLog
		case "q", "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil
	case eventMsg:
		if !msg.ok {
			m.done = true
			return m, tea.Quit
		}
		m.applyEvent(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, nextTick()
	default:
		return m, nil
	}
}

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Vigil Scan"))
	b.WriteString("\n")
	if m.status == "running" {
		b.WriteString(fmt.Sprintf("Active: %s\n", runningStyle.Render(m.spinnerFrame())))
	}
	b.WriteString(fmt.Sprintf("Session: %s\n", valueOrDash(m.sessionID)))
	b.WriteString(fmt.Sprintf("Status: %s\n", styleStatus(m.status).Render(strings.ToUpper(valueOrDash(m.status)))))
	b.WriteString(fmt.Sprintf("Progress: %s %d/%d files\n", m.progressBar(), m.processed, m.total))
	b.WriteString(fmt.Sprintf("Findings: %d", m.findings))
	if m.errors > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  (%d file errors)", m.errors)))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", m.elapsedString()))
	if m.scanError != "" {
		b.WriteString(errorStyle.Render("Error: "+m.scanError) + "\n")
	}

	if m.showLog {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Recent Files"))
		b.WriteString("\n")
		if len(m.logLines) == 0 {
			b.WriteString(idleStyle.Render("No events yet."))
			b.WriteString("\n")
		} else {
			for _, line := range m.logLines {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(helpStyle.Render("Press q to close"))
	} else {
		b.WriteString(helpStyle.Render("l toggle log"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m uiModel) progressBar() string {
	if m.total <= 0 {
		return "[" + strings.Repeat(" ", barWidth) + "]"
	}
	filled := m.processed * barWidth / m.total
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + barFill.Render(strings.Repeat("=", filled)) + strings.Repeat(" ", barWidth-filled) + "]"
}

func (m *uiModel) applyEvent(e progress.Event) {
	switch e.Type {
	case progress.EventScanStarted:
		m.sessionID = e.SessionID
		m.status = "running"
		m.total = e.Total
		if !e.At.IsZero() {
			m.startedAt = e.At
		}
		m.appendLine(e, fmt.Sprintf("scan started (%d files)", e.Total))
	case progress.EventScanPaused:
		m.status = "paused"
		m.appendLine(e, "scan paused")
	case progress.EventScanResumed:
		m.status = "running"
		m.appendLine(e, "scan resumed")
	case progress.EventFileScanned:
		m.processed = e.Processed
		m.findings += e.FindingCount
		if e.FindingCount > 0 {
			m.appendLine(e, fmt.Sprintf("%s: %d finding(s)", e.File, e.FindingCount))
		}
	case progress.EventFileError:
		m.processed = e.Processed
		m.errors++
		m.appendLine(e, warnStyle.Render(fmt.Sprintf("%s: %s", e.File, strings.TrimSpace(e.Error))))
	case progress.EventScanFinished:
		m.status = firstNonEmpty(e.Status, "completed")
		m.scanError = strings.TrimSpace(e.Error)
		m.findings = e.FindingCount
		if !e.At.IsZero() {
			m.finishedAt = e.At
		}
		m.done = true
		m.appendLine(e, fmt.Sprintf("scan finished status=%s findings=%d duration=%s",
			m.status, e.FindingCount, durationString(e.DurationMS)))
	}
}

func (m uiModel) elapsedString() string {
	if m.startedAt.IsZero() {
		return "0s"
	}
	end := time.Now().UTC()
	if !m.finishedAt.IsZero() {
		end = m.finishedAt
	}
	return end.Sub(m.startedAt).Round(time.Second).String()
}

func (m *uiModel) appendLine(e progress.Event, text string) {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	line := fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), strings.TrimSpace(text))
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 10 {
		m.logLines = m.logLines[len(m.logLines)-10:]
	}
}

func durationString(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func valueOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func styleStatus(status string) lipgloss.Style {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed":
		return okStyle
	case "paused", "stopped":
		return warnStyle
	case "error":
		return errorStyle
	case "running":
		return runningStyle
	default:
		return idleStyle
	}
}

func (m uiModel) spinnerFrame() string {
	frames := []string{"-", "\\", "|", "/"}
	return frames[m.tick%len(frames)]
}
