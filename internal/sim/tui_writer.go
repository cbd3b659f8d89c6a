package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"swarmcool-sim/internal/swarm"
	"swarmcool-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an agent log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries an engine event log line.
type eventMsg struct{ line string }

// stateMsg carries an aggregate state update for the header.
type stateMsg struct{ telemetry.StateRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

// Controls are the engine commands the TUI can trigger. Nil fields disable
// the corresponding key.
type Controls struct {
	Start  func()
	Stop   func()
	Reset  func()
	Inject func(ids ...int) error
	Repair func(id int) error
}

// TUIWriter renders telemetry using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg swarm.Config, clusterID string, controls Controls) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg, clusterID, controls)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.AgentRow) error {
	line := fmt.Sprintf("%s[%s]%s %sagent=%d%s %stemp=%.1f%s %sfan=%.1f%s %spower=%.1f%s %sload=%.2f%s %sstatus=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorWhite, row.AgentID, colorReset,
		colorYellow, row.Temperature, colorReset,
		colorCyan, row.FanSpeed, colorReset,
		colorMagenta, row.Power, colorReset,
		colorGreen, row.Load, colorReset,
		statusColor(row.Status), row.Status, colorReset,
	)
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteBatch outputs multiple agent rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.StateRow) error {
	w.program.Send(stateMsg{StateRow: row})
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row telemetry.EventRow) error {
	line := fmt.Sprintf("%s[%s]%s %sEVENT%s %stype=%s%s %sagent=%d%s %stick=%d%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		colorBlue, row.EventType, colorReset,
		colorWhite, row.AgentID, colorReset,
		colorCyan, row.Tick, colorReset)
	w.program.Send(eventMsg{line: line})
	return nil
}

// WriteEvents outputs multiple event rows.
func (w *TUIWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faultStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var phaseStyles = map[string]lipgloss.Style{
	string(swarm.PhaseStable):        lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	string(swarm.PhaseFaultDetected): lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	string(swarm.PhaseSelfHealing):   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	string(swarm.PhaseStabilized):    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
}

type tuiModel struct {
	cfg       swarm.Config
	clusterID string
	controls  Controls

	table   table.Model
	vp      viewport.Model
	eventVP viewport.Model

	logs      []string
	eventLogs []string
	state     telemetry.StateRow

	input       textinput.Model
	inputAction string // "inject" or "repair"

	running      bool
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	showConfig   bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg swarm.Config, clusterID string, controls Controls) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Agents", strconv.Itoa(cfg.AgentCount), "Topology", string(cfg.Topology)},
		{"Mode", string(cfg.Mode), "Fault Step", strconv.Itoa(cfg.FaultStep)},
		{"Failure Rate", fmt.Sprintf("%.3f", cfg.FailureRate), "Recovery Window", strconv.Itoa(cfg.RecoveryWindow)},
		{"Detect Window", strconv.Itoa(cfg.DetectWindow), "Heal Window", strconv.Itoa(cfg.HealWindow)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		clusterID:  clusterID,
		controls:   controls,
		table:      t,
		vp:         viewport.New(0, 0),
		eventVP:    viewport.New(0, 0),
		autoscroll: true,
		showConfig: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		if m.inputAction != "" {
			switch msg.Type {
			case tea.KeyEnter:
				m.applyInput()
				m.inputAction = ""
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.inputAction = ""
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.running {
				if m.controls.Stop != nil {
					m.controls.Stop()
				}
				m.running = false
			} else {
				if m.controls.Start != nil {
					m.controls.Start()
				}
				m.running = true
			}
			m.header = m.renderHeader()
			return m, nil
		case "R":
			if m.controls.Reset != nil {
				m.controls.Reset()
				m.running = false
				m.header = m.renderHeader()
			}
			return m, nil
		case "f":
			if m.controls.Inject != nil {
				_ = m.controls.Inject()
			}
			return m, nil
		case "F":
			m.openInput("inject", "id,id,...")
			return m, nil
		case "r":
			m.openInput("repair", "id")
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.eventVP.GotoBottom()
			}
			return m, nil
		case "c":
			m.showConfig = !m.showConfig
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.eventVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.eventVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.eventVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.eventVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.eventVP, _ = m.eventVP.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	case eventMsg:
		m.eventLogs = append(m.eventLogs, msg.line)
		if len(m.eventLogs) > 1000 {
			m.eventLogs = m.eventLogs[len(m.eventLogs)-1000:]
		}
		m.updateViewportHeight()
		m.refreshEvents()
		m.refreshViewport()
	case stateMsg:
		m.state = msg.StateRow
		m.running = true
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.active
		m.header = m.renderHeader()
	}
	return m, nil
}

func (m *tuiModel) openInput(action, placeholder string) {
	m.input = textinput.New()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.inputAction = action
	m.updateViewportHeight()
}

func (m *tuiModel) applyInput() {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return
	}
	switch m.inputAction {
	case "inject":
		var ids []int
		for _, part := range strings.Split(val, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return
			}
			ids = append(ids, id)
		}
		if m.controls.Inject != nil {
			_ = m.controls.Inject(ids...)
		}
	case "repair":
		id, err := strconv.Atoi(val)
		if err != nil {
			return
		}
		if m.controls.Repair != nil {
			_ = m.controls.Repair(id)
		}
	}
}

func (m *tuiModel) updateViewportHeight() {
	eventLines := len(m.eventLogs)
	if eventLines == 0 {
		eventLines = 1
	}
	if max := m.height / 5; max >= 1 && eventLines > max {
		eventLines = max
	}
	m.eventVP.Height = eventLines

	inputHeight := 0
	if m.inputAction != "" {
		inputHeight = 2
	}
	h := m.height - m.headerHeight - m.eventVP.Height - inputHeight - 5
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
		m.eventVP.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.eventLogs) > 0 {
		content = strings.Join(m.eventLogs, "\n")
	}
	m.eventVP.SetContent(content)
	if m.autoscroll {
		m.eventVP.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	run := pausedStyle.Render("paused")
	if m.running {
		run = activeStyle.Render("running")
	}
	phaseStyle, ok := phaseStyles[m.state.Phase]
	if !ok {
		phaseStyle = pausedStyle
	}
	title := fmt.Sprintf("%s  cluster=%s  tick=%d  %s  phase=%s",
		titleStyle.Render("swarmcool"), m.clusterID, m.state.Tick, run,
		phaseStyle.Render(m.state.Phase))
	if m.state.FaultInjected {
		title += "  " + faultStyle.Render("FAULT")
	}
	if m.admin {
		title += "  admin=on"
	}
	metrics := fmt.Sprintf("avg_temp=%.2f  variance=%.3f  avg_power=%.1f  load=%.2f  eff=%.2f  recovery=%d",
		m.state.AverageTemperature, m.state.TemperatureVariance,
		m.state.AveragePower, m.state.TotalLoad,
		m.state.Efficiency, m.state.RecoveryTime)
	sections := []string{title, metrics}
	if m.showConfig {
		sections = append(sections, m.table.View())
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		titleStyle.Render("Keys"),
		"  q       quit",
		"  space   start/stop the simulation",
		"  R       reset the swarm",
		"  f       inject the scheduled fault",
		"  F       inject faults on specific agents (id,id,...)",
		"  r       repair one agent by id",
		"  w       toggle line wrapping",
		"  s       toggle autoscroll",
		"  c       toggle config table",
		"  ?       close this help",
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	width := m.vp.Width
	if width <= 0 {
		width = 80
	}
	divider := strings.Repeat("─", width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Events:",
		m.eventVP.View(),
	}
	if m.inputAction != "" {
		sections = append(sections, divider, m.inputAction+": "+m.input.View())
	}
	return strings.Join(sections, "\n")
}
