package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/galamiram/deskknob/internal/state"
)

const (
	// refreshInterval paces cell reads. The device loop runs on its own
	// schedule; this is purely how often the screen catches up.
	refreshInterval = 100 * time.Millisecond

	volumeStep     = 2
	brightnessStep = 25
	maxLogEntries  = 8
)

// LightControl is the slice of the light controller the UI drives.
type LightControl interface {
	Connected() bool
	SetPower(on bool) bool
	SetBrightness(b int) bool
	SetColorTemp(mired int) bool
}

// App is the terminal front end. It never talks to the speaker: every key
// press lands in the shared cells and the polling loop does the rest, so a
// slow speaker can never freeze the UI.
type App struct {
	keys  keyMap
	help  help.Model
	cells *state.Cells
	light LightControl

	snap        state.PlaybackSnapshot
	lightState  state.LightState
	artBytes    int
	message     string
	messageType MessageType
	width       int
	height      int
	lastUpdate  time.Time

	volumeBar progress.Model
	trackBar  progress.Model
	lightBar  progress.Model

	logMu      sync.Mutex
	logEntries []logEntry
}

type logEntry struct {
	level   string
	message string
}

// MessageType represents the type of message to display
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageError
	MessageWarning
)

// keyMap defines the keyboard shortcuts
type keyMap struct {
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Mute       key.Binding
	PlayPause  key.Binding
	Next       key.Binding
	Previous   key.Binding
	Power      key.Binding
	SrcWifi    key.Binding
	SrcUSB     key.Binding
	Light      key.Binding
	LightUp    key.Binding
	LightDown  key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// ShortHelp returns the key bindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.VolumeUp, k.VolumeDown, k.PlayPause, k.Power, k.Help, k.Quit}
}

// FullHelp returns the key bindings to be shown in the full help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.VolumeUp, k.VolumeDown, k.Mute, k.PlayPause},
		{k.Next, k.Previous, k.SrcWifi, k.SrcUSB},
		{k.Power, k.Light, k.LightUp, k.LightDown},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	VolumeUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "volume up"),
	),
	VolumeDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "volume down"),
	),
	Mute: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "toggle mute"),
	),
	PlayPause: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "play/pause"),
	),
	Next: key.NewBinding(
		key.WithKeys("n", "right"),
		key.WithHelp("n/→", "next track"),
	),
	Previous: key.NewBinding(
		key.WithKeys("b", "left"),
		key.WithHelp("b/←", "previous track"),
	),
	Power: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "toggle power"),
	),
	SrcWifi: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "wifi source"),
	),
	SrcUSB: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "usb source"),
	),
	Light: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "toggle light"),
	),
	LightUp: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "light brighter"),
	),
	LightDown: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "light dimmer"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewApp creates the TUI over the shared cell set. light may be nil when
// light control is not configured.
func NewApp(cells *state.Cells, light LightControl) *App {
	return &App{
		keys:        keys,
		help:        help.New(),
		cells:       cells,
		light:       light,
		message:     "Starting DeskKnob...",
		messageType: MessageInfo,
		volumeBar:   progress.New(progress.WithDefaultGradient()),
		trackBar:    progress.New(progress.WithDefaultGradient()),
		lightBar:    progress.New(progress.WithDefaultGradient()),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return a.tickCmd()
}

// Update handles messages and updates the application state
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tickMsg:
		a.pullCells()
		return a, a.tickCmd()
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll

	case key.Matches(msg, a.keys.VolumeUp):
		a.nudgeVolume(volumeStep)

	case key.Matches(msg, a.keys.VolumeDown):
		a.nudgeVolume(-volumeStep)

	case key.Matches(msg, a.keys.Mute):
		if a.cells.Muted.Load() {
			a.putTrackCmd(state.CmdUnmute)
			a.setMessage("Unmuting...", MessageInfo)
		} else {
			a.putTrackCmd(state.CmdMute)
			a.setMessage("Muting...", MessageInfo)
		}

	case key.Matches(msg, a.keys.PlayPause):
		a.putTrackCmd(state.CmdPause)
		a.setMessage("Toggling playback...", MessageInfo)

	case key.Matches(msg, a.keys.Next):
		a.putTrackCmd(state.CmdNext)
		a.setMessage("Next track...", MessageInfo)

	case key.Matches(msg, a.keys.Previous):
		a.putTrackCmd(state.CmdPrevious)
		a.setMessage("Previous track...", MessageInfo)

	case key.Matches(msg, a.keys.Power):
		a.putControlCmd(state.CmdPower)
		a.setMessage("Toggling power...", MessageInfo)

	case key.Matches(msg, a.keys.SrcWifi):
		if a.cells.PowerOn.Load() {
			a.putControlCmd(state.CmdSrcWifi)
		} else {
			a.putControlCmd(state.CmdWakeWifi)
		}
		a.setMessage("Switching to WiFi source...", MessageInfo)

	case key.Matches(msg, a.keys.SrcUSB):
		if a.cells.PowerOn.Load() {
			a.putControlCmd(state.CmdSrcUSB)
		} else {
			a.putControlCmd(state.CmdWakeUSB)
		}
		a.setMessage("Switching to USB source...", MessageInfo)

	case key.Matches(msg, a.keys.Light):
		a.lightCommand(func(l LightControl) bool { return l.SetPower(!a.lightState.On) })

	case key.Matches(msg, a.keys.LightUp):
		b := a.lightState.Brightness + brightnessStep
		a.lightCommand(func(l LightControl) bool { return l.SetBrightness(b) })

	case key.Matches(msg, a.keys.LightDown):
		b := a.lightState.Brightness - brightnessStep
		a.lightCommand(func(l LightControl) bool { return l.SetBrightness(b) })
	}

	return a, nil
}

// nudgeVolume moves the target relative to what the user currently sees,
// which is the optimistic value while a send is in flight.
func (a *App) nudgeVolume(delta int) {
	target := a.cells.Volume.Effective() + delta
	a.cells.Volume.SetTarget(target)
	a.setMessage(fmt.Sprintf("Volume %d", a.cells.Volume.Effective()), MessageInfo)
}

func (a *App) putTrackCmd(cmd string) {
	if a.cells.TrackCmd.Put(cmd) {
		log.WithField("cmd", cmd).Warn("Replaced unsent track command")
	}
}

func (a *App) putControlCmd(cmd string) {
	if a.cells.ControlCmd.Put(cmd) {
		log.WithField("cmd", cmd).Warn("Replaced unsent control command")
	}
}

func (a *App) lightCommand(send func(LightControl) bool) {
	if a.light == nil {
		a.setMessage("Light control not configured", MessageWarning)
		return
	}
	if !send(a.light) {
		a.setMessage("Light unreachable", MessageError)
		return
	}
	a.setMessage("Light command sent", MessageSuccess)
}

// pullCells drains whatever the device loop published since the last tick.
func (a *App) pullCells() {
	if snap, dirty := a.cells.Playback.TakeIfDirty(); dirty {
		a.snap = snap
		a.lastUpdate = time.Now()
	}
	if data, ok := a.cells.Art.Take(); ok {
		// A nil buffer means the track has no art.
		a.artBytes = len(data)
	}
	if st, dirty := a.cells.Light.TakeIfDirty(); dirty {
		a.lightState = st
	}
}

// View renders the application
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	var sections []string

	sections = append(sections, a.renderHeader())

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.renderSpeakerColumn(),
		a.renderSideColumn(),
	)
	sections = append(sections, mainContent)

	if a.message != "" {
		sections = append(sections, a.renderMessage())
	}

	sections = append(sections, a.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Styles
var (
	primaryColor = lipgloss.Color("39")  // Blue
	successColor = lipgloss.Color("46")  // Green
	errorColor   = lipgloss.Color("196") // Red
	warningColor = lipgloss.Color("226") // Yellow
	accentColor  = lipgloss.Color("86")  // Cyan
	mutedColor   = lipgloss.Color("240") // Gray

	successTextStyle = lipgloss.NewStyle().Foreground(successColor)
	errorTextStyle   = lipgloss.NewStyle().Foreground(errorColor)
	warningTextStyle = lipgloss.NewStyle().Foreground(warningColor)
	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(primaryColor).
			Padding(0, 2).
			Margin(0, 0, 1, 0).
			Bold(true).
			Width(80).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			Margin(0, 1, 1, 0).
			Width(38)

	standbyPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor).
				Padding(1, 2).
				Margin(0, 1, 1, 0).
				Width(38)

	powerOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(successColor).
			Padding(0, 1).
			Bold(true)

	powerOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(mutedColor).
			Padding(0, 1).
			Bold(true)

	infoMessageStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Border(lipgloss.NormalBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1).
				Margin(0, 1)

	successMessageStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Border(lipgloss.NormalBorder()).
				BorderForeground(successColor).
				Padding(0, 1).
				Margin(0, 1)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Border(lipgloss.NormalBorder()).
				BorderForeground(errorColor).
				Padding(0, 1).
				Margin(0, 1)

	warningMessageStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Border(lipgloss.NormalBorder()).
				BorderForeground(warningColor).
				Padding(0, 1).
				Margin(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))
)

func (a *App) renderHeader() string {
	return titleStyle.Render("🎛  DeskKnob")
}

func (a *App) renderSpeakerColumn() string {
	var content strings.Builder

	// Power / source panel
	var powerStatus string
	if a.cells.PowerOn.Load() {
		powerStatus = powerOnStyle.Render(" POWER ON ")
	} else {
		powerStatus = powerOffStyle.Render(" STANDBY ")
	}
	source := "WiFi"
	if a.cells.SourceUSB.Load() {
		source = "USB"
	}
	content.WriteString(panelStyle.Render(
		labelStyle.Render("Speaker") + "\n\n" +
			powerStatus + "\n\n" +
			fmt.Sprintf("Source: %s", valueStyle.Render(source)),
	))

	// Now playing panel
	style := panelStyle
	if a.snap.Standby {
		style = standbyPanelStyle
	}
	var playState string
	if a.snap.Playing {
		playState = successTextStyle.Render("▶ Playing")
	} else {
		playState = mutedTextStyle.Render("⏸ Paused")
	}
	art := mutedTextStyle.Render("no art")
	if a.artBytes > 0 {
		art = valueStyle.Render(fmt.Sprintf("%d KiB", a.artBytes/1024))
	}
	np := labelStyle.Render("Now Playing") + "\n\n" +
		fmt.Sprintf("%s\n", valueStyle.Render(a.snap.Title)) +
		fmt.Sprintf("%s\n\n", mutedTextStyle.Render(a.snap.Artist)) +
		playState + "\n"
	if a.snap.DurationMS > 0 {
		np += a.trackBar.ViewAs(float64(a.snap.ProgressMS)/float64(a.snap.DurationMS)) + "\n"
	}
	np += fmt.Sprintf("Art: %s", art)
	content.WriteString("\n" + style.Render(np))

	// Volume panel
	var muteStatus string
	if a.cells.Muted.Load() {
		muteStatus = errorTextStyle.Render("🔇 MUTED")
	} else {
		muteStatus = successTextStyle.Render("🔊")
	}
	vol := a.cells.Volume.Effective()
	content.WriteString("\n" + panelStyle.Render(
		labelStyle.Render("Volume")+"\n\n"+
			fmt.Sprintf("%s  %s\n", valueStyle.Render(fmt.Sprintf("%d", vol)), muteStatus)+
			a.volumeBar.ViewAs(float64(vol)/100),
	))

	return content.String()
}

func (a *App) renderSideColumn() string {
	var content strings.Builder

	// Light panel
	if a.light != nil {
		var lightStatus string
		switch {
		case !a.light.Connected():
			lightStatus = errorTextStyle.Render("🔴 Broker offline")
		case a.lightState.On:
			lightStatus = successTextStyle.Render("💡 ON")
		default:
			lightStatus = mutedTextStyle.Render("💡 OFF")
		}
		content.WriteString(panelStyle.Render(
			labelStyle.Render("Desk Light") + "\n\n" +
				lightStatus + "\n\n" +
				fmt.Sprintf("Brightness: %s\n", valueStyle.Render(fmt.Sprintf("%d", a.lightState.Brightness))) +
				a.lightBar.ViewAs(float64(a.lightState.Brightness)/254) + "\n" +
				fmt.Sprintf("Temp: %s mired", valueStyle.Render(fmt.Sprintf("%d", a.lightState.ColorTemp))),
		))
	}

	// Log panel
	a.logMu.Lock()
	entries := make([]logEntry, len(a.logEntries))
	copy(entries, a.logEntries)
	a.logMu.Unlock()

	var logLines strings.Builder
	logLines.WriteString(labelStyle.Render("Log") + "\n\n")
	if len(entries) == 0 {
		logLines.WriteString(mutedTextStyle.Render("No entries"))
	}
	for i, e := range entries {
		line := fmt.Sprintf("%-5s %s", e.level, e.message)
		if len(line) > 32 {
			line = line[:32]
		}
		switch e.level {
		case "ERROR", "FATAL", "PANIC":
			logLines.WriteString(errorTextStyle.Render(line))
		case "WARNING":
			logLines.WriteString(warningTextStyle.Render(line))
		default:
			logLines.WriteString(mutedTextStyle.Render(line))
		}
		if i < len(entries)-1 {
			logLines.WriteString("\n")
		}
	}
	content.WriteString("\n" + panelStyle.Render(logLines.String()))

	return content.String()
}

func (a *App) renderMessage() string {
	var style lipgloss.Style
	var icon string

	switch a.messageType {
	case MessageSuccess:
		style = successMessageStyle
		icon = "✓"
	case MessageError:
		style = errorMessageStyle
		icon = "✗"
	case MessageWarning:
		style = warningMessageStyle
		icon = "⚠"
	default:
		style = infoMessageStyle
		icon = "ℹ"
	}

	return style.Render(fmt.Sprintf("%s %s", icon, a.message))
}

func (a *App) renderHelp() string {
	if !a.lastUpdate.IsZero() {
		lastUpdateText := mutedTextStyle.Render(fmt.Sprintf("Last update: %s", a.lastUpdate.Format("15:04:05")))
		helpContent := a.help.View(a.keys)
		return lipgloss.JoinVertical(lipgloss.Left, lastUpdateText, helpContent)
	}
	return a.help.View(a.keys)
}

func (a *App) setMessage(text string, msgType MessageType) {
	a.message = text
	a.messageType = msgType
}

// addLogEntry is called from the logrus hook, possibly off the UI goroutine.
func (a *App) addLogEntry(level, message string, fields map[string]interface{}) {
	if len(fields) > 0 {
		var parts []string
		for k, v := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		message = message + " " + strings.Join(parts, " ")
	}
	a.logMu.Lock()
	a.logEntries = append(a.logEntries, logEntry{level: level, message: message})
	if len(a.logEntries) > maxLogEntries {
		a.logEntries = a.logEntries[len(a.logEntries)-maxLogEntries:]
	}
	a.logMu.Unlock()
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

type tickMsg struct{}
