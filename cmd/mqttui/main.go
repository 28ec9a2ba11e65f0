// mqttui is an interactive terminal viewer for MQTT topics.
//
// It subscribes to a broker, keeps a bounded history of messages per
// topic, and renders the topic space as a collapsible tree with
// aggregated counts, a payload preview, and a recent-message pane.
//
// Usage:
//
//	mqttui                      # localhost:1883, subscribe to #
//	mqttui --broker host        # connect to a specific broker
//	mqttui --topic 'home/#'     # subscribe to a topic filter
//	mqttui --config <path>      # use a specific config file
//	mqttui --log-file mqtt.log  # write structured logs to a file
//	mqttui --version            # print version and exit
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/lukepighetti/mqttui/internal/broker"
	"github.com/lukepighetti/mqttui/internal/config"
	"github.com/lukepighetti/mqttui/internal/format"
	"github.com/lukepighetti/mqttui/internal/history"
	"github.com/lukepighetti/mqttui/internal/logging"
	"github.com/lukepighetti/mqttui/internal/topics"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/mqttui/config.toml)")
	brokerFlag := flag.String("broker", "", "broker host (overrides config)")
	portFlag := flag.Int("port", 0, "broker port (overrides config)")
	topicFlag := flag.String("topic", "", "topic filter to subscribe to (overrides config)")
	clientIDFlag := flag.String("client-id", "", "MQTT client ID (overrides config)")
	usernameFlag := flag.String("username", "", "broker username (overrides config)")
	passwordFlag := flag.String("password", "", "broker password (overrides config)")
	limitFlag := flag.Int("history-limit", 0, "messages kept per topic (overrides config)")
	logFileFlag := flag.String("log-file", "", "structured log output file (overrides config)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("mqttui %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mqttui: %v\n", err)
		os.Exit(1)
	}
	if *brokerFlag != "" {
		cfg.Broker = *brokerFlag
	}
	if *portFlag > 0 {
		cfg.Port = *portFlag
	}
	if *topicFlag != "" {
		cfg.Topic = *topicFlag
	}
	if *clientIDFlag != "" {
		cfg.ClientID = *clientIDFlag
	}
	if *usernameFlag != "" {
		cfg.Username = *usernameFlag
		cfg.Password = *passwordFlag
	}
	if *limitFlag > 0 {
		cfg.HistoryLimit = *limitFlag
	}
	if *logFileFlag != "" {
		cfg.LogFile = *logFileFlag
	}

	closeLog, err := logging.Init(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mqttui: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store := history.NewStore(cfg.HistoryLimit)

	// Coalesce message arrivals into single redraw signals. The paho
	// router goroutine appends and moves on; the TUI catches up at its
	// own pace.
	arrived := make(chan struct{}, 1)
	onMessage := func(topic string, payload []byte, retained bool) {
		store.Append(topic, history.Message{
			Payload:  payload,
			Received: time.Now(),
			Retained: retained,
		})
		select {
		case arrived <- struct{}{}:
		default:
		}
	}

	connState := make(chan bool, 4)
	client, err := broker.Connect(cfg, onMessage, func(up bool) {
		select {
		case connState <- up:
		default:
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mqttui: %v\n", err)
		os.Exit(1)
	}

	// Config watching is best effort: the directory may not exist yet.
	var watcher *config.Watcher
	cfgPath, err := config.Path(*configPath)
	if err == nil {
		if watcher, err = config.NewWatcher(cfgPath); err != nil {
			logging.Logger.Warn().Err(err).Str("path", cfgPath).Msg("config watch unavailable")
			watcher = nil
		}
	}

	m := newModel(store, client, watcher, cfg, cfgPath)
	m.connected = true
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for range arrived {
			p.Send(messagesMsg{})
		}
	}()
	go func() {
		for up := range connState {
			p.Send(connStateMsg{connected: up})
		}
	}()
	if watcher != nil {
		go func() {
			for range watcher.Changes() {
				p.Send(configChangedMsg{})
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mqttui: %v\n", err)
		os.Exit(1)
	}
}

// --- Messages ---

type messagesMsg struct{}

type connStateMsg struct {
	connected bool
}

type configChangedMsg struct{}

type tickMsg struct{}

// --- Key bindings ---

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Close  key.Binding
	Toggle key.Binding
	Top    key.Binding
	Bottom key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Open:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "expand")),
	Close:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "collapse")),
	Toggle: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
	Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Open, k.Close, k.Toggle},
		{k.Help, k.Quit},
	}
}

// --- Model ---

type uiModel struct {
	store   *history.Store
	client  *broker.Client
	watcher *config.Watcher
	cfg     config.Config
	cfgPath string

	// Per-frame snapshot and the tree built from it. Rebuilt wholesale
	// on every data change; navigation state below survives rebuilds
	// because it is keyed by topic path only.
	snap map[string]history.TopicLog
	tree []*topics.Entry

	opened    map[string]bool
	selected  string // topic path, "" when nothing is selected
	connected bool

	width  int
	height int

	help     help.Model
	showHelp bool

	lastMessage time.Time
}

func newModel(store *history.Store, client *broker.Client, watcher *config.Watcher, cfg config.Config, cfgPath string) uiModel {
	return uiModel{
		store:   store,
		client:  client,
		watcher: watcher,
		cfg:     cfg,
		cfgPath: cfgPath,
		snap:    map[string]history.TopicLog{},
		opened:  map[string]bool{},
		help:    help.New(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// rebuild takes a fresh snapshot and rebuilds the tree from it. All
// tree computation happens against the private copy, outside the
// store's lock.
func (m *uiModel) rebuild() {
	m.snap = m.store.Snapshot()
	m.tree = topics.Build(m.snap)
}

// effectiveOpened is the open-set used for this frame's rendering: the
// persisted set plus a transient reveal of the selection's ancestors,
// so the selected row is always on screen. The persisted set is never
// mutated by resolution.
func (m uiModel) effectiveOpened() map[string]bool {
	if m.selected == "" {
		return m.opened
	}
	return topics.Reveal(m.opened, m.selected)
}

// visibleEntries is the flattened tree for this frame.
func (m uiModel) visibleEntries() []*topics.Entry {
	return topics.Visible(m.tree, m.effectiveOpened())
}

// cursor resolves the selection to its row in the visible sequence, -1
// when nothing is selected or the topic vanished from the tree.
func (m uiModel) cursor() int {
	if m.selected == "" {
		return -1
	}
	idx, ok := topics.Position(m.tree, m.opened, m.selected)
	if !ok {
		return -1
	}
	return idx
}

// selectedEntry returns the tree entry for the current selection, nil
// when there is none.
func (m uiModel) selectedEntry() *topics.Entry {
	if m.selected == "" {
		return nil
	}
	for _, e := range m.visibleEntries() {
		if e.Topic == m.selected {
			return e
		}
	}
	return nil
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.watcher != nil {
				m.watcher.Close()
			}
			if m.client != nil {
				m.client.Disconnect()
			}
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveSelection(-1)

		case key.Matches(msg, keys.Down):
			m.moveSelection(+1)

		case key.Matches(msg, keys.Top):
			if visible := m.visibleEntries(); len(visible) > 0 {
				m.selected = visible[0].Topic
			}

		case key.Matches(msg, keys.Bottom):
			if visible := m.visibleEntries(); len(visible) > 0 {
				m.selected = visible[len(visible)-1].Topic
			}

		case key.Matches(msg, keys.Toggle):
			if e := m.selectedEntry(); e != nil && len(e.Children) > 0 {
				if m.opened[e.Topic] {
					delete(m.opened, e.Topic)
				} else {
					m.opened[e.Topic] = true
				}
			}

		case key.Matches(msg, keys.Open):
			if e := m.selectedEntry(); e != nil && len(e.Children) > 0 {
				if m.opened[e.Topic] {
					// Already open: step into the first child.
					m.selected = e.Children[0].Topic
				} else {
					m.opened[e.Topic] = true
				}
			}

		case key.Matches(msg, keys.Close):
			if e := m.selectedEntry(); e != nil {
				if m.opened[e.Topic] {
					delete(m.opened, e.Topic)
				} else if ancestors := topics.Ancestors(e.Topic); len(ancestors) > 0 {
					// Entry is already collapsed (or a leaf): jump to
					// its parent instead.
					m.selected = ancestors[len(ancestors)-1]
				}
			}

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case messagesMsg:
		m.rebuild()
		m.lastMessage = time.Now()

	case connStateMsg:
		m.connected = msg.connected

	case configChangedMsg:
		m.reloadConfig()

	case tickMsg:
		// Periodic rebuild keeps counts fresh even when an arrival
		// signal was coalesced away.
		m.rebuild()
		return m, tickEvery()
	}

	return m, nil
}

// moveSelection moves the cursor by delta rows within the visible
// sequence, selecting the first row when nothing is selected yet.
func (m *uiModel) moveSelection(delta int) {
	visible := m.visibleEntries()
	if len(visible) == 0 {
		m.selected = ""
		return
	}
	idx := m.cursor()
	if idx < 0 {
		m.selected = visible[0].Topic
		return
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(visible) {
		idx = len(visible) - 1
	}
	m.selected = visible[idx].Topic
}

// reloadConfig re-reads the config file and applies the settings that
// are safe to change at runtime. Parse failures are logged and the
// running config kept.
func (m *uiModel) reloadConfig() {
	cfg, err := config.Load(m.cfgPath)
	if err != nil {
		logging.Logger.Warn().Err(err).Str("path", m.cfgPath).Msg("config reload failed")
		return
	}
	if cfg.HistoryLimit != m.cfg.HistoryLimit {
		m.store.SetLimit(cfg.HistoryLimit)
		m.cfg.HistoryLimit = cfg.HistoryLimit
		logging.Logger.Info().Int("history_limit", cfg.HistoryLimit).Msg("config reloaded")
		m.rebuild()
	}
}

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	leafStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A6E3A1"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	retainedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))

	connectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A6E3A1"))

	disconnectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F38BA8"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteRune('\n')

	contentHeight := m.height - 5 // header + status + padding
	if m.showHelp {
		contentHeight -= 3
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	entry := m.selectedEntry()
	if entry != nil && entry.Messages > 0 && m.width >= 80 {
		// Split pane: tree left, payload + history right.
		leftWidth := m.width * 35 / 100
		rightWidth := m.width - leftWidth - 3
		left := m.renderTopics(contentHeight)
		right := m.renderDetail(entry, rightWidth, contentHeight)
		content = renderSplitPane(left, right, leftWidth, contentHeight)
	} else {
		content = m.renderTopics(contentHeight)
	}

	lines := strings.Split(content, "\n")
	if len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}
	content = strings.Join(lines, "\n")

	// Truncate each line to terminal width so content doesn't wrap on
	// resize. Uses ANSI-aware width measurement.
	content = truncateLines(content, m.width)
	b.WriteString(content)

	// Pad to fill the screen.
	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-2 {
		b.WriteRune('\n')
		rendered++
	}

	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}

	return b.String()
}

func (m uiModel) renderHeader() string {
	title := titleStyle.Render("mqttui " + Version)
	conn := connectedStyle.Render("connected")
	if !m.connected {
		conn = disconnectedStyle.Render("disconnected")
	}
	stats := dimStyle.Render(fmt.Sprintf("%d topics | %d messages", len(m.snap), m.totalMessages()))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(conn)-lipgloss.Width(stats)-3))

	var b strings.Builder
	b.WriteString(title)
	b.WriteString(gap)
	b.WriteString(stats)
	b.WriteString("  ")
	b.WriteString(conn)
	b.WriteRune('\n')

	b.WriteString(dimStyle.Render(fmt.Sprintf("Broker: %s | Subscribed: %s", m.cfg.BrokerURL(), m.cfg.Topic)))
	b.WriteRune('\n')
	if m.selected != "" {
		b.WriteString(dimStyle.Render("Selected: ") + selectedStyle.Render(m.selected))
	}
	b.WriteRune('\n')
	return b.String()
}

func (m uiModel) renderStatusBar() string {
	left := " j/k: navigate | enter: toggle | h/l: collapse/expand | ?: help | q: quit"
	right := "no messages yet "
	if !m.lastMessage.IsZero() {
		right = fmt.Sprintf("last message %s ago ", time.Since(m.lastMessage).Truncate(time.Second))
	}
	gap := strings.Repeat(" ", max(0, m.width-len(left)-len(right)))
	return statusBarStyle.Render(left + gap + right)
}

// renderTopics renders the tree pane: one row per visible entry, with
// the cursor row scrolled into view.
func (m uiModel) renderTopics(height int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Topics (%d)", len(m.snap))))
	b.WriteRune('\n')

	visible := m.visibleEntries()
	if len(visible) == 0 {
		b.WriteString(dimStyle.Render("  (no messages received yet)"))
		b.WriteRune('\n')
		return b.String()
	}

	opened := m.effectiveOpened()
	cursor := m.cursor()

	// Scroll so the cursor row stays inside the pane.
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	offset := 0
	if cursor >= rows {
		offset = cursor - rows + 1
	}

	for i := offset; i < len(visible) && i-offset < rows; i++ {
		e := visible[i]
		indent := strings.Repeat("  ", e.Depth())

		arrow := "  "
		if len(e.Children) > 0 {
			if opened[e.Topic] {
				arrow = "▾ "
			} else {
				arrow = "▸ "
			}
		}

		prefix := "  "
		label := leafStyle.Render(e.Leaf)
		if i == cursor {
			prefix = "> "
			label = selectedStyle.Render(e.Leaf)
		}

		b.WriteString(prefix)
		b.WriteString(indent)
		b.WriteString(arrow)
		b.WriteString(label)
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(e.Meta()))
		b.WriteRune('\n')
	}

	return b.String()
}

// renderDetail renders the payload preview and recent-message history
// for a message-bearing entry.
func (m uiModel) renderDetail(e *topics.Entry, width, height int) string {
	var b strings.Builder

	log := m.snap[e.Topic]
	payload := format.Payload(e.LastPayload)
	payloadLines := strings.Split(payload, "\n")

	// Keep at least a third of the pane for the history list.
	maxPayload := max(1, height*2/3-2)
	truncated := false
	if len(payloadLines) > maxPayload {
		payloadLines = payloadLines[:maxPayload]
		truncated = true
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("Payload (Bytes: %d)", len(e.LastPayload))))
	b.WriteRune('\n')
	for _, line := range payloadLines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteRune('\n')
	}
	if truncated {
		b.WriteString(dimStyle.Render("  ..."))
		b.WriteRune('\n')
	}
	b.WriteRune('\n')

	b.WriteString(headerStyle.Render(fmt.Sprintf("History (%d messages)", log.Total)))
	b.WriteRune('\n')

	rows := height - len(payloadLines) - 4
	if rows < 1 {
		rows = 1
	}
	recent := log.Recent
	if len(recent) > rows {
		recent = recent[len(recent)-rows:]
	}
	for _, msg := range recent {
		ts := dimStyle.Render(msg.Received.Format("15:04:05"))
		flag := ""
		if msg.Retained {
			flag = retainedStyle.Render(" (retained)")
		}
		line := fmt.Sprintf("  %s  %s%s", ts, oneLinePreview(msg.Payload, width-14), flag)
		b.WriteString(line)
		b.WriteRune('\n')
	}

	return b.String()
}

// totalMessages sums message counts over the current snapshot.
func (m uiModel) totalMessages() int {
	var total int
	for _, log := range m.snap {
		total += log.Total
	}
	return total
}

// --- Helpers ---

// oneLinePreview renders a payload on a single line, truncated to the
// given visible width.
func oneLinePreview(payload []byte, width int) string {
	s := format.PayloadUTF8(payload)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if width > 0 && lipgloss.Width(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	return s
}

// renderSplitPane renders two panes side by side with a vertical
// separator, padding the left pane to a fixed width.
func renderSplitPane(left, right string, leftWidth, maxHeight int) string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")

	maxLines := max(len(leftLines), len(rightLines))
	if maxLines > maxHeight {
		maxLines = maxHeight
	}
	for len(leftLines) < maxLines {
		leftLines = append(leftLines, "")
	}
	for len(rightLines) < maxLines {
		rightLines = append(rightLines, "")
	}

	sep := dimStyle.Render("│")
	var b strings.Builder
	for i := 0; i < maxLines; i++ {
		b.WriteString(padCell(leftLines[i], leftWidth))
		b.WriteString(" ")
		b.WriteString(sep)
		b.WriteString(" ")
		b.WriteString(rightLines[i])
		b.WriteRune('\n')
	}
	return b.String()
}

// padCell pads or truncates a line to the target visible width,
// ANSI-aware.
func padCell(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		return ansi.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-w)
}

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes. This prevents terminal line
// wrapping when the window is resized narrower.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}
