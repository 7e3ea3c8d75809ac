package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"moviechat/internal/connectivity"
	"moviechat/internal/conversation"
	"moviechat/internal/logging"
	"moviechat/internal/phase"
	"moviechat/internal/ragclient"
	"moviechat/internal/statscache"
)

const (
	defaultAPIBase    = "http://127.0.0.1:8000"
	defaultLogFile    = "moviechat-tui.log"
	timelineMaxChars  = 4000
	inputCharLimit    = 2000
	promptCostPer1K   = 0.00015
	completionCost1K  = 0.0006
	healthProbeBudget = 5 * time.Second
)

var suggestedQueries = []string{
	"What are the best sci-fi movies about AI?",
	"Find movies directed by Christopher Nolan",
	"Movies about space exploration",
	"What horror movies are in the database?",
	"Recommend a thought-provoking drama",
	"How many movies are from the 90s?",
}

type appConfig struct {
	apiBase               string
	requestTimeoutSeconds int
	logFile               string
	debug                 bool
	altScreen             bool
}

func parseFlags() appConfig {
	cfg := appConfig{}
	flag.StringVar(&cfg.apiBase, "api-base", envOr("MOVIECHAT_API_BASE", defaultAPIBase), "Movie RAG backend base URL")
	flag.IntVar(&cfg.requestTimeoutSeconds, "request-timeout", envOrInt("MOVIECHAT_REQUEST_TIMEOUT", 60), "Per-request backend timeout seconds")
	flag.StringVar(&cfg.logFile, "log-file", envOr("MOVIECHAT_LOG_FILE", defaultLogFile), "Rotating log file path")
	flag.BoolVar(&cfg.debug, "debug", envOrBool("MOVIECHAT_DEBUG", false), "Enable debug logging")
	flag.BoolVar(&cfg.altScreen, "alt-screen", true, "Use alternate screen buffer")
	flag.Parse()

	cfg.apiBase = strings.TrimRight(strings.TrimSpace(cfg.apiBase), "/")
	if cfg.apiBase == "" {
		cfg.apiBase = defaultAPIBase
	}
	cfg.requestTimeoutSeconds = clampInt(cfg.requestTimeoutSeconds, 5, 300)
	return cfg
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

type tabID int

const (
	tabChat tabID = iota
	tabAnalytics
	tabHelp
)

type uiTheme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	statsBar    lipgloss.Style
	statsValue  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	inputPanel  lipgloss.Style
	helpText    lipgloss.Style
	userName    lipgloss.Style
	botName     lipgloss.Style
	badge       lipgloss.Style
	badgeVector lipgloss.Style
	badgeSQL    lipgloss.Style
	badgeStats  lipgloss.Style
	stepPending lipgloss.Style
	stepActive  map[string]lipgloss.Style
	stepDone    map[string]lipgloss.Style
	dotOnline   lipgloss.Style
	dotOffline  lipgloss.Style
	dotChecking lipgloss.Style
}

func newTheme() uiTheme {
	indigo := lipgloss.Color("#6366f1")
	emerald := lipgloss.Color("#10b981")
	amber := lipgloss.Color("#f59e0b")
	purple := lipgloss.Color("#a78bfa")
	blue := lipgloss.Color("#60a5fa")
	green := lipgloss.Color("#4ade80")
	orange := lipgloss.Color("#fb923c")
	red := lipgloss.Color("#f87171")
	bg := lipgloss.Color("#111827")
	panelBg := lipgloss.Color("#1f2937")
	text := lipgloss.Color("#f9fafb")
	muted := lipgloss.Color("#9ca3af")

	active := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	done := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(indigo).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(indigo).
			Foreground(text).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(emerald).Bold(true),
		statsBar:   lipgloss.NewStyle().Foreground(muted),
		statsValue: lipgloss.NewStyle().Foreground(blue).Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(red).Bold(true),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(emerald).
			Padding(0, 1),
		helpText:    lipgloss.NewStyle().Foreground(muted),
		userName:    lipgloss.NewStyle().Foreground(indigo).Bold(true),
		botName:     lipgloss.NewStyle().Foreground(emerald).Bold(true),
		badge:       lipgloss.NewStyle().Foreground(muted),
		badgeVector: lipgloss.NewStyle().Foreground(purple),
		badgeSQL:    lipgloss.NewStyle().Foreground(blue),
		badgeStats:  lipgloss.NewStyle().Foreground(amber),
		stepPending: lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		stepActive: map[string]lipgloss.Style{
			"purple": active(purple),
			"blue":   active(blue),
			"green":  active(green),
			"orange": active(orange),
		},
		stepDone: map[string]lipgloss.Style{
			"purple": done(purple),
			"blue":   done(blue),
			"green":  done(green),
			"orange": done(orange),
		},
		dotOnline:   lipgloss.NewStyle().Foreground(green).Bold(true),
		dotOffline:  lipgloss.NewStyle().Foreground(red).Bold(true),
		dotChecking: lipgloss.NewStyle().Foreground(amber).Bold(true),
	}
}

// pipelineStep is one card of the search pipeline panel.
type pipelineStep struct {
	phase       phase.Phase
	label       string
	description string
	color       string
}

func pipelineSteps() []pipelineStep {
	return []pipelineStep{
		{phase: phase.Analyzing, label: "Intent Analysis", description: "Understanding your query...", color: "purple"},
		{phase: phase.VectorSearch, label: "Vector Search", description: "Searching semantically similar content...", color: "blue"},
		{phase: phase.SQLSearch, label: "SQL Query", description: "Querying structured database...", color: "green"},
		{phase: phase.Generating, label: "AI Response", description: "Generating intelligent response...", color: "orange"},
	}
}

// stepResult is the per-card completion line, fed from the retained
// response the same way the pipeline cards show it.
func stepResult(step phase.Phase, resp *ragclient.ChatResponse) string {
	if resp == nil {
		switch step {
		case phase.Analyzing:
			return "Query analyzed"
		case phase.Generating:
			return "Response generated"
		default:
			return "Completed"
		}
	}
	switch step {
	case phase.Analyzing:
		if strings.TrimSpace(resp.Intent) != "" {
			return "Intent: " + resp.Intent
		}
		return "Query analyzed"
	case phase.VectorSearch:
		return fmt.Sprintf("%d semantic matches", resp.Sources.VectorMatches)
	case phase.SQLSearch:
		return fmt.Sprintf("%d database matches", resp.Sources.SQLMatches)
	case phase.Generating:
		return "Response generated"
	default:
		return ""
	}
}

// tokenCostEstimate mirrors the backend's published per-1K pricing.
func tokenCostEstimate(usage ragclient.QueryTokenUsage) string {
	cost := (float64(usage.Total.PromptTokens)*promptCostPer1K +
		float64(usage.Total.CompletionTokens)*completionCost1K) / 1000
	return fmt.Sprintf("~$%.5f", cost)
}

type model struct {
	cfg       appConfig
	logger    *zap.Logger
	sessionID string

	client     *ragclient.Client
	store      *conversation.Store
	cache      *statscache.Cache
	monitor    *connectivity.Monitor
	controller *phase.Controller

	apiState     connectivity.State
	currentPhase phase.Phase
	currentQuery uint64
	searching    bool
	errorText    string
	statusLine   string

	detailedBusy  bool
	detailedError string

	activeTab   tabID
	quitConfirm bool
	width       int
	height      int

	input     textinput.Model
	timeline  viewport.Model
	analytics viewport.Model
	spinner   spinner.Model

	theme uiTheme
}

type initDoneMsg struct {
	state connectivity.State
}

type retryDoneMsg struct {
	state connectivity.State
}

type phaseEventMsg phase.Event

type queryResultMsg phase.Result

type detailedStatsMsg struct {
	err error
}

func newModel(cfg appConfig, logger *zap.Logger) model {
	sessionID := uuid.NewString()
	logger = logger.With(zap.String("session", sessionID))

	client := ragclient.New(cfg.apiBase, time.Duration(cfg.requestTimeoutSeconds)*time.Second, logger.Named("ragclient"))
	store := conversation.NewStore()
	cache := statscache.New(client, logger.Named("statscache"))
	monitor := connectivity.NewMonitor(client, func(ctx context.Context) {
		// Stats failures stay inside the cache; they never flip
		// connectivity.
		_, _ = cache.RefreshSummary(ctx)
	}, logger.Named("connectivity"))
	controller := phase.NewController(client, store, monitor.Offline, logger.Named("phase"))

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = inputCharLimit
	input.Placeholder = "Ask about movies..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4
	analytics := viewport.New(0, 0)
	analytics.MouseWheelEnabled = true
	analytics.MouseWheelDelta = 4

	return model{
		cfg:        cfg,
		logger:     logger,
		sessionID:  sessionID,
		client:     client,
		store:      store,
		cache:      cache,
		monitor:    monitor,
		controller: controller,
		apiState:   connectivity.Checking,
		statusLine: "connecting...",
		activeTab:  tabChat,
		input:      input,
		timeline:   timeline,
		analytics:  analytics,
		spinner:    sp,
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.initCmd(),
		waitPhaseCmd(m.controller.Events()),
		waitResultCmd(m.controller.Results()),
	)
}

// initCmd runs the mount-time health check; on success the monitor's
// onOnline callback refreshes the summary stats before the msg lands.
func (m model) initCmd() tea.Cmd {
	monitor := m.monitor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthProbeBudget)
		defer cancel()
		return initDoneMsg{state: monitor.Check(ctx)}
	}
}

func (m model) retryCmd() tea.Cmd {
	monitor := m.monitor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthProbeBudget)
		defer cancel()
		return retryDoneMsg{state: monitor.Check(ctx)}
	}
}

func (m model) detailedStatsCmd() tea.Cmd {
	cache := m.cache
	timeout := time.Duration(m.cfg.requestTimeoutSeconds) * time.Second
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := cache.RefreshDetailed(ctx)
		return detailedStatsMsg{err: err}
	}
}

func waitPhaseCmd(events <-chan phase.Event) tea.Cmd {
	return func() tea.Msg {
		return phaseEventMsg(<-events)
	}
}

func waitResultCmd(results <-chan phase.Result) tea.Cmd {
	return func() tea.Msg {
		return queryResultMsg(<-results)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case initDoneMsg:
		m.apiState = msg.state
		if msg.state == connectivity.Online {
			m.statusLine = "ready"
		} else {
			m.statusLine = "backend unreachable"
		}
		m.renderPanes()
	case retryDoneMsg:
		m.apiState = msg.state
		if msg.state == connectivity.Online {
			m.statusLine = "reconnected"
		} else {
			m.statusLine = "still offline"
		}
		m.renderPanes()
	case phaseEventMsg:
		ev := phase.Event(msg)
		if ev.Query >= m.currentQuery {
			m.currentQuery = ev.Query
			m.currentPhase = ev.Phase
			if ev.Phase == phase.Idle || ev.Phase == phase.Complete {
				m.searching = false
			}
		}
		m.renderPanes()
		cmds = append(cmds, waitPhaseCmd(m.controller.Events()))
	case queryResultMsg:
		res := phase.Result(msg)
		m.searching = false
		if res.Err != nil {
			m.errorText = userFacingError(res.Err)
			m.statusLine = "query failed"
		} else {
			m.errorText = ""
			m.statusLine = "answer ready"
		}
		m.renderPanes()
		m.timeline.GotoBottom()
		cmds = append(cmds, waitResultCmd(m.controller.Results()))
	case detailedStatsMsg:
		m.detailedBusy = false
		if msg.err != nil {
			m.detailedError = compactSingleLine(msg.err.Error(), 160)
		} else {
			m.detailedError = ""
		}
		m.renderPanes()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		switch m.activeTab {
		case tabChat:
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			cmds = append(cmds, cmd)
		case tabAnalytics:
			var cmd tea.Cmd
			m.analytics, cmd = m.analytics.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.KeyMsg:
		if key := msg.String(); key == "ctrl+c" {
			return m, tea.Quit
		}
		if m.quitConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				return m, tea.Quit
			case "n", "N", "esc":
				m.quitConfirm = false
				m.statusLine = "quit canceled"
			}
			return m, tea.Batch(cmds...)
		}
		switch msg.String() {
		case "esc":
			m.quitConfirm = true
			m.statusLine = "quit? y/n"
			return m, tea.Batch(cmds...)
		case "tab":
			m.switchTab((m.activeTab + 1) % 3, &cmds)
			return m, tea.Batch(cmds...)
		case "shift+tab":
			m.switchTab((m.activeTab + 2) % 3, &cmds)
			return m, tea.Batch(cmds...)
		}

		switch m.activeTab {
		case tabChat:
			if cmd, handled := m.handleChatKey(msg); handled {
				if cmd != nil {
					cmds = append(cmds, cmd)
				}
				return m, tea.Batch(cmds...)
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		case tabAnalytics:
			switch msg.String() {
			case "r":
				if !m.detailedBusy {
					m.detailedBusy = true
					m.statusLine = "refreshing analytics..."
					cmds = append(cmds, m.detailedStatsCmd())
				}
			case "up", "k", "pgup":
				m.analytics.LineUp(4)
			case "down", "j", "pgdown":
				m.analytics.LineDown(4)
			case "home":
				m.analytics.GotoTop()
			case "end":
				m.analytics.GotoBottom()
			}
			m.renderPanes()
		}
	}
	return m, tea.Batch(cmds...)
}

// handleChatKey covers the chat tab's non-typing keys. Returns handled=false
// when the key should fall through to the text input.
func (m *model) handleChatKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "enter":
		raw := strings.TrimSpace(m.input.Value())
		if raw == "" {
			return nil, true
		}
		m.input.SetValue("")
		return m.submit(raw), true
	case "ctrl+l":
		m.store.Clear()
		m.controller.Reset()
		m.errorText = ""
		m.searching = false
		m.statusLine = "conversation cleared"
		m.renderPanes()
		return nil, true
	case "ctrl+r":
		if m.apiState != connectivity.Offline {
			return nil, true
		}
		m.monitor.Begin()
		m.apiState = connectivity.Checking
		m.statusLine = "retrying connection..."
		m.renderPanes()
		return m.retryCmd(), true
	case "pgup", "ctrl+b":
		m.timeline.LineUp(8)
		return nil, true
	case "pgdown", "ctrl+f":
		m.timeline.LineDown(8)
		return nil, true
	case "up":
		if strings.TrimSpace(m.input.Value()) == "" {
			m.timeline.LineUp(4)
			return nil, true
		}
	case "down":
		if strings.TrimSpace(m.input.Value()) == "" {
			m.timeline.LineDown(4)
			return nil, true
		}
	case "home":
		m.timeline.GotoTop()
		return nil, true
	case "end":
		m.timeline.GotoBottom()
		return nil, true
	case "1", "2", "3", "4", "5", "6":
		if m.store.Len() == 0 && strings.TrimSpace(m.input.Value()) == "" {
			idx := int(msg.String()[0] - '1')
			if idx < len(suggestedQueries) {
				return m.submit(suggestedQueries[idx]), true
			}
		}
	}
	return nil, false
}

// submit hands the message to the controller. Submission is non-blocking:
// the simulator and the backend call run as controller tasks and come back
// through the phase/result channels.
func (m *model) submit(text string) tea.Cmd {
	if m.searching {
		m.statusLine = "still answering the previous question"
		return nil
	}
	id, err := m.controller.Submit(context.Background(), text)
	if err != nil {
		m.errorText = userFacingError(err)
		m.statusLine = "send rejected"
		m.renderPanes()
		return nil
	}
	m.currentQuery = id
	m.searching = true
	m.errorText = ""
	m.statusLine = "searching..."
	m.renderPanes()
	m.timeline.GotoBottom()
	return nil
}

func (m *model) switchTab(next tabID, cmds *[]tea.Cmd) {
	m.activeTab = next
	if next == tabChat {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if next == tabAnalytics {
		if _, ok := m.cache.Detailed(); !ok && !m.detailedBusy {
			m.detailedBusy = true
			m.statusLine = "loading analytics..."
			*cmds = append(*cmds, m.detailedStatsCmd())
		}
	}
	m.renderPanes()
}

func userFacingError(err error) string {
	if errors.Is(err, phase.ErrOffline) {
		return "API is offline. Please start the backend server."
	}
	return compactSingleLine(err.Error(), 200)
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-6)
	contentHeight := maxInt(6, m.height-m.chromeHeight())
	m.timeline.Width = contentWidth
	m.timeline.Height = contentHeight
	m.analytics.Width = contentWidth
	m.analytics.Height = maxInt(6, m.height-9)
	m.input.Width = maxInt(20, m.width-12)
}

// chromeHeight is everything above and below the timeline on the chat tab:
// header, stats bar, pipeline panel when visible, input, footer.
func (m *model) chromeHeight() int {
	h := 10
	if m.pipelineVisible() {
		h += 9
	}
	return h
}

func (m *model) pipelineVisible() bool {
	return m.searching || m.currentPhase != phase.Idle || m.store.LastResponse() != nil
}

func (m *model) renderPanes() {
	m.resize()
	m.timeline.SetContent(m.renderTimelineContent())
	m.analytics.SetContent(m.renderAnalyticsContent())
}

func (m model) View() string {
	header := m.renderHeader()
	var body string
	switch m.activeTab {
	case tabChat:
		body = m.renderChat()
	case tabAnalytics:
		body = m.renderAnalytics()
	default:
		body = m.renderHelp()
	}
	footer := m.renderFooter()
	return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))
}

func (m model) renderHeader() string {
	tabs := []struct {
		id    tabID
		label string
	}{
		{tabChat, "Chat"},
		{tabAnalytics, "Analytics"},
		{tabHelp, "Help"},
	}
	segments := make([]string, 0, len(tabs)+2)
	segments = append(segments, m.theme.panelTitle.Render("Movie RAG Chat"))
	for _, tab := range tabs {
		style := m.theme.tabInactive
		if tab.id == m.activeTab {
			style = m.theme.tabActive
		}
		segments = append(segments, style.Render(tab.label))
	}
	segments = append(segments, m.renderAPIStatus())
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

func (m model) renderAPIStatus() string {
	switch m.apiState {
	case connectivity.Online:
		return m.theme.dotOnline.Render("● online")
	case connectivity.Offline:
		return m.theme.dotOffline.Render("● offline") + m.theme.helpText.Render("  ctrl+r retry")
	default:
		return m.theme.dotChecking.Render("● connecting...")
	}
}

func (m model) renderStatsBar() string {
	stats, ok := m.cache.Summary()
	if !ok {
		return ""
	}
	v := m.theme.statsValue.Render
	mu := m.theme.statsBar.Render
	parts := []string{
		v(groupDigits(stats.TotalMovies)) + mu(" movies"),
		v(fmt.Sprintf("%d—%d", stats.EarliestYear, stats.LatestYear)),
		v(strconv.Itoa(stats.UniqueGenres)) + mu(" genres"),
		v(strconv.Itoa(stats.UniqueDirectors)) + mu(" directors"),
		v(strconv.Itoa(stats.UniqueActors)) + mu(" actors"),
		v(strconv.Itoa(stats.UniqueReviewers)) + mu(" reviewers"),
		v(fmt.Sprintf("%.1f", stats.AvgRating)) + mu(" avg"),
	}
	return m.theme.statsBar.Render(strings.Join(parts, mu("  ·  ")))
}

func (m model) renderChat() string {
	sections := []string{}
	if bar := m.renderStatsBar(); bar != "" {
		sections = append(sections, bar)
	}
	if m.pipelineVisible() {
		sections = append(sections, m.renderPipeline())
	}
	timelinePanel := m.theme.panel.
		Width(maxInt(40, m.width-4)).
		Render(m.timeline.View())
	sections = append(sections, timelinePanel)
	if m.errorText != "" {
		sections = append(sections, m.theme.errorStatus.Render("✗ "+m.errorText))
	}
	placeholder := "Ask about movies..."
	if m.apiState == connectivity.Offline {
		placeholder = "API offline - start the backend server"
	}
	m.input.Placeholder = placeholder
	sections = append(sections, m.theme.inputPanel.Width(maxInt(40, m.width-4)).Render(m.input.View()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) renderPipeline() string {
	resp := m.store.LastResponse()
	cardWidth := maxInt(18, minInt(42, (m.width-16)/4))
	cards := make([]string, 0, 4)
	for _, step := range pipelineSteps() {
		status := m.currentPhase.StatusOf(step.phase)
		var title, detail string
		switch status {
		case phase.StepActive:
			title = m.theme.stepActive[step.color].Render(m.spinner.View() + " " + step.label)
			detail = m.theme.helpText.Render(step.description)
		case phase.StepComplete:
			title = m.theme.stepDone[step.color].Render("✓ " + step.label)
			detail = m.theme.stepDone[step.color].Render(stepResult(step.phase, resp))
		default:
			title = m.theme.stepPending.Render("· " + step.label)
			detail = ""
		}
		card := title
		if detail != "" {
			card += "\n" + wrapText(detail, cardWidth-2)
		}
		cards = append(cards, lipgloss.NewStyle().Width(cardWidth).Render(card))
	}
	body := m.theme.panelTitle.Render("Search Pipeline") + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	if m.currentPhase == phase.Complete && resp != nil {
		body += "\n" + m.renderSourcesLine(resp)
		if resp.TokenUsage != nil {
			body += "\n" + m.renderTokenLine(*resp.TokenUsage)
		}
	}
	return m.theme.panel.Width(maxInt(40, m.width-4)).Render(body)
}

func (m model) renderSourcesLine(resp *ragclient.ChatResponse) string {
	parts := []string{}
	if resp.Sources.VectorMatches > 0 {
		parts = append(parts, m.theme.badgeVector.Render(fmt.Sprintf("pgvector %d matches", resp.Sources.VectorMatches)))
	}
	if resp.Sources.SQLMatches > 0 {
		parts = append(parts, m.theme.badgeSQL.Render(fmt.Sprintf("PostgreSQL %d results", resp.Sources.SQLMatches)))
	}
	if resp.Sources.UsedStatistics {
		parts = append(parts, m.theme.badgeStats.Render("stats aggregated"))
	}
	if resp.Sources.RedisCacheHit != nil && *resp.Sources.RedisCacheHit {
		parts = append(parts, m.theme.badgeStats.Render("redis cache hit"))
	}
	if len(parts) == 0 {
		return ""
	}
	return m.theme.helpText.Render("Sources: ") + strings.Join(parts, m.theme.helpText.Render("  |  "))
}

func (m model) renderTokenLine(usage ragclient.QueryTokenUsage) string {
	return m.theme.helpText.Render(fmt.Sprintf(
		"Tokens: intent %d/%d · response %d/%d · total %s (%s)",
		usage.IntentAnalysis.PromptTokens,
		usage.IntentAnalysis.CompletionTokens,
		usage.ResponseGeneration.PromptTokens,
		usage.ResponseGeneration.CompletionTokens,
		groupDigits(usage.Total.TotalTokens),
		tokenCostEstimate(usage),
	))
}

func (m model) renderTimelineContent() string {
	entries := m.store.Entries()
	width := maxInt(30, m.timeline.Width-2)
	if len(entries) == 0 {
		return m.renderEmptyState(width)
	}
	blocks := make([]string, 0, len(entries)+1)
	for _, entry := range entries {
		blocks = append(blocks, m.renderEntry(entry, width))
	}
	if m.searching {
		blocks = append(blocks, m.botName()+" "+m.spinner.View()+m.theme.helpText.Render(" thinking..."))
	}
	return strings.Join(blocks, "\n\n")
}

func (m model) botName() string {
	return m.theme.botName.Render("movie-rag")
}

func (m model) renderEntry(entry conversation.Entry, width int) string {
	name := m.botName()
	if entry.Role == ragclient.RoleUser {
		name = m.theme.userName.Render("you")
	}
	body := wrapText(truncate(entry.Content, timelineMaxChars), width)
	block := name + "\n" + body
	if entry.Role == ragclient.RoleAssistant {
		badges := []string{}
		if entry.Sources != nil {
			if entry.Sources.VectorMatches > 0 {
				badges = append(badges, m.theme.badgeVector.Render(fmt.Sprintf("[%d semantic]", entry.Sources.VectorMatches)))
			}
			if entry.Sources.SQLMatches > 0 {
				badges = append(badges, m.theme.badgeSQL.Render(fmt.Sprintf("[%d structured]", entry.Sources.SQLMatches)))
			}
			if entry.Sources.UsedStatistics {
				badges = append(badges, m.theme.badgeStats.Render("[stats]"))
			}
		}
		if strings.TrimSpace(entry.Intent) != "" {
			badges = append(badges, m.theme.badge.Render("["+entry.Intent+"]"))
		}
		if len(badges) > 0 {
			block += "\n" + strings.Join(badges, " ")
		}
	}
	return block
}

func (m model) renderEmptyState(width int) string {
	lines := []string{
		m.theme.panelTitle.Render("Ask me about movies!"),
		wrapText("I search the movie database with semantic similarity and structured queries. "+
			"Try asking about plots, directors, genres, or specific films.", width),
		"",
		m.theme.helpText.Render("Try asking (press the number):"),
	}
	for i, query := range suggestedQueries {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, query))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderAnalytics() string {
	title := m.theme.panelTitle.Render("Database Analytics")
	status := ""
	if m.detailedBusy {
		status = "  " + m.spinner.View() + m.theme.helpText.Render(" loading...")
	} else if m.detailedError != "" {
		status = "  " + m.theme.errorStatus.Render("refresh failed: "+m.detailedError) +
			m.theme.helpText.Render("  (r to retry)")
	} else if !m.cache.LastUpdated().IsZero() {
		status = "  " + m.theme.helpText.Render("updated "+m.cache.LastUpdated().Format("15:04:05"))
	}
	panel := m.theme.panel.Width(maxInt(40, m.width-4)).Render(m.analytics.View())
	return lipgloss.JoinVertical(lipgloss.Left, title+status, panel)
}

func (m model) renderAnalyticsContent() string {
	stats, ok := m.cache.Detailed()
	if !ok {
		if m.detailedError != "" {
			return "No analytics data. Press r to retry."
		}
		return "Loading database statistics..."
	}
	t := m.theme
	section := func(name string) string { return t.panelTitle.Render(name) }
	kv := func(k string, v any) string {
		return fmt.Sprintf("  %-28s %v", k, v)
	}

	lines := []string{
		section("Movies"),
		kv("total", groupDigits(stats.Movies.TotalMovies)),
		kv("rating avg/min/max", fmt.Sprintf("%.2f / %.1f / %.1f", stats.Movies.AvgRating, stats.Movies.MinRating, stats.Movies.MaxRating)),
		kv("rating stddev", fmt.Sprintf("%.2f", stats.Movies.RatingStddev)),
		kv("years", fmt.Sprintf("%d—%d", stats.Movies.EarliestYear, stats.Movies.LatestYear)),
		kv("directors / genres", fmt.Sprintf("%d / %d", stats.Movies.UniqueDirectors, stats.Movies.UniqueGenres)),
		kv("runtime avg (min)", fmt.Sprintf("%.0f", stats.Movies.AvgRuntime)),
		"",
		section("Reviews"),
		kv("total", groupDigits(stats.Reviews.TotalReviews)),
		kv("avg rating", fmt.Sprintf("%.2f", stats.Reviews.AvgReviewRating)),
		kv("reviewers", stats.Reviews.UniqueReviewers),
		kv("movies with reviews", stats.Reviews.MoviesWithReviews),
		"",
		section("Vector Coverage"),
		kv("movie embeddings", fmt.Sprintf("%d/%d (%.1f%%)", stats.VectorDB.MoviesWithEmbeddings, stats.VectorDB.TotalMovies, stats.VectorDB.EmbeddingCoveragePct)),
		kv("review embeddings", fmt.Sprintf("%d/%d (%.1f%%)", stats.ReviewVectorDB.ReviewsWithEmbeddings, stats.ReviewVectorDB.TotalReviews, stats.ReviewVectorDB.EmbeddingCoveragePct)),
		kv("model", stats.VectorConfig.EmbeddingModel),
		kv("dimensions", stats.VectorConfig.EmbeddingDimensions),
		kv("distance / index", stats.VectorConfig.DistanceMetric+" / "+stats.VectorConfig.IndexType),
	}

	if len(stats.GenreDistribution) > 0 {
		lines = append(lines, "", section("Genres"))
		for _, g := range stats.GenreDistribution {
			lines = append(lines, kv(truncate(g.Genre, 26), g.Count))
		}
	}
	if len(stats.TopDirectors) > 0 {
		lines = append(lines, "", section("Top Directors"))
		for _, d := range stats.TopDirectors {
			lines = append(lines, kv(truncate(d.Director, 26), fmt.Sprintf("%d films · %.1f avg", d.MovieCount, d.AvgRating)))
		}
	}
	if len(stats.DecadeDistribution) > 0 {
		lines = append(lines, "", section("Decades"))
		for _, d := range stats.DecadeDistribution {
			lines = append(lines, kv(fmt.Sprintf("%ds", d.Decade), fmt.Sprintf("%d films · %.1f avg", d.Count, d.AvgRating)))
		}
	}
	if len(stats.RatingDistribution) > 0 {
		lines = append(lines, "", section("Ratings"))
		for _, r := range stats.RatingDistribution {
			lines = append(lines, kv(r.RatingBucket, r.Count))
		}
	}
	if len(stats.RuntimeDistribution) > 0 {
		lines = append(lines, "", section("Runtimes"))
		for _, r := range stats.RuntimeDistribution {
			lines = append(lines, kv(r.RuntimeCategory, r.Count))
		}
	}

	lines = append(lines, "", section("Storage"),
		kv("movies table", stats.Storage.MoviesTableSize),
		kv("reviews table", stats.Storage.ReviewsTableSize),
		kv("total", stats.Storage.TotalSize),
	)
	if len(stats.Indexes) > 0 {
		lines = append(lines, "", section("Indexes"))
		for _, idx := range stats.Indexes {
			lines = append(lines, kv(truncate(idx.IndexName, 26), idx.Size))
		}
	}
	if rc := stats.RedisCache; rc != nil {
		lines = append(lines, "", section("Cache Server"), kv("status", rc.Status))
		if rc.CacheStats != nil {
			lines = append(lines, kv("hit rate", fmt.Sprintf("%.1f%% (%d/%d)", rc.CacheStats.HitRatePercent, rc.CacheStats.Hits, rc.CacheStats.TotalRequests)))
		}
		if rc.Memory != nil {
			lines = append(lines, kv("memory", rc.Memory.UsedMemory+" (peak "+rc.Memory.UsedMemoryPeak+")"))
		}
		if rc.Server != nil {
			lines = append(lines, kv("version", rc.Server.Version))
		}
	}

	return strings.Join(lines, "\n")
}

func (m model) renderHelp() string {
	t := m.theme
	lines := []string{
		t.panelTitle.Render("How this works"),
		"",
		"Your question goes to a retrieval-augmented backend that combines",
		"semantic vector search (pgvector) with structured SQL queries over a",
		"movie database, then generates an answer from the assembled context.",
		"",
		"The pipeline panel animates the stages while the backend works; the",
		"final stage only completes when the real answer has arrived.",
		"",
		t.panelTitle.Render("Keys"),
		"  enter        send question",
		"  1-6          send a suggested question (empty conversation)",
		"  ctrl+l       clear conversation",
		"  ctrl+r       retry connection (when offline)",
		"  tab          switch tab",
		"  r            refresh analytics (analytics tab)",
		"  pgup/pgdown  scroll",
		"  esc          quit",
	}
	return m.theme.panel.Width(maxInt(40, m.width-4)).Render(strings.Join(lines, "\n"))
}

func (m model) renderFooter() string {
	status := m.theme.status.Render(m.statusLine)
	if m.quitConfirm {
		status = m.theme.errorStatus.Render("quit? y to confirm, n to cancel")
	}
	hints := m.theme.helpText.Render("enter send · ctrl+l clear · tab views · esc quit")
	gap := maxInt(1, m.width-6-lipgloss.Width(status)-lipgloss.Width(hints))
	return m.theme.footer.Width(maxInt(20, m.width-4)).Render(status + strings.Repeat(" ", gap) + hints)
}

func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			wrapped = append(wrapped, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if len(current)+1+len(word) <= width {
				current += " " + word
				continue
			}
			wrapped = append(wrapped, current)
			current = word
		}
		wrapped = append(wrapped, current)
	}
	return strings.Join(wrapped, "\n")
}

func truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(text) <= limit {
		return text
	}
	if limit <= 3 {
		return text[:limit]
	}
	return text[:limit-3] + "..."
}

func compactSingleLine(text string, limit int) string {
	compact := strings.Join(strings.Fields(text), " ")
	return truncate(compact, limit)
}

// groupDigits renders n with thousands separators.
func groupDigits(n int) string {
	raw := strconv.Itoa(n)
	neg := strings.HasPrefix(raw, "-")
	digits := strings.TrimPrefix(raw, "-")
	if len(digits) <= 3 {
		return raw
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func main() {
	cfg := parseFlags()
	logger := logging.New(cfg.logFile, cfg.debug)
	defer logger.Sync()
	logger.Info("starting moviechat-tui", zap.String("api_base", cfg.apiBase))

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(cfg, logger), opts...)
	if _, err := p.Run(); err != nil {
		logger.Error("fatal", zap.Error(err))
		fmt.Fprintf(os.Stderr, "moviechat-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}
