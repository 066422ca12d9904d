package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/diogo/streamchat/internal/chat"
	"github.com/diogo/streamchat/internal/config"
	apierrors "github.com/diogo/streamchat/internal/errors"
	"github.com/diogo/streamchat/internal/render"
)

// Message types for the TUI
type (
	animationTickMsg time.Time

	// exchangeStartedMsg carries the result of Controller.Start.
	exchangeStartedMsg struct {
		seq int
		ex  *chat.Exchange
		err error
	}

	// snapshotMsg is the session state after one pulled fragment.
	snapshotMsg struct {
		seq   int
		state chat.State
	}

	// exchangeDoneMsg ends the pull loop of an exchange.
	exchangeDoneMsg struct {
		seq int
		err error
	}
)

const helpText = "/clear · /model [id] · /system [text] · /persona [name] · /copy · /export <file> · /quit"

// Options configures the chat screen.
type Options struct {
	// APIURL is shown in the header.
	APIURL string
	Render render.Options
	Logger *zap.Logger
	// Clipboard writes text to the system clipboard. Defaults to atotto/clipboard.
	Clipboard func(string) error
	// Context bounds every exchange started from the screen.
	Context context.Context
}

// Model represents the TUI state
type Model struct {
	ctrl       *chat.Controller
	ctx        context.Context
	logger     *zap.Logger
	apiURL     string
	renderOpts render.Options
	copyText   func(string) error

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	snapshot       chat.State
	exchange       *chat.Exchange
	seq            int  // identifies the current exchange; bumped on send and clear
	sending        bool // Start issued, headers not yet received
	notice         string
	noticeIsErr    bool
	ready          bool
	animationFrame int

	// Dimensions
	width  int
	height int
}

// NewChatModel creates the chat screen for ctrl.
func NewChatModel(ctrl *chat.Controller, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Render.Style == "" {
		opts.Render = render.DefaultOptions()
	}

	return Model{
		ctrl:       ctrl,
		ctx:        opts.Context,
		logger:     opts.Logger,
		apiURL:     opts.APIURL,
		renderOpts: opts.Render,
		copyText:   opts.Clipboard,
		textarea:   ta,
		spinner:    s,
		snapshot:   ctrl.Snapshot(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 2
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "ctrl+l":
			cmd = m.clearSession()
			return m, cmd

		case "ctrl+o":
			next := config.NextModel(m.ctrl.Settings().Model)
			m.ctrl.SetModel(next)
			m.setNotice("Model set to "+next, false)
			return m, nil

		case "enter":
			if m.busy() {
				return m, nil
			}
			return m.submit()
		}

	case exchangeStartedMsg:
		if msg.seq != m.seq {
			if msg.ex != nil {
				msg.ex.Close()
			}
			return m, nil
		}
		m.sending = false
		if msg.err != nil {
			m.logger.Debug("exchange not started", zap.Error(msg.err))
			m.refresh()
			cmd = m.textarea.Focus()
			return m, cmd
		}
		m.exchange = msg.ex
		m.refresh()
		return m, pullNext(m.seq, msg.ex)

	case snapshotMsg:
		if msg.seq != m.seq || m.exchange == nil {
			return m, nil
		}
		m.snapshot = msg.state
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, pullNext(m.seq, m.exchange)

	case exchangeDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.exchange = nil
		m.sending = false
		if msg.err != nil && !errors.Is(msg.err, io.EOF) {
			m.logger.Debug("exchange ended with error", zap.Error(msg.err))
		}
		m.refresh()
		cmd = m.textarea.Focus()
		return m, cmd

	case spinner.TickMsg:
		if m.busy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.busy() {
			m.animationFrame++
			if m.sending {
				// the user turn and placeholder appear before headers arrive
				m.refresh()
			}
			cmds = append(cmds, animationTick())
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.busy() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// busy reports whether an exchange is running and input is disabled.
func (m Model) busy() bool {
	return m.sending || m.snapshot.InFlight
}

// submit handles Enter on the input: slash commands run locally, anything
// else starts an exchange.
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := m.textarea.Value()
	trimmed := strings.TrimSpace(input)

	switch trimmed {
	case "exit", "quit":
		return m, tea.Quit
	}
	if strings.HasPrefix(trimmed, "/") {
		return m.runCommand(trimmed)
	}

	m.notice = ""
	if err := chat.Validate(input); err != nil {
		// rejected locally; Start records the banner without a request
		_, _ = m.ctrl.Start(m.ctx, input)
		m.refresh()
		return m, nil
	}

	m.seq++
	m.sending = true
	m.animationFrame = 0
	m.textarea.Reset()
	m.textarea.Blur()

	return m, tea.Batch(
		startExchange(m.ctx, m.ctrl, m.seq, input),
		m.spinner.Tick,
		animationTick(),
	)
}

// runCommand executes a slash command.
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	m.textarea.Reset()
	m.logger.Debug("command", zap.String("name", name))

	switch strings.ToLower(name) {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/clear":
		cmd := m.clearSession()
		return m, cmd

	case "/model":
		if arg == "" {
			m.setNotice("Models: "+strings.Join(config.AvailableModels(), ", "), false)
			break
		}
		m.ctrl.SetModel(arg)
		m.setNotice("Model set to "+arg, false)

	case "/system":
		m.ctrl.SetSystemMessage(arg)
		if arg == "" {
			m.setNotice("System message reset to the default", false)
		} else {
			m.setNotice("System message updated", false)
		}

	case "/persona":
		set, err := config.LoadPersonas()
		if err != nil {
			m.setNotice(err.Error(), true)
			break
		}
		if arg == "" {
			m.setNotice("Personas: "+strings.Join(set.Names(), ", "), false)
			break
		}
		p, ok := set.Find(arg)
		if !ok {
			m.setNotice(fmt.Sprintf("Unknown persona %s", arg), true)
			break
		}
		m.ctrl.SetSystemMessage(p.SystemMessage)
		if p.Model != "" {
			m.ctrl.SetModel(p.Model)
		}
		m.setNotice("Persona set to "+p.Name, false)

	case "/copy":
		reply, ok := m.snapshot.LastAssistant()
		if !ok {
			m.setNotice("Nothing to copy yet", true)
			break
		}
		if err := m.copyText(reply); err != nil {
			m.setNotice(fmt.Sprintf("Copy failed: %v", err), true)
			break
		}
		m.setNotice("Copied last reply to clipboard", false)

	case "/export":
		if arg == "" {
			m.setNotice("Usage: /export <file.md|file.json>", true)
			break
		}
		if err := chat.WriteTranscript(arg, m.snapshot.Turns, m.ctrl.Settings()); err != nil {
			m.setNotice(err.Error(), true)
			break
		}
		m.setNotice(fmt.Sprintf("Transcript written to %s", arg), false)

	case "/help":
		m.setNotice(helpText, false)

	default:
		m.setNotice(fmt.Sprintf("Unknown command %s (try /help)", name), true)
	}

	return m, nil
}

// clearSession empties the transcript and drops any in-flight exchange.
func (m *Model) clearSession() tea.Cmd {
	m.ctrl.Clear()
	m.seq++
	m.exchange = nil
	m.sending = false
	m.notice = ""
	m.textarea.Reset()
	m.refresh()
	return m.textarea.Focus()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeIsErr = isErr
}

// refresh pulls a fresh snapshot from the controller and redraws the transcript.
func (m *Model) refresh() {
	m.snapshot = m.ctrl.Snapshot()
	m.updateViewport()
	m.viewport.GotoBottom()
}

func startExchange(ctx context.Context, ctrl *chat.Controller, seq int, text string) tea.Cmd {
	return func() tea.Msg {
		ex, err := ctrl.Start(ctx, text)
		return exchangeStartedMsg{seq: seq, ex: ex, err: err}
	}
}

// pullNext reads one fragment. Each snapshotMsg schedules the next pull, so
// the event loop stays responsive between fragments.
func pullNext(seq int, ex *chat.Exchange) tea.Cmd {
	return func() tea.Msg {
		state, err := ex.Next()
		if err != nil {
			return exchangeDoneMsg{seq: seq, err: err}
		}
		return snapshotMsg{seq: seq, state: state}
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	// header
	settings := m.ctrl.Settings()
	headerParts := []string{
		titleStyle.Render("✦ streamchat"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(settings.Model),
	}
	if settings.SystemMessage != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render("custom system message"),
		)
	}
	if m.apiURL != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			hintStyle.Render(m.apiURL),
		)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	// transcript
	var messagesContent string
	if len(m.snapshot.Turns) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	// input
	var inputContent string
	if m.busy() {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.notice != "" {
		style := noticeStyle
		if m.noticeIsErr {
			style = errorStyle
		}
		sections = append(sections, style.Render(m.notice))
	}

	// single error banner
	if m.snapshot.Err != nil && !apierrors.IsCancelled(m.snapshot.Err) {
		sections = append(sections, FormatError(m.snapshot.Err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("Welcome to streamchat")
	subtitle := welcomeStyle.Width(width).Render("Type a message below · /help lists commands")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		icon,
		"",
		title,
		"",
		subtitle,
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderLoadingAnimation() string {
	label := "Waiting for the assistant"
	if m.snapshot.Phase == chat.PhaseStreaming {
		label = "Assistant is typing"
	}

	numDots := (m.animationFrame / 3) % 4
	dots := strings.Repeat("●", numDots) + strings.Repeat("○", 3-numDots)

	return fmt.Sprintf("%s %s %s",
		m.spinner.View(),
		lipgloss.NewStyle().Foreground(colorText).Render(label),
		lipgloss.NewStyle().Foreground(colorAccent).Render(dots),
	)
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+L", "Clear"},
		{"Ctrl+O", "Model"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		))
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(items, "  │  "))
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content with styled turns
func (m *Model) updateViewport() {
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}
	opts := m.renderOpts.WithWidth(bubbleWidth - 4)

	turns := m.snapshot.Turns
	for i, t := range turns {
		if i > 0 {
			content.WriteString("\n")
		}

		if t.Role == chat.RoleUser {
			label := userLabelStyle.Render("⬤ You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(t.Content)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ Assistant")
			body := render.Reply(t.Content, opts)
			if t.Content == "" && m.snapshot.InFlight && i == len(turns)-1 {
				body = placeholderStyle.Render("...")
			}
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(body)
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// RunChat starts the chat TUI. Any exchange still running on exit is cancelled.
func RunChat(ctrl *chat.Controller, opts Options) error {
	m := NewChatModel(ctrl, opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	ctrl.Clear()
	return err
}
