package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/docchat/internal/conversation"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Conversation *conversation.Controller
	Documents    DocumentService
	Logger       *zap.Logger
}

// New returns a tea.Model ready to be mounted into a Program. Without a scope the
// document picker opens first.
func New(config Config) tea.Model {
	if config.Conversation == nil {
		config.Conversation = conversation.New(conversation.Options{Logger: config.Logger})
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	composer := textinput.New()
	composer.Prompt = "› "
	composer.Placeholder = composerPlaceholder
	composer.CharLimit = 500
	composer.Width = 70
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:        config,
		logger:        logger.Named("tui"),
		stage:         stageChat,
		layout:        newPageLayout(),
		composer:      composer,
		spinner:       spin,
		viewport:      vp,
		jobs:          newJobBus(context.Background(), logger),
		activeJobs:    map[string]jobSnapshot{},
		viewportDirty: true,
		infoMessage:   "Type a question and press Enter.",
	}
	if strings.TrimSpace(config.Conversation.Scope()) == "" {
		m.stage = stagePicker
		m.composer.Placeholder = composerNoScopePlaceholder
		m.composer.Blur()
		m.infoMessage = "Pick a document to chat with."
	}
	return m
}

type model struct {
	config Config
	logger *zap.Logger
	stage  stage
	layout pageLayout

	composer textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	jobs       *jobBus
	activeJobs map[string]jobSnapshot
	lastJob    jobSnapshot

	picker documentPicker

	viewportDirty   bool
	renderedEntries int
	infoMessage     string
	helpVisible     bool
}

func (m *model) Init() tea.Cmd {
	if m.stage == stagePicker {
		return tea.Batch(textinput.Blink, m.loadDocumentsCmd())
	}
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.working() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case jobSignalMsg:
		m.activeJobs[msg.Snapshot.ID] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		delete(m.activeJobs, msg.Snapshot.ID)
		m.lastJob = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case queryResultMsg:
		m.handleQueryResult(msg)
		return m, nil
	case documentsResultMsg:
		m.handleDocumentsResult(msg)
		return m, nil
	case deleteResultMsg:
		m.handleDeleteResult(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.composer.Width = m.layout.composerWidth
		m.markViewportDirty()
		return m, nil
	case tea.MouseMsg:
		if m.stage == stageChat {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.config.Conversation.Close()
			return m, tea.Quit
		}
		if m.stage == stagePicker {
			return m.handlePickerKey(msg)
		}
		return m.handleChatKey(msg)
	}
	return m, nil
}

func (m *model) handleChatKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEnter:
		return m, m.submitComposer()
	case tea.KeyEsc:
		m.composer.SetValue("")
		m.config.Conversation.SetInput("")
		m.infoMessage = "Composer cleared."
		return m, nil
	case tea.KeyCtrlO:
		return m, m.openPicker()
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
	if key.String() == "?" && m.composer.Value() == "" {
		m.toggleHelp()
		return m, nil
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	m.config.Conversation.SetInput(m.composer.Value())
	return m, cmd
}

// submitComposer starts a query for the composer text. Enter is refused while an answer
// is pending; the controller itself accepts overlapping requests.
func (m *model) submitComposer() tea.Cmd {
	ctrl := m.config.Conversation
	if ctrl.Busy() {
		m.infoMessage = "Still waiting on the previous answer…"
		return nil
	}
	text := m.composer.Value()
	if strings.TrimSpace(text) == "" {
		m.infoMessage = "Type a question first."
		return nil
	}
	req := ctrl.Begin(text)
	m.composer.SetValue("")
	m.markViewportDirty()
	if req == nil {
		if ctrl.LastError() != "" {
			m.infoMessage = "Press Ctrl+O to pick a document."
		}
		return nil
	}
	m.logger.Debug("query submitted", zap.String("scope", req.Scope()), zap.String("entry", req.UserEntryID()))
	m.infoMessage = fmt.Sprintf("Searching %s…", req.Scope())
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindQuery, queryJob(req)))
}

func (m *model) handleQueryResult(msg queryResultMsg) {
	ctrl := m.config.Conversation
	before := ctrl.Len()
	ctrl.Resolve(msg.outcome)
	if ctrl.Len() == before {
		// Dropped: the conversation moved to another document while the call ran.
		return
	}
	switch {
	case ctrl.LastError() != "":
		m.infoMessage = "Query failed. Edit the question and press Enter to retry."
	case len(msg.outcome.Records) == 1:
		m.infoMessage = "1 passage found."
	default:
		m.infoMessage = fmt.Sprintf("%d passages found.", len(msg.outcome.Records))
	}
	m.markViewportDirty()
}

func (m *model) toggleHelp() {
	m.helpVisible = !m.helpVisible
	if m.helpVisible {
		m.infoMessage = "Cheatsheet open. Press ? to hide."
	} else {
		m.infoMessage = "Cheatsheet hidden."
	}
}

func (m *model) working() bool {
	return m.config.Conversation.Busy() || m.picker.loading || m.picker.deleting != ""
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if m.viewportDirty {
		m.refreshViewport()
	}
}

// refreshViewport re-renders the transcript and follows the tail whenever entries were
// appended since the last render.
func (m *model) refreshViewport() {
	m.viewportDirty = false
	state := m.config.Conversation.Snapshot()
	m.viewport.SetContent(m.buildTranscriptContent(state))
	if len(state.Entries) != m.renderedEntries {
		m.viewport.GotoBottom()
	}
	m.renderedEntries = len(state.Entries)
}
