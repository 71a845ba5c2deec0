package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quill/internal/editor"
	"github.com/five82/quill/internal/session"
	"github.com/five82/quill/internal/state"
	"github.com/five82/quill/internal/wp"
)

// View represents the current active view.
type View int

const (
	ViewPosts View = iota
	ViewLogs
)

// ThemeKey is the storage key holding the chosen theme name.
const ThemeKey = "theme"

// Sync is the post list synchronizer as the UI drives it.
type Sync interface {
	Bootstrap(ctx context.Context) error
	Refresh(ctx context.Context) (state.ViewState, error)
	DeletePost(ctx context.Context, id int, confirm func(id int) bool) error
}

// PostEditor loads and saves one post.
type PostEditor interface {
	Preload(ctx context.Context, postID int) (editor.Preloaded, error)
	Submit(ctx context.Context, mode editor.Mode, postID int, form editor.Form, hooks editor.Hooks) (*wp.Post, error)
}

// CategoryLister supplies the editor's category choices.
type CategoryLister interface {
	List() []wp.Category
}

// ClaimsSource exposes the current token's claims for the header.
type ClaimsSource interface {
	Claims() (session.Claims, bool)
}

// ThemeSaver persists the chosen theme.
type ThemeSaver interface {
	Set(key, value string) error
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Sync       Sync
	Editor     PostEditor
	Categories CategoryLister
	Claims     ClaimsSource
	Store      *state.Store
	Prefs      ThemeSaver
	Logger     *slog.Logger

	ThemeName      string
	SiteURL        string
	Username       string
	PlaceholderURL string
	DateLocale     string
	LogPath        string
	PollTick       time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx            context.Context
	sync           Sync
	editor         PostEditor
	categories     CategoryLister
	claims         ClaimsSource
	store          *state.Store
	prefs          ThemeSaver
	logger         *slog.Logger
	siteURL        string
	username       string
	placeholderURL string
	dateLocale     string
	logPath        string
	pollTick       time.Duration
	keys           keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	focusedPane int // 0 = table, 1 = detail
	errorMsg    string

	// Data state
	snapshot state.Snapshot
	syncing  bool

	// Posts state
	selectedRow    int
	detailPostID   int
	detailViewport viewport.Model

	// Log state
	logViewport viewport.Model
	logState    logState

	// Overlays
	showHelp bool
	modals   []Modal
	gen      int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = defaultThemeName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := Model{
		ctx:            ctx,
		sync:           opts.Sync,
		editor:         opts.Editor,
		categories:     opts.Categories,
		claims:         opts.Claims,
		store:          opts.Store,
		prefs:          opts.Prefs,
		logger:         logger,
		siteURL:        opts.SiteURL,
		username:       opts.Username,
		placeholderURL: opts.PlaceholderURL,
		dateLocale:     opts.DateLocale,
		logPath:        opts.LogPath,
		pollTick:       pollTick,
		keys:           DefaultKeyMap(),
		theme:          GetTheme(themeName),
		currentView:    ViewPosts,
	}
	m.initLogState()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	}
	if m.sync != nil {
		cmds = append(cmds, startupCmd(m.ctx, m.sync))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Results addressed to a modal go to that modal or nowhere.
	if gm, ok := msg.(genMsg); ok {
		i := m.modalIndex(gm.generation())
		if i < 0 {
			return m, nil
		}
		return m.updateModal(i, msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initDetailViewport()
			m.initLogViewport()
		}
		m.ready = true
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		if msg.authErr != nil {
			m.errorMsg = "sign-in failed: " + wp.UserMessage(msg.authErr)
		} else if msg.err == nil {
			m.errorMsg = ""
		}
		return m, fetchSnapshotCmd(m.store)

	case viewChangedMsg:
		return m, fetchSnapshotCmd(m.store)

	case alertMsg:
		m.pushModal(newAlertModal(newModalBase(m.ctx, m.nextGen()), msg.title, msg.text))
		return m, nil

	case logLoadedMsg:
		m.handleLogLoaded(msg)
		return m, nil
	}

	// Anything else (cursor blink and the like) belongs to the top modal.
	if n := len(m.modals); n > 0 {
		return m.updateModal(n-1, msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if n := len(m.modals); n > 0 {
		return m.modals[n-1].View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Only the top modal sees keys.
	if n := len(m.modals); n > 0 {
		return m.updateModal(n-1, msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// Log search owns the keyboard while typing.
	if m.currentView == ViewLogs && m.logState.searchActive {
		return m.handleLogsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefs != nil {
			if err := m.prefs.Set(ThemeKey, m.theme.Name); err != nil {
				m.logger.Warn("theme not saved", "error", err)
			}
		}
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m.startRefresh()

	case key.Matches(msg, m.keys.ViewPosts):
		m.currentView = ViewPosts
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewPosts {
			m.focusedPane = 1 - m.focusedPane
			m.updateDetailViewport()
		}
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		if key.Matches(msg, m.keys.Escape) {
			m.focusedPane = 0
			m.errorMsg = ""
			m.updateDetailViewport()
			return m, nil
		}
		return m.handlePostsKey(msg)
	}
}

// handleTick processes the UI tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow && len(m.modals) == 0 {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// applySnapshot takes a store snapshot, keeping the cursor on the same post
// when it still exists.
func (m *Model) applySnapshot(snap state.Snapshot) {
	selectedID := m.detailPostID
	m.snapshot = snap
	if selectedID != 0 {
		for i, p := range snap.View.Posts {
			if p.ID == selectedID {
				m.selectedRow = i
				break
			}
		}
	}
	m.clampSelection()
	m.updateDetailViewport()
}

// startRefresh runs a manual refresh unless one is already running.
func (m Model) startRefresh() (tea.Model, tea.Cmd) {
	if m.sync == nil || m.syncing {
		return m, nil
	}
	m.syncing = true
	return m, refreshCmd(m.ctx, m.sync)
}

// openEditor opens the editor modal; postID 0 creates a new post.
func (m Model) openEditor(postID int) (tea.Model, tea.Cmd) {
	if m.editor == nil {
		return m, nil
	}
	mode := editor.ModeCreate
	if postID > 0 {
		mode = editor.ModeEdit
	}
	var cats []wp.Category
	if m.categories != nil {
		cats = m.categories.List()
	}
	refresh := func(ctx context.Context) error {
		if m.sync == nil {
			return nil
		}
		_, err := m.sync.Refresh(ctx)
		return err
	}
	modal := newEditorModal(newModalBase(m.ctx, m.nextGen()), mode, postID, m.editor, cats, refresh)
	m.pushModal(modal)
	return m, modal.start()
}

// openDelete opens the confirm modal and starts the delete, which waits on
// the modal's answer.
func (m Model) openDelete(post wp.Post) (tea.Model, tea.Cmd) {
	if m.sync == nil {
		return m, nil
	}
	modal := newConfirmDeleteModal(newModalBase(m.ctx, m.nextGen()), post)
	m.pushModal(modal)
	return m, modal.start(m.sync)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderPosts()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// syncDoneMsg reports a startup or manual refresh. authErr is only set by
// startup.
type syncDoneMsg struct {
	authErr error
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// startupCmd authenticates, then loads the list whether or not that worked:
// later calls use whatever token is stored.
func startupCmd(ctx context.Context, sync Sync) tea.Cmd {
	return func() tea.Msg {
		authErr := sync.Bootstrap(ctx)
		_, err := sync.Refresh(ctx)
		return syncDoneMsg{authErr: authErr, err: err}
	}
}

func refreshCmd(ctx context.Context, sync Sync) tea.Cmd {
	return func() tea.Msg {
		_, err := sync.Refresh(ctx)
		return syncDoneMsg{err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	m.syncing = opts.Sync != nil
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
