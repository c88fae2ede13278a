package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/desertthunder/tubeport/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	MigrateView
	ResultView
)

// recentLimit is how many processed items stay visible under the progress bar.
const recentLimit = 8

// Model represents the TUI application state for a single migration run.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	engine tasks.Engine
	opts   tasks.MigrationOpts
	view   ViewState

	width  int
	height int

	spinner   spinner.Model
	bar       progress.Model
	unmatched list.Model
	help      help.Model
	keys      keyMap

	progressChan chan tasks.ProgressUpdate
	doneChan     chan migrationDoneMsg
	progress     tasks.ProgressUpdate
	recent       []models.ProcessedItem
	cancelling   bool

	result *tasks.MigrationResult
	err    error
}

// NewModel creates a TUI model that runs engine with opts. When confirm is false the run starts immediately.
func NewModel(ctx context.Context, engine tasks.Engine, opts tasks.MigrationOpts, confirm bool) *Model {
	ctx, cancel := context.WithCancel(ctx)
	view := MigrateView
	if confirm {
		view = ConfirmView
	}
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		engine:  engine,
		opts:    opts,
		view:    view,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the outcome of the run once the program has exited.
// The result is nil when the run never started or failed before processing entries.
func (m *Model) Result() (*tasks.MigrationResult, error) {
	return m.result, m.err
}

// Init starts the spinner and, without a confirmation step, the run.
func (m *Model) Init() tea.Cmd {
	if m.view == MigrateView {
		return tea.Batch(m.spinner.Tick, m.startMigration())
	}
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 8; w > 10 {
			m.bar.Width = min(w, 80)
		}
		if m.view == ResultView {
			m.unmatched.SetSize(msg.Width-4, m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case MigrateView:
			return m.handleMigrateKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		update := tasks.ProgressUpdate(msg)
		m.progress = update
		if item, ok := update.Data.(models.ProcessedItem); ok {
			m.recent = append(m.recent, item)
			if len(m.recent) > recentLimit {
				m.recent = m.recent[len(m.recent)-recentLimit:]
			}
		}
		return m, m.waitForProgress()

	case migrationDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil
		var items []list.Item
		if msg.result != nil {
			items = unmatchedItems(msg.result.Items)
		}
		m.unmatched = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 0), m.listHeight())
		m.unmatched.Title = "Not migrated"
		m.unmatched.SetShowHelp(false)
		return m, nil
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.unmatched, cmd = m.unmatched.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.start):
		m.view = MigrateView
		return m, m.startMigration()
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleMigrateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && !m.cancelling {
		m.cancelling = true
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && m.unmatched.FilterState() != list.Filtering {
		m.cancel()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.unmatched, cmd = m.unmatched.Update(msg)
	return m, cmd
}

// startMigration runs the engine in the background. Progress flows through progressChan, which is
// closed when the engine returns; the outcome follows on doneChan.
func (m *Model) startMigration() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.doneChan = make(chan migrationDoneMsg, 1)

	progressChan, doneChan := m.progressChan, m.doneChan
	go func() {
		result, err := m.engine.Run(m.ctx, progressChan, m.opts)
		close(progressChan)
		doneChan <- migrationDoneMsg{result: result, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}
		update, ok := <-progressChan
		if !ok {
			return <-doneChan
		}
		return progressMsg(update)
	}
}

func (m *Model) listHeight() int {
	return max(m.height-14, 5)
}

func (m *Model) percent() float64 {
	if m.progress.Phase != tasks.ResolveEntries || m.progress.Total == 0 {
		if m.progress.Phase > tasks.ResolveEntries {
			return 1
		}
		return 0
	}
	return float64(m.progress.Step) / float64(m.progress.Total)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Migrate YouTube playlist to Spotify?")

	var b strings.Builder
	fmt.Fprintf(&b, "Source:     %s\n", m.opts.Source)
	fmt.Fprintf(&b, "Playlist:   %s (%s)\n", m.opts.Name, shared.VisibilityString(m.opts.Public))
	if m.opts.Threshold != nil {
		fmt.Fprintf(&b, "Threshold:  %.2f\n", *m.opts.Threshold)
	}
	if m.opts.DryRun {
		b.WriteString(styles.warn.Render("Dry run: no playlist will be created") + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.start, m.keys.back})
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderMigrate() string {
	title := styles.title.Render("Migrating Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching YouTube playlist..."
	case tasks.ResolveEntries:
		phase = fmt.Sprintf("Matching entries (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating Spotify playlist..."
	case tasks.AddItems:
		phase = "Adding tracks..."
	default:
		phase = "Finishing..."
	}
	if m.cancelling {
		phase = styles.warn.Render("Cancelling, waiting for the current entry...")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s %s\n%s\n\n", title, m.spinner.View(), phase, m.bar.ViewAs(m.percent()))
	for _, item := range m.recent {
		b.WriteString(renderItem(item) + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})
	return b.String() + "\n" + helpView
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit})

	if m.result == nil {
		msg := "Migration failed"
		if m.err != nil {
			msg = fmt.Sprintf("Migration failed: %v", m.err)
		}
		return styles.err.Render(msg) + "\n\n" + helpView
	}

	stats := m.result.Stats
	var title string
	switch {
	case m.result.Cancelled:
		title = styles.warn.Render("Migration cancelled")
	case m.result.CommitErr != nil:
		title = styles.err.Render(fmt.Sprintf("Could not write playlist: %v", m.result.CommitErr))
	case m.result.DryRun:
		title = styles.ok.Render("✓ Dry run complete")
	case m.result.Playlist == nil:
		title = styles.warn.Render("No tracks matched, playlist not created")
	default:
		title = styles.ok.Render(fmt.Sprintf("✓ Created %q with %d tracks", m.result.Playlist.Name, len(m.result.CommitSet)))
	}

	info := fmt.Sprintf(
		"Processed: %d   Accepted: %d   Unresolved: %d (%d low confidence)   Failed: %d\nSuccess rate: %.1f%%   Time: %s",
		stats.Total, stats.Accepted, stats.Unresolved, stats.LowConfidence, stats.Failed,
		stats.SuccessRate(), shared.FormatDuration(stats.Duration()),
	)

	body := styles.muted.Render("Every entry was migrated.")
	if len(m.unmatched.Items()) > 0 {
		body = m.unmatched.View()
	}

	if m.err != nil && !errors.Is(m.err, shared.ErrCancelled) && m.result.CommitErr == nil {
		info += "\n" + styles.err.Render(m.err.Error())
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, info, body, helpView)
}

func renderItem(item models.ProcessedItem) string {
	if item.Accepted() {
		return styles.ok.Render(fmt.Sprintf("✓ %s → %s - %s (%.2f)",
			item.Entry.Label, item.Result.MatchedArtist, item.Result.MatchedTitle, item.Confidence()))
	}
	line := fmt.Sprintf("✗ %s: %s", item.Entry.Label, item.FailureReason)
	if item.Status == models.StatusFailed {
		return styles.err.Render(line)
	}
	return styles.warn.Render(line)
}
