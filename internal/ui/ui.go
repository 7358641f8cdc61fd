package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/store"
	"github.com/desertthunder/slidex/internal/tasks"
)

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	store  *store.Store
	width  int
	height int

	pageList list.Model
	project  *models.Project

	editing    bool
	editInput  textinput.Model
	editPageID string

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	statusLine   string

	err  error
	help help.Model
	keys keyMap
}

type projectRefreshedMsg struct {
	project *models.Project
	err     error
}

type progressUpdateMsg tasks.ProgressUpdate

type taskDoneMsg struct {
	out tasks.Outcome
}

type batchDoneMsg struct {
	result tasks.BatchResult
}

// NewModel creates a new TUI model. progressChan must be the channel the
// store was configured with; the model consumes it for status display.
func NewModel(ctx context.Context, s *store.Store, progressChan chan tasks.ProgressUpdate) *Model {
	input := textinput.New()
	input.Placeholder = "outline"
	input.CharLimit = 280

	pages := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	pages.Title = "Deck"
	pages.SetShowHelp(false)

	return &Model{
		ctx:          ctx,
		store:        s,
		progressChan: progressChan,
		pageList:     pages,
		editInput:    input,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init loads the deck and starts consuming progress updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pageList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKeys(msg)
		}
		return m.handleListKeys(msg)

	case projectRefreshedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setProject(msg.project)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		m.statusLine = m.progress.Message
		// Each tick may have changed the mirror; re-render from a fresh
		// snapshot without a remote round trip.
		m.setProject(m.store.Snapshot())
		return m, m.waitForProgress()

	case taskDoneMsg:
		if msg.out.Err != nil {
			m.statusLine = styles.err.Render(msg.out.Err.Error())
		} else if msg.out.Status != nil && msg.out.Status.ResultURL != "" {
			m.statusLine = styles.ok.Render("Export ready: " + msg.out.Status.ResultURL)
		} else {
			m.statusLine = styles.ok.Render(fmt.Sprintf("%s task finished", msg.out.Handle.Category))
		}
		m.setProject(m.store.Snapshot())
		return m, nil

	case batchDoneMsg:
		if msg.result.Outcome.Err != nil {
			m.statusLine = styles.err.Render(msg.result.Outcome.Err.Error())
		} else {
			m.statusLine = styles.ok.Render(fmt.Sprintf("Described %d pages", len(msg.result.PageStates)))
		}
		m.setProject(m.store.Snapshot())
		return m, nil
	}

	var cmd tea.Cmd
	m.pageList, cmd = m.pageList.Update(msg)
	return m, cmd
}

// View renders the UI.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to resync, q to quit", m.err))
	}
	if m.project == nil {
		return styles.help.Render("Loading deck...")
	}

	if m.editing {
		title := styles.title.Render("Edit outline")
		helpView := m.help.ShortHelpView([]key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			m.keys.back,
		})
		return fmt.Sprintf("%s\n%s\n\n%s", title, m.editInput.View(), helpView)
	}

	status := m.statusLine
	if status == "" && m.store.LastError() != "" {
		status = styles.warn.Render(m.store.LastError())
	}

	helpView := m.help.View(m.keys)
	return fmt.Sprintf("%s\n\n%s\n%s", m.pageList.View(), status, helpView)
}

// setProject rebuilds the list items from a snapshot, keeping the cursor.
func (m *Model) setProject(project *models.Project) {
	m.project = project
	if project == nil {
		m.pageList.SetItems(nil)
		return
	}

	items := make([]list.Item, len(project.Pages))
	for i, page := range project.Pages {
		busy := m.store.Busy(models.CategoryDescription, page.ID) ||
			m.store.Busy(models.CategoryImage, page.ID) ||
			m.store.Busy(models.CategoryImageEdit, page.ID)
		items[i] = pageItem{page: page, busy: busy}
	}

	m.pageList.Title = fmt.Sprintf("Deck %s", project.ID)
	cursor := m.pageList.Index()
	m.pageList.SetItems(items)
	if cursor < len(items) {
		m.pageList.Select(cursor)
	}
}

func (m *Model) selectedPage() *models.Page {
	item, ok := m.pageList.SelectedItem().(pageItem)
	if !ok {
		return nil
	}
	return &item.page
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.edit):
		page := m.selectedPage()
		if page == nil {
			return m, nil
		}
		m.editing = true
		m.editPageID = page.ID
		m.editInput.SetValue(page.Outline)
		m.editInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.describe):
		page := m.selectedPage()
		if page == nil {
			return m, nil
		}
		return m, m.startPageTask(func() (<-chan tasks.Outcome, error) {
			return m.store.GenerateDescription(m.ctx, page.ID)
		})

	case key.Matches(msg, m.keys.image):
		page := m.selectedPage()
		if page == nil {
			return m, nil
		}
		return m, m.startPageTask(func() (<-chan tasks.Outcome, error) {
			return m.store.GenerateImage(m.ctx, page.ID)
		})

	case key.Matches(msg, m.keys.batch):
		return m, m.startBatch()

	case key.Matches(msg, m.keys.export):
		return m, m.startPageTask(func() (<-chan tasks.Outcome, error) {
			return m.store.Export(m.ctx)
		})

	case key.Matches(msg, m.keys.add):
		return m, func() tea.Msg {
			if err := m.store.AddPage(m.ctx, models.PagePatch{}); err != nil {
				return projectRefreshedMsg{err: err}
			}
			return projectRefreshedMsg{project: m.store.Snapshot()}
		}

	case key.Matches(msg, m.keys.delete):
		page := m.selectedPage()
		if page == nil {
			return m, nil
		}
		return m, func() tea.Msg {
			if err := m.store.DeletePage(m.ctx, page.ID); err != nil {
				return projectRefreshedMsg{err: err}
			}
			return projectRefreshedMsg{project: m.store.Snapshot()}
		}

	case key.Matches(msg, m.keys.moveUp):
		return m, m.movePage(-1)

	case key.Matches(msg, m.keys.moveDown):
		return m, m.movePage(1)
	}

	var cmd tea.Cmd
	m.pageList, cmd = m.pageList.Update(msg)
	return m, cmd
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.editInput.Blur()
		return m, nil
	case "enter":
		outline := m.editInput.Value()
		pageID := m.editPageID
		m.editing = false
		m.editInput.Blur()
		if err := m.store.MutatePageLocally(pageID, models.PagePatch{Outline: &outline}); err != nil {
			m.statusLine = styles.err.Render(err.Error())
			return m, nil
		}
		m.setProject(m.store.Snapshot())
		return m, nil
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

// movePage swaps the selected page with its neighbor and persists the new
// order; a remote failure rolls the deck back to the server's order.
func (m *Model) movePage(delta int) tea.Cmd {
	if m.project == nil {
		return nil
	}
	idx := m.pageList.Index()
	target := idx + delta
	if target < 0 || target >= len(m.project.Pages) {
		return nil
	}

	order := m.project.PageIDs()
	order[idx], order[target] = order[target], order[idx]
	m.pageList.Select(target)

	return func() tea.Msg {
		// On failure the store already rolled back via resync; the fresh
		// snapshot carries the server's order either way.
		_ = m.store.Reorder(m.ctx, order)
		return projectRefreshedMsg{project: m.store.Snapshot()}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		if err := m.store.Resync(m.ctx); err != nil {
			return projectRefreshedMsg{err: err}
		}
		return projectRefreshedMsg{project: m.store.Snapshot()}
	}
}

// startPageTask runs a task submission, then blocks a command on its terminal
// outcome. A nil channel (busy slot or synchronous completion) just
// re-renders.
func (m *Model) startPageTask(submit func() (<-chan tasks.Outcome, error)) tea.Cmd {
	ch, err := submit()
	if err != nil {
		m.statusLine = styles.err.Render(err.Error())
		return nil
	}
	if ch == nil {
		return m.refresh()
	}
	m.statusLine = "Working..."
	return func() tea.Msg {
		out, ok := <-ch
		if !ok {
			return projectRefreshedMsg{project: m.store.Snapshot()}
		}
		return taskDoneMsg{out: out}
	}
}

func (m *Model) startBatch() tea.Cmd {
	ch, err := m.store.GenerateAllDescriptions(m.ctx)
	if err != nil {
		m.statusLine = styles.err.Render(err.Error())
		return nil
	}
	if ch == nil {
		return m.refresh()
	}
	m.statusLine = "Describing all pages..."
	return func() tea.Msg {
		result, ok := <-ch
		if !ok {
			return projectRefreshedMsg{project: m.store.Snapshot()}
		}
		return batchDoneMsg{result: result}
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return nil
		}
		update, ok := <-m.progressChan
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}
