// Package tui renders the browsing engine in the terminal.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/registree/registree/internal/api"
	"github.com/registree/registree/internal/tree"
)

// Fetcher is the slice of the API client the model needs; tests swap
// in a stub.
type Fetcher interface {
	ListRepositories(ctx context.Context) (*api.RepositoryList, error)
	ListRevisions(ctx context.Context, repository string) (*api.RevisionList, error)
	GetManifest(ctx context.Context, repository, digest string) (*api.Manifest, error)
}

type repositoriesMsg struct {
	list *api.RepositoryList
}

type revisionsMsg struct {
	nodeID string
	list   *api.RevisionList
}

type manifestMsg struct {
	nodeID   string
	manifest *api.Manifest
}

// fetchErrMsg carries a failed load; an empty nodeID means the root
// bootstrap failed.
type fetchErrMsg struct {
	nodeID string
	err    error
}

type Model struct {
	client Fetcher
	logger *log.Logger

	tree    *tree.Tree
	filter  textinput.Model
	spinner spinner.Model

	cursor  int
	offset  int
	width   int
	height  int
	loading int
	fatal   error

	filterFocused bool
}

func NewModel(client Fetcher, logger *log.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "filter repositories"
	ti.Prompt = "/ "
	ti.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		client:  client,
		logger:  logger,
		tree:    tree.New(),
		filter:  ti,
		spinner: sp,
		loading: 1, // the root bootstrap
	}
}

// Run starts the program. It owns the terminal until the user quits.
func Run(client Fetcher, logger *log.Logger) error {
	p := tea.NewProgram(NewModel(client, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchRepositories())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.loading == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case repositoriesMsg:
		m.loading--
		m.tree.Init(msg.list.Repositories)
		return m, nil

	case revisionsMsg:
		m.loading--
		if err := m.tree.ApplyRevisions(msg.nodeID, msg.list); err != nil {
			m.logger.Error("Applying revisions failed", "node", msg.nodeID, "err", err)
		}
		return m.clampCursor(), nil

	case manifestMsg:
		m.loading--
		if err := m.tree.ApplyManifest(msg.nodeID, msg.manifest); err != nil {
			m.logger.Error("Rendering manifest failed", "node", msg.nodeID, "err", err)
			m.tree.ApplyError(msg.nodeID, err)
		}
		return m.clampCursor(), nil

	case fetchErrMsg:
		m.loading--
		m.logger.Error("Fetch failed", "node", msg.nodeID, "err", msg.err)
		if msg.nodeID == "" {
			m.fatal = msg.err
		} else {
			m.tree.ApplyError(msg.nodeID, msg.err)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.filterFocused {
		switch msg.String() {
		case "esc", "enter", "tab":
			m.filterFocused = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.tree.SetFilter(m.filter.Value())
		return m.clampCursor(), cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "/", "tab":
		m.filterFocused = true
		return m, m.filter.Focus()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m.scrollToCursor(), nil
	case "down", "j":
		if m.cursor < len(m.tree.Visible())-1 {
			m.cursor++
		}
		return m.scrollToCursor(), nil
	case "enter", " ":
		return m.toggleCurrent()
	}
	return m, nil
}

// toggleCurrent drives the lazy expander for the row under the
// cursor and turns the requested fetch, if any, into a command.
func (m Model) toggleCurrent() (tea.Model, tea.Cmd) {
	rows := m.tree.Visible()
	if m.cursor >= len(rows) {
		return m, nil
	}
	node := rows[m.cursor].Node
	if node.Kind != tree.KindRepository && node.Kind != tree.KindRevision {
		return m, nil
	}
	fetch, err := m.tree.Toggle(node.ID)
	if err != nil {
		m.logger.Error("Toggle failed", "node", node.ID, "err", err)
		return m, nil
	}
	if fetch == nil {
		return m.clampCursor(), nil
	}
	m.loading++
	return m, tea.Batch(m.spinner.Tick, m.runFetch(*fetch))
}

func (m Model) runFetch(f tree.Fetch) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		switch f.Kind {
		case tree.FetchRevisions:
			list, err := m.client.ListRevisions(ctx, f.Repository)
			if err != nil {
				return fetchErrMsg{nodeID: f.NodeID, err: err}
			}
			return revisionsMsg{nodeID: f.NodeID, list: list}
		case tree.FetchManifest:
			manifest, err := m.client.GetManifest(ctx, f.Repository, f.Digest)
			if err != nil {
				return fetchErrMsg{nodeID: f.NodeID, err: err}
			}
			return manifestMsg{nodeID: f.NodeID, manifest: manifest}
		}
		return nil
	}
}

func (m Model) fetchRepositories() tea.Cmd {
	return func() tea.Msg {
		list, err := m.client.ListRepositories(context.Background())
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return repositoriesMsg{list: list}
	}
}

func (m Model) clampCursor() Model {
	if max := len(m.tree.Visible()) - 1; m.cursor > max {
		if max < 0 {
			max = 0
		}
		m.cursor = max
	}
	return m.scrollToCursor()
}

func (m Model) scrollToCursor() Model {
	visible := m.viewHeight()
	if visible <= 0 {
		return m
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	return m
}
