package tui

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registree/registree/internal/api"
)

type stubFetcher struct {
	repositories []string
	revisions    map[string]*api.RevisionList
	manifests    map[string]*api.Manifest

	listRepositoriesCalls int
	listRevisionsCalls    int
	getManifestCalls      int
}

func (s *stubFetcher) ListRepositories(ctx context.Context) (*api.RepositoryList, error) {
	s.listRepositoriesCalls++
	return &api.RepositoryList{Repositories: s.repositories}, nil
}

func (s *stubFetcher) ListRevisions(ctx context.Context, repository string) (*api.RevisionList, error) {
	s.listRevisionsCalls++
	return s.revisions[repository], nil
}

func (s *stubFetcher) GetManifest(ctx context.Context, repository, digest string) (*api.Manifest, error) {
	s.getManifestCalls++
	return s.manifests[digest], nil
}

// drive runs a command and feeds every resulting message back into
// the model until none are left.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if msg == nil {
		return m
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = drive(t, m, c)
		}
		return m
	}
	// don't chase the spinner's self-perpetuating tick
	if _, ok := msg.(spinner.TickMsg); ok {
		return m
	}
	next, nextCmd := m.Update(msg)
	return drive(t, next.(Model), nextCmd)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func bootstrappedModel(t *testing.T, fetcher *stubFetcher) Model {
	t.Helper()
	m := NewModel(fetcher, log.New(io.Discard))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)
	return drive(t, m, m.fetchRepositories())
}

func TestModel_BootstrapRendersSortedRepositories(t *testing.T) {
	fetcher := &stubFetcher{repositories: []string{"library/nginx", "library/debian"}}
	m := bootstrappedModel(t, fetcher)

	view := m.View()
	debian := strings.Index(view, "debian")
	nginx := strings.Index(view, "nginx")
	require.GreaterOrEqual(t, debian, 0)
	require.GreaterOrEqual(t, nginx, 0)
	assert.Less(t, debian, nginx, "repositories render in short-name order")
	assert.Equal(t, 1, fetcher.listRepositoriesCalls)
}

func TestModel_BootstrapFailure(t *testing.T) {
	m := NewModel(&stubFetcher{}, log.New(io.Discard))
	next, _ := m.Update(fetchErrMsg{err: &api.FetchError{Message: "GET /repositories: 500", StatusCode: 500}})
	m = next.(Model)

	assert.Contains(t, m.View(), "Error:")
	assert.Contains(t, m.View(), "500")
}

func TestModel_ExpandRepositoryFetchesOnce(t *testing.T) {
	fetcher := &stubFetcher{
		repositories: []string{"library/debian"},
		revisions: map[string]*api.RevisionList{
			"library/debian": {Revisions: map[string]api.RevisionInfo{
				"sha256:abc": {Tags: []string{"latest"}},
			}},
		},
	}
	m := bootstrappedModel(t, fetcher)

	// expand
	next, cmd := m.Update(key("enter"))
	m = drive(t, next.(Model), cmd)
	assert.Contains(t, m.View(), "sha256:abc")
	assert.Contains(t, m.View(), "latest")

	// collapse, expand, collapse, expand: no further revision fetches
	for i := 0; i < 4; i++ {
		next, cmd = m.Update(key("enter"))
		m = drive(t, next.(Model), cmd)
	}
	assert.Equal(t, 1, fetcher.listRevisionsCalls)
}

func TestModel_ExpandRevisionRefetchesManifest(t *testing.T) {
	fetcher := &stubFetcher{
		repositories: []string{"library/debian"},
		revisions: map[string]*api.RevisionList{
			"library/debian": {Revisions: map[string]api.RevisionInfo{
				"sha256:abc": {},
			}},
		},
		manifests: map[string]*api.Manifest{
			"sha256:abc": {Kind: api.KindNone},
		},
	}
	m := bootstrappedModel(t, fetcher)

	next, cmd := m.Update(key("enter"))
	m = drive(t, next.(Model), cmd)

	// move onto the revision row and toggle it twice through a
	// collapse/expand cycle
	next, _ = m.Update(key("j"))
	m = next.(Model)
	for i := 0; i < 2; i++ {
		next, cmd = m.Update(key("enter")) // expand
		m = drive(t, next.(Model), cmd)
		assert.Contains(t, m.View(), "No type found.")
		next, cmd = m.Update(key("enter")) // collapse
		m = drive(t, next.(Model), cmd)
	}
	assert.Equal(t, 2, fetcher.getManifestCalls)
}

func TestModel_FilterHidesRepositories(t *testing.T) {
	fetcher := &stubFetcher{repositories: []string{"library/nginx", "library/debian"}}
	m := bootstrappedModel(t, fetcher)

	next, _ := m.Update(key("/"))
	m = next.(Model)
	for _, r := range "ngin" {
		next, _ = m.Update(key(string(r)))
		m = next.(Model)
	}

	view := m.View()
	assert.Contains(t, view, "nginx")
	assert.NotContains(t, view, "debian (library/debian)")
}
