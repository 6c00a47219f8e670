package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registree/registree/internal/api"
)

func topLabels(tr *Tree) []string {
	var labels []string
	for _, n := range tr.Top() {
		labels = append(labels, n.Label)
	}
	return labels
}

func TestInit_SortsByShortName(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/nginx", "library/debian"})

	require.Len(t, tr.Top(), 2)
	assert.Equal(t, "debian (library/debian)", tr.Top()[0].Label)
	assert.Equal(t, "nginx (library/nginx)", tr.Top()[1].Label)
}

func TestInit_SortIsIdempotent(t *testing.T) {
	input := []string{"z/Alpha", "a/beta", "alpha", "b/ALPHA", "gamma/delta"}

	first := New()
	first.Init(input)
	second := New()
	second.Init(input)

	assert.Equal(t, topLabels(first), topLabels(second))
}

func TestInit_ShortNameWithoutNamespace(t *testing.T) {
	tr := New()
	tr.Init([]string{"alpine"})
	// no parenthesized full name when short and full are equal
	assert.Equal(t, "alpine", tr.Top()[0].Label)
}

func TestInit_EmptyRegistry(t *testing.T) {
	tr := New()
	tr.Init(nil)

	require.Len(t, tr.Top(), 1)
	assert.Equal(t, KindNotice, tr.Top()[0].Kind)
	assert.Equal(t, "No repositories found.", tr.Top()[0].Label)
}

func TestToggle_RepositoryFetchesOnce(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]

	fetches := 0
	toggle := func() *Fetch {
		f, err := tr.Toggle(repo.ID)
		require.NoError(t, err)
		if f != nil {
			fetches++
		}
		return f
	}

	f := toggle()
	require.NotNil(t, f)
	assert.Equal(t, FetchRevisions, f.Kind)
	assert.Equal(t, "library/debian", f.Repository)
	require.NoError(t, tr.ApplyRevisions(repo.ID, &api.RevisionList{
		Revisions: map[string]api.RevisionInfo{"sha256:abc": {}},
	}))

	// two full collapse/expand cycles, no further fetch
	toggle()
	toggle()
	toggle()
	toggle()
	assert.Equal(t, 1, fetches)
	assert.Len(t, repo.Children(), 1, "revision content persists across collapses")
}

func TestToggle_RevisionRefetchesEveryExpand(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]
	_, err := tr.Toggle(repo.ID)
	require.NoError(t, err)
	require.NoError(t, tr.ApplyRevisions(repo.ID, &api.RevisionList{
		Revisions: map[string]api.RevisionInfo{"sha256:abc": {Tags: []string{"latest"}}},
	}))
	rev := repo.Children()[0]

	fetches := 0
	for cycle := 0; cycle < 3; cycle++ {
		f, err := tr.Toggle(rev.ID)
		require.NoError(t, err)
		require.NotNil(t, f, "expand must request the manifest")
		assert.Equal(t, FetchManifest, f.Kind)
		assert.Equal(t, "sha256:abc", f.Digest)
		fetches++
		require.NoError(t, tr.ApplyManifest(rev.ID, &api.Manifest{Kind: api.KindNone}))

		f, err = tr.Toggle(rev.ID)
		require.NoError(t, err)
		assert.Nil(t, f, "collapse never fetches")
	}
	assert.Equal(t, 3, fetches)
}

func TestToggle_WhileLoadingDoesNotDuplicateFetch(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]

	f, err := tr.Toggle(repo.ID)
	require.NoError(t, err)
	require.NotNil(t, f)

	// user toggles twice more before the fetch lands
	f, err = tr.Toggle(repo.ID)
	require.NoError(t, err)
	assert.Nil(t, f)
	f, err = tr.Toggle(repo.ID)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestToggle_UnknownNode(t *testing.T) {
	tr := New()
	_, err := tr.Toggle("nbogus")
	assert.Error(t, err)
}

func TestApplyRevisions_SortedWithTags(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]
	_, err := tr.Toggle(repo.ID)
	require.NoError(t, err)

	require.NoError(t, tr.ApplyRevisions(repo.ID, &api.RevisionList{
		Revisions: map[string]api.RevisionInfo{
			"sha256:bbb": {Tags: []string{"stable", "12", "latest"}},
			"sha256:aaa": {},
		},
	}))

	children := repo.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "sha256:aaa", children[0].Digest)
	assert.Equal(t, "sha256:bbb", children[1].Digest)
	assert.Equal(t, []string{"12", "latest", "stable"}, children[1].Tags)
	assert.False(t, repo.Loading)
	assert.True(t, repo.Loaded)
}

func TestApplyRevisions_Empty(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]
	_, err := tr.Toggle(repo.ID)
	require.NoError(t, err)

	require.NoError(t, tr.ApplyRevisions(repo.ID, &api.RevisionList{}))
	require.Len(t, repo.Children(), 1)
	assert.Equal(t, "No revisions found.", repo.Children()[0].Label)
}

func TestApplyError_RepositoryRetries(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]

	f, err := tr.Toggle(repo.ID)
	require.NoError(t, err)
	require.NotNil(t, f)
	tr.ApplyError(repo.ID, assert.AnError)

	require.Len(t, repo.Children(), 1)
	assert.Equal(t, KindError, repo.Children()[0].Kind)

	// collapse and re-expand retries the fetch
	_, err = tr.Toggle(repo.ID)
	require.NoError(t, err)
	f, err = tr.Toggle(repo.ID)
	require.NoError(t, err)
	assert.NotNil(t, f, "failed repository load must be retryable")
}

func TestSetFilter_TopLevelSubstring(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/nginx", "library/debian"})

	tr.SetFilter("ngin")
	rows := tr.Visible()
	require.Len(t, rows, 1)
	assert.Equal(t, "nginx (library/nginx)", rows[0].Node.Label)

	// case-sensitive, plain substring
	tr.SetFilter("NGIN")
	assert.Empty(t, tr.Visible())

	tr.SetFilter("")
	assert.Len(t, tr.Visible(), 2)
}

func TestSetFilter_MatchesNestedText(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/nginx", "library/debian"})
	nginx := tr.Top()[1]
	_, err := tr.Toggle(nginx.ID)
	require.NoError(t, err)
	require.NoError(t, tr.ApplyRevisions(nginx.ID, &api.RevisionList{
		Revisions: map[string]api.RevisionInfo{"sha256:feed": {Tags: []string{"mainline"}}},
	}))

	// the full rendered text of a repository includes its revisions
	tr.SetFilter("feed")
	rows := tr.Visible()
	require.NotEmpty(t, rows)
	assert.Equal(t, nginx, rows[0].Node)
}

func TestVisible_CollapsedContentStaysHidden(t *testing.T) {
	tr := New()
	tr.Init([]string{"library/debian"})
	repo := tr.Top()[0]
	_, err := tr.Toggle(repo.ID)
	require.NoError(t, err)
	require.NoError(t, tr.ApplyRevisions(repo.ID, &api.RevisionList{
		Revisions: map[string]api.RevisionInfo{"sha256:abc": {}},
	}))

	assert.Len(t, tr.Visible(), 2)

	_, err = tr.Toggle(repo.ID)
	require.NoError(t, err)
	assert.Len(t, tr.Visible(), 1, "collapsed repository hides its revisions")
}
