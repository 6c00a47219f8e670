// Package tree is the browsing engine: a lazily-populated tree over
// registry metadata with content-hash node identity, single-owner
// relocation of revision nodes into index manifests, and a live
// substring filter. The tree is an explicit owned object with no
// global state, so it can be driven headlessly in tests.
package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/registree/registree/internal/api"
)

// FetchKind names the remote read a Toggle asks its caller to run.
type FetchKind int

const (
	FetchRevisions FetchKind = iota
	FetchManifest
)

// Fetch describes a load the caller must perform and feed back via
// ApplyRevisions or ApplyManifest. The engine itself never does I/O.
type Fetch struct {
	Kind       FetchKind
	NodeID     string
	Repository string
	Digest     string
}

// Tree owns the node arena. Repository and revision nodes are keyed
// by their identity so an index manifest can locate and relocate
// revision nodes already rendered at the repository scope.
type Tree struct {
	root  *Node
	nodes map[string]*Node
}

func New() *Tree {
	return &Tree{
		root:  &Node{Kind: KindBranch, Expanded: true},
		nodes: make(map[string]*Node),
	}
}

// Init builds the top level from the repository listing: one node per
// repository, sorted by short name (case-insensitive, raw string as
// tie-break), or a single notice when the registry is empty.
func (t *Tree) Init(repositories []string) {
	if len(repositories) == 0 {
		t.root.append(&Node{Kind: KindNotice, Label: "No repositories found."})
		return
	}
	sorted := append([]string(nil), repositories...)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := strings.ToLower(ShortName(sorted[i])), strings.ToLower(ShortName(sorted[j]))
		if li != lj {
			return li < lj
		}
		if ShortName(sorted[i]) != ShortName(sorted[j]) {
			return ShortName(sorted[i]) < ShortName(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	for _, full := range sorted {
		node := NewRepositoryNode(full)
		t.nodes[node.ID] = node
		t.root.append(node)
	}
}

// Node looks a node up by identity.
func (t *Tree) Node(id string) *Node {
	return t.nodes[id]
}

// Top returns the direct children of the repository list container.
func (t *Tree) Top() []*Node {
	return t.root.children
}

// Toggle flips a node between collapsed and expanded and returns the
// fetch the caller must perform, if any. Repository content is
// fetched once and then only hidden or shown; revision manifests are
// torn down on collapse and re-fetched on every expansion.
func (t *Tree) Toggle(id string) (*Fetch, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown node %s", id)
	}
	if node.Expanded {
		node.Expanded = false
		if node.Kind == KindRevision {
			t.tearDownDetail(node)
			node.Loaded = false
		}
		return nil, nil
	}

	node.Expanded = true
	if node.Loading {
		// A load is already in flight; its result will land in the
		// now-visible container.
		return nil, nil
	}
	switch node.Kind {
	case KindRepository:
		if node.Loaded {
			return nil, nil
		}
		node.Loading = true
		return &Fetch{Kind: FetchRevisions, NodeID: node.ID, Repository: node.FullName}, nil
	case KindRevision:
		node.Loading = true
		repo := t.owningRepository(node)
		return &Fetch{Kind: FetchManifest, NodeID: node.ID, Repository: repo.FullName, Digest: node.Digest}, nil
	default:
		return nil, nil
	}
}

// ApplyRevisions populates a repository node from a revision listing,
// sorted by digest. The wire order is a JSON object, so it carries no
// order of its own.
func (t *Tree) ApplyRevisions(repoID string, list *api.RevisionList) error {
	node, ok := t.nodes[repoID]
	if !ok {
		return fmt.Errorf("unknown node %s", repoID)
	}
	if node.Kind != KindRepository {
		return fmt.Errorf("node %s is not a repository", repoID)
	}
	node.Loading = false
	node.Loaded = true
	// replace prior content wholesale (a stale inline error, typically)
	for _, child := range node.children {
		child.parent = nil
	}
	node.children = nil

	if list == nil || len(list.Revisions) == 0 {
		node.append(&Node{Kind: KindNotice, Label: "No revisions found."})
		return nil
	}
	digests := make([]string, 0, len(list.Revisions))
	for d := range list.Revisions {
		digests = append(digests, d)
	}
	sort.Strings(digests)
	for _, d := range digests {
		rev := NewRevisionNode(node.FullName, d, list.Revisions[d].Tags)
		t.nodes[rev.ID] = rev
		node.append(rev)
	}
	return nil
}

// ApplyError replaces a node's content with an inline error leaf. The
// toggle stays usable: a repository remains unloaded so the next
// expansion retries the fetch.
func (t *Tree) ApplyError(id string, err error) {
	node, ok := t.nodes[id]
	if !ok {
		return
	}
	node.Loading = false
	if node.Kind == KindRevision {
		t.tearDownDetail(node)
	} else {
		for _, child := range node.children {
			child.parent = nil
		}
		node.children = nil
	}
	node.Loaded = false
	node.append(&Node{Kind: KindError, Label: "Error: " + err.Error()})
}

// SetFilter hides every top-level item whose full rendered text does
// not contain the query. Plain substring, case-sensitive, top level
// only; visibility is recomputed on input events, not on content
// loads.
func (t *Tree) SetFilter(query string) {
	for _, node := range t.root.children {
		node.Hidden = query != "" && !strings.Contains(node.Text(), query)
	}
}

// Row is one visible line of the rendered tree.
type Row struct {
	Node  *Node
	Depth int
}

// Visible flattens the tree into renderable rows, honoring hidden
// flags and collapsed containers.
func (t *Tree) Visible() []Row {
	var rows []Row
	for _, node := range t.root.children {
		rows = appendVisible(rows, node, 0)
	}
	return rows
}

func appendVisible(rows []Row, n *Node, depth int) []Row {
	if n.Hidden {
		return rows
	}
	rows = append(rows, Row{Node: n, Depth: depth})
	if !n.Expanded && (n.Kind == KindRepository || n.Kind == KindRevision) {
		return rows
	}
	for _, child := range n.children {
		rows = appendVisible(rows, child, depth+1)
	}
	return rows
}

// owningRepository walks up to the repository a revision node lives
// under. Relocation keeps revisions inside their repository subtree,
// so the walk terminates there.
func (t *Tree) owningRepository(n *Node) *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.Kind == KindRepository {
			return p
		}
	}
	return nil
}

// tearDownDetail drops a revision's manifest subtree. Revision nodes
// that were relocated under an index go home to their repository
// first, keeping the single-owner invariant; everything else is
// discarded.
func (t *Tree) tearDownDetail(rn *Node) {
	repo := t.owningRepository(rn)
	children := append([]*Node(nil), rn.children...)
	for _, child := range children {
		if child.Kind == KindRevision && repo != nil {
			child.Platform = ""
			repo.append(child)
		} else {
			rn.detach(child)
		}
	}
	if repo != nil {
		sortRevisions(repo)
	}
}

// sortRevisions restores the digest order of a repository's revision
// children after relocated nodes return home.
func sortRevisions(repo *Node) {
	sort.SliceStable(repo.children, func(i, j int) bool {
		a, b := repo.children[i], repo.children[j]
		if a.Kind != KindRevision || b.Kind != KindRevision {
			return false
		}
		return a.Digest < b.Digest
	})
}
