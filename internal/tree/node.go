package tree

import (
	"sort"
	"strings"
)

// Kind tells the renderer what a node represents.
type Kind int

const (
	KindRepository Kind = iota
	KindRevision
	// KindBranch is a labeled grouping with children, e.g. "Metadata".
	KindBranch
	// KindLeaf is a scalar detail line.
	KindLeaf
	// KindNotice is expected absence, informational and non-fatal.
	KindNotice
	// KindError is an inline failure local to its subtree.
	KindError
)

// Node is one rendered entity. Repository and revision nodes carry a
// stable identity and live in the tree's arena; detail nodes do not.
// A node has exactly one parent at a time: relocation moves it, never
// copies it.
type Node struct {
	ID   string
	Kind Kind

	Label    string
	FullName string   // repository nodes: full slash-delimited name
	Digest   string   // revision nodes: wire digest
	Tags     []string // revision nodes: sorted tag badges
	Platform string   // revision nodes: set when an index references it

	Expanded bool
	Loaded   bool
	Loading  bool
	Hidden   bool

	parent   *Node
	children []*Node
}

// ShortName returns the substring after the last slash of a full
// repository name.
func ShortName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

// NewRepositoryNode builds a collapsed repository node. The title is
// the short name, with the full name in parentheses only when the two
// differ. Pure construction, no I/O.
func NewRepositoryNode(full string) *Node {
	short := ShortName(full)
	label := short
	if short != full {
		label = short + " (" + full + ")"
	}
	return &Node{
		ID:       Identity(full),
		Kind:     KindRepository,
		Label:    label,
		FullName: full,
	}
}

// NewRevisionNode builds a collapsed revision node with its tag
// badges sorted lexicographically. Pure construction, no I/O.
func NewRevisionNode(repository, dgst string, tags []string) *Node {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return &Node{
		ID:     Identity(repository, dgst),
		Kind:   KindRevision,
		Label:  dgst,
		Digest: dgst,
		Tags:   sorted,
	}
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

// append attaches child to n, detaching it from any previous parent
// first so the single-owner invariant holds.
func (n *Node) append(child *Node) {
	if child.parent != nil {
		child.parent.detach(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) detach(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Text is the node's full rendered text, children included, as used
// by the filter.
func (n *Node) Text() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	b.WriteString(n.Label)
	if n.Platform != "" {
		b.WriteString(" ")
		b.WriteString(n.Platform)
	}
	for _, tag := range n.Tags {
		b.WriteString(" ")
		b.WriteString(tag)
	}
	for _, child := range n.children {
		b.WriteString("\n")
		child.writeText(b)
	}
}
