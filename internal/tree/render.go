package tree

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/registree/registree/internal/api"
)

// ReferentialError reports an index member whose revision is missing
// from the repository's revision list. This is a hard failure: the
// listing and the index disagree.
type ReferentialError struct {
	Digest string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("index references revision %s which is not in the repository's revision list", e.Digest)
}

// ApplyManifest renders a fetched manifest under its revision node,
// replacing any previous detail wholesale. On failure the caller is
// expected to log and call ApplyError; expected absences (missing
// type, incomplete image, empty index) render as notices and are not
// errors.
func (t *Tree) ApplyManifest(revID string, m *api.Manifest) error {
	node, ok := t.nodes[revID]
	if !ok {
		return fmt.Errorf("unknown node %s", revID)
	}
	if node.Kind != KindRevision {
		return fmt.Errorf("node %s is not a revision", revID)
	}
	node.Loading = false
	node.Loaded = true
	t.tearDownDetail(node)

	switch m.Kind {
	case api.KindNone:
		node.append(&Node{Kind: KindNotice, Label: "No type found."})
	case api.KindImage:
		if m.Metadata == nil || m.Configuration == nil || m.Layers == nil {
			node.append(&Node{Kind: KindNotice, Label: "Incomplete manifest data."})
			return nil
		}
		appendSection(node, "Metadata", m.Metadata)
		appendSection(node, "Configuration", m.Configuration)
		appendSection(node, "Layers", m.Layers)
	case api.KindIndex:
		if len(m.Members) == 0 {
			node.append(&Node{Kind: KindNotice, Label: "No manifests found in index."})
			return nil
		}
		repo := t.owningRepository(node)
		for _, member := range m.Members {
			child := t.nodes[Identity(repo.FullName, member.Digest)]
			if child == nil {
				return &ReferentialError{Digest: member.Digest}
			}
			// Move, never copy: the node leaves its previous container.
			node.append(child)
			child.Platform = member.Platform
		}
	default:
		node.append(&Node{Kind: KindNotice, Label: fmt.Sprintf("Unknown manifest type %q.", m.Type)})
	}
	return nil
}

func appendSection(parent *Node, label string, value any) {
	branch := &Node{Kind: KindBranch, Label: label, Expanded: true}
	parent.append(branch)
	appendValue(branch, value)
}

// appendValue renders an arbitrarily nested JSON value. Array
// elements become items, object entries become key/value lines with
// null values skipped, and composites recurse. Manifest data is plain
// JSON, so no cycle handling is needed.
func appendValue(parent *Node, value any) {
	switch v := value.(type) {
	case []any:
		for _, elem := range v {
			if isComposite(elem) {
				item := &Node{Kind: KindBranch, Label: "-", Expanded: true}
				parent.append(item)
				appendValue(item, elem)
			} else {
				parent.append(&Node{Kind: KindLeaf, Label: formatScalar(elem)})
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v[k] == nil {
				continue
			}
			if isComposite(v[k]) {
				branch := &Node{Kind: KindBranch, Label: k, Expanded: true}
				parent.append(branch)
				appendValue(branch, v[k])
			} else {
				parent.append(&Node{Kind: KindLeaf, Label: k + ": " + formatScalar(v[k])})
			}
		}
	default:
		parent.append(&Node{Kind: KindLeaf, Label: formatScalar(value)})
	}
}

func isComposite(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
