package api

import "encoding/json"

// RepositoryList is the payload of GET /repositories.
type RepositoryList struct {
	Repositories []string `json:"repositories"`
}

// RevisionList is the payload of GET /repositories/{name}.
type RevisionList struct {
	Revisions map[string]RevisionInfo `json:"revisions"`
}

type RevisionInfo struct {
	Tags []string `json:"tags"`
}

// ManifestKind discriminates the manifest union.
type ManifestKind int

const (
	// KindNone means the payload carried no type field at all.
	KindNone ManifestKind = iota
	KindImage
	KindIndex
	// KindUnknown keeps the raw payload around for diagnostics.
	KindUnknown
)

// IndexMember references a platform-specific revision from an index.
type IndexMember struct {
	Digest   string `json:"digest"`
	Platform string `json:"platform"`
}

// Manifest is the payload of GET /revisions/{digest}/repository/{name},
// decoded into a tagged union. The image sections stay loosely typed
// because they are arbitrarily nested JSON rendered verbatim.
type Manifest struct {
	Kind ManifestKind
	Type string

	// image
	Metadata      any
	Configuration any
	Layers        any

	// index
	Members []IndexMember

	Raw json.RawMessage
}

type manifestWire struct {
	Type          *string         `json:"type"`
	Metadata      json.RawMessage `json:"metadata"`
	Configuration json.RawMessage `json:"configuration"`
	Layers        json.RawMessage `json:"layers"`
	Manifests     []IndexMember   `json:"manifests"`
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var wire manifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Raw = append(json.RawMessage(nil), data...)
	switch {
	case wire.Type == nil:
		m.Kind = KindNone
	case *wire.Type == "image":
		m.Kind = KindImage
		m.Type = *wire.Type
		if err := decodeSection(wire.Metadata, &m.Metadata); err != nil {
			return err
		}
		if err := decodeSection(wire.Configuration, &m.Configuration); err != nil {
			return err
		}
		if err := decodeSection(wire.Layers, &m.Layers); err != nil {
			return err
		}
	case *wire.Type == "index":
		m.Kind = KindIndex
		m.Type = *wire.Type
		m.Members = wire.Manifests
	default:
		m.Kind = KindUnknown
		m.Type = *wire.Type
	}
	return nil
}

// decodeSection leaves the target nil when the field is absent or
// JSON null, so callers can tell "no data" apart from empty data.
func decodeSection(raw json.RawMessage, target *any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return err
	}
	return nil
}
