package registry

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

const expectedSchemaVersion = 2

// Manifest is a parsed manifest blob: either a single-platform image
// (with its resolved config blob) or a multi-platform index.
type Manifest struct {
	Image  *v1.Manifest
	Config *v1.Image
	Index  *v1.Index
}

// Manifest resolves a digest through the repository's revision list,
// so only revisions a repository actually holds can be read, and
// parses the blob by its OCI media type.
func (s *Store) Manifest(repoName string, d digest.Digest) (*Manifest, error) {
	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}
	rev, err := repo.Revision(d)
	if err != nil {
		return nil, err
	}
	data, err := s.Blob(rev.Digest)
	if err != nil {
		return nil, err
	}

	var probe struct {
		SchemaVersion int    `json:"schemaVersion"`
		MediaType     string `json:"mediaType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", d, err)
	}
	if probe.SchemaVersion != expectedSchemaVersion {
		return nil, fmt.Errorf("manifest %s: invalid schemaVersion=%d (must be %d)",
			d, probe.SchemaVersion, expectedSchemaVersion)
	}

	switch probe.MediaType {
	case v1.MediaTypeImageIndex:
		var index v1.Index
		if err := json.Unmarshal(data, &index); err != nil {
			return nil, fmt.Errorf("parsing image index %s: %w", d, err)
		}
		return &Manifest{Index: &index}, nil
	case v1.MediaTypeImageManifest:
		var image v1.Manifest
		if err := json.Unmarshal(data, &image); err != nil {
			return nil, fmt.Errorf("parsing image manifest %s: %w", d, err)
		}
		config, err := s.imageConfig(image.Config.Digest)
		if err != nil {
			return nil, err
		}
		return &Manifest{Image: &image, Config: config}, nil
	default:
		return nil, fmt.Errorf("manifest %s: unknown media type %q", d, probe.MediaType)
	}
}

// imageConfig reads an image config blob. Only called with digests
// taken from an access-verified manifest, never with user input.
func (s *Store) imageConfig(d digest.Digest) (*v1.Image, error) {
	data, err := s.Blob(d)
	if err != nil {
		return nil, err
	}
	var config v1.Image
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing image config %s: %w", d, err)
	}
	return &config, nil
}

// Size is the total size of the manifest's config and layer blobs.
func Size(m *v1.Manifest) int64 {
	total := m.Config.Size
	for _, layer := range m.Layers {
		total += layer.Size
	}
	return total
}

// PlatformLabel renders a descriptor's platform as "<os>-<arch>".
func PlatformLabel(p *v1.Platform) string {
	if p == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s-%s", p.OS, p.Architecture)
}
