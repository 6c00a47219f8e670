// Package registry reads the on-disk storage layout of a docker
// registry v2 and exposes repositories, revisions and manifests.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/opencontainers/go-digest"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrRevisionNotFound   = errors.New("revision not found")
	ErrBlobNotFound       = errors.New("blob not found")
)

// Tag is a named pointer to a revision digest.
type Tag struct {
	Name   string
	Digest digest.Digest
}

// Revision is a content-addressed manifest entry within a repository.
type Revision struct {
	Digest digest.Digest
	Tags   []string
}

// Repository caches the revisions and tags found under one
// repository directory.
type Repository struct {
	Name string

	path      string
	revisions map[digest.Digest]*Revision
	lastLoad  time.Time
}

// Store walks a registry storage directory. Listings are cached with
// short TTLs so new pushes show up quickly; blobs are always read
// from disk to save memory.
type Store struct {
	root          string
	registryTTL   time.Duration
	repositoryTTL time.Duration

	mu       sync.Mutex
	repos    map[string]*Repository
	lastLoad time.Time
}

func NewStore(root string, registryTTL, repositoryTTL time.Duration) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("registry.dir is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("registry dir %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("registry dir %s is not a directory", root)
	}
	return &Store{
		root:          root,
		registryTTL:   registryTTL,
		repositoryTTL: repositoryTTL,
		repos:         make(map[string]*Repository),
	}, nil
}

func (s *Store) baseV2Path() string {
	return filepath.Join(s.root, "docker", "registry", "v2")
}

func (s *Store) repositoriesPath() string {
	return filepath.Join(s.baseV2Path(), "repositories")
}

func (s *Store) blobPath(d digest.Digest) (string, error) {
	// docker registry v2 stores blobs under the sha256 algorithm
	if d.Algorithm() != digest.SHA256 {
		return "", fmt.Errorf("unsupported digest algorithm %q", d.Algorithm())
	}
	enc := d.Encoded()
	return filepath.Join(s.baseV2Path(), "blobs", "sha256", enc[:2], enc, "data"), nil
}

// load rescans the repositories directory. Every directory holding a
// _manifests child is a repository, named by its path relative to the
// repositories root.
func (s *Store) load() error {
	base := s.repositoriesPath()
	found := make(map[string]*Repository)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		// nothing pushed yet
		s.repos = found
		s.lastLoad = time.Now()
		return nil
	}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || d.Name() != "_manifests" {
			return nil
		}
		repoPath := filepath.Dir(path)
		rel, err := filepath.Rel(base, repoPath)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if prev, ok := s.repos[name]; ok {
			found[name] = prev
		} else {
			found[name] = &Repository{Name: name, path: repoPath}
		}
		return fs.SkipDir
	})
	if err != nil {
		return fmt.Errorf("scanning repositories: %w", err)
	}
	s.repos = found
	s.lastLoad = time.Now()
	log.Debug("Loaded registry", "repositories", len(found))
	return nil
}

// Repositories returns the sorted repository names currently on disk.
func (s *Store) Repositories() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastLoad) > s.registryTTL {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(s.repos))
	for name := range s.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Repository returns the named repository with a fresh revision list.
func (s *Store) Repository(name string) (*Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastLoad) > s.registryTTL {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	repo, ok := s.repos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
	}
	if time.Since(repo.lastLoad) > s.repositoryTTL {
		if err := repo.load(); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *Repository) revisionsPath() string {
	return filepath.Join(r.path, "_manifests", "revisions", "sha256")
}

func (r *Repository) tagsPath() string {
	return filepath.Join(r.path, "_manifests", "tags")
}

func (r *Repository) digestForTag(tag string) (digest.Digest, error) {
	link := filepath.Join(r.tagsPath(), tag, "current", "link")
	raw, err := os.ReadFile(link)
	if err != nil {
		return "", err
	}
	return digest.Parse(strings.TrimSpace(string(raw)))
}

func (r *Repository) load() error {
	revDir := r.revisionsPath()
	entries, err := os.ReadDir(revDir)
	if err != nil {
		return fmt.Errorf("reading revisions of %s: %w", r.Name, err)
	}
	revisions := make(map[digest.Digest]*Revision, len(entries))
	for _, e := range entries {
		d := digest.NewDigestFromEncoded(digest.SHA256, e.Name())
		if err := d.Validate(); err != nil {
			log.Warn("Skipping invalid revision entry", "repository", r.Name, "entry", e.Name())
			continue
		}
		revisions[d] = &Revision{Digest: d}
	}

	tagEntries, err := os.ReadDir(r.tagsPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading tags of %s: %w", r.Name, err)
	}
	for _, e := range tagEntries {
		d, err := r.digestForTag(e.Name())
		if err != nil {
			log.Warn("Skipping unreadable tag", "repository", r.Name, "tag", e.Name(), "err", err)
			continue
		}
		rev, ok := revisions[d]
		if !ok {
			log.Warn("Tag points at unknown revision", "repository", r.Name, "tag", e.Name(), "digest", d)
			continue
		}
		rev.Tags = append(rev.Tags, e.Name())
	}
	for _, rev := range revisions {
		sort.Strings(rev.Tags)
	}

	r.revisions = revisions
	r.lastLoad = time.Now()
	return nil
}

// Revisions returns the repository's revisions sorted by digest.
func (r *Repository) Revisions() []*Revision {
	out := make([]*Revision, 0, len(r.revisions))
	for _, rev := range r.revisions {
		out = append(out, rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Digest < out[j].Digest })
	return out
}

// Revision looks up one revision by digest.
func (r *Repository) Revision(d digest.Digest) (*Revision, error) {
	rev, ok := r.revisions[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, d)
	}
	return rev, nil
}

// Blob reads a blob from disk.
func (s *Store) Blob(d digest.Digest) ([]byte, error) {
	path, err := s.blobPath(d)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, d)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", d, err)
	}
	return data, nil
}
