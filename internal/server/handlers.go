package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/opencontainers/go-digest"

	"github.com/registree/registree/internal/registry"
)

type repositoriesResponse struct {
	Repositories []string `json:"repositories"`
}

type revisionEntry struct {
	Tags []string `json:"tags"`
}

type revisionsResponse struct {
	Revisions map[string]revisionEntry `json:"revisions"`
}

type indexMember struct {
	Digest   string `json:"digest"`
	Platform string `json:"platform"`
}

type indexResponse struct {
	Type      string        `json:"type"`
	Manifests []indexMember `json:"manifests"`
}

type imageMetadata struct {
	Created     *time.Time        `json:"created"`
	Author      string            `json:"author"`
	Size        int64             `json:"size"`
	Annotations map[string]string `json:"annotations"`
}

type imageConfiguration struct {
	Environment      []string `json:"environment"`
	Entrypoint       []string `json:"entrypoint"`
	Command          []string `json:"command"`
	WorkingDirectory string   `json:"working_directory"`
}

type imageLayer struct {
	MediaType string `json:"media_type"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

type imageResponse struct {
	Type          string             `json:"type"`
	Metadata      imageMetadata      `json:"metadata"`
	Configuration imageConfiguration `json:"configuration"`
	Layers        []imageLayer       `json:"layers"`
}

func (s *Server) handleRepositories(c echo.Context) error {
	names, err := s.store.Repositories()
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, repositoriesResponse{Repositories: names})
}

func (s *Server) handleRepository(c echo.Context) error {
	name := c.Param("*")
	repo, err := s.store.Repository(name)
	if err != nil {
		return storeError(err)
	}
	revisions := make(map[string]revisionEntry)
	for _, rev := range repo.Revisions() {
		tags := rev.Tags
		if tags == nil {
			tags = []string{}
		}
		revisions[rev.Digest.String()] = revisionEntry{Tags: tags}
	}
	return c.JSON(http.StatusOK, revisionsResponse{Revisions: revisions})
}

func (s *Server) handleManifest(c echo.Context) error {
	name := c.Param("*")
	d, err := digest.Parse(c.Param("digest"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid digest")
	}
	manifest, err := s.store.Manifest(name, d)
	if err != nil {
		return storeError(err)
	}
	if manifest.Index != nil {
		members := make([]indexMember, 0, len(manifest.Index.Manifests))
		for _, m := range manifest.Index.Manifests {
			members = append(members, indexMember{
				Digest:   m.Digest.String(),
				Platform: registry.PlatformLabel(m.Platform),
			})
		}
		return c.JSON(http.StatusOK, indexResponse{Type: "index", Manifests: members})
	}

	image, config := manifest.Image, manifest.Config
	layers := make([]imageLayer, 0, len(image.Layers))
	for _, layer := range image.Layers {
		layers = append(layers, imageLayer{
			MediaType: layer.MediaType,
			Digest:    layer.Digest.String(),
			Size:      layer.Size,
		})
	}
	resp := imageResponse{
		Type: "image",
		Metadata: imageMetadata{
			Created:     config.Created,
			Author:      config.Author,
			Size:        registry.Size(image),
			Annotations: image.Annotations,
		},
		Configuration: imageConfiguration{
			Environment:      config.Config.Env,
			Entrypoint:       config.Config.Entrypoint,
			Command:          config.Config.Cmd,
			WorkingDirectory: config.Config.WorkingDir,
		},
		Layers: layers,
	}
	return c.JSON(http.StatusOK, resp)
}

// storeError maps store failures to HTTP statuses: absence is 404,
// anything else is a logged 500.
func storeError(err error) error {
	switch {
	case errors.Is(err, registry.ErrRepositoryNotFound),
		errors.Is(err, registry.ErrRevisionNotFound),
		errors.Is(err, registry.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		log.Error("Store failure", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
