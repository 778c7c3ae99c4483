package tracking

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/registry"
)

// Artifact is a new artifact version waiting to be published.
type Artifact struct {
	Name        string
	Type        string
	Description string
	File        string // local path of the payload
}

// NewArtifact creates an artifact record with no payload yet.
func NewArtifact(name, typ, description string) *Artifact {
	return &Artifact{
		Name:        NormalizeName(name),
		Type:        typ,
		Description: description,
	}
}

// AddFile attaches the payload. The path must name a regular file.
func (a *Artifact) AddFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("add file to artifact %s: %w", a.Name, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("add file to artifact %s: %s is not a regular file", a.Name, path)
	}
	a.File = path
	return nil
}

func (a *Artifact) validate() error {
	switch {
	case a.Name == "":
		return fmt.Errorf("artifact name is required")
	case strings.ContainsAny(a.Name, "/:\\"), a.Name == ".", a.Name == "..":
		return fmt.Errorf("%w %q: '/', ':' and '\\' are reserved", ErrInvalidName, a.Name)
	case a.Type == "":
		return fmt.Errorf("artifact %s: type is required", a.Name)
	case a.File == "":
		return fmt.Errorf("artifact %s: no file added", a.Name)
	}
	return nil
}

// fileName is the payload's base name, used inside blob keys and the cache.
func (a *Artifact) fileName() string {
	return filepath.Base(a.File)
}

// Version describes a published artifact version.
type Version struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Aliases     []string  `json:"aliases"`
	Digest      string    `json:"digest"`
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	RunID       string    `json:"run_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ref returns "name:vN".
func (v Version) Ref() string {
	return v.Name + ":" + v.Version
}

func versionFromRegistry(v registry.Version) Version {
	aliases := v.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return Version{
		Name:        v.Name,
		Type:        v.Type,
		Description: v.Description,
		Version:     v.Label(),
		Aliases:     aliases,
		Digest:      v.Digest,
		FileName:    v.FileName,
		Size:        v.Size,
		RunID:       v.RunID,
		CreatedAt:   v.CreatedAt,
	}
}
