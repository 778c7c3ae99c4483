// Package config loads the settings that tell the cleaning step where its
// artifact registry and payload storage live.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables consulted by Load.
const (
	EnvConfigPath = "BASIC_CLEANING_CONFIG"
	EnvAccessKey  = "BASIC_CLEANING_MINIO_ACCESS_KEY"
	EnvSecretKey  = "BASIC_CLEANING_MINIO_SECRET_KEY"
)

// DefaultPath is the settings file looked up when EnvConfigPath is unset.
const DefaultPath = "tracking.yaml"

// Blob backends.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// Settings is the on-disk configuration.
type Settings struct {
	// Project namespaces artifact names in log output.
	Project string `yaml:"project" json:"project"`

	// Registry is the SQLite database holding artifact and run metadata.
	Registry string `yaml:"registry" json:"registry"`

	// CacheDir is where resolved input artifacts are materialized.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// WorkDir is where the step writes its local output file.
	WorkDir string `yaml:"work_dir" json:"work_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Blobs BlobSettings `yaml:"blobs" json:"blobs"`
}

// BlobSettings selects and configures payload storage.
type BlobSettings struct {
	Backend         string `yaml:"backend" json:"backend"`
	Root            string `yaml:"root" json:"root"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// Default returns settings that keep everything under ./.tracking.
func Default() Settings {
	return Settings{
		Project:  "nyc_airbnb",
		Registry: filepath.Join(".tracking", "registry.db"),
		CacheDir: filepath.Join(".tracking", "cache"),
		WorkDir:  ".",
		LogLevel: "info",
		Blobs: BlobSettings{
			Backend: BackendLocal,
			Root:    filepath.Join(".tracking", "blobs"),
			Bucket:  "artifacts",
		},
	}
}

// Path returns the settings file location: $BASIC_CLEANING_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads settings from path on top of Default. A missing file is not an
// error unless the path was set explicitly through the environment.
// Credential environment variables override the file.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv(EnvConfigPath) == "":
		slog.Debug("no settings file, using defaults", "path", path)
	default:
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	if v := os.Getenv(EnvAccessKey); v != "" {
		s.Blobs.AccessKeyID = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		s.Blobs.SecretAccessKey = v
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// decode parses YAML with strict field checking so typos are reported.
func decode(data []byte, s *Settings) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(s)
}

// Validate checks s against the embedded CUE schema.
func (s Settings) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Settings"))
	value := ctx.Encode(s)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid settings: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// Level maps LogLevel to a slog level. Unknown values map to info.
func (s Settings) Level() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
