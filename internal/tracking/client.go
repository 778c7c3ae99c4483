package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/blob"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/canonical"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/config"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/registry"
)

// ErrNotFound is returned when a reference or run cannot be resolved.
var ErrNotFound = registry.ErrNotFound

// ErrTypeMismatch is returned when publishing under a name that already
// holds artifacts of another type.
var ErrTypeMismatch = registry.ErrTypeMismatch

// ErrInvalidName is returned when publishing under a name that a reference
// could not address.
var ErrInvalidName = errors.New("invalid artifact name")

// ErrDigestMismatch is returned when a downloaded payload does not hash to
// the digest recorded at publish time.
var ErrDigestMismatch = errors.New("artifact digest mismatch")

// Clock supplies timestamps for registry records.
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies run ids.
type IDGenerator interface {
	Generate() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Client talks to the registry and blob store on behalf of runs.
type Client struct {
	reg      *registry.Registry
	blobs    blob.Store
	project  string
	cacheDir string
	clock    Clock
	ids      IDGenerator
	logger   *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithClock overrides the timestamp source (for testing).
func WithClock(c Clock) Option { return func(cl *Client) { cl.clock = c } }

// WithIDGenerator overrides the run id source (for testing).
func WithIDGenerator(g IDGenerator) Option { return func(cl *Client) { cl.ids = g } }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.logger = l } }

// WithProject sets the project that qualified references must name.
func WithProject(p string) Option { return func(cl *Client) { cl.project = p } }

// New builds a client over an open registry and blob store. Resolved input
// payloads are materialized under cacheDir.
func New(reg *registry.Registry, blobs blob.Store, cacheDir string, opts ...Option) *Client {
	c := &Client{
		reg:      reg,
		blobs:    blobs,
		cacheDir: cacheDir,
		clock:    systemClock{},
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open builds a client from settings: opens the registry database and
// prepares the configured blob backend.
func Open(ctx context.Context, s config.Settings, opts ...Option) (*Client, error) {
	store, err := newBlobStore(s.Blobs)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("prepare blob store: %w", err)
	}

	reg, err := registry.Open(s.Registry)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	opts = append([]Option{WithProject(s.Project)}, opts...)
	return New(reg, store, s.CacheDir, opts...), nil
}

func newBlobStore(b config.BlobSettings) (blob.Store, error) {
	switch b.Backend {
	case config.BackendLocal, "":
		return blob.NewLocalStore(b.Root, b.Bucket), nil
	case config.BackendMinio:
		s, err := blob.NewS3Store(blob.S3Config{
			EndpointURL:     b.Endpoint,
			Region:          b.Region,
			UseSSL:          b.UseSSL,
			AccessKeyID:     b.AccessKeyID,
			SecretAccessKey: b.SecretAccessKey,
			Bucket:          b.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("create blob store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", b.Backend)
	}
}

// Close releases the registry connection.
func (c *Client) Close() error {
	return c.reg.Close()
}

// StartRun registers a new running run.
func (c *Client) StartRun(ctx context.Context, jobType string) (*Run, error) {
	id := c.ids.Generate()
	if err := c.reg.CreateRun(ctx, id, jobType, c.clock.Now()); err != nil {
		return nil, err
	}
	c.logger.Debug("run started", "run_id", id, "job_type", jobType)
	return &Run{client: c, ID: id, JobType: jobType, config: map[string]any{}}, nil
}

// PutArtifact publishes an artifact outside of any run, e.g. to seed the raw
// dataset a pipeline starts from.
func (c *Client) PutArtifact(ctx context.Context, a *Artifact) (Version, error) {
	v, err := c.publish(ctx, "", a)
	if err != nil {
		return Version{}, err
	}
	return versionFromRegistry(v), nil
}

// GetArtifact resolves a reference without recording lineage.
func (c *Client) GetArtifact(ctx context.Context, ref string) (Version, error) {
	v, err := c.resolve(ctx, ref)
	if err != nil {
		return Version{}, err
	}
	return versionFromRegistry(v), nil
}

// Download resolves a reference and materializes its payload without
// recording lineage. Returns the local path.
func (c *Client) Download(ctx context.Context, ref string) (Version, string, error) {
	v, err := c.resolve(ctx, ref)
	if err != nil {
		return Version{}, "", err
	}
	path, err := c.materialize(ctx, v)
	if err != nil {
		return Version{}, "", err
	}
	return versionFromRegistry(v), path, nil
}

// SetAlias points alias at the version ref resolves to and returns that
// version with its updated aliases. "latest" is managed by publishing and
// version labels like "v2" cannot be used as aliases.
func (c *Client) SetAlias(ctx context.Context, ref, alias string) (Version, error) {
	switch {
	case alias == registry.AliasLatest:
		return Version{}, fmt.Errorf("set alias: %q is managed by publishing", alias)
	case strings.ContainsAny(alias, ":/ \t"):
		return Version{}, fmt.Errorf("set alias: invalid alias %q", alias)
	}
	v, err := c.resolve(ctx, ref)
	if err != nil {
		return Version{}, err
	}
	if err := c.reg.SetAlias(ctx, v.Name, alias, v.Version); err != nil {
		return Version{}, err
	}
	v, err = c.reg.GetVersionByID(ctx, v.ID)
	if err != nil {
		return Version{}, err
	}
	return versionFromRegistry(v), nil
}

// ListArtifacts returns the latest version of every artifact.
func (c *Client) ListArtifacts(ctx context.Context) ([]Version, error) {
	vs, err := c.reg.ListLatest(ctx)
	if err != nil {
		return nil, err
	}
	return convertVersions(vs), nil
}

// ListVersions returns every version of one artifact.
func (c *Client) ListVersions(ctx context.Context, name string) ([]Version, error) {
	vs, err := c.reg.ListVersions(ctx, NormalizeName(name))
	if err != nil {
		return nil, err
	}
	return convertVersions(vs), nil
}

func convertVersions(vs []registry.Version) []Version {
	out := make([]Version, len(vs))
	for i, v := range vs {
		out[i] = versionFromRegistry(v)
	}
	return out
}

func (c *Client) resolve(ctx context.Context, ref string) (registry.Version, error) {
	r, err := ParseReference(ref)
	if err != nil {
		return registry.Version{}, err
	}
	if r.Project != "" && c.project != "" && r.Project != c.project {
		return registry.Version{}, fmt.Errorf("artifact %s: project %q is not %q: %w", ref, r.Project, c.project, ErrNotFound)
	}
	return c.reg.ResolveVersion(ctx, r.Name, r.Version)
}

// publish uploads the payload under a content-addressed key and registers
// the next version.
func (c *Client) publish(ctx context.Context, runID string, a *Artifact) (registry.Version, error) {
	if err := a.validate(); err != nil {
		return registry.Version{}, err
	}

	f, err := os.Open(a.File)
	if err != nil {
		return registry.Version{}, fmt.Errorf("open artifact file: %w", err)
	}
	defer f.Close()

	digest, size, err := canonical.DigestReader(canonical.DomainArtifact, f)
	if err != nil {
		return registry.Version{}, fmt.Errorf("digest artifact file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return registry.Version{}, fmt.Errorf("rewind artifact file: %w", err)
	}

	key, uploaded, err := c.storePayload(ctx, a, f, digest, size)
	if err != nil {
		return registry.Version{}, err
	}

	v, err := c.reg.RegisterVersion(ctx, registry.NewVersion{
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		Digest:      digest,
		FileName:    a.fileName(),
		BlobKey:     key,
		Size:        size,
		RunID:       runID,
		CreatedAt:   c.clock.Now(),
	})
	if err != nil {
		return registry.Version{}, err
	}

	c.logger.Debug("artifact version registered",
		"artifact", v.Ref(), "digest", digest, "size", size, "uploaded", uploaded)
	return v, nil
}

// storePayload returns the blob key holding the payload, uploading it only
// when neither an earlier version of the artifact nor the blob store
// already has the same content.
func (c *Client) storePayload(ctx context.Context, a *Artifact, r io.Reader, digest string, size int64) (string, bool, error) {
	prev, err := c.reg.FindVersionByDigest(ctx, a.Name, digest)
	switch {
	case err == nil:
		c.logger.Debug("payload unchanged, reusing blob", "artifact", a.Name, "same_as", prev.Label())
		return prev.BlobKey, false, nil
	case !errors.Is(err, ErrNotFound):
		return "", false, fmt.Errorf("look up payload: %w", err)
	}

	key := blob.JoinKey(a.Name, digest, a.fileName())
	exists, err := c.blobs.Exists(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("check payload: %w", err)
	}
	if exists {
		return key, false, nil
	}
	if err := c.blobs.Put(ctx, key, r, size); err != nil {
		return "", false, fmt.Errorf("upload payload: %w", err)
	}
	return key, true, nil
}

// materialize copies a version's payload to cacheDir/<name>/<vN>/<file> and
// verifies its digest. The file is replaced atomically.
func (c *Client) materialize(ctx context.Context, v registry.Version) (string, error) {
	dir := filepath.Join(c.cacheDir, filepath.FromSlash(v.Name), v.Label())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	dest := filepath.Join(dir, v.FileName)

	rc, err := c.blobs.Get(ctx, v.BlobKey)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", v.Ref(), err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	digest, _, err := canonical.DigestReader(canonical.DomainArtifact, io.TeeReader(rc, tmp))
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", v.Ref(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write cache file: %w", err)
	}
	if digest != v.Digest {
		return "", fmt.Errorf("download %s: %w: got %s, want %s", v.Ref(), ErrDigestMismatch, digest, v.Digest)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("move cache file: %w", err)
	}
	return dest, nil
}
