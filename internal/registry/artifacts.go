package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AliasLatest always points at the newest version of an artifact.
const AliasLatest = "latest"

// Version is one immutable artifact version.
type Version struct {
	ID          int64
	Name        string
	Type        string
	Description string
	Version     int
	Digest      string
	FileName    string
	BlobKey     string
	Size        int64
	RunID       string // empty when registered outside a run
	CreatedAt   time.Time
	Aliases     []string
}

// Label returns the version label, e.g. "v3".
func (v Version) Label() string {
	return "v" + strconv.Itoa(v.Version)
}

// Ref returns the fully qualified reference "name:vN".
func (v Version) Ref() string {
	return v.Name + ":" + v.Label()
}

// NewVersion describes a payload about to be registered.
type NewVersion struct {
	Name        string
	Type        string
	Description string
	Digest      string
	FileName    string
	BlobKey     string
	Size        int64
	RunID       string
	CreatedAt   time.Time
}

// RegisterVersion allocates the next version number for v.Name, inserts the
// version and moves the "latest" alias to it, all in one transaction.
//
// The first registration of a name fixes its type; later registrations with
// another type fail with ErrTypeMismatch. Identical payloads are not
// deduplicated: every call creates a new version.
func (r *Registry) RegisterVersion(ctx context.Context, v NewVersion) (Version, error) {
	if v.Name == "" {
		return Version{}, fmt.Errorf("register version: artifact name is required")
	}
	if v.Type == "" {
		return Version{}, fmt.Errorf("register version: artifact type is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, fmt.Errorf("register version: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existingType string
	err = tx.QueryRowContext(ctx, `SELECT type FROM artifacts WHERE name = ?`, v.Name).Scan(&existingType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (name, type, created_at) VALUES (?, ?, ?)
		`, v.Name, v.Type, formatTime(v.CreatedAt)); err != nil {
			return Version{}, fmt.Errorf("register version: insert artifact: %w", err)
		}
	case err != nil:
		return Version{}, fmt.Errorf("register version: lookup artifact: %w", err)
	case existingType != v.Type:
		return Version{}, fmt.Errorf("register version %q: %w: existing type %q, got %q",
			v.Name, ErrTypeMismatch, existingType, v.Type)
	}

	var next int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version) + 1, 0) FROM artifact_versions WHERE name = ?
	`, v.Name).Scan(&next); err != nil {
		return Version{}, fmt.Errorf("register version: next version: %w", err)
	}

	var runID any
	if v.RunID != "" {
		runID = v.RunID
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_versions
		(name, version, description, digest, file_name, blob_key, size, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.Name,
		next,
		v.Description,
		v.Digest,
		v.FileName,
		v.BlobKey,
		v.Size,
		runID,
		formatTime(v.CreatedAt),
	)
	if err != nil {
		return Version{}, fmt.Errorf("register version: insert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Version{}, fmt.Errorf("register version: last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_aliases (name, alias, version_id) VALUES (?, ?, ?)
		ON CONFLICT(name, alias) DO UPDATE SET version_id = excluded.version_id
	`, v.Name, AliasLatest, id); err != nil {
		return Version{}, fmt.Errorf("register version: move alias: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("register version: commit: %w", err)
	}

	return Version{
		ID:          id,
		Name:        v.Name,
		Type:        v.Type,
		Description: v.Description,
		Version:     next,
		Digest:      v.Digest,
		FileName:    v.FileName,
		BlobKey:     v.BlobKey,
		Size:        v.Size,
		RunID:       v.RunID,
		CreatedAt:   v.CreatedAt.UTC(),
		Aliases:     []string{AliasLatest},
	}, nil
}

// SetAlias points alias at the given version of name.
func (r *Registry) SetAlias(ctx context.Context, name, alias string, version int) error {
	if alias == "" || isVersionLabel(alias) {
		return fmt.Errorf("set alias: invalid alias %q", alias)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO artifact_aliases (name, alias, version_id)
		SELECT name, ?, id FROM artifact_versions WHERE name = ? AND version = ?
		ON CONFLICT(name, alias) DO UPDATE SET version_id = excluded.version_id
	`, alias, name, version)
	if err != nil {
		return fmt.Errorf("set alias: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set alias: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set alias %s:v%d: %w", name, version, ErrNotFound)
	}
	return nil
}

// ResolveVersion finds a version by selector: "vN" or an alias such as
// "latest". Returns ErrNotFound if nothing matches.
func (r *Registry) ResolveVersion(ctx context.Context, name, selector string) (Version, error) {
	if selector == "" {
		selector = AliasLatest
	}

	var row *sql.Row
	if isVersionLabel(selector) {
		n, err := strconv.Atoi(selector[1:])
		if err != nil {
			return Version{}, fmt.Errorf("artifact %s:%s: %w", name, selector, ErrNotFound)
		}
		row = r.db.QueryRowContext(ctx, versionSelect+`
			WHERE v.name = ? AND v.version = ?
		`, name, n)
	} else {
		row = r.db.QueryRowContext(ctx, versionSelect+`
			JOIN artifact_aliases al ON al.version_id = v.id
			WHERE al.name = ? AND al.alias = ?
		`, name, selector)
	}

	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("artifact %s:%s: %w", name, selector, ErrNotFound)
	}
	if err != nil {
		return Version{}, err
	}
	if v.Aliases, err = r.aliases(ctx, v.ID); err != nil {
		return Version{}, err
	}
	return v, nil
}

// GetVersionByID retrieves a version by its row id.
func (r *Registry) GetVersionByID(ctx context.Context, id int64) (Version, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, versionSelect+` WHERE v.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("version %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Version{}, err
	}
	if v.Aliases, err = r.aliases(ctx, v.ID); err != nil {
		return Version{}, err
	}
	return v, nil
}

// FindVersionByDigest returns the newest version of name whose payload has
// the given digest. Returns ErrNotFound if no version matches.
func (r *Registry) FindVersionByDigest(ctx context.Context, name, digest string) (Version, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, versionSelect+`
		WHERE v.name = ? AND v.digest = ?
		ORDER BY v.version DESC
		LIMIT 1
	`, name, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("artifact %s digest %s: %w", name, digest, ErrNotFound)
	}
	if err != nil {
		return Version{}, err
	}
	if v.Aliases, err = r.aliases(ctx, v.ID); err != nil {
		return Version{}, err
	}
	return v, nil
}

// ListVersions returns every version of name ordered by version number.
// Returns an empty slice (not nil) if the artifact has no versions.
func (r *Registry) ListVersions(ctx context.Context, name string) ([]Version, error) {
	return r.queryVersions(ctx, versionSelect+`
		WHERE v.name = ?
		ORDER BY v.version ASC
	`, name)
}

// ListLatest returns the "latest" version of every artifact ordered by name.
func (r *Registry) ListLatest(ctx context.Context) ([]Version, error) {
	return r.queryVersions(ctx, versionSelect+`
		JOIN artifact_aliases al ON al.version_id = v.id AND al.alias = ?
		ORDER BY v.name COLLATE BINARY ASC
	`, AliasLatest)
}

func (r *Registry) queryVersions(ctx context.Context, query string, args ...any) ([]Version, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	for i := range versions {
		if versions[i].Aliases, err = r.aliases(ctx, versions[i].ID); err != nil {
			return nil, err
		}
	}
	return versions, nil
}

func (r *Registry) aliases(ctx context.Context, versionID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT alias FROM artifact_aliases WHERE version_id = ? ORDER BY alias COLLATE BINARY ASC
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	aliases := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}

const versionSelect = `
	SELECT v.id, v.name, a.type, v.description, v.version, v.digest, v.file_name,
	       v.blob_key, v.size, COALESCE(v.run_id, ''), v.created_at
	FROM artifact_versions v
	JOIN artifacts a ON a.name = v.name
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (Version, error) {
	var v Version
	var createdAt string
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Type,
		&v.Description,
		&v.Version,
		&v.Digest,
		&v.FileName,
		&v.BlobKey,
		&v.Size,
		&v.RunID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, err
		}
		return Version{}, fmt.Errorf("scan version: %w", err)
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return Version{}, err
	}
	return v, nil
}

// isVersionLabel reports whether s looks like "v" followed by digits.
func isVersionLabel(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	return strings.Trim(s[1:], "0123456789") == ""
}
