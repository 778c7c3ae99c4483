package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVersion(name, typ, digest string) NewVersion {
	return NewVersion{
		Name:        name,
		Type:        typ,
		Description: "test payload",
		Digest:      digest,
		FileName:    name,
		BlobKey:     name + "/" + digest + "/" + name,
		Size:        42,
		CreatedAt:   testTime,
	}
}

func TestRegisterVersion_NumbersFromZero(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	v0, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)
	assert.Equal(t, 0, v0.Version)
	assert.Equal(t, "v0", v0.Label())
	assert.Equal(t, "sample.csv:v0", v0.Ref())

	v1, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d1"))
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
}

func TestRegisterVersion_IdenticalContentCreatesNewVersion(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	a, err := r.RegisterVersion(ctx, newTestVersion("clean_sample.csv", "clean_sample", "same"))
	require.NoError(t, err)
	b, err := r.RegisterVersion(ctx, newTestVersion("clean_sample.csv", "clean_sample", "same"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Version+1, b.Version)
}

func TestRegisterVersion_TypeMismatch(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)

	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "clean_sample", "d1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	versions, err := r.ListVersions(ctx, "sample.csv")
	require.NoError(t, err)
	assert.Len(t, versions, 1, "rejected registration must not leave a version behind")
}

func TestRegisterVersion_RequiresNameAndType(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterVersion(ctx, newTestVersion("", "raw_data", "d"))
	assert.Error(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("x", "", "d"))
	assert.Error(t, err)
}

func TestRegisterVersion_UnknownRunRejected(t *testing.T) {
	r := createTestRegistry(t)
	v := newTestVersion("sample.csv", "raw_data", "d0")
	v.RunID = "no-such-run"

	_, err := r.RegisterVersion(context.Background(), v)
	require.Error(t, err, "foreign key on run_id should be enforced")
}

func TestResolveVersion_LatestMoves(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d1"))
	require.NoError(t, err)

	latest, err := r.ResolveVersion(ctx, "sample.csv", "latest")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)
	assert.Equal(t, "d1", latest.Digest)
	assert.Equal(t, []string{"latest"}, latest.Aliases)

	def, err := r.ResolveVersion(ctx, "sample.csv", "")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, def.ID)

	v0, err := r.ResolveVersion(ctx, "sample.csv", "v0")
	require.NoError(t, err)
	assert.Equal(t, "d0", v0.Digest)
	assert.Empty(t, v0.Aliases)
	assert.Equal(t, "raw_data", v0.Type)
	assert.Equal(t, testTime, v0.CreatedAt)
}

func TestResolveVersion_NotFound(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.ResolveVersion(ctx, "missing.csv", "latest")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)

	_, err = r.ResolveVersion(ctx, "sample.csv", "v7")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.ResolveVersion(ctx, "sample.csv", "prod")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSetAlias(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d1"))
	require.NoError(t, err)

	require.NoError(t, r.SetAlias(ctx, "sample.csv", "reference", 0))

	v, err := r.ResolveVersion(ctx, "sample.csv", "reference")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Version)
	assert.Equal(t, []string{"reference"}, v.Aliases)

	err = r.SetAlias(ctx, "sample.csv", "reference", 9)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, r.SetAlias(ctx, "sample.csv", "v3", 0), "version labels cannot be aliases")
}

func TestListVersions_OrderedAndEmpty(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	empty, err := r.ListVersions(ctx, "nothing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, d := range []string{"a", "b", "c"} {
		_, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", d))
		require.NoError(t, err)
	}

	versions, err := r.ListVersions(ctx, "sample.csv")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i, v.Version)
	}
	assert.Equal(t, []string{"latest"}, versions[2].Aliases)
}

func TestListLatest(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "a"))
	require.NoError(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("clean_sample.csv", "clean_sample", "b"))
	require.NoError(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "c"))
	require.NoError(t, err)

	latest, err := r.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "clean_sample.csv", latest[0].Name)
	assert.Equal(t, "sample.csv", latest[1].Name)
	assert.Equal(t, 1, latest[1].Version)
}

func TestIsVersionLabel(t *testing.T) {
	assert.True(t, isVersionLabel("v0"))
	assert.True(t, isVersionLabel("v12"))
	assert.False(t, isVersionLabel("v"))
	assert.False(t, isVersionLabel("latest"))
	assert.False(t, isVersionLabel("v1a"))
}

func TestFindVersionByDigest(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	_, err := r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d1"))
	require.NoError(t, err)
	_, err = r.RegisterVersion(ctx, newTestVersion("sample.csv", "raw_data", "d0"))
	require.NoError(t, err)

	v, err := r.FindVersionByDigest(ctx, "sample.csv", "d0")
	require.NoError(t, err)
	assert.Equal(t, "v2", v.Label(), "newest matching version wins")
	assert.Equal(t, []string{AliasLatest}, v.Aliases)

	_, err = r.FindVersionByDigest(ctx, "sample.csv", "d9")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.FindVersionByDigest(ctx, "other.csv", "d0")
	assert.True(t, errors.Is(err, ErrNotFound))
}
