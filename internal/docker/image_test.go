package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathtofile/dockenv/internal/model"
)

// TestListEnvs_FromImageList verifies conversion, filtering and label
// metadata on top of the Engine's image list.
func TestListEnvs_FromImageList(t *testing.T) {
	f := &fakeEngine{images: []image.Summary{
		{ID: "sha256:base", RepoTags: []string{"python:3"}, Created: 1700000000},
		{
			ID:       "sha256:env",
			RepoTags: []string{"dockenv-scraper:latest"},
			Created:  1700000100,
			Size:     2048,
			Labels: map[string]string{
				LabelManagedBy: ManagedByValue,
				LabelBaseImage: "python:3",
				LabelPackages:  "requests",
			},
		},
	}}

	envs, err := ListEnvs(context.Background(), newFakeClient(f))
	require.NoError(t, err)
	require.Len(t, envs, 1)

	assert.Equal(t, "scraper", envs[0].Name)
	assert.Equal(t, "python:3", envs[0].BaseImage)
	assert.Equal(t, []string{"requests"}, envs[0].Packages)
	assert.Equal(t, int64(2048), envs[0].Size)
	assert.Equal(t, int64(1700000100), envs[0].CreatedAt.Unix())
}

// TestImageExists uses exact tag matching.
func TestImageExists(t *testing.T) {
	f := &fakeEngine{images: []image.Summary{
		{ID: "sha256:1", RepoTags: []string{"dockenv-cccc:latest"}},
		{ID: "sha256:2", RepoTags: []string{"dockenv-aaa:v2"}},
	}}
	cli := newFakeClient(f)
	ctx := context.Background()

	ok, err := ImageExists(ctx, cli, "dockenv-ccc", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ImageExists(ctx, cli, "dockenv-aaa", "v2")
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestBaseImagePresent maps not-found to false and other errors through.
func TestBaseImagePresent(t *testing.T) {
	ctx := context.Background()

	ok, err := BaseImagePresent(ctx, newFakeClient(&fakeEngine{}), "python:3")
	require.NoError(t, err)
	assert.True(t, ok)

	notFound := fmt.Errorf("no such image: %w", errdefs.ErrNotFound)
	ok, err = BaseImagePresent(ctx, newFakeClient(&fakeEngine{inspectErr: notFound}), "python:3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = BaseImagePresent(ctx, newFakeClient(&fakeEngine{inspectErr: errors.New("boom")}), "python:3")
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

// TestBuildImage checks the request and streamed output of a good build.
func TestBuildImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM python:3\n"), 0o644))

	f := &fakeEngine{buildBody: `{"stream":"Step 1/1 : FROM python:3\n"}` + "\n" +
		`{"stream":"Successfully tagged dockenv-a:latest\n"}` + "\n"}
	var out bytes.Buffer

	labels := map[string]string{LabelName: "a"}
	err := BuildImage(context.Background(), newFakeClient(f), dir, "dockenv-a", labels, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"dockenv-a"}, f.buildOpts.Tags)
	assert.Equal(t, labels, f.buildOpts.Labels)
	assert.True(t, f.buildOpts.Remove)
	assert.Contains(t, out.String(), "Successfully tagged dockenv-a:latest")
	assert.Contains(t, string(f.buildContext), "FROM python:3", "build context should carry the Dockerfile")
}

// TestBuildImage_StreamError surfaces errors reported inside the stream.
func TestBuildImage_StreamError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM python:3\n"), 0o644))

	f := &fakeEngine{buildBody: `{"errorDetail":{"message":"pip failed"},"error":"pip failed"}` + "\n"}

	err := BuildImage(context.Background(), newFakeClient(f), dir, "dockenv-a", nil, nil)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitBuildFailed, cliErr.Code)
	assert.Contains(t, err.Error(), "pip failed")
}

// TestRemoveImage forwards the reference to the Engine.
func TestRemoveImage(t *testing.T) {
	f := &fakeEngine{}
	require.NoError(t, RemoveImage(context.Background(), newFakeClient(f), "dockenv-a:latest"))
	assert.Equal(t, []string{"dockenv-a:latest"}, f.removedImages)
}

// TestSaveAndLoadImage covers the export/import transport.
func TestSaveAndLoadImage(t *testing.T) {
	f := &fakeEngine{saveBody: "TARDATA", loadBody: "Loaded image: dockenv-a:latest\n"}
	cli := newFakeClient(f)
	ctx := context.Background()

	var archive bytes.Buffer
	require.NoError(t, SaveImage(ctx, cli, "dockenv-a:latest", &archive))
	assert.Equal(t, "TARDATA", archive.String())
	assert.Equal(t, []string{"dockenv-a:latest"}, f.saved)

	var out bytes.Buffer
	require.NoError(t, LoadImage(ctx, cli, bytes.NewReader(archive.Bytes()), &out))
	assert.Equal(t, []byte("TARDATA"), f.loaded)
	assert.Contains(t, out.String(), "Loaded image: dockenv-a:latest")
}

// writeTar builds an in-memory tar archive from name→content pairs.
func writeTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// TestArchiveRepoTags reads tags from a saved archive on disk.
func TestArchiveRepoTags(t *testing.T) {
	data := writeTar(t, map[string]string{
		"blobs/sha256/abc": "layer",
		"manifest.json":    `[{"Config":"blobs/sha256/cfg","RepoTags":["dockenv-a:latest","dockenv-a:v2"],"Layers":[]}]`,
	})
	path := filepath.Join(t.TempDir(), "a.tar")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	tags, err := ArchiveRepoTags(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dockenv-a:latest", "dockenv-a:v2"}, tags)
}

// TestReadRepoTags_Errors covers archives without or with a broken manifest.
func TestReadRepoTags_Errors(t *testing.T) {
	_, err := readRepoTags(bytes.NewReader(writeTar(t, map[string]string{"index.json": "{}"})))
	assert.ErrorIs(t, err, errNoManifest)

	_, err = readRepoTags(bytes.NewReader(writeTar(t, map[string]string{"manifest.json": "not json"})))
	assert.Error(t, err)

	tags, err := readRepoTags(bytes.NewReader(writeTar(t, map[string]string{"manifest.json": `[{"RepoTags":null}]`})))
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = ArchiveRepoTags(filepath.Join(t.TempDir(), "missing.tar"))
	assert.Error(t, err)
}
