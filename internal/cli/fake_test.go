package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/pathtofile/dockenv/internal/docker"
)

// fakeEngine is an in-memory Docker engine that records the mutating calls
// a command makes, in order. Methods not overridden here panic through the
// nil embedded interface.
type fakeEngine struct {
	docker.EngineAPI

	images     []image.Summary
	containers []container.Summary
	saveBody   string

	calls     []string
	buildOpts *build.ImageBuildOptions
	loaded    []byte
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	return types.Ping{}, nil
}

func (f *fakeEngine) ImageList(context.Context, image.ListOptions) ([]image.Summary, error) {
	return f.images, nil
}

func (f *fakeEngine) ImageInspect(context.Context, string, ...client.ImageInspectOption) (image.InspectResponse, error) {
	return image.InspectResponse{}, nil
}

func (f *fakeEngine) ImageBuild(_ context.Context, buildContext io.Reader, opts build.ImageBuildOptions) (build.ImageBuildResponse, error) {
	_, _ = io.Copy(io.Discard, buildContext)
	f.calls = append(f.calls, "build:"+opts.Tags[0])
	f.buildOpts = &opts
	return build.ImageBuildResponse{Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

func (f *fakeEngine) ImageRemove(_ context.Context, ref string, _ image.RemoveOptions) ([]image.DeleteResponse, error) {
	f.calls = append(f.calls, "image:"+ref)
	return nil, nil
}

func (f *fakeEngine) ImageSave(_ context.Context, refs []string, _ ...client.ImageSaveOption) (io.ReadCloser, error) {
	f.calls = append(f.calls, "save:"+refs[0])
	return io.NopCloser(bytes.NewBufferString(f.saveBody)), nil
}

func (f *fakeEngine) ImageLoad(_ context.Context, r io.Reader, _ ...client.ImageLoadOption) (image.LoadResponse, error) {
	f.calls = append(f.calls, "load")
	f.loaded, _ = io.ReadAll(r)
	return image.LoadResponse{Body: io.NopCloser(bytes.NewBufferString("Loaded image\n"))}, nil
}

func (f *fakeEngine) ContainerList(context.Context, container.ListOptions) ([]container.Summary, error) {
	return f.containers, nil
}

func (f *fakeEngine) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.calls = append(f.calls, "container:"+id)
	return nil
}

// useEngine makes connect return a client backed by f for the duration of
// the test.
func useEngine(t *testing.T, f *fakeEngine) {
	t.Helper()
	prev := newDockerClient
	newDockerClient = func(string) (*docker.Client, error) {
		return docker.NewClientFromEngine(f), nil
	}
	t.Cleanup(func() { newDockerClient = prev })
}
