package docker

import (
	"bytes"
	"context"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// fakeEngine implements EngineAPI for tests. Methods not overridden here
// panic through the nil embedded interface, which flags unexpected calls.
type fakeEngine struct {
	EngineAPI

	pingErr       error
	images        []image.Summary
	containers    []container.Summary
	inspectErr    error
	buildBody     string
	buildOpts     build.ImageBuildOptions
	buildContext  []byte
	removedImages []string
	removed       []string
	listOpts      container.ListOptions
	saved         []string
	saveBody      string
	loadBody      string
	loadJSON      bool
	loaded        []byte
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func (f *fakeEngine) ImageList(context.Context, image.ListOptions) ([]image.Summary, error) {
	return f.images, nil
}

func (f *fakeEngine) ImageInspect(context.Context, string, ...client.ImageInspectOption) (image.InspectResponse, error) {
	return image.InspectResponse{}, f.inspectErr
}

func (f *fakeEngine) ImageBuild(_ context.Context, buildContext io.Reader, opts build.ImageBuildOptions) (build.ImageBuildResponse, error) {
	f.buildOpts = opts
	f.buildContext, _ = io.ReadAll(buildContext)
	return build.ImageBuildResponse{Body: io.NopCloser(bytes.NewBufferString(f.buildBody))}, nil
}

func (f *fakeEngine) ImageRemove(_ context.Context, ref string, _ image.RemoveOptions) ([]image.DeleteResponse, error) {
	f.removedImages = append(f.removedImages, ref)
	return nil, nil
}

func (f *fakeEngine) ImageSave(_ context.Context, refs []string, _ ...client.ImageSaveOption) (io.ReadCloser, error) {
	f.saved = refs
	return io.NopCloser(bytes.NewBufferString(f.saveBody)), nil
}

func (f *fakeEngine) ImageLoad(_ context.Context, r io.Reader, _ ...client.ImageLoadOption) (image.LoadResponse, error) {
	f.loaded, _ = io.ReadAll(r)
	return image.LoadResponse{Body: io.NopCloser(bytes.NewBufferString(f.loadBody)), JSON: f.loadJSON}, nil
}

func (f *fakeEngine) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.listOpts = opts
	return f.containers, nil
}

func (f *fakeEngine) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

// newFakeClient wraps a fakeEngine in a Client.
func newFakeClient(f *fakeEngine) *Client {
	return NewClientFromEngine(f)
}
