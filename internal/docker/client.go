package docker

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/pathtofile/dockenv/internal/model"
)

// defaultPingTimeout bounds Ping. Docker Desktop VMs can take a few
// seconds to answer the first request.
const defaultPingTimeout = 5 * time.Second

// windowsPipe is the Docker Desktop named pipe.
const windowsPipe = `//./pipe/docker_engine`

// EngineAPI is the subset of the Docker SDK client that dockenv calls.
// *client.Client satisfies it; tests substitute a fake.
type EngineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	Close() error

	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImageBuild(ctx context.Context, buildContext io.Reader, options build.ImageBuildOptions) (build.ImageBuildResponse, error)
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
	ImageSave(ctx context.Context, imageIDs []string, opts ...client.ImageSaveOption) (io.ReadCloser, error)
	ImageLoad(ctx context.Context, input io.Reader, opts ...client.ImageLoadOption) (image.LoadResponse, error)

	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Client wraps the Docker Engine SDK client and exposes only the image
// and container operations dockenv needs.
type Client struct {
	inner EngineAPI
}

// NewClient creates a new Docker client.
//
// The daemon address is chosen in this order:
//  1. host, when non-empty (the docker.host config key)
//  2. the DOCKER_HOST environment variable
//  3. the first existing socket from socketCandidates
//
// Errors are model.CLIError values with ExitDockerNotRunning.
func NewClient(host string) (*Client, error) {
	if host == "" {
		host = os.Getenv("DOCKER_HOST")
	}
	if host == "" {
		detected, err := detectDockerHost()
		if err != nil {
			return nil, model.WrapCLIError(
				model.ExitDockerNotRunning,
				"Docker socket not found",
				err,
			)
		}
		host = detected
	}

	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// socketCandidates lists the unix sockets a local daemon may listen on,
// most preferred first. home and runtimeDir may be empty.
func socketCandidates(goos, home, runtimeDir string) []string {
	paths := []string{"/var/run/docker.sock"}
	switch goos {
	case "linux":
		// Rootless Docker.
		if runtimeDir != "" {
			paths = append(paths, runtimeDir+"/docker.sock")
		}
	case "darwin":
		if home != "" {
			paths = append(paths,
				home+"/.docker/run/docker.sock",
				home+"/.colima/default/docker.sock",
			)
		}
	}
	return paths
}

// detectDockerHost determines the daemon address for the current
// platform. Only existence is checked; Ping tells whether the daemon
// answers.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// os.Stat does not work on named pipes.
		conn, err := net.DialTimeout("pipe", windowsPipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", windowsPipe, err)
		}
		_ = conn.Close()
		return "npipe://" + windowsPipe, nil
	case "linux", "darwin":
		home, _ := os.UserHomeDir()
		return firstSocket(socketCandidates(runtime.GOOS, home, os.Getenv("XDG_RUNTIME_DIR")))
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// firstSocket returns the host URI of the first path that exists.
func firstSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v (is Docker running?)", paths)
}

// NewClientFromEngine wraps an existing engine, such as an in-memory one
// in tests.
func NewClientFromEngine(engine EngineAPI) *Client {
	return &Client{inner: engine}
}

// Ping checks the daemon answers within defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the underlying HTTP transport.
func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
