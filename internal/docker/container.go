// container.go implements the container side of dockenv: finding and
// removing containers created from an environment image, and running a
// script in a fresh, auto-removed container.
//
// Runs go through the docker CLI rather than the SDK. An interactive
// session needs terminal raw mode, signal forwarding and window resizing,
// all of which `docker run -it` already implements.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/google/uuid"

	"github.com/pathtofile/dockenv/internal/model"
	"github.com/pathtofile/dockenv/internal/scaffold"
)

// ListEnvContainers returns all containers (running or not) created from
// the image repository imageName.
//
// The ancestor filter also matches images built on top of imageName, so
// results are narrowed to an exact repository match, or to the run label
// for containers whose image has since been re-tagged.
func ListEnvContainers(ctx context.Context, cli *Client, imageName string) ([]model.Container, error) {
	summaries, err := cli.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("ancestor", imageName)),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	envName := model.EnvName(imageName)
	result := make([]model.Container, 0, len(summaries))
	for _, s := range summaries {
		if !model.ContainerMatchesImage(s.Image, imageName) && s.Labels[LabelName] != envName {
			continue
		}
		result = append(result, summaryToContainer(s))
	}
	return result, nil
}

// summaryToContainer converts a Docker API container summary to the
// domain model. The API prefixes names with "/", which is stripped.
func summaryToContainer(s container.Summary) model.Container {
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}
	return model.Container{
		ID:    s.ID,
		Name:  name,
		Image: s.Image,
		State: string(s.State),
	}
}

// PublishedPorts returns the host ports published by running dockenv
// containers, read from their port labels. Server-side label filtering
// keeps unrelated containers out of the response.
func PublishedPorts(ctx context.Context, cli *Client) ([]int, error) {
	summaries, err := cli.inner.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue)),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	var ports []int
	for _, s := range summaries {
		mapping, err := ParsePortLabels(s.Labels)
		if err != nil {
			// A hand-edited label should not block a new run.
			continue
		}
		for _, hostPort := range mapping {
			ports = append(ports, hostPort)
		}
	}
	return ports, nil
}

// RemoveContainer removes a container by its ID. When force is true a
// running container is killed first.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.inner.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// NewRunName returns a unique container name for one run of envName,
// e.g. "dockenv-scraper-1f3a9c2e".
func NewRunName(envName string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return model.ImageName(envName) + "-" + id[:8]
}

// RunSpec describes a single script run.
type RunSpec struct {
	// Image is the environment image reference.
	Image string

	// Name is the container name; see NewRunName.
	Name string

	// EnvName is recorded in the container's labels.
	EnvName string

	// RunnerDir is the host directory holding the script and run.sh.
	// It is always mounted read-only.
	RunnerDir string

	// MountSource is an optional host directory made available to the
	// script as ./<MountName>.
	MountSource string
	MountName   string

	// MountWritable lifts the read-only flag on the user mount.
	MountWritable bool

	// ExposePort is a container port to expose; 0 means none.
	ExposePort int

	// PublishPort is the host port ExposePort is published on; 0 means
	// the port is exposed to other containers only.
	PublishPort int

	// Network is passed to --network when non-empty (e.g. "none").
	Network string

	// TTY allocates a pseudo-terminal. Only set when stdin is a terminal.
	TTY bool

	// GOOS selects host path conversion; normally runtime.GOOS.
	GOOS string
}

// RunArgs computes the `docker run` argument vector (without the binary
// name) for spec.
func RunArgs(spec RunSpec) []string {
	args := []string{"run", "--rm", "-i"}
	if spec.TTY {
		args = append(args, "-t")
	}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}

	var ports map[int]int
	if spec.ExposePort > 0 && spec.PublishPort > 0 {
		ports = map[int]int{spec.ExposePort: spec.PublishPort}
	}
	args = append(args, labelArgs(BuildRunLabels(spec.EnvName, ports))...)

	// A missing env image must fail, never resolve against a registry.
	args = append(args, "--pull=never", "--security-opt", "no-new-privileges")
	if spec.Network != "" {
		args = append(args, "--network", spec.Network)
	}

	runner := scaffold.ToPosixPath(spec.RunnerDir, spec.GOOS)
	args = append(args, "-v", runner+":"+scaffold.RunnerMountPath+":ro")

	if spec.ExposePort > 0 {
		port := strconv.Itoa(spec.ExposePort)
		args = append(args, "--expose", port)
		if spec.PublishPort > 0 {
			args = append(args, "-p", strconv.Itoa(spec.PublishPort)+":"+port)
		}
	}

	if spec.MountSource != "" {
		mount := scaffold.ToPosixPath(spec.MountSource, spec.GOOS) +
			":" + scaffold.RunnerMountPath + "/" + spec.MountName
		if !spec.MountWritable {
			mount += ":ro"
		}
		args = append(args, "-v", mount)
	}

	return append(args, spec.Image)
}

// Streams are the standard streams handed to a run.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// RunInteractive executes `binary args...` with the given streams and
// returns the process exit code. A non-zero exit is not an error: the
// script's own status is the result. An error is returned only when the
// docker CLI could not be started.
func RunInteractive(ctx context.Context, binary string, args []string, streams Streams) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = streams.In
	cmd.Stdout = streams.Out
	cmd.Stderr = streams.Err

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, model.WrapCLIError(
		model.ExitDockerNotRunning,
		fmt.Sprintf("failed to execute %q", binary),
		err,
	)
}
