// Package cli: run.go implements the "dockenv run" command and the
// container run shared with "dockenv freeze".
//
// A run copies the script and a generated run.sh into a temporary
// directory, mounts it read-only at /usr/src/app/runner, and starts a
// container with --rm so nothing outlives the script.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/moby/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/model"
	"github.com/pathtofile/dockenv/internal/port"
	"github.com/pathtofile/dockenv/internal/scaffold"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	exposePort int    // -e: container port to expose
	publish    bool   // -P: publish the exposed port on the host
	mount      string // -m: host directory to mount
	writable   bool   // --writable: mount -m read-write
	noNetwork  bool   // --no-network: run with --network none
}

// scriptRun describes one execution of a script inside an environment.
type scriptRun struct {
	envName    string
	scriptPath string
	args       []string
	flags      runFlags
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] <envname> <script> [args...]",
		Short: "Run a script inside an existing virtual environment",
		Long: `Run a Python script inside a fresh container of an existing environment.

The script's directory is never mounted. Only the script itself and a small
runner are copied into a read-only mount. A directory given with -m is
available to the script as ./<dirname>, read-only unless --writable is set.

Everything after the script name is passed to the script verbatim, so
dockenv flags must come before <envname>. The script's exit code becomes
dockenv's exit code.

Examples:
  dockenv run scraper fetch.py https://example.com
  dockenv run -m ./data scraper parse.py data/input.html
  dockenv run -e 8000 -P web server.py --port 8000`,

		Args: cobra.MinimumNArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), scriptRun{
				envName:    args[0],
				scriptPath: args[1],
				args:       args[2:],
				flags:      *flags,
			})
		},
	}

	// Stop flag parsing at the first positional argument so script
	// arguments such as "--port" reach the script untouched.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().IntVarP(&flags.exposePort, "expose-port", "e", 0, "Expose a network port on the container")
	cmd.Flags().BoolVarP(&flags.publish, "publish", "P", false, "Publish the exposed port on a free host port")
	cmd.Flags().StringVarP(&flags.mount, "mount", "m", "", "Mount a folder into the working directory of the container")
	cmd.Flags().BoolVar(&flags.writable, "writable", false, "Mount the -m folder read-write")
	cmd.Flags().BoolVar(&flags.noNetwork, "no-network", false, "Disable networking inside the container")

	return cmd
}

// runScript runs r and converts a non-zero script exit into a CLIError
// carrying the same exit code.
func runScript(ctx context.Context, r scriptRun) error {
	// Step 1: Validate input.
	if err := validateEnvName(r.envName); err != nil {
		return err
	}
	if err := validateRunFlags(r.flags); err != nil {
		return err
	}
	info, err := os.Stat(r.scriptPath)
	if err != nil || info.IsDir() {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("script %q not found", r.scriptPath), err)
	}

	var mountSource, mountName string
	if r.flags.mount != "" {
		if mountSource, mountName, err = resolveMount(r.flags.mount); err != nil {
			return err
		}
	}

	// Step 2: Check the environment exists.
	cli, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if _, err := requireEnv(ctx, cli, r.envName); err != nil {
		return err
	}

	// Step 3: Pick a host port when publishing.
	publishPort := 0
	if r.flags.publish {
		published, err := docker.PublishedPorts(ctx, cli)
		if err != nil {
			return err
		}
		alloc := port.NewAllocator(port.NewScanner())
		alloc.Reserve(published...)
		publishPort, err = alloc.Allocate(r.flags.exposePort, "tcp")
		if err != nil {
			return model.WrapCLIError(model.ExitPortUnavailable, "failed to allocate host port", err)
		}
		log.Info(fmt.Sprintf("[*] publishing container port %d on host port %d", r.flags.exposePort, publishPort))
	}

	// Step 4: Prepare the runner directory.
	runnerDir, err := os.MkdirTemp("", "dockenv-run-")
	if err != nil {
		return fmt.Errorf("failed to create runner directory: %w", err)
	}
	defer os.RemoveAll(runnerDir)

	if err := scaffold.RunnerDir(runnerDir, r.scriptPath, scaffold.RunnerOptions{
		Args:       r.args,
		ExposePort: r.flags.exposePort,
		MountName:  mountName,
	}); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "failed to prepare runner", err)
	}

	// Step 5: Run the container.
	spec := buildRunSpec(r, runnerDir, mountSource, mountName, publishPort, stdinIsTerminal())
	args := docker.RunArgs(spec)
	log.Debug("running container",
		zap.String("binary", cfg.Docker.Binary),
		zap.Strings("args", args),
	)

	code, err := docker.RunInteractive(ctx, cfg.Docker.Binary, args, docker.Streams{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	})
	if err != nil {
		return err
	}
	return scriptExitError(code)
}

// buildRunSpec assembles the docker run description for r.
func buildRunSpec(r scriptRun, runnerDir, mountSource, mountName string, publishPort int, tty bool) docker.RunSpec {
	network := cfg.Run.Network
	if r.flags.noNetwork {
		network = "none"
	}
	return docker.RunSpec{
		Image:         model.ImageName(r.envName),
		Name:          docker.NewRunName(r.envName),
		EnvName:       r.envName,
		RunnerDir:     runnerDir,
		MountSource:   mountSource,
		MountName:     mountName,
		MountWritable: r.flags.writable,
		ExposePort:    r.flags.exposePort,
		PublishPort:   publishPort,
		Network:       network,
		TTY:           tty,
		GOOS:          runtime.GOOS,
	}
}

// resolveMount returns the absolute path of a -m directory and the name it
// appears under next to the script. A filesystem root has no usable name
// and would shadow the runner mount itself.
func resolveMount(dir string) (source, name string, err error) {
	source, err = filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve mount path: %w", err)
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return "", "", model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("mount %q is not a directory", dir))
	}

	name = filepath.Base(source)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		return "", "", model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("cannot mount %q, choose a named directory instead of a filesystem root", dir))
	}
	return source, name, nil
}

// validateRunFlags rejects flag combinations docker would fail on later.
func validateRunFlags(f runFlags) error {
	if f.exposePort < 0 || f.exposePort > 65535 {
		return model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid port %d", f.exposePort))
	}
	if f.publish && f.exposePort == 0 {
		return model.NewCLIError(model.ExitInvalidInput, "--publish requires --expose-port")
	}
	if f.writable && f.mount == "" {
		return model.NewCLIError(model.ExitInvalidInput, "--writable requires --mount")
	}
	if f.noNetwork && f.exposePort != 0 {
		return model.NewCLIError(model.ExitInvalidInput, "--no-network cannot be combined with --expose-port")
	}
	return nil
}

// scriptExitError maps a container exit code to the command result. The
// script's own output already explains the failure, so only the hint is
// logged and the CLIError carries no message.
func scriptExitError(code int) error {
	if code == 0 {
		return nil
	}
	log.Debug("container exited", zap.Int("code", code))
	log.Error("Script completed with error! Use `dockenv run --verbose` to get more info")
	return &model.CLIError{Code: model.ExitCode(code)}
}

// stdinIsTerminal reports whether -t should be passed to docker run.
func stdinIsTerminal() bool {
	_, isTerm := term.GetFdInfo(os.Stdin)
	return isTerm
}
