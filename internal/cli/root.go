// Package cli implements the cobra-based CLI commands for dockenv.
//
// Each subcommand (new, run, list, freeze, delete, export, import) is
// defined in its own file within this package. This file defines the root
// command, the global flags, and the translation of errors to exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathtofile/dockenv/internal/config"
	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/logger"
	"github.com/pathtofile/dockenv/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command results on stdout to JSON.
	jsonOutput bool

	// verbose forces debug logging and shows build/load progress.
	verbose bool

	// configPath is an explicit config file; empty searches the defaults.
	configPath string
)

// Runtime state initialised by the root command's PersistentPreRunE.
var (
	cfg = config.Default()
	log = zap.NewNop()

	// newDockerClient is replaced in tests with an in-memory engine.
	newDockerClient = docker.NewClient
)

// Version, Commit, and Date are set at build time via ldflags.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dockenv",
		Short: "Run untrusted Python scripts inside disposable Docker environments",
		Long: `dockenv gives virtualenv-like environments backed by Docker images.

Each environment is an image named dockenv-<envname> with its packages
installed as a non-root user. Scripts run in a fresh container that is
removed on exit, with the script directory mounted read-only.`,

		// Errors are printed by Execute in text or JSON form.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRuntime()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			// Sync fails on unbuffered stderr on some platforms.
			_ = log.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/dockenv/config.yaml)")

	rootCmd.AddCommand(NewNewCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewFreezeCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewImportCommand())

	return rootCmd
}

// initRuntime loads the configuration and builds the logger.
func initRuntime() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "failed to load configuration", err)
	}

	l, err := logger.NewFromConfig(loaded, verbose)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "failed to initialize logger", err)
	}

	cfg = loaded
	log = l
	log.Debug("configuration loaded",
		zap.String("config", configPath),
		zap.String("base", cfg.Image.Base),
		zap.Bool("only_binary", cfg.Pip.OnlyBinary),
	)
	return nil
}

// Execute runs the root command and handles exit codes. CLIError types
// carry their own exit codes; other errors exit with 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			// A failed script already printed its own output; the exit
			// code is all that is left to report.
			if cliErr.Message != "" {
				printError(cliErr.Message, cliErr.Err)
			}
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message to stderr in the format selected by
// the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// connect opens a Docker client and checks the daemon answers.
func connect(ctx context.Context) (*docker.Client, error) {
	cli, err := newDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	log.Debug("connected to Docker daemon")
	return cli, nil
}

// requireEnv fails with ExitEnvNotFound unless the environment image
// exists locally. The message matches the one dockenv has always printed.
func requireEnv(ctx context.Context, cli *docker.Client, envName string) (*model.Image, error) {
	img, ok, err := docker.FindImage(ctx, cli, model.ImageName(envName), model.DefaultTag)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, envNotFoundError(envName)
	}
	return img, nil
}

func envNotFoundError(envName string) error {
	return model.NewCLIError(
		model.ExitEnvNotFound,
		fmt.Sprintf("Virtual Env `%s` doesn't exist", envName),
	)
}

func envExistsError(envName string) error {
	return model.NewCLIError(
		model.ExitEnvExists,
		fmt.Sprintf("Virtual Env `%s` already exists! Use `dockenv delete` or `dockenv run`", envName),
	)
}

// validateEnvName wraps model.ValidateName as an input error.
func validateEnvName(envName string) error {
	if err := model.ValidateName(envName); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid environment name %q", envName), err)
	}
	return nil
}
