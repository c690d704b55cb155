// Package cli: new.go implements the "dockenv new" command.
//
// Orchestration steps:
//  1. Validate the environment name and resolve build options from flags,
//     an optional manifest file and the user config
//  2. Refuse to overwrite an existing environment
//  3. Render the build context into a temporary directory
//  4. Build the image with dockenv labels
//  5. Output results (text or JSON)
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathtofile/dockenv/internal/config"
	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/manifest"
	"github.com/pathtofile/dockenv/internal/model"
	"github.com/pathtofile/dockenv/internal/scaffold"
)

// newFlags holds the flag values for the new command.
type newFlags struct {
	requirements string   // -r: pip requirements file
	packages     []string // -p: extra packages, repeatable
	manifest     string   // -f: environment manifest
	base         string   // --base: base image override
	user         string   // --user: non-root account override
	allowSource  bool     // --allow-source: permit sdist installs
}

// newResult is the JSON output of the new command.
type newResult struct {
	Name       string   `json:"name"`
	Image      string   `json:"image"`
	BaseImage  string   `json:"baseImage"`
	Packages   []string `json:"packages"`
	OnlyBinary bool     `json:"onlyBinary"`
}

// NewNewCommand creates the "new" cobra command.
func NewNewCommand() *cobra.Command {
	flags := &newFlags{}

	cmd := &cobra.Command{
		Use:   "new <envname>",
		Short: "Create a new virtual environment",
		Long: `Create a new virtual environment by building the image dockenv-<envname>.

Packages come from a requirements file (-r), individual packages (-p) or an
environment manifest (-f, YAML or JSON with comments). Flags override the
manifest, which overrides the user config.

By default pip only installs wheels, so no package code runs while the
image is built. Use --allow-source to permit source distributions.

Examples:
  dockenv new scraper -p requests -p beautifulsoup4
  dockenv new ml -r requirements.txt --base python:3.12-slim
  dockenv new tools -f env.yaml`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.requirements, "requirements", "r", "", "requirements.txt file to install")
	cmd.Flags().StringArrayVarP(&flags.packages, "package", "p", nil, "Package to install from pip (repeatable)")
	cmd.Flags().StringVarP(&flags.manifest, "file", "f", "", "Environment manifest (YAML, JSON or JSONC)")
	cmd.Flags().StringVar(&flags.base, "base", "", "Base image (default from config, python:3)")
	cmd.Flags().StringVar(&flags.user, "user", "", "Non-root user scripts run as")
	cmd.Flags().BoolVar(&flags.allowSource, "allow-source", false, "Allow pip to build packages from source")

	return cmd
}

// runNew is the main logic function for the new command.
func runNew(ctx context.Context, envName string, flags *newFlags) error {
	// Step 1: Validate input and resolve build options.
	if err := validateEnvName(envName); err != nil {
		return err
	}

	var m *manifest.Manifest
	if flags.manifest != "" {
		loaded, err := manifest.Load(flags.manifest)
		if err != nil {
			return err
		}
		if errs := manifest.Validate(loaded); len(errs) > 0 {
			for _, e := range errs {
				log.Error(e.Error())
			}
			return model.NewCLIError(model.ExitInvalidInput,
				fmt.Sprintf("manifest %s has %d error(s)", flags.manifest, len(errs)))
		}
		m = loaded
	}

	opts := resolveBuildOptions(cfg, m, flags)
	if err := opts.Validate(); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid build options", err)
	}

	// Step 2: Refuse to overwrite an existing environment.
	cli, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	imageName := model.ImageName(envName)
	exists, err := docker.ImageExists(ctx, cli, imageName, model.DefaultTag)
	if err != nil {
		return err
	}
	if exists {
		return envExistsError(envName)
	}

	// Step 3: Render the build context.
	buildDir, err := os.MkdirTemp("", "dockenv-build-")
	if err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	defer os.RemoveAll(buildDir)

	if err := scaffold.BuildContext(buildDir, opts); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "failed to prepare build context", err)
	}
	log.Debug("build context ready", zap.String("dir", buildDir), zap.Strings("packages", opts.Packages))

	// Step 4: Build. Pulling the base image dominates the first build.
	present, err := docker.BaseImagePresent(ctx, cli, opts.BaseImage)
	if err != nil {
		return err
	}
	if !present {
		log.Info("[*] First time using dockenv, may take some extra time")
	}

	labels := docker.BuildImageLabels(docker.ImageMetadata{
		Name:      envName,
		BaseImage: opts.BaseImage,
		Packages:  opts.Packages,
		CreatedAt: time.Now().UTC(),
	})

	log.Info(fmt.Sprintf("[*] building virtual env %s...", imageName))
	if err := docker.BuildImage(ctx, cli, buildDir, imageName, labels, progressOutput()); err != nil {
		return err
	}
	log.Info(fmt.Sprintf("[*] built virtual env %s", imageName))

	// Step 5: Output results.
	if IsJSONOutput() {
		packages := opts.Packages
		if packages == nil {
			packages = []string{}
		}
		printJSON(map[string]interface{}{
			"environment": newResult{
				Name:       envName,
				Image:      imageName,
				BaseImage:  opts.BaseImage,
				Packages:   packages,
				OnlyBinary: opts.OnlyBinary,
			},
		})
	}
	return nil
}

// resolveBuildOptions merges flags over the manifest over the config.
// Packages accumulate: manifest packages first, then -p flags.
func resolveBuildOptions(c *config.Config, m *manifest.Manifest, flags *newFlags) scaffold.BuildOptions {
	opts := scaffold.BuildOptions{
		BaseImage:  c.Image.Base,
		User:       c.Image.User,
		OnlyBinary: c.Pip.OnlyBinary,
	}

	if m != nil {
		if m.Base != "" {
			opts.BaseImage = m.Base
		}
		if m.User != "" {
			opts.User = m.User
		}
		if m.OnlyBinary != nil {
			opts.OnlyBinary = *m.OnlyBinary
		}
		opts.RequirementsPath = m.RequirementsPath()
		opts.Packages = append(opts.Packages, m.Packages...)
	}

	if flags.base != "" {
		opts.BaseImage = flags.base
	}
	if flags.user != "" {
		opts.User = flags.user
	}
	if flags.requirements != "" {
		opts.RequirementsPath = flags.requirements
	}
	if flags.allowSource {
		opts.OnlyBinary = false
	}
	opts.Packages = append(opts.Packages, flags.packages...)

	return opts
}

// progressOutput is where build and load progress is rendered: stderr in
// verbose mode, nowhere otherwise.
func progressOutput() io.Writer {
	if verbose {
		return os.Stderr
	}
	return io.Discard
}
