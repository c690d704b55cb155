// Package cli: import.go implements the "dockenv import" command, a
// `docker load` restricted to archives holding dockenv images.
//
// The archive's manifest.json is read before anything is sent to the
// daemon, so a foreign archive is never loaded and an existing
// environment is never replaced without --force.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/model"
)

// NewImportCommand creates the "import" cobra command.
func NewImportCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a virtual environment from a tar archive",
		Long: `Import a virtual environment previously written by "dockenv export".

Archives must contain only dockenv-<envname> images; anything else is
rejected before it reaches Docker. Existing environments are not replaced
unless --force is given.

Examples:
  dockenv import dockenv-scraper.tar
  dockenv import --force dockenv-scraper.tar`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace environments that already exist")

	return cmd
}

// runImport is the main logic function for the import command.
func runImport(ctx context.Context, path string, force bool) error {
	// Step 1: Inspect the archive without the daemon.
	tags, err := docker.ArchiveRepoTags(path)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("%s is not an image archive", path), err)
	}
	log.Debug("archive tags", zap.Strings("tags", tags))
	envTags, err := archiveEnvTags(path, tags)
	if err != nil {
		return err
	}

	// Step 2: Check for collisions with local environments.
	cli, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	images, err := docker.ListImages(ctx, cli)
	if err != nil {
		return err
	}
	if existing := existingTags(images, envTags); len(existing) > 0 {
		if !force {
			return envExistsError(model.EnvName(existing[0]))
		}
		log.Warn("replacing existing environments", zap.Strings("images", existing))
	}

	// Step 3: Load.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	log.Info(fmt.Sprintf("[*] importing %s", path))
	if err := docker.LoadImage(ctx, cli, f, progressOutput()); err != nil {
		return err
	}

	names := make([]string, 0, len(envTags))
	for _, tag := range envTags {
		names = append(names, model.EnvName(tag))
		log.Info(fmt.Sprintf("[*] imported virtual env %s", model.EnvName(tag)))
	}
	if IsJSONOutput() {
		printJSON(map[string]interface{}{"imported": names})
	}
	return nil
}

// archiveEnvTags returns the dockenv tags of an archive. An archive with
// no dockenv tag, or with any other tag next to them, is refused: loading
// it would add or overwrite images outside dockenv's namespace.
func archiveEnvTags(path string, tags []string) ([]string, error) {
	envTags := envTagsOf(tags)
	if len(envTags) == 0 {
		return nil, model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("%s contains no dockenv environment", path))
	}
	if foreign := foreignTags(tags); len(foreign) > 0 {
		return nil, model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("%s also contains non-dockenv images (%s), refusing to load it",
				path, strings.Join(foreign, ", ")))
	}
	return envTags, nil
}

// envTagsOf keeps the dockenv tags of an archive.
func envTagsOf(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if model.IsEnvTag(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// foreignTags returns the tags of an archive that are not dockenv tags.
func foreignTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if !model.IsEnvTag(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// existingTags returns the entries of tags already present in images.
func existingTags(images []model.Image, tags []string) []string {
	var out []string
	for _, tag := range tags {
		repo, t := model.SplitRepoTag(tag)
		if _, ok := model.FindImage(images, repo, t); ok {
			out = append(out, tag)
		}
	}
	return out
}
