// Package cli: export.go implements the "dockenv export" command, a
// `docker save` of an environment image.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/moby/term"
	"github.com/spf13/cobra"

	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/model"
)

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <envname>",
		Short: "Export a virtual environment to a tar archive",
		Long: `Export a virtual environment as a docker save archive, so it can be
moved to another machine with "dockenv import".

The archive is written to dockenv-<envname>.tar unless -o is given.
Use -o - to write to stdout.

Examples:
  dockenv export scraper
  dockenv export scraper -o - | gzip > scraper.tar.gz`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout")

	return cmd
}

// runExport is the main logic function for the export command.
func runExport(ctx context.Context, envName, output string) error {
	if err := validateEnvName(envName); err != nil {
		return err
	}
	output = exportPath(envName, output)

	// Refuse to dump binary data on a terminal.
	if output == "-" {
		if _, isTerm := term.GetFdInfo(os.Stdout); isTerm {
			return model.NewCLIError(model.ExitInvalidInput, "refusing to write archive to a terminal, use -o <file>")
		}
	}

	cli, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if _, err := requireEnv(ctx, cli, envName); err != nil {
		return err
	}

	log.Info(fmt.Sprintf("[*] exporting virtual env %s", model.ImageName(envName)))
	save := func(w io.Writer) error {
		return docker.SaveImage(ctx, cli, model.ImageRef(envName, model.DefaultTag), w)
	}
	if output == "-" {
		return save(os.Stdout)
	}
	if err := writeArchive(output, save); err != nil {
		return err
	}

	log.Info(fmt.Sprintf("[*] exported to %s", output))
	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"export": map[string]string{"name": envName, "path": output},
		})
	}
	return nil
}

// writeArchive creates path and fills it with write. A failed write or
// close leaves no partial archive behind.
func writeArchive(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("failed to create %s", path), err)
	}

	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// exportPath returns the archive path for envName, defaulting to
// dockenv-<envname>.tar in the current directory.
func exportPath(envName, output string) string {
	if output != "" {
		return output
	}
	return model.ImageName(envName) + ".tar"
}
