// Package cli: delete.go implements the "dockenv delete" command.
//
// Delete force-removes every container created from the environment image
// (running or not) and then removes the image itself.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/model"
)

// deleteResult is the JSON output of the delete command.
type deleteResult struct {
	Name              string   `json:"name"`
	Image             string   `json:"image"`
	RemovedContainers []string `json:"removedContainers"`
}

// NewDeleteCommand creates the "delete" cobra command.
func NewDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <envname>",
		Short: "Delete a virtual environment",
		Long: `Delete a virtual environment: force-remove all containers created from
dockenv-<envname>, then remove the image.

Examples:
  dockenv delete scraper`,

		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), args[0])
		},
	}

	return cmd
}

// runDelete is the main logic function for the delete command.
func runDelete(ctx context.Context, envName string) error {
	// Step 1: Validate and connect.
	if err := validateEnvName(envName); err != nil {
		return err
	}

	cli, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	// Step 2: Check the environment exists.
	if _, err := requireEnv(ctx, cli, envName); err != nil {
		return err
	}

	// Step 3: Remove containers before the image, or the daemon refuses.
	imageName := model.ImageName(envName)
	containers, err := docker.ListEnvContainers(ctx, cli, imageName)
	if err != nil {
		return err
	}

	removed := make([]string, 0, len(containers))
	for _, c := range containers {
		log.Info(fmt.Sprintf("[*] deleting container %s", c.Name),
			zap.String("id", c.ShortID()),
			zap.String("state", c.State),
		)
		if err := docker.RemoveContainer(ctx, cli, c.ID, true); err != nil {
			return err
		}
		removed = append(removed, c.Name)
	}

	// Step 4: Remove the image.
	log.Info(fmt.Sprintf("[*] deleting image %s", imageName))
	if err := docker.RemoveImage(ctx, cli, model.ImageRef(envName, model.DefaultTag)); err != nil {
		return err
	}

	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"deleted": deleteResult{
				Name:              envName,
				Image:             imageName,
				RemovedContainers: removed,
			},
		})
	}
	return nil
}
