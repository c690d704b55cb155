// Package cli: freeze.go implements the "dockenv freeze" command, which
// lists the packages installed in an environment by running the bundled
// pip_freeze.py through the normal run path.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathtofile/dockenv/internal/scaffold"
)

// NewFreezeCommand creates the "freeze" cobra command.
func NewFreezeCommand() *cobra.Command {
	var noNetwork bool

	cmd := &cobra.Command{
		Use:   "freeze <envname>",
		Short: "List packages inside an environment",
		Long: `List the pip packages installed inside an environment, in requirements format.

Examples:
  dockenv freeze scraper
  dockenv freeze scraper > requirements.lock`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreeze(cmd.Context(), args[0], noNetwork)
		},
	}

	cmd.Flags().BoolVar(&noNetwork, "no-network", true, "Disable networking inside the container")

	return cmd
}

// runFreeze writes the freeze script to a temporary directory and runs it.
func runFreeze(ctx context.Context, envName string, noNetwork bool) error {
	dir, err := os.MkdirTemp("", "dockenv-freeze-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	script, err := scaffold.WriteFreezeScript(dir)
	if err != nil {
		return err
	}

	return runScript(ctx, scriptRun{
		envName:    envName,
		scriptPath: script,
		flags:      runFlags{noNetwork: noNetwork},
	})
}
