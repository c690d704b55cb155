// Package cli: list.go implements the "dockenv list" command.
//
// The list command shows every local image tagged dockenv-<envname>,
// with the creation age and size of each environment.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pathtofile/dockenv/internal/docker"
	"github.com/pathtofile/dockenv/internal/model"
)

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all virtual environments",
		Long: `List all virtual environments, i.e. local images named dockenv-<envname>.

Examples:
  dockenv list
  dockenv list --json`,

		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context())
		},
	}

	return cmd
}

// runList is the main logic function for the list command.
func runList(ctx context.Context) error {
	cli, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	envs, err := docker.ListEnvs(ctx, cli)
	if err != nil {
		return err
	}
	log.Debug("found environments", zap.Int("count", len(envs)))

	printListResult(envs, time.Now())
	return nil
}

// printListResult outputs the environment list in the appropriate format.
func printListResult(envs []model.Env, now time.Time) {
	if IsJSONOutput() {
		printListResultJSON(envs)
	} else {
		fmt.Print(formatListText(envs, now))
	}
}

// printListResultJSON outputs {"environments": [...]}. An empty list is
// printed as [] rather than null.
func printListResultJSON(envs []model.Env) {
	if envs == nil {
		envs = []model.Env{}
	}
	printJSON(map[string]interface{}{
		"environments": envs,
	})
}

// formatListText renders the text table:
//
//	NAME           CREATED        SIZE     BASE
//	scraper        2 days ago     1.1 GB   python:3
//	ml:v2          3 weeks ago    2.4 GB   python:3.12-slim
func formatListText(envs []model.Env, now time.Time) string {
	if len(envs) == 0 {
		return "No virtual envs found.\n"
	}

	var b strings.Builder
	b.WriteString("Dockenv virtual envs:\n")
	fmt.Fprintf(&b, "%-20s %-16s %-10s %s\n", "NAME", "CREATED", "SIZE", "BASE")
	for _, env := range envs {
		fmt.Fprintf(&b, "%-20s %-16s %-10s %s\n",
			env.Name,
			FormatAge(env.CreatedAt, now),
			FormatSize(env.Size),
			dashIfEmpty(env.BaseImage),
		)
	}
	return b.String()
}

// FormatAge renders t relative to now ("3 days ago"), or "-" when t is
// unknown.
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatSize renders a byte count in SI units ("1.1 GB").
func FormatSize(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
