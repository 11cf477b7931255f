package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/ocmigrate/pkg/catalog"
	"github.com/jingkaihe/ocmigrate/pkg/config"
	"github.com/jingkaihe/ocmigrate/pkg/migrate"
	"github.com/jingkaihe/ocmigrate/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:       "list [agents|commands]",
	Short:     "List the agent and command definitions that would be migrated",
	Long:      `Lists the Claude Code agents and commands found under the project root. Files with unreadable front matter are reported and skipped.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"agents", "commands"},
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)

		categories := []migrate.Category{migrate.CategoryAgent, migrate.CategoryCommand}
		if len(args) == 1 {
			categories = categoriesFor(args[0])
		}

		if err := listDefinitions(cmd.Context(), cmd.OutOrStdout(), cfg, categories); err != nil {
			presenter.Error(err, "Failed to list definitions")
			os.Exit(1)
		}
	},
}

func categoriesFor(arg string) []migrate.Category {
	if arg == "commands" {
		return []migrate.Category{migrate.CategoryCommand}
	}
	return []migrate.Category{migrate.CategoryAgent}
}

// listDefinitions prints a table per category. Skipped files are shown as
// warnings; only a missing source directory is an error.
func listDefinitions(ctx context.Context, w io.Writer, cfg *config.Config, categories []migrate.Category) error {
	layout := cfg.Layout()
	for i, category := range categories {
		root := layout.AgentsSource
		if category == migrate.CategoryCommand {
			root = layout.CommandsSource
		}

		entries, err := catalog.List(ctx, category, root)
		if err != nil {
			var skipped *multierror.Error
			if !errors.As(err, &skipped) {
				return err
			}
			for _, e := range skipped.Errors {
				presenter.Warning(e.Error())
			}
		}

		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", strings.ToUpper(category.Plural()), len(entries))
		if err := renderEntries(w, entries); err != nil {
			return err
		}
	}
	return nil
}

func renderEntries(w io.Writer, entries []catalog.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNAMESPACE\tMODEL\tTOOLS\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Name,
			orDash(e.Namespace),
			orDash(e.Model),
			orDash(strings.Join(e.Tools, ",")),
			orDash(e.Description),
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
