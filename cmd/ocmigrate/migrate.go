package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/ocmigrate/pkg/config"
	"github.com/jingkaihe/ocmigrate/pkg/logger"
	"github.com/jingkaihe/ocmigrate/pkg/migrate"
	"github.com/jingkaihe/ocmigrate/pkg/presenter"
	"github.com/jingkaihe/ocmigrate/pkg/watcher"
)

const bannerTitle = "Claude Code → OpenCode Migration"

var nextSteps = []string{
	"Review migrated files in .opencode/",
	"Test commands with OpenCode CLI",
	"Update documentation (CLAUDE.md, AGENTS.md)",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert agents and commands to the OpenCode layout",
	Long: `Reads every agent under .claude/agents and every command under .claude/commands
(at the top level or one namespace directory deep), rewrites their front matter
for OpenCode and writes them, flattened, to .opencode/agent and .opencode/command.

Command bodies have their Task tool delegations rewritten to @agent mentions and
parallel execution wording changed to sequential.`,
	Args: cobra.NoArgs,
	Run:  runMigrate,
}

func init() {
	addMigrateFlags(migrateCmd)
}

func addMigrateFlags(cmd *cobra.Command) {
	defaults := config.New()
	cmd.Flags().String("agents-src", defaults.AgentsSource, "Agent source directory, relative to the root")
	cmd.Flags().String("commands-src", defaults.CommandsSource, "Command source directory, relative to the root")
	cmd.Flags().String("agents-dest", defaults.AgentsDest, "Agent output directory, relative to the root")
	cmd.Flags().String("commands-dest", defaults.CommandsDest, "Command output directory, relative to the root")
	cmd.Flags().StringSlice("write-agent", defaults.WriteAgents, "Agents granted unrestricted bash when they declare the Write tool")
	cmd.Flags().StringSlice("only", defaults.Only, "Only migrate files whose name matches one of these globs")
	cmd.Flags().Bool("dry-run", defaults.DryRun, "Show what would be written without writing anything")
	cmd.Flags().Bool("diff", defaults.Diff, "Print a unified diff for every output file that changes")
	cmd.Flags().BoolP("watch", "w", defaults.Watch, "Migrate again whenever a source file changes")
	cmd.Flags().IntP("debounce", "d", defaults.Debounce, "Debounce time in milliseconds for watch mode")
}

func runMigrate(cmd *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg := mustLoadConfig(cmd)
	p := presenter.Default()

	if !cfg.Watch {
		if _, err := migrateOnce(ctx, cfg, p); err != nil {
			p.Error(err, "Migration failed")
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			p.Warning("Stopping watch mode...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := runWatchMode(ctx, cfg, p); err != nil {
		p.Error(err, "Watch mode failed")
		os.Exit(1)
	}
}

// migrateOnce runs one full migration and prints its summary
func migrateOnce(ctx context.Context, cfg *config.Config, p presenter.Presenter) (*migrate.Report, error) {
	opts := append(cfg.MigratorOptions(), migrate.WithReporter(p))
	m, err := migrate.NewMigrator(opts...)
	if err != nil {
		return nil, err
	}

	p.Banner(bannerTitle)

	report, err := m.Run(ctx)
	if err != nil {
		return report, err
	}

	printSummary(p, report)
	return report, nil
}

func printSummary(p presenter.Presenter, report *migrate.Report) {
	changed := 0
	for _, f := range report.Files {
		if f.Changed {
			changed++
		}
	}

	p.Separator()
	if report.DryRun {
		p.Banner("Dry Run Complete, nothing was written")
	} else {
		p.Banner("Migration Complete!")
	}

	p.Info("Summary:")
	p.Info(fmt.Sprintf("  - Agents migrated: %d", report.Agents))
	p.Info(fmt.Sprintf("  - Commands migrated: %d", report.Commands))
	p.Info(fmt.Sprintf("  - Files changed: %d", changed))
	p.Info("")
	p.Info("Output directories:")
	p.Info(fmt.Sprintf("  - Agents: %s", report.AgentDir))
	p.Info(fmt.Sprintf("  - Commands: %s", report.CommandDir))
	p.Info("")
	p.Steps("Next steps:", nextSteps...)
}

// runWatchMode migrates once, then again after every burst of source changes
// until ctx is cancelled. Failed migrations are reported and watching goes on.
func runWatchMode(ctx context.Context, cfg *config.Config, p presenter.Presenter) error {
	if _, err := migrateOnce(ctx, cfg, p); err != nil {
		p.Error(err, "Migration failed")
	}

	layout := cfg.Layout()
	w, err := watcher.New(ctx,
		[]string{layout.AgentsSource, layout.CommandsSource},
		watcher.WithDebounce(time.Duration(cfg.Debounce)*time.Millisecond),
	)
	if err != nil {
		return err
	}

	p.Info("Watching for changes... Press Ctrl+C to stop")
	logger.G(ctx).WithField("debounce_ms", cfg.Debounce).Info("File watcher initialized")

	return w.Run(ctx, func(ctx context.Context, events []watcher.Event) {
		last := events[len(events)-1]
		p.Info(fmt.Sprintf("Change detected: %s (%s)", last.Path, last.Op))
		if _, err := migrateOnce(ctx, cfg, p); err != nil {
			p.Error(err, "Migration failed")
		}
	})
}
