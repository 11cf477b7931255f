package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/ocmigrate/pkg/config"
	"github.com/jingkaihe/ocmigrate/pkg/logger"
	"github.com/jingkaihe/ocmigrate/pkg/presenter"
)

func init() {
	config.Setup(viper.GetViper())
}

var rootCmd = &cobra.Command{
	Use:   "ocmigrate",
	Short: "Migrate Claude Code agents and commands to OpenCode",
	Long: `ocmigrate converts the agent and command definitions of a project from the
Claude Code layout (.claude/agents, .claude/commands) to the OpenCode layout
(.opencode/agent, .opencode/command).

Running ocmigrate without a subcommand is the same as running "ocmigrate migrate".`,
	Args: cobra.NoArgs,
	Run:  runMigrate,
}

// loadConfig resolves the configuration for cmd from its flags, the
// environment and the config file, then applies the logging and output
// settings
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*config.Config, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	explicit, _ := cmd.Flags().GetString("config")
	path, err := config.ReadConfigFile(v, explicit, v.GetString("root"))
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	presenter.SetQuiet(cfg.Quiet)

	if path != "" {
		logger.G(cmd.Context()).WithField("path", path).Debug("Loaded config file")
	}
	return cfg, nil
}

// mustLoadConfig is loadConfig for command handlers: errors end the process
func mustLoadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := loadConfig(viper.GetViper(), cmd)
	if err != nil {
		presenter.Error(err, "Invalid configuration")
		os.Exit(1)
	}
	return cfg
}

func main() {
	defaults := config.New()
	rootCmd.PersistentFlags().String("config", "", "Config file (default is <root>/.ocmigrate.yaml, then $HOME/.ocmigrate/config.yaml)")
	rootCmd.PersistentFlags().String("root", defaults.Root, "Project root holding .claude and .opencode")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel, "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", defaults.LogFormat, "Log format (fmt, json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", defaults.Quiet, "Only print errors")

	addMigrateFlags(rootCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
