// Package config resolves ocmigrate settings from flags, OCMIGRATE_*
// environment variables and an optional YAML config file, in that order of
// precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jingkaihe/ocmigrate/pkg/migrate"
)

// EnvPrefix is the prefix of environment variables read by ocmigrate
const EnvPrefix = "OCMIGRATE"

// ProjectConfigFile is looked up in the project root
const ProjectConfigFile = ".ocmigrate.yaml"

// Config holds every setting of a migration run
type Config struct {
	Root           string   `mapstructure:"root"`
	AgentsSource   string   `mapstructure:"agents_src"`
	CommandsSource string   `mapstructure:"commands_src"`
	AgentsDest     string   `mapstructure:"agents_dest"`
	CommandsDest   string   `mapstructure:"commands_dest"`
	WriteAgents    []string `mapstructure:"write_agents"`
	Only           []string `mapstructure:"only"`
	DryRun         bool     `mapstructure:"dry_run"`
	Diff           bool     `mapstructure:"diff"`
	Watch          bool     `mapstructure:"watch"`
	// Debounce is the watch mode quiet period in milliseconds
	Debounce  int    `mapstructure:"debounce"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Quiet     bool   `mapstructure:"quiet"`
}

// New returns a Config holding the defaults
func New() *Config {
	return &Config{
		Root:           ".",
		AgentsSource:   migrate.DefaultAgentsSource,
		CommandsSource: migrate.DefaultCommandsSource,
		AgentsDest:     migrate.DefaultAgentsDest,
		CommandsDest:   migrate.DefaultCommandsDest,
		WriteAgents:    append([]string(nil), migrate.DefaultWriteAgents...),
		Debounce:       500,
		LogLevel:       "warn",
		LogFormat:      "fmt",
	}
}

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"root":          "root",
	"agents-src":    "agents_src",
	"commands-src":  "commands_src",
	"agents-dest":   "agents_dest",
	"commands-dest": "commands_dest",
	"write-agent":   "write_agents",
	"only":          "only",
	"dry-run":       "dry_run",
	"diff":          "diff",
	"watch":         "watch",
	"debounce":      "debounce",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"quiet":         "quiet",
}

// Setup registers the env prefix and the defaults on v
func Setup(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := New()
	v.SetDefault("root", defaults.Root)
	v.SetDefault("agents_src", defaults.AgentsSource)
	v.SetDefault("commands_src", defaults.CommandsSource)
	v.SetDefault("agents_dest", defaults.AgentsDest)
	v.SetDefault("commands_dest", defaults.CommandsDest)
	v.SetDefault("write_agents", defaults.WriteAgents)
	v.SetDefault("only", []string{})
	v.SetDefault("dry_run", defaults.DryRun)
	v.SetDefault("diff", defaults.Diff)
	v.SetDefault("watch", defaults.Watch)
	v.SetDefault("debounce", defaults.Debounce)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("quiet", defaults.Quiet)
}

// BindFlags binds every known flag present in flags to its config key.
// Flags that were not defined on the set are ignored.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "failed to bind flag '%s'", name)
		}
	}
	return nil
}

// ReadConfigFile loads explicit when set. Otherwise it looks for
// .ocmigrate.yaml in root, then $HOME/.ocmigrate/config.yaml. A missing
// implicit file is not an error. The returned path is empty when no file
// was read.
func ReadConfigFile(v *viper.Viper, explicit, root string) (string, error) {
	path := explicit
	if path == "" {
		path = findConfigFile(root)
	}
	if path == "" {
		return "", nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return "", errors.Wrapf(err, "failed to read config file '%s'", path)
	}
	return path, nil
}

func findConfigFile(root string) string {
	candidates := []string{filepath.Join(root, ProjectConfigFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".ocmigrate", "config.yaml"))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Load unmarshals v into a Config and validates it. Defaults come from
// Setup, so v should have been passed through it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Root) == "" {
		result = multierror.Append(result, errors.New("root must not be empty"))
	}

	dirs := map[string]string{
		"agents_src":    c.AgentsSource,
		"commands_src":  c.CommandsSource,
		"agents_dest":   c.AgentsDest,
		"commands_dest": c.CommandsDest,
	}
	for _, key := range []string{"agents_src", "commands_src", "agents_dest", "commands_dest"} {
		if strings.TrimSpace(dirs[key]) == "" {
			result = multierror.Append(result, errors.Errorf("%s must not be empty", key))
		}
	}

	if c.Debounce < 0 {
		result = multierror.Append(result, errors.Errorf("debounce cannot be negative: %d", c.Debounce))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, errors.Errorf("invalid log level: %s", c.LogLevel))
	}

	switch c.LogFormat {
	case "fmt", "text", "json":
	default:
		result = multierror.Append(result, errors.Errorf("invalid log format: %s, must be one of: fmt, text, json", c.LogFormat))
	}

	for _, name := range c.WriteAgents {
		if strings.TrimSpace(name) == "" {
			result = multierror.Append(result, errors.New("write_agents must not contain empty names"))
			break
		}
	}

	return result.ErrorOrNil()
}

// Layout resolves the source and destination directories. Relative
// directories are taken relative to Root.
func (c *Config) Layout() migrate.Layout {
	return migrate.Layout{
		AgentsSource:   c.resolve(c.AgentsSource),
		CommandsSource: c.resolve(c.CommandsSource),
		AgentsDest:     c.resolve(c.AgentsDest),
		CommandsDest:   c.resolve(c.CommandsDest),
	}
}

func (c *Config) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Root, dir)
}

// MigratorOptions translates the config into migrator options
func (c *Config) MigratorOptions() []migrate.Option {
	opts := []migrate.Option{
		migrate.WithLayout(c.Layout()),
		migrate.WithWriteAgents(c.WriteAgents...),
		migrate.WithDryRun(c.DryRun),
		migrate.WithDiff(c.Diff),
	}
	if len(c.Only) > 0 {
		opts = append(opts, migrate.WithNameFilter(c.Only...))
	}
	return opts
}
