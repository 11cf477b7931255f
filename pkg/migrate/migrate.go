// Package migrate converts Claude Code agent and command definitions into
// OpenCode's flat layout and front matter schema.
//
// Agents are read from .claude/agents and commands from .claude/commands,
// either at the tree root or one namespace directory deep. Every file is
// written, flattened, under its original name to .opencode/agent or
// .opencode/command. Headers are rewritten by a Transformer; command bodies
// additionally go through AdaptCommandBody.
package migrate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/jingkaihe/ocmigrate/pkg/frontmatter"
	"github.com/jingkaihe/ocmigrate/pkg/logger"
	"github.com/jingkaihe/ocmigrate/pkg/sources"
)

// Category is the kind of definition a source tree holds
type Category string

// Definition categories
const (
	CategoryAgent   Category = "agent"
	CategoryCommand Category = "command"
)

// Plural returns the category's plural noun
func (c Category) Plural() string {
	return string(c) + "s"
}

// Default directories relative to the project root
var (
	DefaultAgentsSource   = filepath.Join(".claude", "agents")
	DefaultCommandsSource = filepath.Join(".claude", "commands")
	DefaultAgentsDest     = filepath.Join(".opencode", "agent")
	DefaultCommandsDest   = filepath.Join(".opencode", "command")
)

// Layout holds the source and destination directories of a migration
type Layout struct {
	AgentsSource   string
	CommandsSource string
	AgentsDest     string
	CommandsDest   string
}

// DefaultLayout returns the standard layout under root
func DefaultLayout(root string) Layout {
	return Layout{
		AgentsSource:   filepath.Join(root, DefaultAgentsSource),
		CommandsSource: filepath.Join(root, DefaultCommandsSource),
		AgentsDest:     filepath.Join(root, DefaultAgentsDest),
		CommandsDest:   filepath.Join(root, DefaultCommandsDest),
	}
}

// Reporter receives human readable progress
type Reporter interface {
	Section(title string)
	Info(message string)
	Success(message string)
	Warning(message string)
}

type nopReporter struct{}

func (nopReporter) Section(string) {}
func (nopReporter) Info(string)    {}
func (nopReporter) Success(string) {}
func (nopReporter) Warning(string) {}

// FileResult describes what happened to one source file
type FileResult struct {
	Category    Category
	Source      string
	Destination string
	// Changed is true when the migrated content differs from what was
	// already at Destination
	Changed bool
}

// Report summarises a migration run
type Report struct {
	RunID      string
	Agents     int
	Commands   int
	AgentDir   string
	CommandDir string
	DryRun     bool
	Files      []FileResult
}

// Migrator runs a migration over a Layout
type Migrator struct {
	layout      Layout
	transformer *Transformer
	reporter    Reporter
	filters     []glob.Glob
	dryRun      bool
	diff        bool
}

// Option configures a Migrator
type Option func(*Migrator) error

// WithLayout sets all source and destination directories
func WithLayout(layout Layout) Option {
	return func(m *Migrator) error {
		m.layout = layout
		return nil
	}
}

// WithProjectRoot uses the default layout under root
func WithProjectRoot(root string) Option {
	return func(m *Migrator) error {
		if root == "" {
			return errors.New("project root must not be empty")
		}
		m.layout = DefaultLayout(root)
		return nil
	}
}

// WithTransformer sets the header transformer
func WithTransformer(t *Transformer) Option {
	return func(m *Migrator) error {
		if t == nil {
			return errors.New("transformer must not be nil")
		}
		m.transformer = t
		return nil
	}
}

// WithWriteAgents uses a transformer granting write access to names
func WithWriteAgents(names ...string) Option {
	return func(m *Migrator) error {
		m.transformer = NewTransformer(names...)
		return nil
	}
}

// WithReporter sets where progress is reported
func WithReporter(r Reporter) Option {
	return func(m *Migrator) error {
		if r == nil {
			r = nopReporter{}
		}
		m.reporter = r
		return nil
	}
}

// WithDryRun computes every output without writing anything
func WithDryRun(dryRun bool) Option {
	return func(m *Migrator) error {
		m.dryRun = dryRun
		return nil
	}
}

// WithDiff reports a unified diff for every destination whose content changes
func WithDiff(diff bool) Option {
	return func(m *Migrator) error {
		m.diff = diff
		return nil
	}
}

// WithNameFilter restricts the migration to files whose name, without the
// .md extension, matches at least one glob pattern
func WithNameFilter(patterns ...string) Option {
	return func(m *Migrator) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return errors.Wrapf(err, "invalid name filter '%s'", p)
			}
			m.filters = append(m.filters, g)
		}
		return nil
	}
}

// NewMigrator creates a migrator. Without options it migrates the default
// layout under the current directory using DefaultWriteAgents.
func NewMigrator(opts ...Option) (*Migrator, error) {
	m := &Migrator{
		layout:      DefaultLayout("."),
		transformer: NewTransformer(DefaultWriteAgents...),
		reporter:    nopReporter{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, errors.Wrap(err, "failed to apply migrator option")
		}
	}

	if m.layout.AgentsSource == "" || m.layout.CommandsSource == "" ||
		m.layout.AgentsDest == "" || m.layout.CommandsDest == "" {
		return nil, errors.New("source and destination directories must all be set")
	}

	return m, nil
}

// Layout returns the directories the migrator works on
func (m *Migrator) Layout() Layout {
	return m.layout
}

// Run migrates agents and then commands. The first error aborts the run;
// files written before it are left in place.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:      uuid.New().String(),
		AgentDir:   m.layout.AgentsDest,
		CommandDir: m.layout.CommandsDest,
		DryRun:     m.dryRun,
	}

	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("run_id", report.RunID))
	log := logger.G(ctx)
	log.WithField("layout", fmt.Sprintf("%+v", m.layout)).Debug("Starting migration")

	if !m.dryRun {
		for _, dir := range []string{m.layout.AgentsDest, m.layout.CommandsDest} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return report, errors.Wrapf(err, "failed to create destination directory '%s'", dir)
			}
		}
	}

	m.reporter.Section("Migrating Agents...")
	agents, err := m.migrateTree(ctx, CategoryAgent, m.layout.AgentsSource, m.layout.AgentsDest, report)
	report.Agents = agents
	if err != nil {
		return report, err
	}
	m.reporter.Success(fmt.Sprintf("Migrated %d agents", agents))

	m.reporter.Section("Migrating Commands...")
	commands, err := m.migrateTree(ctx, CategoryCommand, m.layout.CommandsSource, m.layout.CommandsDest, report)
	report.Commands = commands
	if err != nil {
		return report, err
	}
	m.reporter.Success(fmt.Sprintf("Migrated %d commands", commands))

	log.WithField("agents", agents).WithField("commands", commands).Info("Migration finished")
	return report, nil
}

func (m *Migrator) migrateTree(ctx context.Context, category Category, srcDir, destDir string, report *Report) (int, error) {
	files, err := sources.Discover(srcDir)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to list %s", category.Plural())
	}

	written := make(map[string]string)
	count := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		if !m.matches(f.BaseName()) {
			logger.G(ctx).WithField("file", f.Path).Debug("Skipping file excluded by name filter")
			continue
		}

		target := filepath.Join(destDir, f.Name)
		if previous, ok := written[target]; ok {
			m.reporter.Warning(fmt.Sprintf("%s overwrites %s migrated from %s", f.Path, target, previous))
		}

		result, err := m.migrateFile(ctx, category, f, target)
		if err != nil {
			return count, err
		}

		written[target] = f.Path
		report.Files = append(report.Files, *result)
		count++
	}

	return count, nil
}

func (m *Migrator) migrateFile(ctx context.Context, category Category, f sources.File, target string) (*FileResult, error) {
	log := logger.G(ctx).WithField("file", f.Path)
	m.reporter.Info(fmt.Sprintf("  Migrating %s: %s", category, f.Name))

	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s file '%s'", category, f.Path)
	}

	out, err := m.Convert(category, f.BaseName(), string(content))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to migrate %s file '%s'", category, f.Path)
	}

	existing, err := os.ReadFile(target)
	if err != nil && !os.IsNotExist(err) {
		log.WithError(err).Debug("Could not read existing destination file")
	}
	changed := !bytes.Equal(existing, out)

	if m.diff && changed {
		m.reporter.Info(udiff.Unified(target, target, string(existing), string(out)))
	}

	if m.dryRun {
		m.reporter.Info(fmt.Sprintf("    Would write: %s", target))
	} else {
		if err := lockedfile.Write(target, bytes.NewReader(out), 0o644); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s file '%s'", category, target)
		}
		m.reporter.Success(fmt.Sprintf("  Saved to: %s", target))
	}

	log.WithField("destination", target).WithField("changed", changed).Debug("Migrated file")

	return &FileResult{
		Category:    category,
		Source:      f.Path,
		Destination: target,
		Changed:     changed,
	}, nil
}

// Convert migrates a single definition held in memory. name is the file name
// without extension, used as the agent name when the header has none.
func (m *Migrator) Convert(category Category, name, content string) ([]byte, error) {
	doc, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}

	switch category {
	case CategoryAgent:
		header := m.transformer.TransformAgent(doc.Header, name)
		return frontmatter.Render(header, doc.Body)
	case CategoryCommand:
		header := m.transformer.TransformCommand(doc.Header)
		return frontmatter.Render(header, AdaptCommandBody(doc.Body))
	default:
		return nil, errors.Errorf("unknown category '%s'", category)
	}
}

func (m *Migrator) matches(name string) bool {
	if len(m.filters) == 0 {
		return true
	}
	for _, g := range m.filters {
		if g.Match(name) {
			return true
		}
	}
	return false
}
