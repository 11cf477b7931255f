// Package catalog lists the agent and command definitions found in a source
// tree without migrating them. Reading is lenient: a file that cannot be
// read or whose front matter is malformed is skipped and reported, and the
// rest of the listing is still returned.
package catalog

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/ocmigrate/pkg/logger"
	"github.com/jingkaihe/ocmigrate/pkg/migrate"
	"github.com/jingkaihe/ocmigrate/pkg/sources"
)

// Entry describes one definition file
type Entry struct {
	Category    migrate.Category `mapstructure:"-"`
	Name        string           `mapstructure:"name"`
	Description string           `mapstructure:"description"`
	Model       string           `mapstructure:"model"`
	Tools       []string         `mapstructure:"tools"`
	Namespace   string           `mapstructure:"-"`
	Path        string           `mapstructure:"-"`
}

// List reads every definition under root. A missing root is returned as the
// only result with nil entries. Files that fail to load are left out of the
// entries and collected into a *multierror.Error returned alongside them.
func List(ctx context.Context, category migrate.Category, root string) ([]Entry, error) {
	files, err := sources.Discover(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", category.Plural())
	}

	var skipped *multierror.Error
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		entry, err := load(f)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", f.Path).Debug("Skipping unreadable definition")
			skipped = multierror.Append(skipped, errors.Wrapf(err, "skipped '%s'", f.Path))
			continue
		}
		entry.Category = category
		entries = append(entries, *entry)
	}

	return entries, skipped.ErrorOrNil()
}

func load(f sources.File) (*Entry, error) {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read definition file")
	}

	metaData, err := parseMeta(content)
	if err != nil {
		return nil, err
	}

	entry := &Entry{}
	if err := decode(metaData, entry); err != nil {
		return nil, err
	}

	if entry.Name == "" {
		entry.Name = f.BaseName()
	}
	entry.Namespace = f.Namespace
	entry.Path = f.Path

	tools := entry.Tools[:0]
	for _, t := range entry.Tools {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tools = append(tools, trimmed)
		}
	}
	entry.Tools = tools

	return entry, nil
}

// parseMeta extracts the front matter of a markdown document. A document
// without front matter yields an empty map.
func parseMeta(content []byte) (map[string]interface{}, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "invalid front matter")
	}
	return metaData, nil
}

func decode(metaData map[string]interface{}, entry *Entry) error {
	if len(metaData) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           entry,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create front matter decoder")
	}

	if err := decoder.Decode(metaData); err != nil {
		return errors.Wrap(err, "failed to decode front matter")
	}
	return nil
}
