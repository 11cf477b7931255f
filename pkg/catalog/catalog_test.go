package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/ocmigrate/pkg/migrate"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "planning", "planner.md"), `---
name: planner
description: Plans the work
model: opus
tools: [Read, Write]
---
You plan.
`)
	writeFile(t, filepath.Join(root, "reviewer.md"), `---
description: Reviews changes
tools: Read, Grep
---
You review.
`)
	writeFile(t, filepath.Join(root, "bare.md"), "# Just markdown\n")

	entries, err := List(context.Background(), migrate.CategoryAgent, root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		Category:    migrate.CategoryAgent,
		Name:        "planner",
		Description: "Plans the work",
		Model:       "opus",
		Tools:       []string{"Read", "Write"},
		Namespace:   "planning",
		Path:        filepath.Join(root, "planning", "planner.md"),
	}, entries[0])

	t.Run("root files follow namespaced ones", func(t *testing.T) {
		assert.Equal(t, "bare", entries[1].Name)
		assert.Equal(t, "reviewer", entries[2].Name)
	})

	t.Run("comma separated tools are split", func(t *testing.T) {
		assert.Equal(t, []string{"Read", "Grep"}, entries[2].Tools)
	})

	t.Run("file without front matter is listed by name", func(t *testing.T) {
		assert.Empty(t, entries[1].Description)
		assert.Empty(t, entries[1].Tools)
		assert.Empty(t, entries[1].Namespace)
	})
}

func TestListSkipsMalformedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.md"), "---\ndescription: fine\n---\n")
	writeFile(t, filepath.Join(root, "broken.md"), "---\nname: [oops\n---\n")
	writeFile(t, filepath.Join(root, "shape.md"), "---\ndescription:\n  nested: map\n---\n")

	entries, err := List(context.Background(), migrate.CategoryCommand, root)
	require.Error(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Name)
	assert.Equal(t, migrate.CategoryCommand, entries[0].Category)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "broken.md")
	assert.Contains(t, err.Error(), "shape.md")
}

func TestListMissingRoot(t *testing.T) {
	entries, err := List(context.Background(), migrate.CategoryAgent, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "failed to list agents")
}

func TestListCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "---\nname: a\n---\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := List(ctx, migrate.CategoryAgent, root)
	require.ErrorIs(t, err, context.Canceled)
}
