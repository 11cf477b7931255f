// Package sources enumerates definition files in a Claude Code style source
// tree: markdown files one level down inside namespace directories, plus
// markdown files at the tree root.
package sources

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Pattern selects definition files by name
const Pattern = "*.md"

// File is a definition file found in a source tree
type File struct {
	// Path is the full path to the file
	Path string
	// Name is the file's base name, including the extension
	Name string
	// Namespace is the directory the file lives in, or "" for root level files
	Namespace string
}

// BaseName returns the file name without its .md extension
func (f File) BaseName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Discover lists definition files under root. Namespace directories come
// first in lexical order, followed by root level files. Deeper nesting is not
// searched. A missing or unreadable root is an error.
func Discover(root string) ([]File, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read source directory '%s'", root)
	}

	var files []File
	for _, entry := range entries {
		dirPath := filepath.Join(root, entry.Name())
		if !isDir(dirPath) {
			continue
		}

		nsFiles, err := matchFiles(dirPath, entry.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, nsFiles...)
	}

	rootFiles, err := matchFiles(root, "")
	if err != nil {
		return nil, err
	}

	return append(files, rootFiles...), nil
}

// matchFiles returns the regular files directly inside dir whose names match Pattern
func matchFiles(dir, namespace string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory '%s'", dir)
	}

	var files []File
	for _, entry := range entries {
		name := entry.Name()
		matched, err := doublestar.Match(Pattern, name)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern '%s'", Pattern)
		}
		if !matched {
			continue
		}

		path := filepath.Join(dir, name)
		if isDir(path) {
			continue
		}

		files = append(files, File{
			Path:      path,
			Name:      name,
			Namespace: namespace,
		})
	}

	return files, nil
}

// isDir follows symlinks, so a linked namespace directory counts
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
