// Copyright 2024 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sourceset expands a target's "files" glob patterns into a
// concrete, sorted list of source files and assigns each one its
// intermediate object-file path.
package sourceset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Group is one target's expanded, object-path-assigned source set.
type Group struct {
	Root    string
	Sources []string // relative to Root, sorted and de-duplicated
}

// Expand resolves patterns (relative to root) into a sorted, deduplicated
// Group, dropping any file that also matches one of excludes. Patterns may
// use "**" to match directories recursively, a convenience filepath.Glob
// itself doesn't support, by expanding "**/" segments into every matching
// subdirectory first.
func Expand(root string, patterns, excludes []string) (*Group, error) {
	excluded, err := expandPatterns(root, excludes)
	if err != nil {
		return nil, fmt.Errorf("expanding excludes: %w", err)
	}

	seen := map[string]bool{}
	var files []string

	for _, pattern := range patterns {
		matches, err := expandPattern(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] && !excluded[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)
	return &Group{Root: root, Sources: files}, nil
}

// expandPatterns expands every pattern into a set of matched relative
// paths, used to build the exclude lookup set.
func expandPatterns(root string, patterns []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, pattern := range patterns {
		matches, err := expandPattern(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			out[m] = true
		}
	}
	return out, nil
}

func expandPattern(root, pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		return relativize(root, matches), nil
	}

	prefix, rest, _ := strings.Cut(pattern, "**")
	rest = strings.TrimPrefix(rest, "/")

	base := filepath.Join(root, prefix)
	var out []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		var glob string
		if rest == "" {
			glob = filepath.Join(path, "*")
		} else {
			glob = filepath.Join(path, rest)
		}
		matches, err := filepath.Glob(glob)
		if err != nil {
			return err
		}
		out = append(out, relativize(root, matches)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func relativize(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// ObjectPath returns the intermediate object-file path for source,
// rooted under objDir, with its original extension swapped for ".o".
func ObjectPath(objDir, source string) string {
	ext := filepath.Ext(source)
	base := strings.TrimSuffix(source, ext)
	return filepath.Join(objDir, base+".o")
}
