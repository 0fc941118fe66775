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

// Package depfetch resolves the workspace's externalDependencies entries
// into locally-available source trees: cloning git repositories,
// downloading and extracting archives, linking local paths, or running a
// fetch script, all keyed into a content-addressed cache directory so a
// dependency already fetched for one invocation isn't re-fetched for the
// next.
package depfetch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// Cache manages the on-disk fetched-dependency store under root.
type Cache struct {
	root string
}

// NewCache returns a Cache rooted at dir, creating it if necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dependency cache %q: %w", dir, err)
	}
	return &Cache{root: dir}, nil
}

// Key returns the content-addressed cache key for dep: a hash of the
// fields that determine what gets fetched, so changing a branch/tag/url
// invalidates the old cache entry instead of silently reusing it.
func Key(dep manifest.ExternalDependency) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s",
		dep.Kind, dep.Repository, dep.Branch, dep.Tag, dep.Commit,
		dep.URL, dep.SHA256, dep.Path)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Dir returns (creating if needed) the cache directory for dep.
func (c *Cache) Dir(dep manifest.ExternalDependency) (string, error) {
	dir := filepath.Join(c.root, dep.Name+"-"+Key(dep))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir for %q: %w", dep.Name, err)
	}
	return dir, nil
}

// PruneOrphans removes cache entries that don't correspond to any
// dependency in the current manifest (e.g. a dependency that was
// removed, or one whose pinned ref changed and left its old entry
// behind).
func (c *Cache) PruneOrphans(deps []manifest.ExternalDependency) error {
	want := map[string]bool{}
	for _, d := range deps {
		want[d.Name+"-"+Key(d)] = true
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("listing dependency cache %q: %w", c.root, err)
	}

	for _, e := range entries {
		if want[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return fmt.Errorf("removing orphaned dependency cache entry %q: %w", e.Name(), err)
		}
	}
	return nil
}
