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

package depfetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// Resolved names where a fetched dependency ended up on disk.
type Resolved struct {
	Name string
	Dir  string
}

// FetchAll resolves every dependency in deps concurrently, pruning any
// orphaned cache entries first.
func FetchAll(ctx context.Context, cache *Cache, deps []manifest.ExternalDependency) ([]Resolved, error) {
	if err := cache.PruneOrphans(deps); err != nil {
		return nil, err
	}

	results := make([]Resolved, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	for i, dep := range deps {
		i, dep := i, dep
		g.Go(func() error {
			dir, err := Fetch(gctx, cache, dep)
			if err != nil {
				return err
			}
			results[i] = Resolved{Name: dep.Name, Dir: dir}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fetch resolves a single dependency into the cache, returning its root
// directory (joined with SubDirectory, if set).
func Fetch(ctx context.Context, cache *Cache, dep manifest.ExternalDependency) (string, error) {
	log := clog.FromContext(ctx)
	dir, err := cache.Dir(dep)
	if err != nil {
		return "", err
	}

	log.Infof("fetching dependency %q (%s)", dep.Name, dep.Kind)

	switch dep.Kind {
	case "git":
		err = fetchGit(ctx, dep, dir)
	case "archive":
		err = fetchArchive(ctx, dep, dir)
	case "local":
		err = fetchLocal(ctx, dep, dir)
	case "script":
		err = fetchScript(ctx, dep, dir)
	default:
		err = fmt.Errorf("dependency %q: unknown kind %q", dep.Name, dep.Kind)
	}
	if err != nil {
		// Drop the partially-populated cache entry so a later run starts clean.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warnf("removing partial dependency directory %q: %v", dir, rmErr)
		}
		return "", fmt.Errorf("fetching dependency %q: %w", dep.Name, err)
	}

	if dep.SubDirectory != "" {
		return filepath.Join(dir, dep.SubDirectory), nil
	}
	return dir, nil
}
