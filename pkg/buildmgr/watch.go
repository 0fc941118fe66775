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

package buildmgr

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/ccforge/pkg/cliinput"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/sourceset"
)

// watchDebounce coalesces a burst of filesystem events (e.g. a save that
// touches several files, or an editor's write-then-rename) into one build.
const watchDebounce = 150 * time.Millisecond

// Watch builds once, then re-runs Build every time a watched source file
// changes, until ctx is cancelled. Source Discovery re-expands each
// target's file globs on every iteration, so files added after Watch
// started are picked up on the following rebuild.
func (c *Context) Watch(ctx context.Context) error {
	if err := c.Build(ctx); err != nil {
		clog.FromContext(ctx).Errorf("build: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &cliinput.ResolutionError{Message: err.Error()}
	}
	defer watcher.Close()

	if err := c.addWatchedDirs(watcher); err != nil {
		return &cliinput.ResolutionError{Message: err.Error()}
	}

	var debounce *time.Timer
	rebuild := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(watchDebounce, func() {
					select {
					case rebuild <- struct{}{}:
					default:
					}
				})
			} else {
				debounce.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			clog.FromContext(ctx).Warnf("watch: %v", err)

		case <-rebuild:
			clog.FromContext(ctx).Infof("change detected, rebuilding")
			if err := c.Build(ctx); err != nil {
				clog.FromContext(ctx).Errorf("build: %v", err)
			}
			watcher.Close()
			watcher, err = fsnotify.NewWatcher()
			if err != nil {
				return &cliinput.ResolutionError{Message: err.Error()}
			}
			if err := c.addWatchedDirs(watcher); err != nil {
				return &cliinput.ResolutionError{Message: err.Error()}
			}
		}
	}
}

// addWatchedDirs registers the directory of every file matched by every
// source target's file globs. fsnotify watches directories, not individual
// files, so duplicates are collapsed before adding.
func (c *Context) addWatchedDirs(watcher *fsnotify.Watcher) error {
	seen := make(map[string]bool)
	for _, t := range c.Resolved.Targets {
		src, ok := t.(*manifest.SourceTarget)
		if !ok {
			continue
		}
		group, err := sourceset.Expand(c.Env.Root, src.Files, src.Exclude)
		if err != nil {
			return err
		}
		for _, f := range group.Sources {
			dir := filepath.Dir(filepath.Join(group.Root, f))
			if seen[dir] {
				continue
			}
			seen[dir] = true
			if err := watcher.Add(dir); err != nil {
				continue
			}
		}
	}
	return nil
}
