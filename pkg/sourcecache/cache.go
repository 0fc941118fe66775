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

// Package sourcecache tracks per-file modification times across builds so
// the compile strategies only recompile what's actually out of date. The
// persisted form is WorkspaceInternalCacheFile: one line per tracked
// source, "path mtimeUnixNano objectPath cmdHash".
package sourcecache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Entry is one tracked source file's last-known state.
type Entry struct {
	Source     string
	ObjectPath string
	MTime      int64  // UnixNano at last successful build
	CmdHash    string // hash of the compile-argv template used to build ObjectPath
}

// Cache is the in-memory, lazily-persisted mtime cache for one build
// configuration.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// Load reads the cache file at path, tolerating a missing file (an empty
// cache, as on a first build).
func Load(path string) (*Cache, error) {
	c := &Cache{path: path, entries: map[string]Entry{}}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("opening source cache %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 4)
		if len(fields) < 3 {
			return nil, fmt.Errorf("source cache %q: malformed line %q", path, line)
		}
		mtime, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("source cache %q: malformed mtime in %q: %w", path, line, err)
		}
		var cmdHash string
		if len(fields) == 4 {
			cmdHash = fields[3]
		}
		c.entries[fields[0]] = Entry{Source: fields[0], MTime: mtime, ObjectPath: fields[2], CmdHash: cmdHash}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading source cache %q: %w", path, err)
	}
	return c, nil
}

// Get returns the last recorded entry for source, if any.
func (c *Cache) Get(source string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[source]
	return e, ok
}

// Update records the current state for source after a successful build.
func (c *Cache) Update(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Source] = e
}

// Save persists the cache atomically (write-temp-then-rename) so a crash
// mid-write never corrupts the previous, consistent cache file.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".cache-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range c.entries {
		fmt.Fprintf(w, "%s %d %s %s\n", e.Source, e.MTime, e.ObjectPath, e.CmdHash)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	return os.Rename(tmp.Name(), c.path)
}
