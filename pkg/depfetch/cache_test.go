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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

func TestKeyChangesWithRef(t *testing.T) {
	base := manifest.ExternalDependency{Kind: "git", Repository: "https://example.com/foo.git", Branch: "main"}
	other := base
	other.Branch = "develop"

	assert.NotEqual(t, Key(base), Key(other))
	assert.Equal(t, Key(base), Key(base))
}

func TestCacheDirIsStable(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	dep := manifest.ExternalDependency{Name: "zlib", Kind: "local", Path: "/tmp/zlib"}
	d1, err := cache.Dir(dep)
	require.NoError(t, err)
	d2, err := cache.Dir(dep)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestPruneOrphansRemovesStaleEntries(t *testing.T) {
	root := t.TempDir()
	cache, err := NewCache(root)
	require.NoError(t, err)

	kept := manifest.ExternalDependency{Name: "kept", Kind: "local", Path: "/tmp/kept"}
	stale := manifest.ExternalDependency{Name: "stale", Kind: "local", Path: "/tmp/stale"}

	keptDir, err := cache.Dir(kept)
	require.NoError(t, err)
	staleDir, err := cache.Dir(stale)
	require.NoError(t, err)

	require.NoError(t, cache.PruneOrphans([]manifest.ExternalDependency{kept}))

	_, err = os.Stat(keptDir)
	assert.NoError(t, err)
	_, err = os.Stat(staleDir)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchLocalCopiesTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("bye"), 0o644))

	dst := t.TempDir()
	dep := manifest.ExternalDependency{Name: "local-dep", Kind: "local", Path: src}
	require.NoError(t, fetchLocal(context.Background(), dep, dst))

	a, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(a))

	b, err := os.ReadFile(filepath.Join(dst, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(b))
}
