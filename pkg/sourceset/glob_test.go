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

package sourceset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func TestExpandSimpleGlob(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/a.cpp", "src/b.cpp", "src/c.h")

	g, err := Expand(root, []string{"src/*.cpp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp", "src/b.cpp"}, g.Sources)
}

func TestExpandRecursiveGlob(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/a.cpp", "src/sub/b.cpp", "src/sub/deeper/c.cpp")

	g, err := Expand(root, []string{"src/**/*.cpp"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.cpp", "src/sub/b.cpp", "src/sub/deeper/c.cpp"}, g.Sources)
}

func TestExpandDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/a.cpp")

	g, err := Expand(root, []string{"src/*.cpp", "src/a.cpp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp"}, g.Sources)
}

func TestExpandDropsExcludeMatches(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/a.cpp", "src/a_test.cpp", "src/sub/b.cpp")

	g, err := Expand(root, []string{"src/**/*.cpp"}, []string{"src/*_test.cpp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.cpp", "src/sub/b.cpp"}, g.Sources)
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, filepath.Join("obj", "src", "a.o"), ObjectPath("obj", "src/a.cpp"))
}
