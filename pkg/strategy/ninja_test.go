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

package strategy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/ccforge/pkg/compiler"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

func TestNinjaAddProjectWritesCompileAndLinkRules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.cpp"), []byte("int main(){}"), 0o644))

	n := NewNinja(dir, 0)
	require.NoError(t, n.Initialize(context.Background(), &toolchain.Toolchain{Family: toolchain.FamilyGNU, CXX: "c++"}))

	target := &manifest.SourceTarget{Name: "app", Language: "c++", Files: []string{"main.cpp"}, OutputKind: "executable"}
	p := Project{
		Target:     target,
		Adapter:    compiler.For(toolchain.FamilyGNU),
		BuildDir:   dir,
		ObjectDir:  filepath.Join(dir, "obj"),
		OutputPath: filepath.Join(dir, "app"),
	}
	require.NoError(t, n.AddProject(context.Background(), p))
	require.NoError(t, n.SaveBuildFile(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "build.ninja"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "rule app_compile")
	assert.Contains(t, content, "rule app_link")
	assert.Contains(t, content, "build app: phony")
}

func TestNinjaSaveCompileCommandsWritesFile(t *testing.T) {
	dir := t.TempDir()
	n := NewNinja(dir, 0)
	n.AddCompileCommands(Project{}, []CompileCommand{{
		Directory: dir, File: "a.cpp", Arguments: []string{"c++", "-c", "a.cpp"}, Output: "a.o",
	}})

	path := filepath.Join(t.TempDir(), "compile_commands.json")
	require.NoError(t, n.SaveCompileCommands(path))
	assert.FileExists(t, path)
}

func TestNinjaNameEscapesUnsafeCharacters(t *testing.T) {
	assert.Equal(t, "a_b_c", ninjaName("a b:c"))
}
