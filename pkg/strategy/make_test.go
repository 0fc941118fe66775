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

func TestMakeInitializePicksNmakeUnderMSVC(t *testing.T) {
	m := NewMake(t.TempDir(), 0)
	require.NoError(t, m.Initialize(context.Background(), &toolchain.Toolchain{Family: toolchain.FamilyMSVC}))
	assert.Equal(t, "nmake", m.MakePath)
}

func TestMakeAddProjectWritesCompileAndLinkRecipes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.cpp"), []byte("int main(){}"), 0o644))

	m := NewMake(dir, 0)
	require.NoError(t, m.Initialize(context.Background(), &toolchain.Toolchain{Family: toolchain.FamilyGNU, CXX: "c++"}))

	target := &manifest.SourceTarget{Name: "app", Language: "c++", Files: []string{"main.cpp"}, OutputKind: "executable"}
	p := Project{
		Target:     target,
		Adapter:    compiler.For(toolchain.FamilyGNU),
		BuildDir:   dir,
		ObjectDir:  filepath.Join(dir, "obj"),
		OutputPath: filepath.Join(dir, "app"),
	}
	require.NoError(t, m.AddProject(context.Background(), p))
	require.NoError(t, m.SaveBuildFile(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "app:")
	assert.Contains(t, content, ".PHONY: app")
	assert.Contains(t, content, "all: app")
}

func TestMakeSaveCompileCommandsWritesFile(t *testing.T) {
	dir := t.TempDir()
	m := NewMake(dir, 0)
	m.AddCompileCommands(Project{}, []CompileCommand{{
		Directory: dir, File: "a.cpp", Arguments: []string{"c++", "-c", "a.cpp"}, Output: "a.o",
	}})

	path := filepath.Join(t.TempDir(), "compile_commands.json")
	require.NoError(t, m.SaveCompileCommands(path))
	assert.FileExists(t, path)
}
