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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/ccforge/pkg/compiler"
	"github.com/chainguard-dev/ccforge/pkg/depgraph"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/sourcecache"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

func newTestNative(t *testing.T) *Native {
	t.Helper()
	cache, err := sourcecache.Load(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	n := NewNative(cache, 2)
	require.NoError(t, n.Initialize(context.Background(), &toolchain.Toolchain{Family: toolchain.FamilyGNU}))
	return n
}

func processProject(name string, dependsOn []string, command []string) Project {
	return Project{
		Target:  &manifest.ProcessTarget{Name: name, Command: command, DependsOn: dependsOn},
		Adapter: compiler.For(toolchain.FamilyGNU),
	}
}

func TestRunAllBuildsIndependentTargetsConcurrently(t *testing.T) {
	n := newTestNative(t)

	g := depgraph.NewGraph()
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))

	projects := map[string]Project{
		"a": processProject("a", nil, []string{"true"}),
		"b": processProject("b", nil, []string{"true"}),
	}

	results, err := n.RunAll(context.Background(), g, projects)
	require.NoError(t, err)
	assert.NoError(t, results["a"].Err)
	assert.NoError(t, results["b"].Err)
}

func TestRunAllCascadesSkipOnDependencyFailure(t *testing.T) {
	n := newTestNative(t)

	g := depgraph.NewGraph()
	require.NoError(t, g.AddNode("base", nil))
	require.NoError(t, g.AddNode("dependent", []string{"base"}))

	projects := map[string]Project{
		"base":      processProject("base", nil, []string{"false"}),
		"dependent": processProject("dependent", []string{"base"}, []string{"true"}),
	}

	results, err := n.RunAll(context.Background(), g, projects)
	require.NoError(t, err)
	assert.Error(t, results["base"].Err)
	assert.True(t, results["dependent"].Skipped)
}

func TestBuildProjectProcessTargetRuns(t *testing.T) {
	n := newTestNative(t)
	p := processProject("echoer", nil, []string{"true"})

	rebuilt, err := n.BuildProject(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, rebuilt)
}

func TestSaveCompileCommandsWritesFile(t *testing.T) {
	n := newTestNative(t)
	n.AddCompileCommands(Project{}, []CompileCommand{{
		Directory: "/src", File: "a.cpp", Arguments: []string{"cc", "-c", "a.cpp"}, Output: "a.o",
	}})

	path := filepath.Join(t.TempDir(), "compile_commands.json")
	require.NoError(t, n.SaveCompileCommands(path))
	assert.FileExists(t, path)
}
