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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainguard-dev/ccforge/internal/procctx"
	"github.com/chainguard-dev/ccforge/pkg/cliinput"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/settings"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
	"github.com/chainguard-dev/ccforge/pkg/wsenv"
)

func newTestContext(t *testing.T, targets map[string]manifest.IBuildTarget, bundles []manifest.DistributionBundle) *Context {
	t.Helper()
	root := t.TempDir()

	resolved := &manifest.Resolved{
		Workspace:      manifest.Workspace{Metadata: manifest.Metadata{Name: "demo", Version: "0.1.0"}},
		Targets:        targets,
		Configurations: []manifest.BuildConfiguration{{Name: "Debug"}},
		Distribution:   bundles,
	}

	env, err := wsenv.Resolve(root, resolved.Workspace, "Debug")
	require.NoError(t, err)

	s, err := settings.Load(filepath.Join(root, ".ccforge", "settings.json"))
	require.NoError(t, err)

	return &Context{
		Context:  procctx.New(t.Context(), procctx.NewStdSink()),
		Inputs:   cliinput.CommandLineInputs{InputFile: filepath.Join(root, "chalet.yaml"), WorkingDir: root},
		Settings: s,
		Env:      env,
		Resolved: resolved,
		Toolchain: &toolchain.Toolchain{
			Family: toolchain.FamilyGNU,
			CC:     "cc",
			CXX:    "c++",
		},
	}
}

func TestBuildGraphSelectsAllTargetsByDefault(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"lib": &manifest.SourceTarget{Name: "lib", OutputKind: "staticLibrary", Language: "c++"},
		"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable", Language: "c++", DependsOn: []string{"lib"}},
	}, nil)

	g, projects, err := c.buildGraph()
	require.NoError(t, err)
	assert.Len(t, projects, 2)

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "lib", order[0].Name)
	assert.Equal(t, "app", order[1].Name)
}

func TestBuildGraphHonorsExplicitTargetSelection(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"lib": &manifest.SourceTarget{Name: "lib", OutputKind: "staticLibrary"},
		"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable", DependsOn: []string{"lib"}},
	}, nil)
	c.Inputs.Targets = []string{"lib"}

	_, projects, err := c.buildGraph()
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	assert.Contains(t, projects, "lib")
}

func TestBuildGraphRejectsUnknownTarget(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{}, nil)
	c.Inputs.Targets = []string{"missing"}

	_, _, err := c.buildGraph()
	require.Error(t, err)
	assert.IsType(t, &cliinput.InputError{}, err)
}

func TestValidateReportsManifestInvariantViolations(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable"},
	}, []manifest.DistributionBundle{{Name: "bundle", Targets: []string{"missing"}}})

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestValidatePassesForAWellFormedManifest(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable"},
	}, nil)
	assert.NoError(t, c.Validate())
}

func TestResolveRunTargetPicksTheSoleRunTarget(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"lib": &manifest.SourceTarget{Name: "lib", OutputKind: "staticLibrary"},
		"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable", RunTarget: true},
	}, nil)

	target, err := c.resolveRunTarget()
	require.NoError(t, err)
	assert.Equal(t, "app", target.Name)
}

func TestResolveRunTargetRequiresDisambiguationWhenAmbiguous(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"app1": &manifest.SourceTarget{Name: "app1", OutputKind: "executable", RunTarget: true},
		"app2": &manifest.SourceTarget{Name: "app2", OutputKind: "executable", RunTarget: true},
	}, nil)

	_, err := c.resolveRunTarget()
	require.Error(t, err)
	assert.IsType(t, &cliinput.InputError{}, err)
}

func TestSettingsRoundTripThroughContext(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{}, nil)

	require.NoError(t, c.SettingsSet("workspace.defaultConfiguration", "Release"))
	v, ok := c.SettingsGet("workspace.defaultConfiguration")
	assert.True(t, ok)
	assert.Equal(t, "Release", v)

	require.NoError(t, c.SettingsUnset("workspace.defaultConfiguration"))
	_, ok = c.SettingsGet("workspace.defaultConfiguration")
	assert.False(t, ok)
}

func TestQueryReportsWorkspaceAndTargetFacts(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{
		"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable"},
	}, nil)

	q := c.Query()
	assert.Equal(t, "demo", q["workspace.name"])
	assert.Equal(t, "declared", q["target.app"])
}

func TestExportReturnsAnExplicitUnsupportedError(t *testing.T) {
	c := newTestContext(t, map[string]manifest.IBuildTarget{}, nil)
	err := c.Export(t.Context())
	require.Error(t, err)
	assert.IsType(t, &cliinput.InputError{}, err)
}
