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

// Package buildmgr is the Build Manager: it drives the manifest →
// toolchain → dependency-fetch → strategy pipeline for every
// CommandLineInputs route, and owns the per-run WorkspaceEnvironment and
// settings.
package buildmgr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/ccforge/internal/procctx"
	"github.com/chainguard-dev/ccforge/internal/tracing"
	"github.com/chainguard-dev/ccforge/pkg/cliinput"
	"github.com/chainguard-dev/ccforge/pkg/compiler"
	"github.com/chainguard-dev/ccforge/pkg/depfetch"
	"github.com/chainguard-dev/ccforge/pkg/depgraph"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/settings"
	"github.com/chainguard-dev/ccforge/pkg/sourcecache"
	"github.com/chainguard-dev/ccforge/pkg/strategy"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
	"github.com/chainguard-dev/ccforge/pkg/validate"
	"github.com/chainguard-dev/ccforge/pkg/wsenv"
)

// defaultConfigurations is emitted when the manifest declares none, per
// the data model's "five defaults" invariant.
var defaultConfigurations = []manifest.BuildConfiguration{
	{Name: "Release", OptimizationLevel: "2"},
	{Name: "Debug", OptimizationLevel: "0", DebugSymbols: true},
	{Name: "RelWithDebInfo", OptimizationLevel: "2", DebugSymbols: true},
	{Name: "MinSizeRel", OptimizationLevel: "z"},
	{Name: "Profile", OptimizationLevel: "2", DebugSymbols: true},
}

// Context is the Build Manager's live state for one invocation: the
// frozen inputs, the resolved workspace environment, and the
// process-wide cancellation/terminal-output bundle. It is constructed
// once per run and passed by reference to the handful of methods that
// need workspace-path resolution.
type Context struct {
	*procctx.Context

	Inputs        cliinput.CommandLineInputs
	Settings      *settings.Settings
	Env           *wsenv.WorkspaceEnvironment
	Resolved      *manifest.Resolved
	Toolchain     *toolchain.Toolchain
	Configuration string // resolved build configuration name, always non-empty
}

// New loads settings and the manifest, resolves the workspace environment
// and toolchain, and returns a ready-to-drive Context. It does not fetch
// dependencies or touch the compile strategy; callers invoke a route
// method (Build, Run, ...) for that.
func New(pctx context.Context, sink procctx.TerminalSink, inputs cliinput.CommandLineInputs) (*Context, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}

	settingsPath := inputs.SettingsFile
	if settingsPath == "" {
		settingsPath = filepath.Join(inputs.WorkingDir, ".ccforge", "settings.json")
	}
	s, err := settings.Load(settingsPath)
	if err != nil {
		return nil, &cliinput.InputError{Message: fmt.Sprintf("loading settings: %v", err)}
	}

	env := conditionFacts(inputs, s)

	resolved, diags, err := manifest.ParseManifest(pctx, inputs.InputFile, env, manifest.WithArchitecture(inputs.Architecture))
	if err != nil {
		return nil, &cliinput.InputError{Message: fmt.Sprintf("parsing manifest: %v", err)}
	}
	for _, d := range diags {
		clog.FromContext(pctx).Warnf("%s", d.Error())
	}
	if len(resolved.Configurations) == 0 {
		resolved.Configurations = defaultConfigurations
	}

	wsRoot := inputs.WorkingDir
	if wsRoot == "" {
		wsRoot = "."
	}
	configuration := inputs.BuildConfiguration
	if configuration == "" {
		configuration = resolved.Workspace.DefaultConfig
	}
	if configuration == "" {
		configuration = resolved.Configurations[0].Name
	}
	workspaceEnv, err := wsenv.Resolve(wsRoot, resolved.Workspace, configuration)
	if err != nil {
		return nil, &cliinput.ResolutionError{Message: err.Error()}
	}

	tc, err := toolchain.Resolve(pctx, toolchain.Preference{
		Name:         firstNonEmpty(inputs.ToolchainPreference, resolved.Workspace.ToolchainPreferred),
		Architecture: inputs.Architecture,
	})
	if err != nil {
		return nil, &cliinput.ResolutionError{Message: fmt.Sprintf("resolving toolchain: %v", err)}
	}

	return &Context{
		Context:       procctx.New(pctx, sink),
		Inputs:        inputs,
		Settings:      s,
		Env:           workspaceEnv,
		Resolved:      resolved,
		Toolchain:     tc,
		Configuration: configuration,
	}, nil
}

// activeConfiguration looks up c.Configuration among the resolved
// manifest's declared configurations, returning nil if it names none (the
// Command Adapters then fall back to their toolchain defaults).
func (c *Context) activeConfiguration() *manifest.BuildConfiguration {
	for i := range c.Resolved.Configurations {
		if c.Resolved.Configurations[i].Name == c.Configuration {
			return &c.Resolved.Configurations[i]
		}
	}
	return nil
}

// conditionFacts seeds every condition key the manifest grammar
// recognises (platform, architecture, toolchain, configuration, options,
// debug, ci, env:NAME) from what is known before the manifest is parsed:
// the CLI inputs, persisted workspace settings, and the process
// environment. Facts that depend on the manifest's own declarations (a
// configuration's debugSymbols flag, a workspace's defaultConfiguration)
// are not available at this point and are accepted as out of scope, the
// same way the pre-existing "configuration:" seeding only ever reflected
// an explicit CLI override.
func conditionFacts(inputs cliinput.CommandLineInputs, s *settings.Settings) manifest.FactEnvironment {
	env := manifest.FactEnvironment{"platform:" + currentPlatform(): true}

	if inputs.Architecture != "" {
		env["architecture:"+inputs.Architecture] = true
	}
	if inputs.ToolchainPreference != "" {
		env["toolchain:"+inputs.ToolchainPreference] = true
	}
	if inputs.BuildConfiguration != "" {
		env["configuration:"+inputs.BuildConfiguration] = true
		if strings.EqualFold(inputs.BuildConfiguration, "Debug") {
			env["debug"] = true
		}
	}
	if os.Getenv("CI") != "" {
		env["ci"] = true
	}
	for k, v := range envVarFacts() {
		env["env:"+k] = v
	}
	for k, v := range s.Workspace {
		if v != "" && v != "false" && v != "0" {
			env["options:"+k] = true
		}
	}

	return env
}

func envVarFacts() map[string]bool {
	facts := map[string]bool{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i != -1 {
			facts[kv[:i]] = kv[i+1:] != ""
		}
	}
	return facts
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func currentPlatform() string { return goos() }

func goos() string { return runtime.GOOS }

// Validate runs pkg/validate over the resolved manifest and returns a
// combined error if any invariant was violated.
func (c *Context) Validate() error {
	findings := validate.Manifest(c.Resolved)
	if len(findings) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d manifest validation error(s):", len(findings))
	for _, f := range findings {
		msg += "\n  " + f.String()
	}
	return &cliinput.InputError{Message: msg}
}

// fetchDependencies resolves every external dependency into the
// dependency cache under the workspace's external directory.
func (c *Context) fetchDependencies(ctx context.Context) error {
	if len(c.Resolved.ExternalDependencies) == 0 {
		return nil
	}
	cache, err := depfetch.NewCache(c.Env.ExternalDir)
	if err != nil {
		return &cliinput.FetchError{Message: err.Error()}
	}
	if _, err := depfetch.FetchAll(ctx, cache, c.Resolved.ExternalDependencies); err != nil {
		return &cliinput.FetchError{Message: err.Error()}
	}
	return nil
}

// buildGraph constructs the target dependency graph for every target
// selected by c.Inputs.Targets (or all targets, if none were named).
func (c *Context) buildGraph() (*depgraph.Graph, map[string]strategy.Project, error) {
	selected := c.Inputs.Targets
	if len(selected) == 0 {
		for name := range c.Resolved.Targets {
			selected = append(selected, name)
		}
	}

	g := depgraph.NewGraph()
	projects := make(map[string]strategy.Project, len(selected))
	for _, name := range selected {
		t, ok := c.Resolved.Targets[name]
		if !ok {
			return nil, nil, &cliinput.InputError{Message: fmt.Sprintf("unknown target %q", name)}
		}
		if err := g.AddNode(name, manifest.TargetDependencies(t)); err != nil {
			return nil, nil, &cliinput.InputError{Message: err.Error()}
		}

		adapter := compiler.For(c.Toolchain.Family)
		outputPath := filepath.Join(c.Env.BuildOutput, name)
		if src, ok := t.(*manifest.SourceTarget); ok && src.OutputKind == "sharedLibrary" {
			outputPath += sharedLibSuffix()
		} else if ok && src.OutputKind == "staticLibrary" {
			outputPath += staticLibSuffix()
		}

		projects[name] = strategy.Project{
			Target:        t,
			Adapter:       adapter,
			BuildDir:      c.Env.Root,
			ObjectDir:     c.Env.ObjectDir(name),
			OutputPath:    outputPath,
			Configuration: c.activeConfiguration(),
		}
	}

	return g, projects, nil
}

func sharedLibSuffix() string {
	if goos() == "windows" {
		return ".dll"
	}
	return ".so"
}

func staticLibSuffix() string {
	if goos() == "windows" {
		return ".lib"
	}
	return ".a"
}

// runStrategy builds every selected target through a Native strategy,
// returning a cliinput-taxonomy error on the first unrecoverable failure.
func (c *Context) runStrategy(ctx context.Context) (map[string]bool, error) {
	g, projects, err := c.buildGraph()
	if err != nil {
		return nil, err
	}

	cachePath := filepath.Join(c.Env.CacheDir, "mtimes")
	cache, err := sourcecache.Load(cachePath)
	if err != nil {
		return nil, &cliinput.BuildError{Message: err.Error()}
	}

	native := strategy.NewNative(cache, c.Inputs.MaxJobs)
	if err := native.Initialize(ctx, c.Toolchain); err != nil {
		return nil, &cliinput.ResolutionError{Message: err.Error()}
	}

	spanCtx, span := tracing.StartSpan(ctx, "build")
	defer span.End()
	timer := tracing.NewTimer(spanCtx, "build")
	defer timer.Stop()

	results, err := native.RunAll(spanCtx, g, projects)
	if err != nil {
		return nil, &cliinput.BuildError{Message: err.Error()}
	}

	rebuilt := make(map[string]bool, len(results))
	for name := range projects {
		r := results[name]
		rebuilt[name] = r.Rebuilt
		if r.Err != nil {
			return rebuilt, &cliinput.BuildError{Message: fmt.Sprintf("target %q: %v", name, r.Err)}
		}
	}

	if err := cache.Save(); err != nil {
		return rebuilt, &cliinput.PostBuildError{Message: err.Error()}
	}
	if err := native.SaveCompileCommands(filepath.Join(c.Env.BuildOutput, "compile_commands.json")); err != nil {
		return rebuilt, &cliinput.PostBuildError{Message: err.Error()}
	}
	return rebuilt, nil
}
