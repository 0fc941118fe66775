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

// Package strategy defines the pluggable compile-strategy backend (Ninja,
// Makefile, or a native in-process scheduler) that turns a resolved
// manifest into built artifacts.
package strategy

import (
	"context"

	"github.com/chainguard-dev/ccforge/pkg/compiler"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

// Project is one resolved, buildable target plus its compile adapter and
// output locations, as handed to a Strategy.
type Project struct {
	Target        manifest.IBuildTarget
	Adapter       compiler.Adapter
	BuildDir      string
	ObjectDir     string
	OutputPath    string
	Configuration *manifest.BuildConfiguration
}

// CompileCommand is one compile invocation, suitable for emission into a
// compile_commands.json.
type CompileCommand struct {
	Directory string
	File      string
	Arguments []string
	Output    string
}

// Strategy is the interface every compile back-end implements. Calls are
// made in this order for one build: Initialize, then AddProject (and
// AddCompileCommands) per target, then BuildProject, then DoPostBuild and
// SaveCompileCommands.
type Strategy interface {
	// Initialize prepares the strategy for a build (e.g. creating the
	// Ninja/Makefile build-file scaffold) using the resolved toolchain.
	Initialize(ctx context.Context, tc *toolchain.Toolchain) error

	// AddProject registers a target's build steps with the strategy.
	AddProject(ctx context.Context, p Project) error

	// AddCompileCommands records the compile invocations that would be
	// used for p, independent of whether they actually need to run.
	AddCompileCommands(p Project, commands []CompileCommand)

	// SaveBuildFile persists whatever on-disk build description the
	// strategy maintains (build.ninja, Makefile; a no-op for Native).
	SaveBuildFile(ctx context.Context) error

	// BuildProject executes the build for one project, returning whether
	// anything was actually rebuilt.
	BuildProject(ctx context.Context, p Project) (rebuilt bool, err error)

	// DoPostBuild runs after every project has built (or been skipped).
	DoPostBuild(ctx context.Context) error

	// SaveCompileCommands writes the accumulated compile commands to
	// compile_commands.json.
	SaveCompileCommands(path string) error
}

var (
	_ Strategy = (*Native)(nil)
	_ Strategy = (*Ninja)(nil)
	_ Strategy = (*Make)(nil)
)
