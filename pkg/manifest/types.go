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

// Package manifest loads and expands the workspace build manifest: the
// declarative description of a workspace's configurations, targets, and
// external dependencies.
package manifest

// Metadata holds workspace-identifying passthrough fields surfaced by
// "ccforge query" but not otherwise interpreted.
type Metadata struct {
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
	Author   string `yaml:"author,omitempty" json:"author,omitempty"`
	License  string `yaml:"license,omitempty" json:"license,omitempty"`
	Homepage string `yaml:"homepage,omitempty" json:"homepage,omitempty"`
}

// ExternalDependency describes one entry in externalDependencies: a
// fetchable artifact required before any target can build.
type ExternalDependency struct {
	Name      string `yaml:"name" json:"name"`
	Kind      string `yaml:"kind" json:"kind"` // git | archive | local | script
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`

	// Git
	Repository string `yaml:"repository,omitempty" json:"repository,omitempty"`
	Branch     string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Tag        string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Commit     string `yaml:"commit,omitempty" json:"commit,omitempty"`
	Depth      int    `yaml:"depth,omitempty" json:"depth,omitempty"`

	// Archive
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty" json:"sha256,omitempty"`

	// Local
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Script
	Script string `yaml:"script,omitempty" json:"script,omitempty"`

	// SubDirectory is where the fetched tree is rooted within the
	// dependency's cache entry, when the archive/repo has a wrapping
	// top-level directory.
	SubDirectory string `yaml:"subDirectory,omitempty" json:"subDirectory,omitempty"`
}

// DistributionBundle describes a packaged application bundle: which
// configuration/targets to include and which files to carry along.
type DistributionBundle struct {
	Name          string   `yaml:"name" json:"name"`
	Configuration string   `yaml:"configuration,omitempty" json:"configuration,omitempty"`
	Targets       []string `yaml:"targets,omitempty" json:"targets,omitempty"`
	IncludeFiles  []string `yaml:"includeFiles,omitempty" json:"includeFiles,omitempty"`
	ExcludeFiles  []string `yaml:"excludeFiles,omitempty" json:"excludeFiles,omitempty"`
}

// BuildConfiguration names one build profile (e.g. Debug/Release) and the
// compiler/linker policy applied within it.
type BuildConfiguration struct {
	Name              string            `yaml:"name" json:"name"`
	OptimizationLevel string            `yaml:"optimizationLevel,omitempty" json:"optimizationLevel,omitempty"`
	LTO               bool              `yaml:"lto,omitempty" json:"lto,omitempty"`
	DebugSymbols      bool              `yaml:"debugSymbols,omitempty" json:"debugSymbols,omitempty"`
	Sanitizers        []string          `yaml:"sanitizers,omitempty" json:"sanitizers,omitempty"`
	Defines           map[string]string `yaml:"defines,omitempty" json:"defines,omitempty"`
}

// Manifest is the parsed, not-yet-resolved workspace build manifest.
type Manifest struct {
	Workspace Workspace              `yaml:"workspace" json:"workspace"`
	Abstracts map[string]RawTarget   `yaml:"abstracts,omitempty" json:"abstracts,omitempty"`
	Targets   map[string]RawTarget   `yaml:"targets" json:"targets"`

	ExternalDependencies []ExternalDependency  `yaml:"externalDependencies,omitempty" json:"externalDependencies,omitempty"`
	Configurations       []BuildConfiguration  `yaml:"configurations,omitempty" json:"configurations,omitempty"`
	Distribution         []DistributionBundle  `yaml:"distribution,omitempty" json:"distribution,omitempty"`

	// raw vars/env blocks consulted by the two-phase substitution pass.
	Vars map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`
	Env  map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// Workspace captures the top-level identity and toolchain preference of
// the manifest.
type Workspace struct {
	Metadata           Metadata `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	DefaultConfig      string   `yaml:"defaultConfiguration,omitempty" json:"defaultConfiguration,omitempty"`
	SearchPaths        []string `yaml:"searchPaths,omitempty" json:"searchPaths,omitempty"`
	ToolchainPreferred string   `yaml:"toolchainPreferred,omitempty" json:"toolchainPreferred,omitempty"`
}

// RawTarget is a target entry as it appears in the manifest, before the
// "kind" discriminator resolves it into a concrete IBuildTarget. Condition
// and extends/variable fields apply uniformly across all target kinds, so
// they are parsed generically here and specialized during Resolve.
type RawTarget struct {
	Kind      string `yaml:"kind" json:"kind"`
	Extends   string `yaml:"extends,omitempty" json:"extends,omitempty"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`

	Language string   `yaml:"language,omitempty" json:"language,omitempty"`
	Files    []string `yaml:"files,omitempty" json:"files,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	Defines      []string `yaml:"defines,omitempty" json:"defines,omitempty"`
	IncludeDirs  []string `yaml:"includeDirs,omitempty" json:"includeDirs,omitempty"`
	LibDirs      []string `yaml:"libDirs,omitempty" json:"libDirs,omitempty"`
	LinkerOpts   []string `yaml:"linkerOptions,omitempty" json:"linkerOptions,omitempty"`
	CompileOpts  []string `yaml:"compileOptions,omitempty" json:"compileOptions,omitempty"`
	Links        []string `yaml:"links,omitempty" json:"links,omitempty"`
	StaticLinks  []string `yaml:"staticLinks,omitempty" json:"staticLinks,omitempty"`
	DependsOn    []string `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	OutputKind   string   `yaml:"outputKind,omitempty" json:"outputKind,omitempty"` // executable|staticLibrary|sharedLibrary
	RunTarget    bool     `yaml:"runTarget,omitempty" json:"runTarget,omitempty"`

	// Command Adapter policy
	Standard                string   `yaml:"standard,omitempty" json:"standard,omitempty"`
	Warnings                string   `yaml:"warnings,omitempty" json:"warnings,omitempty"` // minimal|strict|all, or a preset tag the adapter recognises
	PrecompiledHeader       string   `yaml:"precompiledHeader,omitempty" json:"precompiledHeader,omitempty"`
	Threads                 bool     `yaml:"threads,omitempty" json:"threads,omitempty"`
	Exceptions              *bool    `yaml:"exceptions,omitempty" json:"exceptions,omitempty"`
	RTTI                    *bool    `yaml:"rtti,omitempty" json:"rtti,omitempty"`
	FastMath                bool     `yaml:"fastMath,omitempty" json:"fastMath,omitempty"`
	PositionIndependentCode bool     `yaml:"positionIndependentCode,omitempty" json:"positionIndependentCode,omitempty"`
	StaticRuntimeLibrary    bool     `yaml:"staticRuntimeLibrary,omitempty" json:"staticRuntimeLibrary,omitempty"`

	// Windows
	Subsystem  string `yaml:"subsystem,omitempty" json:"subsystem,omitempty"`
	EntryPoint string `yaml:"entryPoint,omitempty" json:"entryPoint,omitempty"`

	// macOS / Apple SDK
	Frameworks     []string `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
	FrameworkPaths []string `yaml:"frameworkPaths,omitempty" json:"frameworkPaths,omitempty"`
	Sysroot        string   `yaml:"sysroot,omitempty" json:"sysroot,omitempty"`

	// SubChalet
	Location string `yaml:"location,omitempty" json:"location,omitempty"`

	// CMake
	Toolset string `yaml:"toolset,omitempty" json:"toolset,omitempty"`

	// Script / Process
	File    string   `yaml:"file,omitempty" json:"file,omitempty"`
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`

	// Validation
	Schema string `yaml:"schema,omitempty" json:"schema,omitempty"`

	// Decorated holds "baseKey[filter]" entries collected from the raw
	// document; each is merged into its base field once the condition
	// environment is known, by mergeDecorated in parse.go.
	Decorated []DecoratedValue `yaml:"-" json:"-"`
}

// DecoratedValue is one "baseKey[filter]" manifest entry: a value list
// that is appended to the target's baseKey field only if filter, a
// condition expression, holds for the active build state.
type DecoratedValue struct {
	Field  string
	Filter string
	Values []string
}
