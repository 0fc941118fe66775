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

package manifest

import "fmt"

// IBuildTarget is the closed set of target kinds a manifest can declare.
// isBuildTarget is unexported so no type outside this package can
// implement it, keeping the set a true Go sum type.
type IBuildTarget interface {
	TargetName() string
	isBuildTarget()
}

// SourceTarget compiles source files into an executable or library.
type SourceTarget struct {
	Name        string
	Language    string
	Files       []string
	Exclude     []string
	Defines     []string
	IncludeDirs []string
	LibDirs     []string
	LinkerOpts  []string
	CompileOpts []string
	Links       []string
	StaticLinks []string
	DependsOn   []string
	OutputKind  string
	RunTarget   bool

	Standard                string
	Warnings                string
	PrecompiledHeader       string
	Threads                 bool
	Exceptions              *bool
	RTTI                    *bool
	FastMath                bool
	PositionIndependentCode bool
	StaticRuntimeLibrary    bool

	Subsystem  string
	EntryPoint string

	Frameworks     []string
	FrameworkPaths []string
	Sysroot        string
}

func (t *SourceTarget) TargetName() string { return t.Name }
func (*SourceTarget) isBuildTarget()        {}

// SubChaletTarget delegates its build to a nested workspace manifest.
type SubChaletTarget struct {
	Name      string
	Location  string
	DependsOn []string
}

func (t *SubChaletTarget) TargetName() string { return t.Name }
func (*SubChaletTarget) isBuildTarget()        {}

// CMakeTarget delegates its build to an external CMake project.
type CMakeTarget struct {
	Name      string
	Location  string
	Toolset   string
	DependsOn []string
}

func (t *CMakeTarget) TargetName() string { return t.Name }
func (*CMakeTarget) isBuildTarget()        {}

// ScriptTarget runs an interpreter over a script file.
type ScriptTarget struct {
	Name      string
	File      string
	DependsOn []string
}

func (t *ScriptTarget) TargetName() string { return t.Name }
func (*ScriptTarget) isBuildTarget()        {}

// ProcessTarget runs an arbitrary command.
type ProcessTarget struct {
	Name      string
	Command   []string
	DependsOn []string
}

func (t *ProcessTarget) TargetName() string { return t.Name }
func (*ProcessTarget) isBuildTarget()        {}

// ValidationTarget names files and the JSON schema they are to conform to.
// No build strategy performs the check: building one runs nothing and
// always succeeds.
type ValidationTarget struct {
	Name      string
	Files     []string
	Schema    string
	DependsOn []string
}

func (t *ValidationTarget) TargetName() string { return t.Name }
func (*ValidationTarget) isBuildTarget()        {}

// TargetDependencies returns the dependsOn list for any IBuildTarget,
// used by the dependency graph builder without a type switch at every
// call site.
func TargetDependencies(t IBuildTarget) []string {
	switch v := t.(type) {
	case *SourceTarget:
		return v.DependsOn
	case *SubChaletTarget:
		return v.DependsOn
	case *CMakeTarget:
		return v.DependsOn
	case *ScriptTarget:
		return v.DependsOn
	case *ProcessTarget:
		return v.DependsOn
	case *ValidationTarget:
		return v.DependsOn
	default:
		return nil
	}
}

func resolveTarget(name string, raw RawTarget) (IBuildTarget, error) {
	switch raw.Kind {
	case "", "source":
		return &SourceTarget{
			Name:        name,
			Language:    raw.Language,
			Files:       raw.Files,
			Exclude:     raw.Exclude,
			Defines:     raw.Defines,
			IncludeDirs: raw.IncludeDirs,
			LibDirs:     raw.LibDirs,
			LinkerOpts:  raw.LinkerOpts,
			CompileOpts: raw.CompileOpts,
			Links:       raw.Links,
			StaticLinks: raw.StaticLinks,
			DependsOn:   raw.DependsOn,
			OutputKind:  defaultString(raw.OutputKind, "executable"),
			RunTarget:   raw.RunTarget,

			Standard:                raw.Standard,
			Warnings:                raw.Warnings,
			PrecompiledHeader:       raw.PrecompiledHeader,
			Threads:                 raw.Threads,
			Exceptions:              raw.Exceptions,
			RTTI:                    raw.RTTI,
			FastMath:                raw.FastMath,
			PositionIndependentCode: raw.PositionIndependentCode,
			StaticRuntimeLibrary:    raw.StaticRuntimeLibrary,

			Subsystem:  raw.Subsystem,
			EntryPoint: raw.EntryPoint,

			Frameworks:     raw.Frameworks,
			FrameworkPaths: raw.FrameworkPaths,
			Sysroot:        raw.Sysroot,
		}, nil
	case "subChalet":
		return &SubChaletTarget{Name: name, Location: raw.Location, DependsOn: raw.DependsOn}, nil
	case "cmake":
		return &CMakeTarget{Name: name, Location: raw.Location, Toolset: raw.Toolset, DependsOn: raw.DependsOn}, nil
	case "script":
		return &ScriptTarget{Name: name, File: raw.File, DependsOn: raw.DependsOn}, nil
	case "process":
		return &ProcessTarget{Name: name, Command: raw.Command, DependsOn: raw.DependsOn}, nil
	case "validation":
		return &ValidationTarget{Name: name, Files: raw.Files, Schema: raw.Schema, DependsOn: raw.DependsOn}, nil
	default:
		return nil, fmt.Errorf("target %q: unknown kind %q", name, raw.Kind)
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
