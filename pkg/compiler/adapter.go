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

// Package compiler translates a target's abstract compile/link settings
// into the concrete argv a specific toolchain family expects: GNU-style
// ("-I", "-D", "-o") versus MSVC-style ("/I", "/D", "/Fo") flags.
package compiler

import "github.com/chainguard-dev/ccforge/pkg/toolchain"

// CompileSpec is one source file's compile-step inputs.
type CompileSpec struct {
	Source      string
	ObjectPath  string
	DepFilePath string
	Defines     []string
	IncludeDirs []string
	CompileOpts []string
	Standard    string
	Debug       bool
	Optimize    string // "0".."3", "s", "z"

	// Command Adapter policy (SPEC_FULL.md §4.5)
	Warnings                string // "minimal"|"strict"|"all"
	Threads                 bool
	Exceptions              *bool // nil: toolchain default
	RTTI                    *bool // nil: toolchain default
	FastMath                bool
	PositionIndependentCode bool
	StaticRuntimeLibrary    bool
	PrecompiledHeader       string

	// Platform
	Sysroot        string
	FrameworkPaths []string
}

// LinkSpec is a target's link-step inputs.
type LinkSpec struct {
	Objects     []string
	OutputPath  string
	LinkerOpts  []string
	Links       []string
	StaticLinks []string
	LibDirs     []string
	Shared      bool

	StaticRuntimeLibrary bool
	Subsystem            string // Windows: windows|console
	EntryPoint           string

	// Platform
	Sysroot        string
	Frameworks     []string
	FrameworkPaths []string
}

// Adapter builds argv for one toolchain family's compiler/linker/archiver.
type Adapter interface {
	CompileArgs(spec CompileSpec) []string
	LinkArgs(spec LinkSpec) []string
	ArchiveArgs(objects []string, outputPath string) []string
}

// For returns the Adapter for fam.
func For(fam toolchain.Family) Adapter {
	if fam.MSVCStyle() {
		return msvcAdapter{}
	}
	return gnuAdapter{family: fam}
}
