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
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/chainguard-dev/ccforge/pkg/compiler"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/sourcecache"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

// compileSpecFor assembles one source file's compile inputs, applying cfg
// (the active BuildConfiguration, nil-safe) on top of the target's own
// Command Adapter policy fields.
func compileSpecFor(t *manifest.SourceTarget, cfg *manifest.BuildConfiguration, source, objectPath, depFile string) compiler.CompileSpec {
	spec := compiler.CompileSpec{
		Source:      source,
		ObjectPath:  objectPath,
		DepFilePath: depFile,
		Defines:     append(append([]string{}, t.Defines...), configurationDefines(cfg)...),
		IncludeDirs: t.IncludeDirs,
		CompileOpts: t.CompileOpts,
		Standard:    t.Standard,

		Warnings:                t.Warnings,
		Threads:                 t.Threads,
		Exceptions:              t.Exceptions,
		RTTI:                    t.RTTI,
		FastMath:                t.FastMath,
		PositionIndependentCode: t.PositionIndependentCode,
		StaticRuntimeLibrary:    t.StaticRuntimeLibrary,
		PrecompiledHeader:       t.PrecompiledHeader,

		Sysroot:        t.Sysroot,
		FrameworkPaths: t.FrameworkPaths,
	}
	if cfg != nil {
		spec.Debug = cfg.DebugSymbols
		spec.Optimize = cfg.OptimizationLevel
	}
	return spec
}

func linkSpecFor(t *manifest.SourceTarget, objects []string, outputPath string) compiler.LinkSpec {
	return compiler.LinkSpec{
		Objects:     objects,
		OutputPath:  outputPath,
		LinkerOpts:  t.LinkerOpts,
		Links:       t.Links,
		StaticLinks: t.StaticLinks,
		LibDirs:     t.LibDirs,
		Shared:      t.OutputKind == "sharedLibrary",

		StaticRuntimeLibrary: t.StaticRuntimeLibrary,
		Subsystem:            t.Subsystem,
		EntryPoint:           t.EntryPoint,

		Sysroot:        t.Sysroot,
		Frameworks:     t.Frameworks,
		FrameworkPaths: t.FrameworkPaths,
	}
}

// configurationDefines renders a BuildConfiguration's Defines map as
// "-D"-ready "NAME=VALUE" (or bare "NAME") strings, sorted for a stable
// argv and a stable cache hash.
func configurationDefines(cfg *manifest.BuildConfiguration) []string {
	if cfg == nil || len(cfg.Defines) == 0 {
		return nil
	}
	out := make([]string, 0, len(cfg.Defines))
	for k, v := range cfg.Defines {
		if v == "" {
			out = append(out, k)
		} else {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

// compileArgvTemplateHash hashes the compile-argv a source in t would
// receive, with the per-file source/object/depfile paths held at constant
// placeholders so the hash only changes when a target-wide flag changes -
// sourcecache's dirty rule 4.
func compileArgvTemplateHash(t *manifest.SourceTarget, cfg *manifest.BuildConfiguration, adapter compiler.Adapter) string {
	spec := compileSpecFor(t, cfg, "$SOURCE$", "$OBJECT$", "$DEPFILE$")
	return sourcecache.HashArgvTemplate(adapter.CompileArgs(spec))
}

func compilerFor(tc *toolchain.Toolchain, language string) string {
	if tc == nil {
		return "cc"
	}
	if language == "c++" || language == "cpp" || language == "cxx" {
		if tc.CXX != "" {
			return tc.CXX
		}
	}
	if tc.CC != "" {
		return tc.CC
	}
	return "cc"
}

func archiverFor(tc *toolchain.Toolchain) string {
	if tc != nil && tc.Archiver != "" {
		return tc.Archiver
	}
	return "ar"
}

// writeCompileCommands renders commands as a compile_commands.json, the
// de facto format compilation-database consumers (clangd, IDE tooling)
// expect.
func writeCompileCommands(path string, commands []CompileCommand) error {
	type entry struct {
		Directory string   `json:"directory"`
		File      string   `json:"file"`
		Arguments []string `json:"arguments"`
		Output    string   `json:"output,omitempty"`
	}
	out := make([]entry, 0, len(commands))
	for _, c := range commands {
		out = append(out, entry{Directory: c.Directory, File: c.File, Arguments: c.Arguments, Output: c.Output})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
