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

package compiler

import (
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

// gnuAdapter covers GCC, LLVM/clang, Apple Clang, MinGW, MinGW-LLVM,
// Emscripten, and IntelLLVM-on-Unix: all share the same -I/-D/-o flag
// grammar, with a handful of family-specific overrides (e.g. Emscripten's
// ".js"/".wasm" output handling is left to the strategy layer, not the
// adapter, since it's an output-kind decision rather than a flag-syntax
// one).
type gnuAdapter struct {
	family toolchain.Family
}

// CompileArgs follows the fixed GNU argv order: dependency-generation,
// optimisation/lang, warnings, feature toggles, debug, defines, includes,
// platform flags, PCH, -o output, -c input.
func (a gnuAdapter) CompileArgs(spec CompileSpec) []string {
	var args []string

	if spec.DepFilePath != "" {
		args = append(args, "-MD", "-MF", spec.DepFilePath)
	}

	if spec.Optimize != "" {
		args = append(args, "-O"+spec.Optimize)
	}
	if spec.Standard != "" {
		args = append(args, "-std="+spec.Standard)
	}

	args = append(args, gnuWarningsArgs(spec.Warnings)...)

	if spec.PositionIndependentCode {
		args = append(args, "-fPIC")
	}
	if spec.RTTI != nil && !*spec.RTTI {
		args = append(args, "-fno-rtti")
	}
	if spec.Threads {
		args = append(args, "-pthread")
	}
	if spec.Exceptions != nil && !*spec.Exceptions {
		args = append(args, "-fno-exceptions")
	}
	if spec.FastMath {
		args = append(args, "-ffast-math")
	}
	if spec.StaticRuntimeLibrary {
		args = append(args, "-static-libgcc", "-static-libstdc++")
	}

	if spec.Debug {
		args = append(args, "-g3")
	}

	for _, d := range spec.Defines {
		args = append(args, "-D"+d)
	}
	for _, inc := range spec.IncludeDirs {
		args = append(args, "-I"+inc)
	}

	if spec.Sysroot != "" {
		args = append(args, sysrootFlag(a.family, spec.Sysroot))
	}
	for _, p := range spec.FrameworkPaths {
		args = append(args, "-F"+p)
	}

	if spec.PrecompiledHeader != "" {
		args = append(args, "-include", spec.PrecompiledHeader)
	}

	args = append(args, spec.CompileOpts...)
	args = append(args, "-o", spec.ObjectPath, "-c", spec.Source)
	return args
}

// gnuWarningsArgs maps the warnings preset to the flags GCC/Clang expect;
// "minimal" (or unset) adds nothing.
func gnuWarningsArgs(preset string) []string {
	switch preset {
	case "strict":
		return []string{"-Wall", "-Wextra"}
	case "all":
		return []string{"-Wall", "-Wextra", "-Wpedantic"}
	default:
		return nil
	}
}

// sysrootFlag picks Apple's dedicated flag over the generic cross-compile
// one, per the family-specific overrides GNU derivatives apply.
func sysrootFlag(family toolchain.Family, path string) string {
	if family == toolchain.FamilyAppleLLVM {
		return "-isysroot" + path
	}
	return "--sysroot=" + path
}

// LinkArgs follows the fixed GNU link order: lib-dirs, -o output, objects,
// links, strip/options/target flags, platform flags.
func (a gnuAdapter) LinkArgs(spec LinkSpec) []string {
	var args []string

	for _, d := range spec.LibDirs {
		args = append(args, "-L"+d)
	}

	args = append(args, "-o", spec.OutputPath)
	args = append(args, spec.Objects...)

	if len(spec.StaticLinks) > 0 {
		args = append(args, "-Wl,-Bstatic")
		for _, l := range spec.StaticLinks {
			args = append(args, "-l"+l)
		}
		args = append(args, "-Wl,-Bdynamic")
	}
	for _, l := range spec.Links {
		args = append(args, "-l"+l)
	}

	if spec.Shared {
		args = append(args, "-shared")
		if a.family != toolchain.FamilyAppleLLVM {
			args = append(args, "-fPIC")
		}
	}
	if spec.StaticRuntimeLibrary {
		args = append(args, "-static-libgcc", "-static-libstdc++")
	}
	if spec.EntryPoint != "" {
		args = append(args, "-Wl,--entry="+spec.EntryPoint)
	}
	args = append(args, gnuSubsystemArgs(spec.Subsystem)...)
	args = append(args, spec.LinkerOpts...)

	if spec.Sysroot != "" {
		args = append(args, sysrootFlag(a.family, spec.Sysroot))
	}
	for _, p := range spec.FrameworkPaths {
		args = append(args, "-F"+p)
	}
	for _, f := range spec.Frameworks {
		args = append(args, "-framework", f)
	}

	return args
}

// gnuSubsystemArgs maps the Windows subsystem choice to MinGW's driver
// flags; other platforms have no subsystem concept and get nothing.
func gnuSubsystemArgs(subsystem string) []string {
	switch subsystem {
	case "windows":
		return []string{"-mwindows"}
	case "console":
		return []string{"-mconsole"}
	default:
		return nil
	}
}

func (a gnuAdapter) ArchiveArgs(objects []string, outputPath string) []string {
	args := []string{"rcs", outputPath}
	return append(args, objects...)
}
