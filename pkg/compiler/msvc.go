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

// msvcAdapter covers cl.exe and clang-cl (VisualStudioLLVM): both accept
// the "/"-prefixed flag grammar cl.exe defines.
type msvcAdapter struct{}

// CompileArgs mirrors gnuAdapter's fixed ordering, translated to cl.exe's
// "/"-prefixed grammar.
func (a msvcAdapter) CompileArgs(spec CompileSpec) []string {
	var args []string

	if spec.DepFilePath != "" {
		args = append(args, "/sourceDependencies", spec.DepFilePath)
	}

	if spec.Optimize != "" {
		args = append(args, optFlag(spec.Optimize))
	}
	if spec.Standard != "" {
		args = append(args, "/std:"+spec.Standard)
	}

	args = append(args, msvcWarningsArgs(spec.Warnings)...)

	if spec.RTTI != nil && !*spec.RTTI {
		args = append(args, "/GR-")
	}
	if spec.Exceptions == nil || *spec.Exceptions {
		args = append(args, "/EHsc")
	}
	if spec.FastMath {
		args = append(args, "/fp:fast")
	}
	if spec.StaticRuntimeLibrary {
		args = append(args, "/MT")
	} else {
		args = append(args, "/MD")
	}

	if spec.Debug {
		args = append(args, "/Zi", "/FS")
	}

	for _, d := range spec.Defines {
		args = append(args, "/D"+d)
	}
	for _, inc := range spec.IncludeDirs {
		args = append(args, "/I"+inc)
	}

	if spec.PrecompiledHeader != "" {
		args = append(args, "/Yu"+spec.PrecompiledHeader)
	}

	args = append(args, spec.CompileOpts...)
	args = append(args, "/Fo"+spec.ObjectPath, "/c", spec.Source)
	return args
}

func optFlag(level string) string {
	switch level {
	case "0":
		return "/Od"
	case "s", "z":
		return "/O1"
	default:
		return "/O2"
	}
}

// msvcWarningsArgs maps the warnings preset to cl.exe's /W level; "all"
// maps to /Wall rather than a numbered level, per the policy matrix.
func msvcWarningsArgs(preset string) []string {
	switch preset {
	case "strict":
		return []string{"/W3"}
	case "all":
		return []string{"/Wall"}
	default:
		return nil
	}
}

// LinkArgs mirrors gnuAdapter's fixed ordering: lib-dirs, /OUT, objects,
// links, strip/options/target flags, platform flags.
func (a msvcAdapter) LinkArgs(spec LinkSpec) []string {
	var args []string

	for _, d := range spec.LibDirs {
		args = append(args, "/LIBPATH:"+d)
	}

	args = append(args, "/OUT:"+spec.OutputPath)
	args = append(args, spec.Objects...)

	for _, l := range spec.StaticLinks {
		args = append(args, l+".lib")
	}
	for _, l := range spec.Links {
		args = append(args, l+".lib")
	}

	if spec.Shared {
		args = append(args, "/DLL")
	}
	if spec.EntryPoint != "" {
		args = append(args, "/ENTRY:"+spec.EntryPoint)
	}
	if spec.Subsystem != "" {
		args = append(args, "/SUBSYSTEM:"+msvcSubsystem(spec.Subsystem))
	}
	args = append(args, spec.LinkerOpts...)

	return args
}

func msvcSubsystem(subsystem string) string {
	switch subsystem {
	case "windows":
		return "WINDOWS"
	case "console":
		return "CONSOLE"
	default:
		return subsystem
	}
}

func (a msvcAdapter) ArchiveArgs(objects []string, outputPath string) []string {
	args := []string{"/OUT:" + outputPath}
	return append(args, objects...)
}
