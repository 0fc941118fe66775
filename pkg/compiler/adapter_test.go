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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

func TestGNUCompileArgs(t *testing.T) {
	a := For(toolchain.FamilyGNU)
	args := a.CompileArgs(CompileSpec{
		Source:      "a.cpp",
		ObjectPath:  "a.o",
		IncludeDirs: []string{"inc"},
		Defines:     []string{"FOO=1"},
		Standard:    "c++20",
	})
	assert.Equal(t, []string{"-std=c++20", "-DFOO=1", "-Iinc", "-o", "a.o", "-c", "a.cpp"}, args)
}

func TestMSVCCompileArgs(t *testing.T) {
	a := For(toolchain.FamilyMSVC)
	exceptions := false
	args := a.CompileArgs(CompileSpec{
		Source:      "a.cpp",
		ObjectPath:  "a.obj",
		IncludeDirs: []string{"inc"},
		Defines:     []string{"FOO=1"},
		Standard:    "c++20",
		Exceptions:  &exceptions,
	})
	assert.Equal(t, []string{"/std:c++20", "/MD", "/DFOO=1", "/Iinc", "/Foa.obj", "/c", "a.cpp"}, args)
}

func TestGNUCompileArgsFeatureToggles(t *testing.T) {
	a := For(toolchain.FamilyGNU)
	rtti := false
	args := a.CompileArgs(CompileSpec{
		Source:                  "a.cpp",
		ObjectPath:              "a.o",
		Warnings:                "strict",
		PositionIndependentCode: true,
		RTTI:                    &rtti,
		Threads:                 true,
		Debug:                   true,
	})
	assert.Equal(t, []string{"-Wall", "-Wextra", "-fPIC", "-fno-rtti", "-pthread", "-g3", "-o", "a.o", "-c", "a.cpp"}, args)
}

func TestGNULinkArgsShared(t *testing.T) {
	a := For(toolchain.FamilyLLVM)
	args := a.LinkArgs(LinkSpec{Objects: []string{"a.o"}, OutputPath: "libx.so", Shared: true, Links: []string{"m"}})
	assert.Equal(t, []string{"-o", "libx.so", "a.o", "-lm", "-shared", "-fPIC"}, args)
}

func TestMSVCLinkArgsShared(t *testing.T) {
	a := For(toolchain.FamilyMSVC)
	args := a.LinkArgs(LinkSpec{Objects: []string{"a.obj"}, OutputPath: "x.dll", Shared: true, Links: []string{"kernel32"}})
	assert.Equal(t, []string{"/OUT:x.dll", "a.obj", "kernel32.lib", "/DLL"}, args)
}

func TestGNULinkArgsStaticLinksBracketed(t *testing.T) {
	a := For(toolchain.FamilyGNU)
	args := a.LinkArgs(LinkSpec{Objects: []string{"a.o"}, OutputPath: "x", StaticLinks: []string{"z"}, Links: []string{"m"}})
	assert.Equal(t, []string{"-o", "x", "a.o", "-Wl,-Bstatic", "-lz", "-Wl,-Bdynamic", "-lm"}, args)
}

func TestGNULinkArgsLibDirsAndEntryPoint(t *testing.T) {
	a := For(toolchain.FamilyGNU)
	args := a.LinkArgs(LinkSpec{Objects: []string{"a.o"}, OutputPath: "x", LibDirs: []string{"lib"}, EntryPoint: "_start"})
	assert.Equal(t, []string{"-Llib", "-o", "x", "a.o", "-Wl,--entry=_start"}, args)
}

func TestForSelectsMSVCStyleForClangCl(t *testing.T) {
	_, ok := For(toolchain.FamilyVisualStudioLLVM).(msvcAdapter)
	assert.True(t, ok)
}

func TestForSelectsGNUStyleForAppleLLVM(t *testing.T) {
	_, ok := For(toolchain.FamilyAppleLLVM).(gnuAdapter)
	assert.True(t, ok)
}
