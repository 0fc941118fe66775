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

// Package toolchain resolves a compiler/linker/archiver toolset from a
// preference string (or autodetection), and captures the environment
// delta a vendor activation script applies (MSVC's vcvarsall.bat, the
// Intel oneAPI setvars.sh, Emscripten's emsdk_env.sh).
package toolchain

// Family identifies the compiler family, which in turn selects the
// command-adapter policy (GNU-style vs MSVC-style flag translation).
type Family string

const (
	FamilyGNU              Family = "gnu"
	FamilyLLVM             Family = "llvm"
	FamilyAppleLLVM        Family = "apple-llvm"
	FamilyMSVC             Family = "msvc"
	FamilyMinGW            Family = "mingw"
	FamilyMinGWLLVM        Family = "mingw-llvm"
	FamilyIntelClassic     Family = "intel-classic"
	FamilyIntelLLVM        Family = "intel-llvm"
	FamilyEmscripten       Family = "emscripten"
	FamilyVisualStudioLLVM Family = "vs-llvm" // clang-cl
)

// MSVCStyle reports whether this family uses MSVC-style (cl.exe-shaped)
// command-line flags rather than GNU-style ones.
func (f Family) MSVCStyle() bool {
	switch f {
	case FamilyMSVC, FamilyVisualStudioLLVM:
		return true
	default:
		return false
	}
}

// Preference is the user/manifest-requested toolchain, before resolution
// against what's actually installed.
type Preference struct {
	Name         string // e.g. "llvm", "gcc", "msvc", or a preset path
	Architecture string
	VendorScript string // explicit path to an activation script, if any
}

// Toolchain is a fully resolved, ready-to-invoke compiler/linker/archiver
// set.
type Toolchain struct {
	Family     Family
	Version    string
	CC         string
	CXX        string
	Linker     string
	Archiver   string
	Arch       string
	EnvDelta   map[string]string // variables added/changed by a vendor script
}
