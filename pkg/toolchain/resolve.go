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

package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/ccforge/pkg/toolchain/envscript"
)

// candidate is one entry in the family detection decision tree: a family
// plus the CC/CXX/linker/archiver binary names to probe for on PATH.
type candidate struct {
	family   Family
	cc, cxx  string
	linker   string
	archiver string
}

func candidatesFor(goos string) []candidate {
	if goos == "windows" {
		return []candidate{
			{family: FamilyMSVC, cc: "cl.exe", cxx: "cl.exe", linker: "link.exe", archiver: "lib.exe"},
			{family: FamilyVisualStudioLLVM, cc: "clang-cl.exe", cxx: "clang-cl.exe", linker: "lld-link.exe", archiver: "llvm-lib.exe"},
			{family: FamilyMinGWLLVM, cc: "clang.exe", cxx: "clang++.exe", linker: "clang++.exe", archiver: "llvm-ar.exe"},
			{family: FamilyMinGW, cc: "gcc.exe", cxx: "g++.exe", linker: "g++.exe", archiver: "ar.exe"},
		}
	}
	if goos == "darwin" {
		return []candidate{
			{family: FamilyAppleLLVM, cc: "clang", cxx: "clang++", linker: "clang++", archiver: "ar"},
		}
	}
	return []candidate{
		{family: FamilyLLVM, cc: "clang", cxx: "clang++", linker: "clang++", archiver: "llvm-ar"},
		{family: FamilyGNU, cc: "gcc", cxx: "g++", linker: "g++", archiver: "ar"},
	}
}

// Resolve walks the family detection decision tree for pref, optionally
// running a vendor activation script first (MSVC, Intel, Emscripten), then
// probes each candidate family's binaries and picks the first whose C
// compiler is found. Probing looks on the process's own PATH: the
// script's environment delta is returned in Toolchain.EnvDelta and is not
// applied to PATH before probing.
func Resolve(ctx context.Context, pref Preference) (*Toolchain, error) {
	log := clog.FromContext(ctx)

	var delta map[string]string
	if pref.VendorScript != "" {
		d, err := envscript.Capture(ctx, pref.VendorScript)
		if err != nil {
			return nil, fmt.Errorf("capturing toolchain environment: %w", err)
		}
		delta = d
		log.Infof("toolchain activation script %q applied %d environment changes", pref.VendorScript, len(delta))
	}

	if name := strings.ToLower(pref.Name); name != "" {
		if fam, ok := familyByName(name); ok {
			if tc, err := probeFamily(ctx, fam, pref.Architecture, delta); err == nil {
				return tc, nil
			}
		}
	}

	var lastErr error
	for _, c := range candidatesFor(runtime.GOOS) {
		tc, err := probeFamily(ctx, c.family, pref.Architecture, delta)
		if err == nil {
			return tc, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no toolchain candidates for GOOS %q", runtime.GOOS)
	}
	return nil, fmt.Errorf("resolving toolchain: %w", lastErr)
}

func familyByName(name string) (Family, bool) {
	switch name {
	case "gcc", "gnu":
		return FamilyGNU, true
	case "llvm", "clang":
		return FamilyLLVM, true
	case "apple-llvm", "apple-clang":
		return FamilyAppleLLVM, true
	case "msvc":
		return FamilyMSVC, true
	case "mingw":
		return FamilyMinGW, true
	case "mingw-llvm":
		return FamilyMinGWLLVM, true
	case "intel-classic":
		return FamilyIntelClassic, true
	case "intel-llvm":
		return FamilyIntelLLVM, true
	case "emscripten", "emcc":
		return FamilyEmscripten, true
	case "vs-llvm", "clang-cl":
		return FamilyVisualStudioLLVM, true
	default:
		return "", false
	}
}

func probeFamily(ctx context.Context, fam Family, arch string, delta map[string]string) (*Toolchain, error) {
	for _, c := range candidatesFor(runtime.GOOS) {
		if c.family != fam {
			continue
		}
		path, err := lookPath(c.cc)
		if err != nil {
			return nil, fmt.Errorf("family %s: %w", fam, err)
		}
		version, _ := probeVersion(ctx, path)
		return &Toolchain{
			Family:   fam,
			Version:  version,
			CC:       path,
			CXX:      mustLook(c.cxx, path),
			Linker:   mustLook(c.linker, path),
			Archiver: mustLook(c.archiver, path),
			Arch:     arch,
			EnvDelta: delta,
		}, nil
	}
	return nil, fmt.Errorf("family %s not in the detection table for this platform", fam)
}

func lookPath(bin string) (string, error) {
	p, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH", bin)
	}
	return p, nil
}

func mustLook(bin, fallback string) string {
	p, err := exec.LookPath(bin)
	if err != nil {
		return fallback
	}
	return p
}

func probeVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", err
	}
	line := strings.SplitN(string(out), "\n", 2)[0]
	return strings.TrimSpace(line), nil
}
