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

// Package settings reads and writes the global/local settings file: the
// per-toolchain tool paths and workspace defaults that persist across runs
// independent of the manifest.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ToolchainSettings is one named toolchain's resolved tool paths, as
// persisted so later runs skip re-probing PATH.
type ToolchainSettings struct {
	Strategy                string `json:"strategy,omitempty"`
	BuildPathStyle          string `json:"buildPathStyle,omitempty"`
	Version                 string `json:"version,omitempty"`
	Archiver                string `json:"archiver,omitempty"`
	CompilerCpp             string `json:"compilerCpp,omitempty"`
	CompilerC               string `json:"compilerC,omitempty"`
	CompilerWindowsResource string `json:"compilerWindowsResource,omitempty"`
	Linker                  string `json:"linker,omitempty"`
	Profiler                string `json:"profiler,omitempty"`
	Disassembler            string `json:"disassembler,omitempty"`
	CMake                   string `json:"cmake,omitempty"`
	Make                    string `json:"make,omitempty"`
	Ninja                   string `json:"ninja,omitempty"`
}

// Tools is the set of ancillary program paths settings persists.
type Tools struct {
	Git              string `json:"git,omitempty"`
	Curl             string `json:"curl,omitempty"`
	Tar              string `json:"tar,omitempty"`
	Unzip            string `json:"unzip,omitempty"`
	Codesign         string `json:"codesign,omitempty"`
	Hdiutil          string `json:"hdiutil,omitempty"`
	InstallNameTool  string `json:"install_name_tool,omitempty"`
	Instruments      string `json:"instruments,omitempty"`
	Ldd              string `json:"ldd,omitempty"`
	Otool            string `json:"otool,omitempty"`
}

// Settings is the full, on-disk settings document.
type Settings struct {
	Workspace  map[string]string            `json:"settings,omitempty"`
	Toolchains map[string]ToolchainSettings `json:"toolchains,omitempty"`
	Tools      Tools                        `json:"tools,omitempty"`
	AppleSDKs  map[string]string            `json:"appleSdks,omitempty"`

	path string
}

// Load reads the settings file at path, tolerating a missing file (an
// empty, never-yet-saved Settings) and unknown keys (forward compatible
// with a newer writer).
func Load(path string) (*Settings, error) {
	s := &Settings{
		Workspace:  map[string]string{},
		Toolchains: map[string]ToolchainSettings{},
		AppleSDKs:  map[string]string{},
		path:       path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings %q: %w", path, err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding settings %q: %w", path, err)
	}
	s.path = path
	return s, nil
}

// Get returns a workspace-default setting's value.
func (s *Settings) Get(key string) (string, bool) {
	v, ok := s.Workspace[key]
	return v, ok
}

// Set assigns a workspace-default setting.
func (s *Settings) Set(key, value string) {
	if s.Workspace == nil {
		s.Workspace = map[string]string{}
	}
	s.Workspace[key] = value
}

// Unset removes a workspace-default setting.
func (s *Settings) Unset(key string) {
	delete(s.Workspace, key)
}

// Save persists Settings atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// corrupts the previous file. Matches the write pattern used by
// pkg/sourcecache.Cache.Save.
func (s *Settings) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing settings file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
