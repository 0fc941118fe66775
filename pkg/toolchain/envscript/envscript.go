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

// Package envscript runs a vendor toolchain activation script (MSVC's
// vcvarsall.bat, Intel's setvars.sh, Emscripten's emsdk_env.sh) in a
// subshell and captures the environment delta it applies, so the delta
// can be persisted and replayed without re-running the script on every
// build.
package envscript

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const sentinel = "___CCFORGE_ENV_SENTINEL___"

// Capture runs script (with args) and returns the environment variables it
// added or changed, relative to the current process environment.
func Capture(ctx context.Context, script string, args ...string) (map[string]string, error) {
	before := environMap()

	shell, shellArgs := shellFor(script, args)
	cmd := exec.CommandContext(ctx, shell, shellArgs...)
	cmd.Env = os.Environ()

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running activation script %q: %w", script, err)
	}

	after, err := parseEnvDump(out)
	if err != nil {
		return nil, fmt.Errorf("parsing activation script %q output: %w", script, err)
	}

	delta := map[string]string{}
	for k, v := range after {
		if before[k] != v {
			delta[k] = v
		}
	}
	return delta, nil
}

func shellFor(script string, args []string) (string, []string) {
	dumpCmd := envDumpCommand()
	if runtime.GOOS == "windows" {
		full := append([]string{"/d", "/c", "call", script}, args...)
		full = append(full, "&&", dumpCmd)
		return "cmd.exe", full
	}
	full := append([]string{script}, args...)
	line := strings.Join(full, " ") + " && " + dumpCmd
	return "/bin/sh", []string{"-c", line}
}

func envDumpCommand() string {
	if runtime.GOOS == "windows" {
		return "echo " + sentinel + "&& set"
	}
	return "echo " + sentinel + " && env"
}

func parseEnvDump(out []byte) (map[string]string, error) {
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	found := false
	env := map[string]string{}
	for sc.Scan() {
		line := sc.Text()
		if !found {
			if strings.TrimSpace(line) == sentinel {
				found = true
			}
			continue
		}
		if i := strings.IndexByte(line, '='); i != -1 {
			env[line[:i]] = line[i+1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("sentinel %q not found in script output", sentinel)
	}
	return env, nil
}

func environMap() map[string]string {
	m := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i != -1 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}
