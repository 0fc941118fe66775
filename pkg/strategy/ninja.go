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
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chainguard-dev/ccforge/pkg/compiler"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/sourceset"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

// Ninja emits a single build.ninja describing every registered project and
// delegates the actual build to the ninja binary, rather than scheduling
// work in-process the way Native does.
type Ninja struct {
	Dir       string // directory build.ninja is written to and run from
	MaxJobs   int
	NinjaPath string // defaults to "ninja"

	tc   *toolchain.Toolchain
	mu   sync.Mutex
	rules  bytes.Buffer
	builds bytes.Buffer
	phonies []string // one phony alias per project, for `ninja <target>`
	commands []CompileCommand
}

func NewNinja(dir string, maxJobs int) *Ninja {
	return &Ninja{Dir: dir, MaxJobs: maxJobs, NinjaPath: "ninja"}
}

func (n *Ninja) Initialize(_ context.Context, tc *toolchain.Toolchain) error {
	n.tc = tc
	return os.MkdirAll(n.Dir, 0o755)
}

// AddProject appends the rule(s) and build statement(s) needed to produce
// p.OutputPath from p.Target's declared inputs.
func (n *Ninja) AddProject(_ context.Context, p Project) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := p.Target.(*manifest.SourceTarget)
	if !ok {
		// Non-source targets (process/script/cmake/sub-workspace/validation)
		// run as a single always-out-of-date command rule; nonSourceCommand
		// renders the kind-specific command line to match what
		// Native.BuildProject runs, so ninja just shells out to it once per
		// build.
		name := p.Target.TargetName()
		command, err := nonSourceCommand(p)
		if err != nil {
			return err
		}
		ruleName := ninjaName(name) + "_cmd"
		fmt.Fprintf(&n.rules, "rule %s\n  command = %s\n  restat = 1\n\n", ruleName, command)
		alias := ninjaName(name)
		fmt.Fprintf(&n.builds, "build %s: %s\n\n", alias, ruleName)
		n.phonies = append(n.phonies, alias)
		return nil
	}

	group, err := sourceset.Expand(p.BuildDir, t.Files, t.Exclude)
	if err != nil {
		return fmt.Errorf("target %q: expanding sources: %w", t.Name, err)
	}

	compileRule := ninjaName(t.Name) + "_compile"
	fmt.Fprintf(&n.rules, "rule %s\n  command = %s\n  depfile = $out.d\n  deps = gcc\n  description = compile $out\n\n",
		compileRule, ninjaCompileCommand(n.tc, t, p.Configuration))

	var objects []string
	for _, rel := range group.Sources {
		source := filepath.Join(p.BuildDir, rel)
		objectPath := sourceset.ObjectPath(p.ObjectDir, rel)
		objects = append(objects, objectPath)
		fmt.Fprintf(&n.builds, "build %s: %s %s\n", ninjaPath(objectPath), compileRule, ninjaPath(source))

		n.commands = append(n.commands, CompileCommand{
			Directory: p.BuildDir,
			File:      source,
			Arguments: append([]string{compilerFor(n.tc, t.Language)}, p.Adapter.CompileArgs(compileSpecFor(t, p.Configuration, source, objectPath, objectPath+".d"))...),
			Output:    objectPath,
		})
	}

	finalRule := ninjaName(t.Name) + "_link"
	if t.OutputKind == "staticLibrary" {
		args := p.Adapter.ArchiveArgs(replacePlaceholders(objects), "$out")
		fmt.Fprintf(&n.rules, "rule %s\n  command = %s %s\n  description = archive $out\n\n",
			finalRule, archiverFor(n.tc), strings.Join(args, " "))
	} else {
		spec := linkSpecFor(t, replacePlaceholders(objects), "$out")
		args := p.Adapter.LinkArgs(spec)
		fmt.Fprintf(&n.rules, "rule %s\n  command = %s %s\n  description = link $out\n\n",
			finalRule, compilerFor(n.tc, t.Language), strings.Join(args, " "))
	}

	fmt.Fprintf(&n.builds, "build %s: %s %s\n", ninjaPath(p.OutputPath), finalRule, strings.Join(ninjaPaths(objects), " "))
	alias := ninjaName(t.Name)
	fmt.Fprintf(&n.builds, "build %s: phony %s\n\n", alias, ninjaPath(p.OutputPath))
	n.phonies = append(n.phonies, alias)
	return nil
}

func (n *Ninja) AddCompileCommands(_ Project, commands []CompileCommand) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, commands...)
}

// SaveBuildFile writes the accumulated rules and build statements to
// <Dir>/build.ninja.
func (n *Ninja) SaveBuildFile(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out bytes.Buffer
	out.WriteString("# generated build file; do not edit\n\n")
	out.Write(n.rules.Bytes())
	out.Write(n.builds.Bytes())
	return os.WriteFile(filepath.Join(n.Dir, "build.ninja"), out.Bytes(), 0o644)
}

// BuildProject invokes ninja for a single target; ninja resolves that
// target's transitive dependencies from build.ninja itself, so the
// in-process dependency graph is not consulted here.
func (n *Ninja) BuildProject(ctx context.Context, p Project) (bool, error) {
	args := []string{"-C", n.Dir}
	if n.MaxJobs > 0 {
		args = append(args, "-j", strconv.Itoa(n.MaxJobs))
	}
	args = append(args, ninjaName(p.Target.TargetName()))

	cmd := exec.CommandContext(ctx, n.ninjaPath(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("ninja target %q: %w: %s", p.Target.TargetName(), err, out)
	}
	return !bytes.Contains(out, []byte("no work to do")), nil
}

func (n *Ninja) DoPostBuild(_ context.Context) error { return nil }

func (n *Ninja) SaveCompileCommands(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return writeCompileCommands(path, n.commands)
}

func (n *Ninja) ninjaPath() string {
	if n.NinjaPath != "" {
		return n.NinjaPath
	}
	return "ninja"
}

// nonSourceCommand renders the shell command line for a non-SourceTarget
// project, matching the command Native.BuildProject runs for the same
// target kind.
func nonSourceCommand(p Project) (string, error) {
	switch t := p.Target.(type) {
	case *manifest.ProcessTarget:
		if len(t.Command) == 0 {
			return "true", nil
		}
		return strings.Join(t.Command, " "), nil
	case *manifest.ScriptTarget:
		return t.File, nil
	case *manifest.CMakeTarget:
		return fmt.Sprintf("cmake --build %s", t.Location), nil
	case *manifest.SubChaletTarget, *manifest.ValidationTarget:
		return "true", nil
	default:
		return "", fmt.Errorf("target %q: unsupported kind %T for the ninja backend", p.Target.TargetName(), t)
	}
}

// ninjaName turns a target name into a safe ninja identifier/phony alias.
func ninjaName(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(name)
}

// ninjaPath escapes the characters ninja treats specially in paths: `$`,
// spaces, and `:`.
func ninjaPath(p string) string {
	r := strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:")
	return r.Replace(p)
}

func ninjaPaths(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = ninjaPath(p)
	}
	sort.Strings(out)
	return out
}

// replacePlaceholders returns the already-resolved object paths for the
// link/archive argv, escaped and sorted the same way build statement
// inputs are (via ninjaPaths).
func replacePlaceholders(objects []string) []string {
	return ninjaPaths(objects)
}

// ninjaCompileCommand renders the per-project compile rule's command
// template, with $in/$out/$out.d standing in for the per-build-statement
// source, object, and dependency-file paths.
func ninjaCompileCommand(tc *toolchain.Toolchain, t *manifest.SourceTarget, cfg *manifest.BuildConfiguration) string {
	spec := compileSpecFor(t, cfg, "$in", "$out", "$out.d")
	args := compilerFor(tc, t.Language)
	adapterArgs := compiler.For(tc.Family).CompileArgs(spec)
	return args + " " + strings.Join(adapterArgs, " ")
}
