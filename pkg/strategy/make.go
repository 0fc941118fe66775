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
	"strconv"
	"strings"
	"sync"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/sourceset"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

// Make emits a single GNU-make-compatible Makefile describing every
// registered project, the same role Ninja plays for the ninja binary. On
// an MSVC toolchain it drives nmake/jom instead, which accept the same
// generated syntax.
type Make struct {
	Dir      string
	MaxJobs  int
	MakePath string // defaults to "make", or "nmake" under MSVC

	tc     *toolchain.Toolchain
	mu     sync.Mutex
	body   bytes.Buffer
	phonies []string
	commands []CompileCommand
}

func NewMake(dir string, maxJobs int) *Make {
	return &Make{Dir: dir, MaxJobs: maxJobs}
}

func (m *Make) Initialize(_ context.Context, tc *toolchain.Toolchain) error {
	m.tc = tc
	if m.MakePath == "" {
		if tc.Family.MSVCStyle() {
			m.MakePath = "nmake"
		} else {
			m.MakePath = "make"
		}
	}
	return os.MkdirAll(m.Dir, 0o755)
}

func (m *Make) AddProject(_ context.Context, p Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := p.Target.(*manifest.SourceTarget)
	if !ok {
		command, err := nonSourceCommand(p)
		if err != nil {
			return err
		}
		name := makeName(p.Target.TargetName())
		fmt.Fprintf(&m.body, ".PHONY: %s\n%s:\n\t%s\n\n", name, name, command)
		m.phonies = append(m.phonies, name)
		return nil
	}

	group, err := sourceset.Expand(p.BuildDir, t.Files, t.Exclude)
	if err != nil {
		return fmt.Errorf("target %q: expanding sources: %w", t.Name, err)
	}

	var objects []string
	for _, rel := range group.Sources {
		source := filepath.Join(p.BuildDir, rel)
		objectPath := sourceset.ObjectPath(p.ObjectDir, rel)
		objects = append(objects, objectPath)

		spec := compileSpecFor(t, p.Configuration, source, objectPath, objectPath+".d")
		args := p.Adapter.CompileArgs(spec)
		fmt.Fprintf(&m.body, "%s: %s\n\t@mkdir -p %s\n\t%s %s\n\n",
			makeTarget(objectPath), makeTarget(source), makeTarget(filepath.Dir(objectPath)),
			compilerFor(m.tc, t.Language), strings.Join(args, " "))
		fmt.Fprintf(&m.body, "-include %s\n\n", objectPath+".d")

		m.commands = append(m.commands, CompileCommand{
			Directory: p.BuildDir,
			File:      source,
			Arguments: append([]string{compilerFor(m.tc, t.Language)}, args...),
			Output:    objectPath,
		})
	}

	name := makeName(t.Name)
	if t.OutputKind == "staticLibrary" {
		args := p.Adapter.ArchiveArgs(objects, p.OutputPath)
		fmt.Fprintf(&m.body, "%s: %s\n\t%s %s\n\n.PHONY: %s\n%s: %s\n\n",
			makeTarget(p.OutputPath), strings.Join(makeTargets(objects), " "), archiverFor(m.tc), strings.Join(args, " "),
			name, name, makeTarget(p.OutputPath))
	} else {
		spec := linkSpecFor(t, objects, p.OutputPath)
		args := p.Adapter.LinkArgs(spec)
		fmt.Fprintf(&m.body, "%s: %s\n\t%s %s\n\n.PHONY: %s\n%s: %s\n\n",
			makeTarget(p.OutputPath), strings.Join(makeTargets(objects), " "), compilerFor(m.tc, t.Language), strings.Join(args, " "),
			name, name, makeTarget(p.OutputPath))
	}
	m.phonies = append(m.phonies, name)
	return nil
}

func (m *Make) AddCompileCommands(_ Project, commands []CompileCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, commands...)
}

func (m *Make) SaveBuildFile(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out bytes.Buffer
	out.WriteString("# generated build file; do not edit\n\n")
	if len(m.phonies) > 0 {
		fmt.Fprintf(&out, "all: %s\n\n", strings.Join(m.phonies, " "))
	}
	out.Write(m.body.Bytes())
	return os.WriteFile(filepath.Join(m.Dir, "Makefile"), out.Bytes(), 0o644)
}

func (m *Make) BuildProject(ctx context.Context, p Project) (bool, error) {
	args := []string{"-C", m.Dir}
	if m.MaxJobs > 0 {
		args = append(args, "-j", strconv.Itoa(m.MaxJobs))
	}
	args = append(args, makeName(p.Target.TargetName()))

	cmd := exec.CommandContext(ctx, m.MakePath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("make target %q: %w: %s", p.Target.TargetName(), err, out)
	}
	return !bytes.Contains(out, []byte("is up to date")), nil
}

func (m *Make) DoPostBuild(_ context.Context) error { return nil }

func (m *Make) SaveCompileCommands(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return writeCompileCommands(path, m.commands)
}

func makeName(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(name)
}

// makeTarget escapes the characters make treats specially in a
// prerequisite/target position: spaces, `$`, and `:`.
func makeTarget(p string) string {
	r := strings.NewReplacer("$", "$$", " ", "\\ ", ":", "\\:")
	return r.Replace(p)
}

func makeTargets(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = makeTarget(p)
	}
	return out
}
