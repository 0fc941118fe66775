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
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/ccforge/internal/contextreader"
	"github.com/chainguard-dev/ccforge/internal/tracing"
	"github.com/chainguard-dev/ccforge/pkg/depgraph"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
	"github.com/chainguard-dev/ccforge/pkg/sourcecache"
	"github.com/chainguard-dev/ccforge/pkg/sourceset"
	"github.com/chainguard-dev/ccforge/pkg/toolchain"
)

// runCaptured starts cmd with its stdout and stderr merged into one pipe
// and reads that pipe through contextreader, so capture stops at the first
// read that begins after ctx is done. A read already blocked on the pipe
// returns only when the pipe yields data or EOF, for example once
// exec.CommandContext has killed the process.
func runCaptured(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, err
	}
	pw.Close()

	out, readErr := io.ReadAll(contextreader.New(ctx, pr))
	pr.Close()
	waitErr := cmd.Wait()
	if waitErr != nil {
		return out, waitErr
	}
	return out, readErr
}

// Native builds everything in-process instead of emitting a build file for
// an external tool to run. Cross-target concurrency is a semaphore-gated
// worker pool, mirroring the package-build scheduler's claim-ready-unit
// loop: targets whose dependencies have all completed are dispatched as
// they become ready, up to MaxParallel at a time, and a target's failure
// cascades as a skip to everything that depends on it.
type Native struct {
	MaxParallel int
	Cache       *sourcecache.Cache

	tc       *toolchain.Toolchain
	mu       sync.Mutex
	commands []CompileCommand
}

// NewNative returns a Native strategy. maxParallel <= 0 defaults to
// runtime.NumCPU().
func NewNative(cache *sourcecache.Cache, maxParallel int) *Native {
	if maxParallel <= 0 {
		maxParallel = runtime.NumCPU()
	}
	return &Native{MaxParallel: maxParallel, Cache: cache}
}

func (n *Native) Initialize(_ context.Context, tc *toolchain.Toolchain) error {
	n.tc = tc
	return nil
}

func (n *Native) AddProject(_ context.Context, _ Project) error { return nil }

func (n *Native) AddCompileCommands(p Project, commands []CompileCommand) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, commands...)
}

// SaveBuildFile is a no-op: Native has no on-disk build description.
func (n *Native) SaveBuildFile(_ context.Context) error { return nil }

func (n *Native) DoPostBuild(_ context.Context) error { return nil }

func (n *Native) SaveCompileCommands(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return writeCompileCommands(path, n.commands)
}

// Result is the outcome of building one target.
type Result struct {
	Name    string
	Rebuilt bool
	Err     error
	Skipped bool
}

// RunAll builds every project in graph, respecting dependency order, and
// returns per-target results keyed by target name. A target is never
// started until all of its in-graph dependencies have finished; a target
// whose dependency failed is recorded as skipped rather than attempted.
func (n *Native) RunAll(ctx context.Context, graph *depgraph.Graph, projects map[string]Project) (map[string]Result, error) {
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering targets: %w", err)
	}

	sem := make(chan struct{}, n.MaxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]Result, len(order))

	dependents := make(map[string][]string)
	for _, node := range order {
		for _, dep := range node.DependsOn {
			dependents[dep] = append(dependents[dep], node.Name)
		}
	}
	remaining := make(map[string]int, len(order))
	for _, node := range order {
		remaining[node.Name] = len(graph.FilterInGraphDeps(node.DependsOn))
	}

	var dispatch func(names []string)
	dispatch = func(names []string) {
		sort.Strings(names)
		for _, name := range names {
			node := findNode(order, name)
			if node == nil {
				continue
			}
			p, ok := projects[name]
			if !ok {
				mu.Lock()
				results[name] = Result{Name: name, Err: fmt.Errorf("no project registered for target %q", name)}
				mu.Unlock()
				continue
			}

			depFailed := false
			mu.Lock()
			for _, dep := range node.DependsOn {
				if r, seen := results[dep]; seen && (r.Err != nil || r.Skipped) {
					depFailed = true
					break
				}
			}
			mu.Unlock()
			if depFailed {
				mu.Lock()
				results[name] = Result{Name: name, Skipped: true}
				mu.Unlock()
				n.onFinished(ctx, name, dependents, remaining, &mu, dispatch)
				continue
			}

			wg.Add(1)
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Done()
				mu.Lock()
				results[name] = Result{Name: name, Err: ctx.Err()}
				mu.Unlock()
				continue
			}

			go func(name string, p Project) {
				defer wg.Done()
				defer func() { <-sem }()

				spanCtx, span := tracing.StartSpan(ctx, "build-target", "target", name)
				timer := tracing.NewTimer(spanCtx, "build-target:"+name)
				rebuilt, err := n.BuildProject(spanCtx, p)
				timer.Stop()
				if err != nil {
					tracing.RecordError(spanCtx, err)
				}
				span.End()

				mu.Lock()
				results[name] = Result{Name: name, Rebuilt: rebuilt, Err: err}
				mu.Unlock()

				n.onFinished(ctx, name, dependents, remaining, &mu, dispatch)
			}(name, p)
		}
	}

	dispatch(graph.Ready())
	wg.Wait()

	return results, nil
}

// onFinished decrements the pending-dependency count for every dependent of
// name and dispatches any that have just become ready.
func (n *Native) onFinished(ctx context.Context, name string, dependents map[string][]string, remaining map[string]int, mu *sync.Mutex, dispatch func([]string)) {
	var ready []string
	mu.Lock()
	for _, dependent := range dependents[name] {
		remaining[dependent]--
		if remaining[dependent] == 0 {
			ready = append(ready, dependent)
		}
	}
	mu.Unlock()
	if len(ready) > 0 {
		dispatch(ready)
	}
}

func findNode(nodes []depgraph.Node, name string) *depgraph.Node {
	for i := range nodes {
		if nodes[i].Name == name {
			return &nodes[i]
		}
	}
	return nil
}

// BuildProject builds a single target: for a SourceTarget this expands its
// sources, recompiles whatever sourcecache.IsDirty flags, and relinks if
// anything changed; other target kinds are executed directly.
func (n *Native) BuildProject(ctx context.Context, p Project) (bool, error) {
	log := clog.FromContext(ctx)

	switch t := p.Target.(type) {
	case *manifest.SourceTarget:
		return n.buildSourceTarget(ctx, p, t)
	case *manifest.ProcessTarget:
		if len(t.Command) == 0 {
			return false, nil
		}
		cmd := exec.CommandContext(ctx, t.Command[0], t.Command[1:]...)
		cmd.Dir = p.BuildDir
		out, err := runCaptured(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("target %q: %w: %s", t.Name, err, out)
		}
		return true, nil
	case *manifest.ScriptTarget:
		cmd := exec.CommandContext(ctx, t.File)
		cmd.Dir = p.BuildDir
		out, err := runCaptured(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("target %q: %w: %s", t.Name, err, out)
		}
		return true, nil
	case *manifest.CMakeTarget:
		cmd := exec.CommandContext(ctx, "cmake", "--build", t.Location)
		out, err := runCaptured(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("cmake target %q: %w: %s", t.Name, err, out)
		}
		return true, nil
	case *manifest.SubChaletTarget:
		log.Debugf("sub-workspace target %q at %q is built by recursing the build manager, not the strategy", t.Name, t.Location)
		return false, nil
	case *manifest.ValidationTarget:
		return false, nil
	default:
		return false, fmt.Errorf("target %q: unsupported kind %T", p.Target.TargetName(), t)
	}
}

func (n *Native) buildSourceTarget(ctx context.Context, p Project, t *manifest.SourceTarget) (bool, error) {
	group, err := sourceset.Expand(p.BuildDir, t.Files, t.Exclude)
	if err != nil {
		return false, fmt.Errorf("target %q: expanding sources: %w", t.Name, err)
	}

	cmdHash := compileArgvTemplateHash(t, p.Configuration, p.Adapter)

	var objects []string
	var anyRebuilt bool
	var commands []CompileCommand

	for _, rel := range group.Sources {
		source := filepath.Join(p.BuildDir, rel)
		objectPath := sourceset.ObjectPath(p.ObjectDir, rel)
		objects = append(objects, objectPath)

		depFile := objectPath + ".d"
		var headers []string
		if h, err := sourcecache.ParseGNUDepFile(depFile); err == nil {
			headers = h
		}

		dirty, err := sourcecache.IsDirty(n.Cache, source, objectPath, headers, cmdHash)
		if err != nil {
			return false, fmt.Errorf("target %q: checking %q: %w", t.Name, source, err)
		}

		spec := compileSpecFor(t, p.Configuration, source, objectPath, depFile)
		args := p.Adapter.CompileArgs(spec)
		commands = append(commands, CompileCommand{
			Directory: p.BuildDir,
			File:      source,
			Arguments: append([]string{compilerFor(n.tc, t.Language)}, args...),
			Output:    objectPath,
		})

		if !dirty {
			continue
		}
		anyRebuilt = true

		if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
			return false, fmt.Errorf("target %q: creating object directory: %w", t.Name, err)
		}

		cmd := exec.CommandContext(ctx, compilerFor(n.tc, t.Language), args...)
		cmd.Dir = p.BuildDir
		out, err := runCaptured(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("target %q: compiling %q: %w: %s", t.Name, rel, err, out)
		}

		info, err := os.Stat(source)
		if err != nil {
			return false, fmt.Errorf("target %q: stat %q: %w", t.Name, source, err)
		}
		n.Cache.Update(sourcecache.Entry{Source: source, ObjectPath: objectPath, MTime: info.ModTime().UnixNano(), CmdHash: cmdHash})
	}

	n.AddCompileCommands(p, commands)

	if !anyRebuilt {
		if _, err := os.Stat(p.OutputPath); err == nil {
			return false, nil
		}
	}

	if t.OutputKind == "staticLibrary" {
		args := p.Adapter.ArchiveArgs(objects, p.OutputPath)
		cmd := exec.CommandContext(ctx, archiverFor(n.tc), args...)
		cmd.Dir = p.BuildDir
		if out, err := runCaptured(ctx, cmd); err != nil {
			return false, fmt.Errorf("target %q: archiving: %w: %s", t.Name, err, out)
		}
		return true, nil
	}

	linkSpec := linkSpecFor(t, objects, p.OutputPath)
	args := p.Adapter.LinkArgs(linkSpec)
	cmd := exec.CommandContext(ctx, compilerFor(n.tc, t.Language), args...)
	cmd.Dir = p.BuildDir
	if out, err := runCaptured(ctx, cmd); err != nil {
		return false, fmt.Errorf("target %q: linking: %w: %s", t.Name, err, out)
	}
	return true, nil
}
