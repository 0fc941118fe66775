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

package buildmgr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chainguard-dev/ccforge/pkg/cliinput"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// Build runs the Build route: fetch dependencies, then build every
// selected target.
func (c *Context) Build(ctx context.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.fetchDependencies(ctx); err != nil {
		return err
	}
	_, err := c.runStrategy(ctx)
	return err
}

// Rebuild forces a from-scratch build by discarding the per-file mtime
// cache before running Build.
func (c *Context) Rebuild(ctx context.Context) error {
	cachePath := filepath.Join(c.Env.CacheDir, "mtimes")
	if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
		return &cliinput.BuildError{Message: err.Error()}
	}
	return c.Build(ctx)
}

// Clean removes the build output directory entirely.
func (c *Context) Clean(_ context.Context) error {
	if err := os.RemoveAll(c.Env.BuildOutput); err != nil {
		return &cliinput.PostBuildError{Message: err.Error()}
	}
	return nil
}

// Run builds (if needed) and executes the run target: the explicitly
// selected target, or the manifest's sole `runTarget: true` executable.
func (c *Context) Run(ctx context.Context) error {
	return c.run(ctx, true)
}

// BuildRun is an alias for Run: building happens unconditionally inside
// it, so there is no separate "build then run" step to add.
func (c *Context) BuildRun(ctx context.Context) error {
	return c.run(ctx, true)
}

func (c *Context) run(ctx context.Context, build bool) error {
	target, err := c.resolveRunTarget()
	if err != nil {
		return err
	}

	if build {
		if err := c.Build(ctx); err != nil {
			return err
		}
	}

	outputPath := filepath.Join(c.Env.BuildOutput, target.Name)
	cmd := exec.CommandContext(ctx, outputPath, c.Inputs.RunArgs...)
	cmd.Dir = c.Env.Root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return &cliinput.BuildError{Message: fmt.Sprintf("running %q: %v", target.Name, err)}
	}
	return nil
}

func (c *Context) resolveRunTarget() (*manifest.SourceTarget, error) {
	if len(c.Inputs.Targets) == 1 {
		t, ok := c.Resolved.Targets[c.Inputs.Targets[0]]
		if !ok {
			return nil, &cliinput.InputError{Message: fmt.Sprintf("unknown target %q", c.Inputs.Targets[0])}
		}
		src, ok := t.(*manifest.SourceTarget)
		if !ok || src.OutputKind != "executable" {
			return nil, &cliinput.InputError{Message: fmt.Sprintf("target %q is not an executable", c.Inputs.Targets[0])}
		}
		return src, nil
	}

	var candidate *manifest.SourceTarget
	for _, t := range c.Resolved.Targets {
		src, ok := t.(*manifest.SourceTarget)
		if !ok || !src.RunTarget {
			continue
		}
		if candidate != nil {
			return nil, &cliinput.InputError{Message: "multiple targets marked runTarget: true; pass an explicit target"}
		}
		candidate = src
	}
	if candidate == nil {
		return nil, &cliinput.InputError{Message: "no run target: mark exactly one executable runTarget: true, or pass an explicit target"}
	}
	return candidate, nil
}

// Bundle runs the Build route, then copies each distribution bundle's
// include/exclude-filtered files (plus its listed target outputs) into
// the workspace's distribution directory.
func (c *Context) Bundle(ctx context.Context) error {
	if err := c.Build(ctx); err != nil {
		return err
	}
	for _, bundle := range c.Resolved.Distribution {
		destDir := filepath.Join(c.Env.DistDir, bundle.Name)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return &cliinput.PostBuildError{Message: err.Error()}
		}
		for _, targetName := range bundle.Targets {
			src := filepath.Join(c.Env.BuildOutput, targetName)
			if st, ok := c.Resolved.Targets[targetName].(*manifest.SourceTarget); ok {
				switch st.OutputKind {
				case "sharedLibrary":
					src += sharedLibSuffix()
				case "staticLibrary":
					src += staticLibSuffix()
				}
			}
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := copyFile(src, filepath.Join(destDir, filepath.Base(src))); err != nil {
				return &cliinput.PostBuildError{Message: err.Error()}
			}
		}
		if err := copyIncludedFiles(c.Env.Root, destDir, bundle.IncludeFiles, bundle.ExcludeFiles); err != nil {
			return &cliinput.PostBuildError{Message: err.Error()}
		}
	}
	return nil
}

// Configure validates the manifest and resolves the toolchain/workspace
// environment without building anything; New already did the resolution,
// so Configure only runs Validate.
func (c *Context) Configure(_ context.Context) error {
	return c.Validate()
}

// Export is out of this core's scope: project-file exporters (Xcode, VS,
// VSCode, CLion, CodeBlocks) are named as external collaborators whose
// interface the core doesn't implement.
func (c *Context) Export(_ context.Context) error {
	return &cliinput.InputError{Message: "export: project-file exporters are an external collaborator, not implemented by this core"}
}

// Check parses and validates the manifest without fetching dependencies
// or building; a fast syntax/semantics-only dry run.
func (c *Context) Check(_ context.Context) error {
	return c.Validate()
}

// Init writes a minimal starter manifest at the working directory if one
// does not already exist.
func (c *Context) Init(_ context.Context) error {
	return InitWorkspace(c.Env.Root, "chalet.yaml")
}

// InitWorkspace writes a minimal starter manifest named file under root,
// unless one is already there. It is a free function, not a Context
// method, because Init runs before any manifest exists to parse.
func InitWorkspace(root, file string) error {
	path := filepath.Join(root, file)
	if _, err := os.Stat(path); err == nil {
		return &cliinput.InputError{Message: fmt.Sprintf("%s already exists", path)}
	}
	const starter = `workspace:
  metadata:
    name: app
targets:
  app:
    kind: executable
    language: c++
    files:
      - src/**/*.cpp
`
	if err := os.WriteFile(path, []byte(starter), 0o644); err != nil {
		return &cliinput.PostBuildError{Message: err.Error()}
	}
	return nil
}

// Query reports workspace facts (name, version, resolved toolchain,
// target list) as a plain key/value map for the CLI layer to render.
func (c *Context) Query() map[string]string {
	q := map[string]string{
		"workspace.name":    c.Env.Name,
		"workspace.version": c.Env.Version,
		"toolchain.family":  string(c.Toolchain.Family),
		"toolchain.version": c.Toolchain.Version,
	}
	for name := range c.Resolved.Targets {
		q["target."+name] = "declared"
	}
	return q
}

// SettingsGet returns a persisted workspace-default setting.
func (c *Context) SettingsGet(key string) (string, bool) { return c.Settings.Get(key) }

// SettingsSet assigns and persists a workspace-default setting.
func (c *Context) SettingsSet(key, value string) error {
	c.Settings.Set(key, value)
	return c.Settings.Save()
}

// SettingsUnset removes and persists the removal of a workspace-default
// setting.
func (c *Context) SettingsUnset(key string) error {
	c.Settings.Unset(key)
	return c.Settings.Save()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode())
}

func copyIncludedFiles(root, destDir string, include, exclude []string) error {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		matches, _ := filepath.Glob(filepath.Join(root, e))
		for _, m := range matches {
			excluded[m] = true
		}
	}
	for _, pattern := range include {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return err
		}
		for _, m := range matches {
			if excluded[m] {
				continue
			}
			rel, err := filepath.Rel(root, m)
			if err != nil {
				return err
			}
			if err := copyFile(m, filepath.Join(destDir, rel)); err != nil {
				return err
			}
		}
	}
	return nil
}
