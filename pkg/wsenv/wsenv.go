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

// Package wsenv resolves the workspace's filesystem layout once at startup:
// root, output, external-dependency, distribution, and cache directories,
// with "~" expanded the way the rest of the pack's tooling does.
package wsenv

import (
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// WorkspaceEnvironment is the resolved set of paths and identity facts for
// one run. It is computed once during startup resolution and is read-only
// for the rest of the process.
type WorkspaceEnvironment struct {
	Root         string
	OutputDir    string
	ExternalDir  string
	DistDir      string
	BuildOutput  string // per-configuration build output, e.g. <Output>/<configuration>
	CacheDir     string

	Name    string
	Version string

	SearchPaths []string
}

// Resolve builds a WorkspaceEnvironment rooted at root, for ws, under
// configuration name.
func Resolve(root string, ws manifest.Workspace, configuration string) (*WorkspaceEnvironment, error) {
	expandedRoot, err := expand(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	if !filepath.IsAbs(expandedRoot) {
		abs, err := filepath.Abs(expandedRoot)
		if err != nil {
			return nil, fmt.Errorf("resolving workspace root: %w", err)
		}
		expandedRoot = abs
	}

	output := filepath.Join(expandedRoot, "build")
	external := filepath.Join(expandedRoot, "external")
	dist := filepath.Join(expandedRoot, "dist")
	cache := filepath.Join(output, ".cache")

	searchPaths := make([]string, 0, len(ws.SearchPaths))
	for _, p := range ws.SearchPaths {
		ep, err := expand(p)
		if err != nil {
			return nil, fmt.Errorf("resolving search path %q: %w", p, err)
		}
		if !filepath.IsAbs(ep) {
			ep = filepath.Join(expandedRoot, ep)
		}
		searchPaths = append(searchPaths, ep)
	}

	buildOutput := output
	if configuration != "" {
		buildOutput = filepath.Join(output, configuration)
	}

	return &WorkspaceEnvironment{
		Root:        expandedRoot,
		OutputDir:   output,
		ExternalDir: external,
		DistDir:     dist,
		BuildOutput: buildOutput,
		CacheDir:    cache,
		Name:        ws.Metadata.Name,
		Version:     ws.Metadata.Version,
		SearchPaths: searchPaths,
	}, nil
}

// ObjectDir returns the per-configuration intermediate object directory
// for target name.
func (w *WorkspaceEnvironment) ObjectDir(target string) string {
	return filepath.Join(w.BuildOutput, "obj", target)
}

// expand resolves a leading "~" the way the rest of the pack's tools do,
// leaving any other path untouched.
func expand(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, "~") {
		return p, nil
	}
	return homedir.Expand(p)
}
