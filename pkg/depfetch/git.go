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

package depfetch

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// fetchGit clones (or updates) dep's repository into dir using an
// in-process git client rather than shelling out to the git binary.
func fetchGit(ctx context.Context, dep manifest.ExternalDependency, dir string) error {
	opts := &git.CloneOptions{
		URL:      dep.Repository,
		Progress: nil,
	}
	if dep.Depth > 0 {
		opts.Depth = dep.Depth
	}
	switch {
	case dep.Tag != "":
		opts.ReferenceName = plumbing.NewTagReferenceName(dep.Tag)
		opts.SingleBranch = true
	case dep.Branch != "":
		opts.ReferenceName = plumbing.NewBranchReferenceName(dep.Branch)
		opts.SingleBranch = true
	}

	empty, err := dirEmpty(dir)
	if err != nil {
		return err
	}

	var repo *git.Repository
	if empty {
		repo, err = git.PlainCloneContext(ctx, dir, false, opts)
		if err != nil {
			return fmt.Errorf("cloning %q: %w", dep.Repository, err)
		}
	} else {
		repo, err = git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			return fmt.Errorf("opening existing clone at %q: %w", dir, err)
		}
		fetchOpts := &git.FetchOptions{RemoteName: "origin", Force: true}
		if err := repo.FetchContext(ctx, fetchOpts); err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("fetching %q: %w", dep.Repository, err)
		}
	}

	if dep.Commit != "" {
		wt, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("opening worktree for %q: %w", dep.Repository, err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{
			Hash:  plumbing.NewHash(dep.Commit),
			Force: true,
		}); err != nil {
			return fmt.Errorf("checking out commit %q of %q: %w", dep.Commit, dep.Repository, err)
		}
	}

	return nil
}

func dirEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("reading %q: %w", dir, err)
	}
	return len(entries) == 0, nil
}
