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
	"os/exec"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// fetchScript runs dep's fetch script with the destination directory as
// its sole argument, for dependencies whose retrieval can't be expressed
// as git/archive/local (e.g. a vendor-specific download tool).
func fetchScript(ctx context.Context, dep manifest.ExternalDependency, dir string) error {
	cmd := exec.CommandContext(ctx, dep.Script, dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("dependency %q fetch script failed: %w\n%s", dep.Name, err, out)
	}
	return nil
}
