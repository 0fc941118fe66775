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

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

func TestManifestRejectsInvalidTargetName(t *testing.T) {
	r := &manifest.Resolved{
		Targets: map[string]manifest.IBuildTarget{
			"-bad": &manifest.SourceTarget{Name: "-bad", OutputKind: "executable"},
		},
		Configurations: []manifest.BuildConfiguration{{Name: "Debug"}},
	}
	findings := Manifest(r)
	assert.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "invalid target name")
}

func TestManifestRequiresNonEmptyConfigurations(t *testing.T) {
	r := &manifest.Resolved{Targets: map[string]manifest.IBuildTarget{}}
	findings := Manifest(r)
	assert.Contains(t, findings[0].Message, "no build configurations")
}

func TestManifestRejectsBundleReferencingUnknownTarget(t *testing.T) {
	r := &manifest.Resolved{
		Targets:        map[string]manifest.IBuildTarget{},
		Configurations: []manifest.BuildConfiguration{{Name: "Debug"}},
		Distribution:   []manifest.DistributionBundle{{Name: "app", Targets: []string{"missing"}}},
	}
	findings := Manifest(r)
	assert.Contains(t, findings[0].Message, `unknown target "missing"`)
}

func TestManifestRejectsBundleTargetThatIsNotBuildable(t *testing.T) {
	r := &manifest.Resolved{
		Targets: map[string]manifest.IBuildTarget{
			"script": &manifest.ScriptTarget{Name: "script"},
		},
		Configurations: []manifest.BuildConfiguration{{Name: "Debug"}},
		Distribution:   []manifest.DistributionBundle{{Name: "app", Targets: []string{"script"}}},
	}
	findings := Manifest(r)
	assert.Contains(t, findings[0].Message, "not a library or executable")
}

func TestManifestAcceptsValidManifest(t *testing.T) {
	r := &manifest.Resolved{
		Targets: map[string]manifest.IBuildTarget{
			"app": &manifest.SourceTarget{Name: "app", OutputKind: "executable"},
		},
		Configurations: []manifest.BuildConfiguration{{Name: "Debug"}},
		Distribution:   []manifest.DistributionBundle{{Name: "bundle", Configuration: "Debug", Targets: []string{"app"}}},
	}
	assert.Empty(t, Manifest(r))
}
