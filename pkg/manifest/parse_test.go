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

package manifest

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
workspace:
  metadata:
    name: sample
  defaultConfiguration: Release
vars:
  greeting: hello
targets:
  app:
    kind: source
    language: cpp
    files:
      - src/*.cpp
    defines:
      - "GREETING=${greeting}"
  linuxOnly:
    kind: source
    condition: "[platform:linux]"
    files:
      - src/linux.cpp
externalDependencies:
  - name: zlib
    kind: git
    repository: https://example.com/zlib.git
`

func TestParseManifestBasic(t *testing.T) {
	fsys := fstest.MapFS{
		"chalet.yaml": &fstest.MapFile{Data: []byte(sampleManifest)},
	}

	resolved, diags, err := ParseManifest(context.Background(), "chalet.yaml", FactEnvironment{"platform:macos": true}, WithFS(fsys))
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Contains(t, resolved.Targets, "app")
	assert.NotContains(t, resolved.Targets, "linuxOnly")

	app, ok := resolved.Targets["app"].(*SourceTarget)
	require.True(t, ok)
	assert.Equal(t, []string{"GREETING=hello"}, app.Defines)

	require.Len(t, resolved.ExternalDependencies, 1)
	assert.Equal(t, "zlib", resolved.ExternalDependencies[0].Name)
}

func TestParseManifestUnknownFieldRejected(t *testing.T) {
	fsys := fstest.MapFS{
		"chalet.yaml": &fstest.MapFile{Data: []byte("workspace:\n  bogusField: true\ntargets: {}\n")},
	}
	_, _, err := ParseManifest(context.Background(), "chalet.yaml", nil, WithFS(fsys))
	assert.Error(t, err)
}

func TestParseManifestDecoratedKeyAppliesWhenFilterHolds(t *testing.T) {
	fsys := fstest.MapFS{
		"chalet.yaml": &fstest.MapFile{Data: []byte(`
targets:
  app:
    kind: source
    files:
      - src/app.cpp
    "defines[platform:linux]":
      - "ON_LINUX=1"
    "defines[platform:windows]":
      - "ON_WINDOWS=1"
`)},
	}
	resolved, diags, err := ParseManifest(context.Background(), "chalet.yaml", FactEnvironment{"platform:linux": true}, WithFS(fsys))
	require.NoError(t, err)
	assert.Empty(t, diags)

	app, ok := resolved.Targets["app"].(*SourceTarget)
	require.True(t, ok)
	assert.Equal(t, []string{"ON_LINUX=1"}, app.Defines)
}

func TestParseManifestExcludePattern(t *testing.T) {
	fsys := fstest.MapFS{
		"chalet.yaml": &fstest.MapFile{Data: []byte(`
targets:
  app:
    kind: source
    files:
      - src/*.cpp
    exclude:
      - src/skip.cpp
`)},
	}
	resolved, diags, err := ParseManifest(context.Background(), "chalet.yaml", nil, WithFS(fsys))
	require.NoError(t, err)
	assert.Empty(t, diags)

	app, ok := resolved.Targets["app"].(*SourceTarget)
	require.True(t, ok)
	assert.Equal(t, []string{"src/skip.cpp"}, app.Exclude)
}

func TestParseManifestUnresolvedVariableIsDiagnostic(t *testing.T) {
	fsys := fstest.MapFS{
		"chalet.yaml": &fstest.MapFile{Data: []byte(`
targets:
  app:
    kind: source
    files:
      - "${missing}"
`)},
	}
	resolved, diags, err := ParseManifest(context.Background(), "chalet.yaml", nil, WithFS(fsys))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Error(), "app")
	assert.NotContains(t, resolved.Targets, "app")
}
