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

package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	_, ok := s.Get("anything")
	assert.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Load(path)
	require.NoError(t, err)
	s.Set("defaultConfiguration", "Debug")
	s.Toolchains["llvm"] = ToolchainSettings{CompilerCpp: "/usr/bin/clang++"}
	require.NoError(t, s.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	v, ok := loaded.Get("defaultConfiguration")
	require.True(t, ok)
	assert.Equal(t, "Debug", v)
	assert.Equal(t, "/usr/bin/clang++", loaded.Toolchains["llvm"].CompilerCpp)
}

func TestUnsetRemovesKey(t *testing.T) {
	s := &Settings{Workspace: map[string]string{"x": "1"}}
	s.Unset("x")
	_, ok := s.Get("x")
	assert.False(t, ok)
}
