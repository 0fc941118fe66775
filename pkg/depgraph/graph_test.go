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

package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode("app", []string{"lib"}))
	require.NoError(t, g.AddNode("lib", nil))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "lib", order[0].Name)
	assert.Equal(t, "app", order[1].Name)
}

func TestTopologicalSortDeterministicOnTies(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode("b", nil))
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("c", nil))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(order))
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode("a", []string{"b"}))
	require.NoError(t, g.AddNode("b", []string{"a"}))

	_, err := g.TopologicalSort()
	assert.Error(t, err)
}

func TestAddNodeDuplicateRejected(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode("a", nil))
	assert.Error(t, g.AddNode("a", nil))
}

func TestReadyIgnoresExternalDeps(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode("app", []string{"zlib"})) // zlib is external, not a target
	assert.Equal(t, []string{"app"}, g.Ready())
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}
