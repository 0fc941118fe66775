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

// Package depgraph builds the target dependency graph ("dependsOn") and
// topologically orders it for the compile strategies, detecting cycles
// before any compiler is ever invoked.
package depgraph

import (
	"fmt"
	"sort"
)

// Node is one target in the graph.
type Node struct {
	Name      string
	DependsOn []string
}

// Graph is a directed graph of target dependencies.
type Graph struct {
	nodes map[string]*Node
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode adds a target node to the graph. Returns an error if a node
// with the same name already exists.
func (g *Graph) AddNode(name string, dependsOn []string) error {
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("duplicate target: %s", name)
	}
	g.nodes[name] = &Node{Name: name, DependsOn: dependsOn}
	return nil
}

// Size returns the number of nodes in the graph.
func (g *Graph) Size() int { return len(g.nodes) }

// TopologicalSort returns nodes in dependency order using Kahn's
// algorithm: dependencies come before dependents. Dependencies that
// aren't themselves targets in the graph (e.g. an external dependency
// name) are ignored rather than treated as missing nodes. Returns an
// error if a cycle is detected.
func (g *Graph) TopologicalSort() ([]Node, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		inDegree[name] = 0
	}
	for _, node := range g.nodes {
		for _, dep := range node.DependsOn {
			if _, exists := g.nodes[dep]; exists {
				inDegree[node.Name]++
			}
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []Node
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		node := g.nodes[name]
		if node == nil {
			continue
		}
		result = append(result, *node)

		for _, n := range g.nodes {
			for _, dep := range n.DependsOn {
				if dep == name {
					inDegree[n.Name]--
					if inDegree[n.Name] == 0 {
						queue = append(queue, n.Name)
						sort.Strings(queue)
					}
					break
				}
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycle, _ := g.DetectCycle()
		return nil, fmt.Errorf("cycle detected in target dependency graph: %v", cycle)
	}
	return result, nil
}

// DetectCycle uses DFS with 3-state coloring to find and return a cycle
// path, or nil if the graph is acyclic.
func (g *Graph) DetectCycle() ([]string, error) {
	state := make(map[string]int) // 0 unvisited, 1 in-progress, 2 done
	parent := make(map[string]string)

	var cyclePath []string
	var dfs func(name string) bool
	dfs = func(name string) bool {
		state[name] = 1
		node := g.nodes[name]
		for _, dep := range node.DependsOn {
			if _, exists := g.nodes[dep]; !exists {
				continue
			}
			if state[dep] == 1 {
				cyclePath = []string{dep, name}
				for cur := name; cur != dep; {
					p, ok := parent[cur]
					if !ok {
						break
					}
					cyclePath = append([]string{p}, cyclePath...)
					cur = p
				}
				return true
			}
			if state[dep] == 0 {
				parent[dep] = name
				if dfs(dep) {
					return true
				}
			}
		}
		state[name] = 2
		return false
	}

	for name := range g.nodes {
		if state[name] == 0 {
			if dfs(name) {
				return cyclePath, fmt.Errorf("cycle detected: %v", cyclePath)
			}
		}
	}
	return nil, nil
}

// FilterInGraphDeps returns only the elements of deps that name a node in
// the graph.
func (g *Graph) FilterInGraphDeps(deps []string) []string {
	var filtered []string
	for _, dep := range deps {
		if _, exists := g.nodes[dep]; exists {
			filtered = append(filtered, dep)
		}
	}
	return filtered
}

// Ready returns the targets with no unmet in-graph dependency: the set
// immediately buildable at the start of a build.
func (g *Graph) Ready() []string {
	var ready []string
	for _, node := range g.nodes {
		isReady := true
		for _, dep := range node.DependsOn {
			if _, exists := g.nodes[dep]; exists {
				isReady = false
				break
			}
		}
		if isReady {
			ready = append(ready, node.Name)
		}
	}
	sort.Strings(ready)
	return ready
}
