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

// Package util holds small string-manipulation helpers shared across the
// manifest, toolchain, and dependency-fetch packages.
package util

import (
	"fmt"
	"strings"
)

// Resolver looks up the value bound to a scoped variable reference. scope
// is empty for a bare "${name}" reference.
type Resolver interface {
	Resolve(scope, name string) (string, bool)
}

// MapResolver resolves bare references ("${name}") against a flat map and
// treats any scope prefix as part of the lookup key ("${scope:name}" looks
// up "scope:name").
type MapResolver map[string]string

func (m MapResolver) Resolve(scope, name string) (string, bool) {
	key := name
	if scope != "" {
		key = scope + ":" + name
	}
	v, ok := m[key]
	return v, ok
}

// UnresolvedError reports a "${...}" token with no binding in the resolver.
type UnresolvedError struct {
	Token string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved variable reference: ${%s}", e.Token)
}

// Substitute expands every "${scope:name}" or "${name}" token in input
// using r. It returns an error naming the first unresolved token; unlike a
// blind strings.Replacer pass, it must parse each token to split out its
// scope before performing the lookup.
func Substitute(input string, r Resolver) (string, error) {
	var b strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "${")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end == -1 {
			b.WriteString(rest)
			break
		}
		end += start

		b.WriteString(rest[:start])
		token := rest[start+2 : end]

		scope, name := "", token
		if i := strings.Index(token, ":"); i != -1 {
			scope, name = token[:i], token[i+1:]
		}

		val, ok := r.Resolve(scope, name)
		if !ok {
			return "", &UnresolvedError{Token: token}
		}
		b.WriteString(val)

		rest = rest[end+1:]
	}
	return b.String(), nil
}

// SubstituteAll applies Substitute to every element of in, returning an
// error on the first unresolved token.
func SubstituteAll(in []string, r Resolver) ([]string, error) {
	out := make([]string, len(in))
	for i, s := range in {
		v, err := Substitute(s, r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ChainResolver tries each Resolver in order, returning the first match.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(scope, name string) (string, bool) {
	for _, r := range c {
		if v, ok := r.Resolve(scope, name); ok {
			return v, true
		}
	}
	return "", false
}
