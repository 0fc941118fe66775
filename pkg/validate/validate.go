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

// Package validate checks a resolved manifest against the invariants a
// build-file checker enforces before any compiler ever runs: well-formed
// target names, distribution bundles that reference real buildable
// targets, and a non-empty, internally-consistent configuration set.
package validate

import (
	"fmt"
	"regexp"

	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

// targetNamePattern matches "[A-Za-z_][A-Za-z0-9_+.-]*" and additionally
// forbids a leading ".", "_", "-", "+" even though the character class
// itself would allow "_" after the first character check.
var targetNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+.\-]*$`)

// Finding is one validation failure, in the same Message/Explain shape the
// rest of the pack's structured lint findings use.
type Finding struct {
	Target  string
	Message string
	Explain string
}

func (f Finding) String() string {
	if f.Target != "" {
		return fmt.Sprintf("%s: %s", f.Target, f.Message)
	}
	return f.Message
}

// Manifest checks r against the data-model invariants: every target name
// is well-formed, every distribution bundle names only targets that exist
// and are library/executable kinds, the configuration set is non-empty,
// and every bundle's configuration resolves to a member of it.
func Manifest(r *manifest.Resolved) []Finding {
	var findings []Finding

	for name, t := range r.Targets {
		if !targetNamePattern.MatchString(name) {
			findings = append(findings, Finding{
				Target:  name,
				Message: "invalid target name",
				Explain: "target names must match [A-Za-z_][A-Za-z0-9_+.-]* and not begin with '.', '_', '-', or '+'",
			})
		}
		_ = t
	}

	configNames := map[string]bool{}
	for _, c := range r.Configurations {
		configNames[c.Name] = true
	}
	if len(r.Configurations) == 0 {
		findings = append(findings, Finding{
			Message: "no build configurations defined",
			Explain: "the configuration set must be non-empty; defaults are normally seeded when the manifest declares none",
		})
	}

	for _, b := range r.Distribution {
		if b.Configuration != "" && !configNames[b.Configuration] {
			findings = append(findings, Finding{
				Target:  b.Name,
				Message: fmt.Sprintf("bundle references unknown configuration %q", b.Configuration),
			})
		}
		for _, targetName := range b.Targets {
			target, ok := r.Targets[targetName]
			if !ok {
				findings = append(findings, Finding{
					Target:  b.Name,
					Message: fmt.Sprintf("bundle references unknown target %q", targetName),
				})
				continue
			}
			src, isSource := target.(*manifest.SourceTarget)
			if !isSource || (src.OutputKind != "executable" && src.OutputKind != "sharedLibrary" && src.OutputKind != "staticLibrary") {
				findings = append(findings, Finding{
					Target:  b.Name,
					Message: fmt.Sprintf("bundle target %q is not a library or executable", targetName),
				})
			}
		}
	}

	return findings
}
