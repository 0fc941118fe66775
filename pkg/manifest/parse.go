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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chainguard-dev/ccforge/pkg/util"
)

// ParsingOption customizes ParseManifest, mirroring the functional-options
// shape used throughout this project's configuration loading.
type ParsingOption func(*parsingOptions)

type parsingOptions struct {
	filesystem fs.FS
	envFile    string
	arch       string
}

// WithFS overrides the filesystem the manifest (and any relative
// includes) is read from.
func WithFS(filesystem fs.FS) ParsingOption {
	return func(o *parsingOptions) { o.filesystem = filesystem }
}

// WithEnvFile loads additional variables from a dotenv file before
// substitution runs.
func WithEnvFile(path string) ParsingOption {
	return func(o *parsingOptions) { o.envFile = path }
}

// WithArchitecture binds the ${arch:triple} substitution variable. It does
// not add condition facts; those come from the Environment passed to
// ParseManifest.
func WithArchitecture(arch string) ParsingOption {
	return func(o *parsingOptions) { o.arch = arch }
}

// Diagnostic is a single parse/validation failure. The parser collects
// diagnostics instead of stopping at the first one so a manifest author
// sees every problem in one pass.
type Diagnostic struct {
	File    string
	Target  string
	Key     string
	Message string
}

func (d Diagnostic) Error() string {
	switch {
	case d.Target != "" && d.Key != "":
		return fmt.Sprintf("%s: target %q, key %q: %s", d.File, d.Target, d.Key, d.Message)
	case d.Target != "":
		return fmt.Sprintf("%s: target %q: %s", d.File, d.Target, d.Message)
	default:
		return fmt.Sprintf("%s: %s", d.File, d.Message)
	}
}

// Resolved is the manifest after substitution and condition filtering:
// only targets/dependencies whose condition held survive.
type Resolved struct {
	Workspace            Workspace
	Targets              map[string]IBuildTarget
	ExternalDependencies []ExternalDependency
	Configurations       []BuildConfiguration
	Distribution         []DistributionBundle
}

// ParseManifest loads, substitutes, and condition-filters the manifest at
// path. It never returns a nil *Resolved together with a nil error: a
// structural failure (bad YAML, unknown target kind) is returned as a
// Go error, with a nil *Resolved and nil Diagnostics; per-target semantic
// problems are returned as Diagnostics alongside a partial Resolved.
func ParseManifest(ctx context.Context, path string, env Environment, opts ...ParsingOption) (*Resolved, []Diagnostic, error) {
	o := &parsingOptions{}
	for _, opt := range opts {
		opt(o)
	}

	dir := filepath.Dir(path)
	if o.filesystem == nil {
		o.filesystem = os.DirFS(dir)
		path = filepath.Base(path)
	}

	f, err := o.filesystem.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening manifest %q: %w", path, err)
	}
	defer f.Close()

	m, err := decodeManifest(f, path)
	if err != nil {
		return nil, nil, err
	}

	envVars := map[string]string{}
	if o.envFile != "" {
		vars, err := godotenv.Read(o.envFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading env file %q: %w", o.envFile, err)
		}
		envVars = vars
	}

	resolver := buildResolver(m, envVars, o.arch)

	if env == nil {
		env = FactEnvironment{}
	}

	return expand(path, m, resolver, env)
}

// decodeManifest performs the two-phase YAML decode: first into a
// yaml.Node to detect the document shape, then into the typed struct
// with unknown-key rejection so a typo in the manifest fails loudly
// instead of silently vanishing. A ".json" manifest is decoded in one
// step straight into the typed struct, also rejecting unknown keys.
func decodeManifest(r io.Reader, path string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		var m Manifest
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
		}
		return &m, nil
	}

	root := yaml.Node{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}

	decorated, err := extractDecoratedKeys(&root)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}

	// Re-marshal/decode through a node so we can apply KnownFields(true):
	// yaml.Node.Decode does not expose that option directly. This also
	// re-marshals the tree with any decorated "baseKey[filter]" entries
	// already stripped out by extractDecoratedKeys, above.
	normalized, err := yaml.Marshal(&root)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(normalized))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}

	for name, entries := range decorated {
		if raw, ok := m.Targets[name]; ok {
			raw.Decorated = append(raw.Decorated, entries...)
			m.Targets[name] = raw
		}
		if raw, ok := m.Abstracts[name]; ok {
			raw.Decorated = append(raw.Decorated, entries...)
			m.Abstracts[name] = raw
		}
	}
	return &m, nil
}

// decoratedListFields are the RawTarget list members the manifest's
// "baseKey[filter]" value-matching convention may decorate: an entry
// under e.g. "compileOptions[platform:linux]" is routed into the target's
// compileOptions field only if its condition filter passes.
var decoratedListFields = map[string]bool{
	"files": true, "defines": true, "includeDirs": true,
	"linkerOptions": true, "compileOptions": true, "links": true,
	"dependsOn": true, "command": true,
}

var decoratedKeyPattern = regexp.MustCompile(`^([A-Za-z]+)\[(.+)\]$`)

// extractDecoratedKeys walks the targets/abstracts sections of root,
// pulls every "baseKey[filter]" entry out of each target's mapping node
// (so the later strict, known-fields decode doesn't reject it as an
// unrecognised key), and returns them keyed by target/abstract name.
func extractDecoratedKeys(root *yaml.Node) (map[string][]DecoratedValue, error) {
	decorated := map[string][]DecoratedValue{}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return decorated, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return decorated, nil
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		section := doc.Content[i].Value
		if section != "targets" && section != "abstracts" {
			continue
		}
		targets := doc.Content[i+1]
		if targets.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(targets.Content); j += 2 {
			name := targets.Content[j].Value
			target := targets.Content[j+1]
			if target.Kind != yaml.MappingNode {
				continue
			}
			kept, entries, err := extractDecoratedFromTarget(name, target)
			if err != nil {
				return nil, err
			}
			target.Content = kept
			decorated[name] = append(decorated[name], entries...)
		}
	}
	return decorated, nil
}

func extractDecoratedFromTarget(name string, target *yaml.Node) ([]*yaml.Node, []DecoratedValue, error) {
	var kept []*yaml.Node
	var entries []DecoratedValue
	for k := 0; k+1 < len(target.Content); k += 2 {
		key := target.Content[k]
		val := target.Content[k+1]

		m := decoratedKeyPattern.FindStringSubmatch(key.Value)
		if m == nil || !decoratedListFields[m[1]] {
			kept = append(kept, key, val)
			continue
		}
		var values []string
		if err := val.Decode(&values); err != nil {
			return nil, nil, fmt.Errorf("target %q: decorated key %q: %w", name, key.Value, err)
		}
		entries = append(entries, DecoratedValue{Field: m[1], Filter: m[2], Values: values})
	}
	return kept, entries, nil
}

func buildResolver(m *Manifest, envVars map[string]string, arch string) util.Resolver {
	vars := util.MapResolver{}
	for k, v := range m.Vars {
		vars[k] = v
	}

	envRes := util.MapResolver{}
	for k, v := range m.Env {
		envRes["env:"+k] = v
	}
	for k, v := range envVars {
		envRes["env:"+k] = v
	}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i != -1 {
			envRes["env:"+kv[:i]] = kv[i+1:]
		}
	}

	archRes := util.MapResolver{}
	if arch != "" {
		archRes["arch:triple"] = arch
	}

	return util.ChainResolver{vars, envRes, archRes}
}

func expand(path string, m *Manifest, resolver util.Resolver, env Environment) (*Resolved, []Diagnostic, error) {
	var diags []Diagnostic

	abstractsMerged := map[string]RawTarget{}
	for name, raw := range m.Targets {
		if raw.Extends != "" {
			base, ok := m.Abstracts[raw.Extends]
			if !ok {
				diags = append(diags, Diagnostic{File: path, Target: name, Key: "extends", Message: fmt.Sprintf("unknown abstract %q", raw.Extends)})
				continue
			}
			raw = mergeRawTarget(base, raw)
		}
		abstractsMerged[name] = raw
	}

	targets := map[string]IBuildTarget{}
	for name, raw := range abstractsMerged {
		cond, err := ParseCondition(raw.Condition)
		if err != nil {
			diags = append(diags, Diagnostic{File: path, Target: name, Key: "condition", Message: err.Error()})
			continue
		}
		if !cond.Eval(env) {
			continue
		}

		decorated, err := mergeDecorated(raw, env)
		if err != nil {
			diags = append(diags, Diagnostic{File: path, Target: name, Key: "decorated", Message: err.Error()})
			continue
		}

		substituted, err := substituteRawTarget(decorated, resolver)
		if err != nil {
			diags = append(diags, Diagnostic{File: path, Target: name, Message: err.Error()})
			continue
		}

		t, err := resolveTarget(name, substituted)
		if err != nil {
			diags = append(diags, Diagnostic{File: path, Target: name, Message: err.Error()})
			continue
		}
		targets[name] = t
	}

	var deps []ExternalDependency
	for _, d := range m.ExternalDependencies {
		cond, err := ParseCondition(d.Condition)
		if err != nil {
			diags = append(diags, Diagnostic{File: path, Key: "externalDependencies." + d.Name, Message: err.Error()})
			continue
		}
		if cond.Eval(env) {
			deps = append(deps, d)
		}
	}

	return &Resolved{
		Workspace:            m.Workspace,
		Targets:              targets,
		ExternalDependencies: deps,
		Configurations:       m.Configurations,
		Distribution:         m.Distribution,
	}, diags, nil
}

func mergeRawTarget(base, override RawTarget) RawTarget {
	merged := base
	if override.Kind != "" {
		merged.Kind = override.Kind
	}
	if override.Language != "" {
		merged.Language = override.Language
	}
	merged.Files = append(merged.Files, override.Files...)
	merged.Exclude = append(merged.Exclude, override.Exclude...)
	merged.Defines = append(merged.Defines, override.Defines...)
	merged.IncludeDirs = append(merged.IncludeDirs, override.IncludeDirs...)
	merged.LibDirs = append(merged.LibDirs, override.LibDirs...)
	merged.LinkerOpts = append(merged.LinkerOpts, override.LinkerOpts...)
	merged.CompileOpts = append(merged.CompileOpts, override.CompileOpts...)
	merged.Links = append(merged.Links, override.Links...)
	merged.StaticLinks = append(merged.StaticLinks, override.StaticLinks...)
	merged.DependsOn = append(merged.DependsOn, override.DependsOn...)
	merged.Frameworks = append(merged.Frameworks, override.Frameworks...)
	merged.FrameworkPaths = append(merged.FrameworkPaths, override.FrameworkPaths...)
	merged.Decorated = append(merged.Decorated, override.Decorated...)
	if override.OutputKind != "" {
		merged.OutputKind = override.OutputKind
	}
	if override.Condition != "" {
		merged.Condition = override.Condition
	}
	if override.Standard != "" {
		merged.Standard = override.Standard
	}
	if override.Warnings != "" {
		merged.Warnings = override.Warnings
	}
	if override.PrecompiledHeader != "" {
		merged.PrecompiledHeader = override.PrecompiledHeader
	}
	if override.Subsystem != "" {
		merged.Subsystem = override.Subsystem
	}
	if override.EntryPoint != "" {
		merged.EntryPoint = override.EntryPoint
	}
	if override.Sysroot != "" {
		merged.Sysroot = override.Sysroot
	}
	if override.Exceptions != nil {
		merged.Exceptions = override.Exceptions
	}
	if override.RTTI != nil {
		merged.RTTI = override.RTTI
	}
	merged.RunTarget = merged.RunTarget || override.RunTarget
	merged.Threads = merged.Threads || override.Threads
	merged.FastMath = merged.FastMath || override.FastMath
	merged.PositionIndependentCode = merged.PositionIndependentCode || override.PositionIndependentCode
	merged.StaticRuntimeLibrary = merged.StaticRuntimeLibrary || override.StaticRuntimeLibrary
	return merged
}

// mergeDecorated applies every "baseKey[filter]" entry on raw whose filter
// condition holds against env, appending its values into the named base
// field. Entries whose filter fails to parse are reported to the caller;
// entries whose filter parses but does not hold are simply skipped.
func mergeDecorated(raw RawTarget, env Environment) (RawTarget, error) {
	for _, dv := range raw.Decorated {
		cond, err := ParseCondition(dv.Filter)
		if err != nil {
			return raw, fmt.Errorf("%s[%s]: %w", dv.Field, dv.Filter, err)
		}
		if !cond.Eval(env) {
			continue
		}
		switch dv.Field {
		case "files":
			raw.Files = append(raw.Files, dv.Values...)
		case "defines":
			raw.Defines = append(raw.Defines, dv.Values...)
		case "includeDirs":
			raw.IncludeDirs = append(raw.IncludeDirs, dv.Values...)
		case "linkerOptions":
			raw.LinkerOpts = append(raw.LinkerOpts, dv.Values...)
		case "compileOptions":
			raw.CompileOpts = append(raw.CompileOpts, dv.Values...)
		case "links":
			raw.Links = append(raw.Links, dv.Values...)
		case "dependsOn":
			raw.DependsOn = append(raw.DependsOn, dv.Values...)
		case "command":
			raw.Command = append(raw.Command, dv.Values...)
		}
	}
	return raw, nil
}

func substituteRawTarget(raw RawTarget, r util.Resolver) (RawTarget, error) {
	var err error
	sub := func(ss []string) []string {
		if err != nil {
			return ss
		}
		var out []string
		out, err = util.SubstituteAll(ss, r)
		return out
	}
	subOne := func(s string) string {
		if err != nil || s == "" {
			return s
		}
		var v string
		v, err = util.Substitute(s, r)
		return v
	}

	raw.Files = sub(raw.Files)
	raw.Exclude = sub(raw.Exclude)
	raw.Defines = sub(raw.Defines)
	raw.IncludeDirs = sub(raw.IncludeDirs)
	raw.LibDirs = sub(raw.LibDirs)
	raw.LinkerOpts = sub(raw.LinkerOpts)
	raw.CompileOpts = sub(raw.CompileOpts)
	raw.Links = sub(raw.Links)
	raw.StaticLinks = sub(raw.StaticLinks)
	raw.Frameworks = sub(raw.Frameworks)
	raw.FrameworkPaths = sub(raw.FrameworkPaths)
	raw.Location = subOne(raw.Location)
	raw.File = subOne(raw.File)
	raw.Command = sub(raw.Command)
	raw.Standard = subOne(raw.Standard)
	raw.PrecompiledHeader = subOne(raw.PrecompiledHeader)
	raw.Sysroot = subOne(raw.Sysroot)

	return raw, err
}
