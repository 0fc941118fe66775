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

// Package cliinput defines the frozen CommandLineInputs the cobra layer
// builds once at startup and passes, read-only, into pkg/buildmgr. It also
// maps the build's error taxonomy onto process exit codes.
package cliinput

// Route is the operation the user asked for.
type Route string

const (
	RouteBuild         Route = "build"
	RouteBuildRun      Route = "build-run"
	RouteRun           Route = "run"
	RouteClean         Route = "clean"
	RouteRebuild       Route = "rebuild"
	RouteBundle        Route = "bundle"
	RouteConfigure     Route = "configure"
	RouteExport        Route = "export"
	RouteQuery         Route = "query"
	RouteValidate      Route = "validate"
	RouteSettingsGet   Route = "settings-get"
	RouteSettingsSet   Route = "settings-set"
	RouteSettingsUnset Route = "settings-unset"
	RouteInit          Route = "init"
	RouteCheck         Route = "check"
)

// CommandLineInputs is the frozen user intent for one invocation. It is
// constructed once at startup by the cobra command layer and never
// mutated afterward.
type CommandLineInputs struct {
	Route Route

	InputFile    string
	SettingsFile string
	WorkingDir   string

	ToolchainPreference string
	Architecture        string
	BuildConfiguration  string

	Targets []string // explicit target selection; empty means "all"
	RunArgs []string // arguments forwarded to the run target

	MaxJobs int

	Verbose      bool
	ShowCommands bool
	KeepGoing    bool
	NoColor      bool
	Watch        bool // re-run Source Discovery and rebuild on file change
}

// Validate rejects input combinations that can never be satisfied,
// independent of anything the manifest says.
func (c *CommandLineInputs) Validate() error {
	if c.InputFile == "" {
		return &InputError{Message: "no manifest file specified"}
	}
	if c.MaxJobs < 0 {
		return &InputError{Message: "maxJobs must be >= 0"}
	}
	return nil
}
