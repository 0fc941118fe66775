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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainguard-dev/ccforge/pkg/buildmgr"
	"github.com/chainguard-dev/ccforge/pkg/cliinput"
)

// inputsFromCmd builds a CommandLineInputs from the persistent flags every
// subcommand shares, plus the route-specific bits the caller fills in.
func inputsFromCmd(cmd *cobra.Command, route cliinput.Route, targets []string) cliinput.CommandLineInputs {
	flags := cmd.Flags()
	file, _ := flags.GetString("file")
	settingsFile, _ := flags.GetString("settings-file")
	configuration, _ := flags.GetString("configuration")
	toolchainPref, _ := flags.GetString("toolchain")
	arch, _ := flags.GetString("arch")
	jobs, _ := flags.GetInt("jobs")
	verbose, _ := flags.GetBool("verbose")
	showCommands, _ := flags.GetBool("show-commands")
	keepGoing, _ := flags.GetBool("keep-going")
	noColor, _ := flags.GetBool("no-color")
	watch, _ := flags.GetBool("watch")

	return cliinput.CommandLineInputs{
		Route:               route,
		InputFile:           file,
		SettingsFile:        settingsFile,
		WorkingDir:          ".",
		ToolchainPreference: toolchainPref,
		Architecture:        arch,
		BuildConfiguration:  configuration,
		Targets:             targets,
		MaxJobs:             jobs,
		Verbose:             verbose,
		ShowCommands:        showCommands,
		KeepGoing:           keepGoing,
		NoColor:             noColor,
		Watch:               watch,
	}
}

func newContext(cmd *cobra.Command, route cliinput.Route, targets []string) (*buildmgr.Context, error) {
	inputs := inputsFromCmd(cmd, route, targets)
	return buildmgr.New(cmd.Context(), terminalSink(), inputs)
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Fetch dependencies and build the selected targets (or all of them)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContext(cmd, cliinput.RouteBuild, args)
			if err != nil {
				return err
			}
			if c.Inputs.Watch {
				return c.Watch(cmd.Context())
			}
			return c.Build(cmd.Context())
		},
	}
	cmd.Flags().Bool("watch", false, "rebuild automatically when a watched source file changes")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [target] [-- args...]",
		Short: "Build, then execute the run target",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, runArgs := splitRunArgs(args)
			inputs := inputsFromCmd(cmd, cliinput.RouteRun, targets)
			inputs.RunArgs = runArgs
			c, err := buildmgr.New(cmd.Context(), terminalSink(), inputs)
			if err != nil {
				return err
			}
			return c.Run(cmd.Context())
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// splitRunArgs treats the first non-flag argument as the optional target
// name and everything after a literal "--" as arguments forwarded to it.
func splitRunArgs(args []string) (targets, runArgs []string) {
	for i, a := range args {
		if a == "--" {
			runArgs = args[i+1:]
			if i > 0 {
				targets = args[:i]
			}
			return targets, runArgs
		}
	}
	return args, nil
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the build output directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteClean, nil)
			if err != nil {
				return err
			}
			return c.Clean(cmd.Context())
		},
	}
}

func rebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [targets...]",
		Short: "Discard the incremental-build cache and build from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContext(cmd, cliinput.RouteRebuild, args)
			if err != nil {
				return err
			}
			return c.Rebuild(cmd.Context())
		},
	}
}

func bundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle",
		Short: "Build, then assemble each distribution bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteBundle, nil)
			if err != nil {
				return err
			}
			return c.Bundle(cmd.Context())
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Parse and validate the manifest, resolving the toolchain and workspace layout, without building",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteConfigure, nil)
			if err != nil {
				return err
			}
			return c.Configure(cmd.Context())
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export a project file for an external IDE (not implemented by this core)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteExport, nil)
			if err != nil {
				return err
			}
			return c.Export(cmd.Context())
		},
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Print resolved workspace facts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteQuery, nil)
			if err != nil {
				return err
			}
			for k, v := range c.Query() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, v)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest against its structural invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteValidate, nil)
			if err != nil {
				return err
			}
			return c.Validate()
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse and validate the manifest (a fast dry run)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContext(cmd, cliinput.RouteCheck, nil)
			if err != nil {
				return err
			}
			return c.Check(cmd.Context())
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a starter manifest in the current directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			return buildmgr.InitWorkspace(".", file)
		},
	}
}

func settingsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "settings",
		Short: "Get, set, or unset a persisted workspace-default setting",
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a persisted setting's value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newContext(cmd, cliinput.RouteSettingsGet, nil)
				if err != nil {
					return err
				}
				v, ok := c.SettingsGet(args[0])
				if !ok {
					return fmt.Errorf("setting %q is not set", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a workspace-default setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newContext(cmd, cliinput.RouteSettingsSet, nil)
				if err != nil {
					return err
				}
				return c.SettingsSet(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a persisted workspace-default setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newContext(cmd, cliinput.RouteSettingsUnset, nil)
				if err != nil {
					return err
				}
				return c.SettingsUnset(args[0])
			},
		},
	)
	return root
}
