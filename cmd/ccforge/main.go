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

// Command ccforge drives a native-language build workspace: it parses a
// manifest, resolves a toolchain, fetches external dependencies, and
// builds (or runs, cleans, bundles, ...) the targets it declares.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/chainguard-dev/ccforge/internal/procctx"
	"github.com/chainguard-dev/ccforge/pkg/cliinput"
)

func main() {
	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := clog.WithLogger(context.Background(), logger)
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		clog.FromContext(ctx).Errorf("%v", err)
		os.Exit(cliinput.ExitCode(err))
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ccforge",
		Short:         "A native-language build orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("file", "chalet.yaml", "path to the workspace manifest")
	cmd.PersistentFlags().String("settings-file", "", "path to the settings file (default <workspace>/.ccforge/settings.json)")
	cmd.PersistentFlags().StringP("configuration", "c", "", "build configuration name (default: workspace default, or the first declared)")
	cmd.PersistentFlags().String("toolchain", "", "toolchain preference (e.g. llvm, gcc, msvc)")
	cmd.PersistentFlags().String("arch", "", "target architecture")
	cmd.PersistentFlags().IntP("jobs", "j", 0, "maximum number of parallel compile jobs (default: number of CPUs)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging (parsed, but no command reads it)")
	cmd.PersistentFlags().Bool("show-commands", false, "print compiler/linker command lines as they run (parsed, but no command reads it)")
	cmd.PersistentFlags().Bool("keep-going", false, "keep building unrelated targets after a failure (parsed, but no command reads it; the native scheduler always builds targets that do not depend on the failed one)")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output (parsed, but no command reads it)")

	cmd.AddCommand(
		buildCmd(),
		runCmd(),
		cleanCmd(),
		rebuildCmd(),
		bundleCmd(),
		configureCmd(),
		exportCmd(),
		queryCmd(),
		validateCmd(),
		checkCmd(),
		initCmd(),
		settingsCmd(),
	)
	return cmd
}

func terminalSink() procctx.TerminalSink {
	return procctx.NewStdSink()
}
