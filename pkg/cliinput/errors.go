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

package cliinput

import "context"

// The six error categories, each carrying its own fixed exit code except
// BuildError, whose exit code is the failing child process's own exit code.
type (
	// InputError covers bad CLI usage, malformed manifest JSON/YAML, or a
	// failing schema validation. Exit 2.
	InputError struct{ Message string }

	// ResolutionError covers an unknown toolchain, a compiler that
	// couldn't be found, or an architecture invalid for the chosen
	// toolchain. Exit 1.
	ResolutionError struct{ Message string }

	// FetchError covers a git/HTTP failure, checksum mismatch, or
	// extraction failure. Exit 1; the caller removes the partial
	// destination before returning this.
	FetchError struct{ Message string }

	// BuildError covers a non-zero compile or link exit. ExitCode carries
	// the failing child's own exit status.
	BuildError struct {
		Message  string
		ExitCode int
	}

	// PostBuildError covers a copy/bundle failure after a successful
	// build. Exit 1.
	PostBuildError struct{ Message string }

	// CancelledError marks a run aborted by SIGINT. Exit 130.
	CancelledError struct{ Message string }
)

func (e *InputError) Error() string      { return e.Message }
func (e *ResolutionError) Error() string  { return e.Message }
func (e *FetchError) Error() string       { return e.Message }
func (e *BuildError) Error() string       { return e.Message }
func (e *PostBuildError) Error() string   { return e.Message }
func (e *CancelledError) Error() string   { return e.Message }

// ExitCode maps err to the process exit code its taxonomy specifies.
// Errors that don't match a known category default to 1.
func ExitCode(err error) int {
	switch e := err.(type) {
	case nil:
		return 0
	case *InputError:
		return 2
	case *ResolutionError:
		return 1
	case *FetchError:
		return 1
	case *BuildError:
		if e.ExitCode != 0 {
			return e.ExitCode
		}
		return 1
	case *PostBuildError:
		return 1
	case *CancelledError:
		return 130
	default:
		if err == context.Canceled {
			return 130
		}
		return 1
	}
}
