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

// Package procctx bundles the process-wide state that would otherwise end
// up behind package-level globals: cancellation and terminal output.
package procctx

import (
	"context"
	"fmt"
	"io"
	"os"
)

// TerminalSink receives human-facing status output. The production
// implementation is a plain writer; richer terminal rendering is an
// external collaborator and is not implemented in this repository.
type TerminalSink interface {
	Status(format string, args ...any)
	Error(format string, args ...any)
}

type writerSink struct {
	out io.Writer
	err io.Writer
}

// NewWriterSink returns a TerminalSink that writes lines to out/err.
func NewWriterSink(out, err io.Writer) TerminalSink {
	return &writerSink{out: out, err: err}
}

// NewStdSink returns a TerminalSink writing to os.Stdout/os.Stderr.
func NewStdSink() TerminalSink {
	return NewWriterSink(os.Stdout, os.Stderr)
}

func (w *writerSink) Status(format string, args ...any) {
	fprintfln(w.out, format, args...)
}

func (w *writerSink) Error(format string, args ...any) {
	fprintfln(w.err, format, args...)
}

func fprintfln(w io.Writer, format string, args ...any) {
	if len(args) == 0 {
		io.WriteString(w, format+"\n") //nolint:errcheck
		return
	}
	io.WriteString(w, fmt.Sprintf(format, args...)+"\n") //nolint:errcheck
}

// Context carries the cancellation signal and terminal sink through the
// build pipeline explicitly, instead of via package-level singletons.
type Context struct {
	context.Context
	Sink TerminalSink
}

// New wraps ctx with a terminal sink.
func New(ctx context.Context, sink TerminalSink) *Context {
	if sink == nil {
		sink = NewStdSink()
	}
	return &Context{Context: ctx, Sink: sink}
}
