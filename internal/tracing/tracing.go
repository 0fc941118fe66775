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

// Package tracing wraps the build's otel tracer so per-target and
// per-phase spans can be started without every caller importing otel
// directly.
package tracing

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ccforge"

// StartSpan starts a span named name, attaching attrs as string attributes
// (key, value, key, value, ...).
func StartSpan(ctx context.Context, name string, attrs ...string) (context.Context, trace.Span) {
	var opts []trace.SpanStartOption
	if len(attrs) > 0 {
		kv := make([]attribute.KeyValue, 0, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			kv = append(kv, attribute.String(attrs[i], attrs[i+1]))
		}
		opts = append(opts, trace.WithAttributes(kv...))
	}
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// RecordError marks the span in ctx (if any) as failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Timer measures wall-clock duration of a named phase and logs it on Stop.
type Timer struct {
	ctx   context.Context
	name  string
	start time.Time
}

// NewTimer starts a phase timer. Call Stop when the phase completes.
func NewTimer(ctx context.Context, name string) *Timer {
	return &Timer{ctx: ctx, name: name, start: time.Now()}
}

// Stop records the elapsed duration to the debug log.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	clog.FromContext(t.ctx).Debugf("%s took %s", t.name, d)
	return d
}
