// SPDX-License-Identifier: MIT

package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// WithTraceContext enriches logger with the session from ctx, plus trace_id
// and span_id when ctx holds a valid OpenTelemetry span context. Deep
// components call it so their lines join up with the active stage span.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	l := WithContext(ctx, logger)
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return l
	}
	return l.With().
		Str("trace_id", span.TraceID().String()).
		Str("span_id", span.SpanID().String()).
		Logger()
}
