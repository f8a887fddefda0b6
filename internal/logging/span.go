package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work within a request. The request id, when set,
// doubles as the trace id so spans line up with the access log.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	now    func() time.Time
	err    error
}

// StartSpan derives a child span from ctx and returns a context whose logger
// carries trace_id, span_id, span_name and parent_span_id.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := FromContext(ctx)

	if TraceIDFromContext(ctx) == "" {
		traceID := RequestIDFromContext(ctx)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx = withString(ctx, traceIDKey{}, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	logger = logger.With(slog.String("span_id", spanID), slog.String("span_name", name))
	if parent := SpanIDFromContext(ctx); parent != "" {
		logger = logger.With(slog.String("parent_span_id", parent))
	}

	ctx = WithLogger(ctx, logger)
	ctx = withString(ctx, spanIDKey{}, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now(), now: time.Now}
}

// Fail marks the span as failed; End then logs at warn level with the error.
func (s *Span) Fail(err error) {
	if s != nil && err != nil {
		s.err = err
	}
}

// End emits a completion entry with the span duration.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := s.now().Sub(s.start)
	if s.err != nil {
		s.logger.Warn("span failed", slog.Duration("duration", elapsed), slog.Any("error", s.err))
		return
	}
	s.logger.Debug("span completed", slog.Duration("duration", elapsed))
}
