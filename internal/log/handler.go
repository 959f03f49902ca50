package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/wa-scheduler/internal/requestid"
)

// contextAttrs are copied from the record's context when set. An execution
// started by an API call carries all three.
var contextAttrs = []struct {
	key  string
	from func(context.Context) string
}{
	{"request_id", requestid.FromContext},
	{"execution_id", requestid.ExecutionFromContext},
	{"operator", requestid.OperatorFromContext},
}

// ContextHandler wraps an slog.Handler and adds the correlation ids found
// in the context to every record.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, a := range contextAttrs {
			if v := a.from(ctx); v != "" {
				r.AddAttrs(slog.String(a.key, v))
			}
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
