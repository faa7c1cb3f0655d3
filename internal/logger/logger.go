// Package logger carries slog attributes through contexts so background
// work (replay passes, refreshes) can tag every record it emits.
package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const ctxAttrs contextKey = "ctxAttrs"

// ContextHandler implements [slog.Handler] and appends to each record any
// attributes previously attached to the context with [Ctx].
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps `handler` as the base of a ContextHandler.
func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{Handler: handler}
}

// Handle implements [slog.Handler].
func (h ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs, ok := ctx.Value(ctxAttrs).([]slog.Attr)
	if ok {
		record.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, record)
}

// Ctx returns a context carrying the given attributes on top of whatever
// the parent context already holds.
func Ctx(ctx context.Context, toAppend ...slog.Attr) context.Context {
	attrs, _ := ctx.Value(ctxAttrs).([]slog.Attr)
	attrs = append(attrs[:len(attrs):len(attrs)], toAppend...)

	return context.WithValue(ctx, ctxAttrs, attrs)
}
