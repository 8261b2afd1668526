package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler sends every record to each sink enabled for its level. A
// failing sink does not stop the others; their errors are joined.
type MultiHandler struct {
	sinks []slog.Handler
}

func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	m := &MultiHandler{sinks: make([]slog.Handler, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := &MultiHandler{sinks: make([]slog.Handler, len(m.sinks))}
	for i, s := range m.sinks {
		out.sinks[i] = fn(s)
	}
	return out
}

// ContextProvider returns attributes evaluated at log time, such as the
// current simulation tick.
type ContextProvider func() []slog.Attr

// ContextHandler appends the provider's attributes to every record it
// forwards. Empty attributes are skipped.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
}

func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		for _, a := range h.provider() {
			if !a.Equal(slog.Attr{}) {
				r.AddAttrs(a)
			}
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{next: h.next.WithGroup(name), provider: h.provider}
}
