package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFWriter is the subset of *gelf.Writer used by GELFHandler.
type GELFWriter interface {
	WriteMessage(m *gelf.Message) error
}

// syslog severities used by GELF
const (
	gelfError   int32 = 3
	gelfWarning int32 = 4
	gelfInfo    int32 = 6
	gelfDebug   int32 = 7
)

// GELFHandler ships slog records to Graylog. Attributes become GELF
// additional fields prefixed with an underscore.
type GELFHandler struct {
	w        GELFWriter
	level    slog.Leveler
	host     string
	facility string
	fields   map[string]interface{} // from WithAttrs, keys already prefixed
	groups   []string
	mu       *sync.Mutex
}

// NewGELFHandler wraps w. The host field is the local hostname.
func NewGELFHandler(w GELFWriter, facility string, level slog.Leveler) *GELFHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &GELFHandler{w: w, level: level, host: host, facility: facility, mu: &sync.Mutex{}}
}

// DialGELF opens a UDP GELF writer to addr.
func DialGELF(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("dial graylog %s: %w", addr, err)
	}
	return w, nil
}

// Enabled reports whether level passes the handler's minimum.
func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts r into a GELF message and writes it.
func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	extra := make(map[string]interface{}, len(h.fields)+r.NumAttrs()+1)
	extra["_level_name"] = r.Level.String()
	for k, v := range h.fields {
		extra[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, h.groups, a)
		return true
	})

	m := &gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    gelfLevel(r.Level),
		Facility: h.facility,
		Extra:    extra,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.w.WriteMessage(m)
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = make(map[string]interface{}, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		clone.fields[k] = v
	}
	for _, a := range attrs {
		addExtra(clone.fields, h.groups, a)
	}
	return &clone
}

// WithGroup returns a handler that prefixes subsequent keys with name.
func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func addExtra(extra map[string]interface{}, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := append(append([]string(nil), groups...), a.Key)
		if a.Key == "" {
			sub = groups
		}
		for _, ga := range a.Value.Group() {
			addExtra(extra, sub, ga)
		}
		return
	}

	switch a.Value.Kind() {
	case slog.KindString:
		extra["_"+key] = a.Value.String()
	case slog.KindInt64:
		extra["_"+key] = a.Value.Int64()
	case slog.KindUint64:
		extra["_"+key] = a.Value.Uint64()
	case slog.KindFloat64:
		extra["_"+key] = a.Value.Float64()
	case slog.KindBool:
		extra["_"+key] = a.Value.Bool()
	default:
		extra["_"+key] = a.Value.String()
	}
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfError
	case l >= slog.LevelWarn:
		return gelfWarning
	case l >= slog.LevelInfo:
		return gelfInfo
	default:
		return gelfDebug
	}
}
