package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// SlogManager owns the process logger and the sinks behind it: text, OTel
// and Graylog.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

// replaced in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SetupOption adds a sink or enrichment to Setup.
type SetupOption func(*setupOptions)

type setupOptions struct {
	gelf     GELFWriter
	facility string
	context  ContextProvider
}

// WithGELF also ships records to a Graylog writer.
func WithGELF(w GELFWriter, facility string) SetupOption {
	return func(o *setupOptions) {
		o.gelf = w
		o.facility = facility
	}
}

// WithContext injects the attributes returned by provider into every record.
func WithContext(provider ContextProvider) SetupOption {
	return func(o *setupOptions) {
		o.context = provider
	}
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel maps a config level name to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// utcTime renders record times as RFC3339 UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup (re)builds the process logger. Text goes to file when one is given,
// otherwise to stdout. A nil provider disables the OTel bridge.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...SetupOption) {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	lvl := parseLevel(level)
	m.logProvider = provider

	text := file
	if text == nil {
		text = osStdout
	}
	sinks := []slog.Handler{
		slog.NewTextHandler(text, &slog.HandlerOptions{Level: lvl, ReplaceAttr: utcTime}),
	}
	if provider != nil {
		sinks = append(sinks, otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)))
	}
	if o.gelf != nil {
		sinks = append(sinks, NewGELFHandler(o.gelf, o.facility, lvl))
	}

	var handler slog.Handler = NewMultiHandler(sinks...)
	if o.context != nil {
		handler = NewContextHandler(handler, o.context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", lvl.String(), "sinks", len(sinks))
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to their exporters.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}
