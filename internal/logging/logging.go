package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const instrumentationName = "github.com/aigeo-prime/firewatch"

// LogFilePath names the session log <service>.<UTC start>.log in logsDir.
func LogFilePath(logsDir, serviceName string, sessionStart time.Time) string {
	stamp := sessionStart.UTC().Format("20060102_150405")
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", serviceName, stamp))
}

// NewZerolog builds the structured logger used by the storage layers.
// Unknown levels fall back to info.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
