// Command firewatch runs the wildfire response telemetry backend: the asset
// simulation, the fire hotspot API and the live WebSocket feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aigeo-prime/firewatch/internal/config"
	"github.com/aigeo-prime/firewatch/internal/fire"
	"github.com/aigeo-prime/firewatch/internal/hub"
	"github.com/aigeo-prime/firewatch/internal/logging"
	"github.com/aigeo-prime/firewatch/internal/metrics"
	"github.com/aigeo-prime/firewatch/internal/monitor"
	intOtel "github.com/aigeo-prime/firewatch/internal/otel"
	"github.com/aigeo-prime/firewatch/internal/paths"
	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/internal/scenario"
	"github.com/aigeo-prime/firewatch/internal/server"
	"github.com/aigeo-prime/firewatch/internal/sim"
	"github.com/aigeo-prime/firewatch/internal/storage"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

const serviceName = "firewatch"

var sessionStart = time.Now()

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configDir); err != nil {
		slog.Error("firewatch exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configDir string) error {
	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}

	var current atomic.Pointer[sim.Engine]
	sinks, err := setupLogging(slogManager, config.GetLoggingConfig(), tickAttrs(&current))
	if err != nil {
		return err
	}
	defer sinks.Close()
	logger = slogManager.Logger()
	slog.SetDefault(logger)
	zlog := logging.NewZerolog(os.Stderr, config.GetLoggingConfig().Level)

	simCfg := config.GetSimulationConfig()
	src := random.New()
	if simCfg.Seed != 0 {
		src = random.NewSeeded(simCfg.Seed)
	}

	assets, center, err := loadAssets(simCfg.ScenarioFile, src)
	if err != nil {
		return err
	}

	fireData, err := fire.NewDataAround(center, src)
	if err != nil {
		return err
	}
	logger.Info("Generated fire data", "hotspots", len(fireData.Hotspots()))

	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, zlog)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	var backends []storage.Backend
	if backend != nil {
		backends = append(backends, backend)
	}
	recorder, err := storage.NewRecorder(backends, storageCfg.BufferSize, zlog)
	if err != nil {
		return err
	}
	if err := recorder.Init(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error("Error closing storage", "error", err)
		}
	}()
	if err := recorder.RecordHotspots(fireData.Hotspots()); err != nil {
		logger.Warn("Failed to record fire hotspots", "error", err)
	}
	logger.Info("Storage ready", "type", storageCfg.Type)

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}

	// out is filled in once the hub exists; the engine does not deliver
	// before Start.
	var out sim.Fanout
	engine, err := sim.New(assets, sim.BroadcasterFunc(func(topic string, b core.TelemetryBatch) {
		out.Broadcast(topic, b)
	}),
		sim.WithPeriod(simCfg.TickInterval),
		sim.WithLatency(simCfg.Latency),
		sim.WithRand(src),
		sim.WithLogger(logger),
		sim.WithFireCenter(center),
	)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	current.Store(engine)

	serverCfg := config.GetServerConfig()
	wsHub, err := hub.New(hub.Config{AllowedOrigins: serverCfg.CORSOrigins}, engine, fireData, collector, logger)
	if err != nil {
		return err
	}
	out = sim.Fanout{wsHub, recorder}

	monCfg := config.GetMonitorConfig()
	mon := monitor.NewService(monitor.Dependencies{
		Engine:      engine,
		Subscribers: wsHub,
		Recorder:    recorder,
		Logger:      logger,
		StatusFile:  monCfg.StatusFile,
		Interval:    monCfg.Interval,
	})

	srv, err := server.New(server.Config{
		CORSOrigins: serverCfg.CORSOrigins,
		StaticDir:   serverCfg.StaticDir,
	}, server.Dependencies{
		Engine:  engine,
		Fire:    fireData,
		History: recorder.History(),
		Status:  mon,
		Hub:     wsHub,
		Metrics: collector,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ln, err := server.Listen(serverCfg.Host, serverCfg.Port, serverCfg.PortAttempts)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	if err := mon.Start(); err != nil {
		logger.Error("Failed to start status monitor", "error", err)
	}

	startTimer := time.NewTimer(simCfg.StartDelay)
	defer startTimer.Stop()

	var runErr error
loop:
	for {
		select {
		case <-startTimer.C:
			engine.Start()
		case err := <-serveErr:
			if err != nil {
				runErr = fmt.Errorf("http server: %w", err)
			}
			break loop
		case <-ctx.Done():
			logger.Info("Shutting down")
			break loop
		}
	}

	engine.Stop()
	wsHub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	mon.Stop()

	return runErr
}

// logSinks owns everything setupLogging opened.
type logSinks struct {
	manager  *logging.SlogManager
	file     *os.File
	otelFile *os.File
	otel     *intOtel.Provider
	gelf     io.Closer
}

func (s *logSinks) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.manager.Flush(ctx); err != nil {
		slog.Error("Log flush failed", "error", err)
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			slog.Error("OTel shutdown failed", "error", err)
		}
	}
	if s.gelf != nil {
		_ = s.gelf.Close()
	}
	if s.otelFile != nil {
		_ = s.otelFile.Close()
	}
	if s.file != nil {
		_ = s.file.Close()
	}
}

// tickAttrs tags log records with the engine's current tick once an engine
// has been stored.
func tickAttrs(current *atomic.Pointer[sim.Engine]) logging.ContextProvider {
	return func() []slog.Attr {
		e := current.Load()
		if e == nil {
			return nil
		}
		return []slog.Attr{slog.Uint64("tick", e.LastSeq())}
	}
}

func setupLogging(m *logging.SlogManager, cfg config.LoggingConfig, ctxAttrs logging.ContextProvider) (*logSinks, error) {
	logger := m.Logger()
	sinks := &logSinks{manager: m}

	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	logPath := logging.LogFilePath(cfg.LogsDir, serviceName, sessionStart)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
	} else {
		sinks.file = f
		logger.Info("Begin logging in logs directory", "path", logPath)
	}

	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if otelCfg.Enabled {
		otelPath := strings.TrimSuffix(logPath, filepath.Ext(logPath)) + ".otel.jsonl"
		if of, err := os.OpenFile(otelPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err == nil {
			sinks.otelFile = of
			otelWriter = of
		}
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelWriter,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		provider, _ = intOtel.New(intOtel.Config{})
	} else if provider.Enabled() {
		logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}
	sinks.otel = provider

	opts := []logging.SetupOption{logging.WithContext(ctxAttrs)}
	if cfg.GraylogEnabled {
		w, err := logging.DialGELF(cfg.GraylogAddress)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", cfg.GraylogAddress)
		} else {
			sinks.gelf = w
			opts = append(opts, logging.WithGELF(w, serviceName))
		}
	}

	var textOut io.Writer
	if sinks.file != nil {
		textOut = sinks.file
	}
	m.Setup(textOut, cfg.Level, provider.LoggerProvider(), opts...)

	return sinks, nil
}

func loadAssets(scenarioFile string, src random.Source) ([]core.Asset, core.LatLon, error) {
	if scenarioFile == "" {
		return paths.DefaultAssets(src), core.FireCenter, nil
	}
	assets, center, err := scenario.Load(scenarioFile, src)
	if err != nil {
		return nil, core.LatLon{}, fmt.Errorf("scenario %s: %w", scenarioFile, err)
	}
	return assets, center, nil
}
