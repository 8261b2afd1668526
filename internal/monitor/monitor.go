package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultInterval applies when Dependencies.Interval is zero.
const DefaultInterval = 5 * time.Second

// Engine is the part of the simulation engine the monitor reads.
type Engine interface {
	Running() bool
	LastSeq() uint64
	LastDelivered() uint64
	AssetCount() int
}

// Subscribers reports the connected observer count.
type Subscribers interface {
	Count() int
}

// RecorderStats reports persistence counters.
type RecorderStats interface {
	Stats() (recorded, failures, dropped uint64)
}

// Dependencies are the live components a status report is read from.
type Dependencies struct {
	Engine      Engine
	Subscribers Subscribers
	Recorder    RecorderStats // optional
	Logger      *slog.Logger
	StatusFile  string // empty disables the status file
	Interval    time.Duration
	Now         func() time.Time
}

// Status is a point-in-time view of the service.
type Status struct {
	Time           time.Time `json:"time"`
	StartedAt      time.Time `json:"startedAt"`
	UptimeSeconds  int64     `json:"uptimeSeconds"`
	Uptime         string    `json:"uptime"`
	Running        bool      `json:"running"`
	LastSeq        uint64    `json:"lastSeq"`
	LastDelivered  uint64    `json:"lastDelivered"`
	Assets         int       `json:"assets"`
	Subscribers    int       `json:"subscribers"`
	Recorded       uint64    `json:"recorded"`
	RecordFailures uint64    `json:"recordFailures"`
	RecordDropped  uint64    `json:"recordDropped"`
	HeapAlloc      string    `json:"heapAlloc"`
	Goroutines     int       `json:"goroutines"`
}

// Service periodically writes the status document to a file.
type Service struct {
	deps      Dependencies
	startedAt time.Time

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService returns a stopped Service.
func NewService(deps Dependencies) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, startedAt: deps.Now()}
}

// IsRunning reports whether the periodic writer is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current service status.
func (s *Service) Status() Status {
	now := s.deps.Now()
	up := now.Sub(s.startedAt)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Time:          now.UTC(),
		StartedAt:     s.startedAt.UTC(),
		UptimeSeconds: int64(up / time.Second),
		Uptime:        strings.TrimSpace(humanize.RelTime(s.startedAt, now, "", "")),
		HeapAlloc:     humanize.Bytes(mem.HeapAlloc),
		Goroutines:    runtime.NumGoroutine(),
	}
	if e := s.deps.Engine; e != nil {
		st.Running = e.Running()
		st.LastSeq = e.LastSeq()
		st.LastDelivered = e.LastDelivered()
		st.Assets = e.AssetCount()
	}
	if s.deps.Subscribers != nil {
		st.Subscribers = s.deps.Subscribers.Count()
	}
	if s.deps.Recorder != nil {
		st.Recorded, st.RecordFailures, st.RecordDropped = s.deps.Recorder.Stats()
	}
	return st
}

// Start starts the status monitor goroutine. It rewrites the status file
// every interval when one is configured, otherwise it only logs.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	var statusFile *os.File
	if s.deps.StatusFile != "" {
		f, err := os.Create(s.deps.StatusFile)
		if err != nil {
			s.deps.Logger.Error("Error creating status file", "path", s.deps.StatusFile, "error", err)
		} else {
			statusFile = f
		}
	}

	go func() {
		defer close(done)
		if statusFile != nil {
			defer statusFile.Close()
		}

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.Status()
				s.deps.Logger.Debug("Status",
					"running", st.Running,
					"seq", st.LastSeq,
					"subscribers", st.Subscribers,
					"uptime", st.Uptime,
				)
				if statusFile != nil {
					if err := writeStatus(statusFile, st); err != nil {
						s.deps.Logger.Error("Error writing status file", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func writeStatus(f *os.File, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Stop stops the status monitor and waits for the goroutine to exit. It is
// safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
