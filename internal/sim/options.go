package sim

import (
	"log/slog"
	"time"

	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

const (
	DefaultPeriod    = 500 * time.Millisecond
	DefaultLatency   = 50 * time.Millisecond
	DefaultTopic     = "telemetry"
	DefaultQueueSize = 16

	fullCharge = 100.0
)

// BatteryPolicy controls per tick battery drain and the recharge swap.
type BatteryPolicy struct {
	HighTempThreshold float64 // Celsius
	HighTempDrain     float64 // percent per tick
	NormalDrain       float64 // percent per tick
	RechargeThreshold float64 // percent
}

// DefaultBatteryPolicy drains 1.5% per tick above 40C, 0.5% otherwise, and
// swaps the battery once it drops below 10%.
func DefaultBatteryPolicy() BatteryPolicy {
	return BatteryPolicy{
		HighTempThreshold: 40,
		HighTempDrain:     1.5,
		NormalDrain:       0.5,
		RechargeThreshold: 10,
	}
}

// Next returns the battery level after one tick at the given temperature.
// A level carried in below the recharge threshold is reset to full without
// drain.
func (p BatteryPolicy) Next(battery, temperature float64) float64 {
	if battery < p.RechargeThreshold {
		return fullCharge
	}
	drain := p.NormalDrain
	if temperature > p.HighTempThreshold {
		drain = p.HighTempDrain
	}
	return clampBattery(battery - drain)
}

type options struct {
	period      time.Duration
	latency     time.Duration
	topic       string
	queueSize   int
	battery     BatteryPolicy
	speedJitter float64
	rand        random.Source
	clock       Clock
	logger      *slog.Logger
	center      core.LatLon
}

func defaultOptions() options {
	return options{
		period:      DefaultPeriod,
		latency:     DefaultLatency,
		topic:       DefaultTopic,
		queueSize:   DefaultQueueSize,
		battery:     DefaultBatteryPolicy(),
		speedJitter: 0.5,
		clock:       WallClock{},
		center:      core.FireCenter,
	}
}

// Option configures an Engine.
type Option func(*options)

// WithPeriod sets the tick interval. Non-positive values are ignored.
func WithPeriod(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.period = d
		}
	}
}

// WithLatency sets the simulated link delay applied before each broadcast.
func WithLatency(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.latency = d
		}
	}
}

// WithTopic sets the broadcast topic.
func WithTopic(topic string) Option {
	return func(o *options) {
		if topic != "" {
			o.topic = topic
		}
	}
}

// WithQueueSize bounds the number of batches awaiting delivery.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithBatteryPolicy replaces the drain and recharge rules.
func WithBatteryPolicy(p BatteryPolicy) Option {
	return func(o *options) { o.battery = p }
}

// WithSpeedJitter sets the total span of reported speed noise.
func WithSpeedJitter(span float64) Option {
	return func(o *options) { o.speedJitter = span }
}

// WithRand sets the noise source; nil keeps a fresh random.New source.
func WithRand(src random.Source) Option {
	return func(o *options) { o.rand = src }
}

// WithClock replaces the wall clock. A nil clock is ignored.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the engine logger, slog.Default when nil.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFireCenter moves the temperature reference point.
func WithFireCenter(c core.LatLon) Option {
	return func(o *options) { o.center = c }
}
