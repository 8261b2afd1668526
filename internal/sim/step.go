package sim

import (
	"context"
	"math"
	"time"

	"github.com/aigeo-prime/firewatch/internal/geo"
	"github.com/aigeo-prime/firewatch/internal/random"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// step advances every asset by one waypoint and returns the tick's batch.
func (e *Engine) step(ctx context.Context, now time.Time) core.TelemetryBatch {
	e.mu.Lock()
	defer e.mu.Unlock()

	seq := e.seq.Add(1)
	e.ticks.Add(ctx, 1)

	ts := now.UnixMilli()
	snaps := make([]core.TelemetrySnapshot, 0, len(e.assets))

	for _, a := range e.assets {
		st, ok := e.states.Get(a.ID)
		if !ok {
			e.skipped.Add(ctx, 1)
			e.log.Warn("no state for asset, skipping", "asset", a.ID, "seq", seq)
			continue
		}

		wp := a.Path[st.Cursor]
		temp := geo.TemperatureAround(e.opts.center, wp.Lat, wp.Lon, e.opts.rand)
		st.Battery = e.opts.battery.Next(st.Battery, temp)
		speed := a.Speed + random.Jitter(e.opts.rand, e.opts.speedJitter)

		snaps = append(snaps, snapshot(a, wp, temp, st.Battery, speed, ts))

		st.Cursor = (st.Cursor + 1) % len(a.Path)
		st.LastUpdate = now
		e.states.Put(a.ID, st)
	}

	return core.TelemetryBatch{Seq: seq, Time: now, Snapshots: snaps}
}

func snapshot(a core.Asset, wp core.Waypoint, temp, battery, speed float64, ts int64) core.TelemetrySnapshot {
	s := core.TelemetrySnapshot{
		EntityID:    a.ID,
		Name:        a.Name,
		Kind:        a.Kind,
		Lat:         wp.Lat,
		Lon:         wp.Lon,
		Temperature: round1(temp),
		Battery:     round1(battery),
		Speed:       speed,
		Timestamp:   ts,
	}
	if wp.Alt != nil {
		s.Altitude = core.Float64Ptr(*wp.Alt)
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
