package sim

import (
	"time"

	"github.com/aigeo-prime/firewatch/pkg/core"
)

// StateStore holds the mutable runtime state of every registered asset,
// keyed by asset id. It is not safe for concurrent use; the Engine
// serializes access.
type StateStore struct {
	states map[string]core.AssetState
}

// NewStateStore seeds one state per asset: cursor 0, a full battery clamped
// to [0, 100] and LastUpdate = now.
func NewStateStore(assets []core.Asset, now time.Time) *StateStore {
	s := &StateStore{states: make(map[string]core.AssetState, len(assets))}
	for _, a := range assets {
		s.states[a.ID] = core.AssetState{
			Cursor:     0,
			Battery:    clampBattery(a.BatteryCapacity),
			LastUpdate: now,
		}
	}
	return s
}

// Get returns the state for id.
func (s *StateStore) Get(id string) (core.AssetState, bool) {
	st, ok := s.states[id]
	return st, ok
}

// Put replaces the state for id.
func (s *StateStore) Put(id string, st core.AssetState) {
	s.states[id] = st
}

// Delete removes the state for id.
func (s *StateStore) Delete(id string) {
	delete(s.states, id)
}

// Len returns the number of tracked assets.
func (s *StateStore) Len() int {
	return len(s.states)
}

func clampBattery(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > fullCharge:
		return fullCharge
	}
	return v
}
