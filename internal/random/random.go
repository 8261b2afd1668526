// Package random provides the injectable random sources used for path,
// temperature, speed and hotspot jitter.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source yields pseudo-random numbers in [0, 1).
type Source interface {
	Float64() float64
}

// lockedSource serializes access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// New returns a non-seeded source for production use.
func New() Source {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return NewSeeded(rand.Uint64())
	}
	return &lockedSource{rng: rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(b[:8]),
		binary.LittleEndian.Uint64(b[8:]),
	))}
}

// NewSeeded returns a deterministic source.
func NewSeeded(seed uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Constant is a Source that always returns the same value. Constant(0.5)
// turns every symmetric jitter into zero.
type Constant float64

func (c Constant) Float64() float64 { return float64(c) }

// Jitter returns a symmetric offset in [-span/2, span/2).
// A nil source yields zero.
func Jitter(src Source, span float64) float64 {
	if src == nil {
		return 0
	}
	return (src.Float64() - 0.5) * span
}
