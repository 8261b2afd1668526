package random

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeeded_Deterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestNew_InRange(t *testing.T) {
	src := New()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestNew_ConcurrentUse(t *testing.T) {
	src := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = src.Float64()
			}
		}()
	}
	wg.Wait()
}

func TestJitter(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		span float64
		want float64
	}{
		{"nil source", nil, 5, 0},
		{"midpoint", Constant(0.5), 5, 0},
		{"low end", Constant(0), 5, -2.5},
		{"high end", Constant(1), 0.5, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jitter(tt.src, tt.span), 1e-12)
		})
	}
}

func TestJitter_Bounded(t *testing.T) {
	src := NewSeeded(7)
	for i := 0; i < 1000; i++ {
		j := Jitter(src, 0.002)
		assert.GreaterOrEqual(t, j, -0.001)
		assert.Less(t, j, 0.001)
	}
}
