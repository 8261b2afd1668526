package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock_Ticker(t *testing.T) {
	c := NewManualClock(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(500 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case at := <-tk.C():
		assert.Equal(t, epoch.Add(time.Second), at)
	default:
		t.Fatal("ticker did not fire")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
	assert.Equal(t, 0, c.Active())
	assert.Equal(t, 1, c.Tickers())
}

func TestManualClock_After(t *testing.T) {
	c := NewManualClock(epoch)
	ch := c.After(50 * time.Millisecond)

	c.BlockUntilWaiters(1)
	c.Advance(49 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case at := <-ch:
		assert.Equal(t, epoch.Add(50*time.Millisecond), at)
	default:
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, epoch.Add(50*time.Millisecond), c.Now())
}

func TestManualClock_AfterNonPositive(t *testing.T) {
	c := NewManualClock(epoch)
	select {
	case at := <-c.After(0):
		assert.Equal(t, epoch, at)
	default:
		t.Fatal("expected immediate fire")
	}
}

func TestWallClock(t *testing.T) {
	var c Clock = WallClock{}
	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()

	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("wall ticker did not fire")
	}
	require.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
