package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockTick(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	// nothing to deliver to yet
	assert.False(t, clock.Tick())

	ticker := clock.NewTicker(time.Second)
	got := make(chan time.Time, 1)
	go func() { got <- <-ticker.C() }()

	assert.True(t, clock.Tick())
	assert.Equal(t, start.Add(2*time.Second), <-got)
	assert.Equal(t, 1, clock.LiveTickers())

	ticker.Stop()
	assert.False(t, clock.Tick())
	assert.Equal(t, 0, clock.LiveTickers())
}

func TestManualClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	clock.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), clock.Now())
}
