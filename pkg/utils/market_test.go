package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func cst(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, ChinaLocation)
}

func TestIsTradingDay(t *testing.T) {
	assert.True(t, IsTradingDay(cst(2026, 8, 31, 10, 0)))  // Monday
	assert.False(t, IsTradingDay(cst(2026, 8, 29, 10, 0))) // Saturday
	assert.False(t, IsTradingDay(cst(2026, 8, 30, 10, 0))) // Sunday
}

func TestIsMarketOpen(t *testing.T) {
	assert.True(t, IsMarketOpen(cst(2026, 8, 31, 10, 0)))
	assert.True(t, IsMarketOpen(cst(2026, 8, 31, 14, 30)))
	assert.False(t, IsMarketOpen(cst(2026, 8, 31, 12, 0)), "lunch break")
	assert.False(t, IsMarketOpen(cst(2026, 8, 31, 8, 0)))
	assert.False(t, IsMarketOpen(cst(2026, 8, 31, 15, 30)))
	assert.False(t, IsMarketOpen(cst(2026, 8, 29, 10, 0)), "weekend")
}

func TestNextMarketOpen(t *testing.T) {
	// Friday after close rolls to Monday morning.
	next := NextMarketOpen(cst(2026, 8, 28, 16, 0))
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// Mid-session returns the same day's open already passed? No: the next
	// open after a Monday 10:00 is Tuesday's.
	next = NextMarketOpen(cst(2026, 8, 31, 10, 0))
	assert.True(t, next.After(cst(2026, 8, 31, 10, 0)))
}
