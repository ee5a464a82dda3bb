package main

import (
	"strconv"
	"time"
)

// ladder is a sequence of units, each step factor times the previous one.
type ladder struct {
	factor float64
	first  string
	steps  []string
}

var (
	bytesLadder   = ladder{1024, "", []string{"KB", "MB", "GB", "TB", "PB"}}
	subsecLadder  = ladder{1000, "us", []string{"ms", "s"}}
	minutesLadder = ladder{60, "s", []string{"m", "h"}}
)

// climb moves up the ladder while the amount is at least 85% of the next
// step, so 900KB prints as 0.88MB.
func (l ladder) climb(amount float64) string {
	unit := l.first
	for i := 0; i < len(l.steps) && amount >= l.factor*0.85; i++ {
		amount /= l.factor
		unit = l.steps[i]
	}
	return strconv.FormatFloat(amount, 'f', 2, 64) + unit
}

func formatBinary(n float64) string {
	return bytesLadder.climb(n)
}

func formatTimeUs(us float64) string {
	const usPerSecond = 1e6
	if us >= usPerSecond {
		return minutesLadder.climb(us / usPerSecond)
	}
	return subsecLadder.climb(us)
}

// formatMs renders a duration as fractional milliseconds.
func formatMs(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64)
}
