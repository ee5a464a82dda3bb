package main

import (
	"sync"
	"sync/atomic"
	"time"
)

// completionBarrier decides when a phase is over: after a fixed number
// of iterations for dry runs, at a deadline otherwise.
type completionBarrier interface {
	completed() float64
	tryGrabWork() bool
	jobDone()
	done() <-chan struct{}
	cancel()
}

// finishLine is the close-once channel shared by both barriers.
type finishLine struct {
	ch   chan struct{}
	once sync.Once
}

func newFinishLine() finishLine {
	return finishLine{ch: make(chan struct{})}
}

func (f *finishLine) cross() {
	f.once.Do(func() { close(f.ch) })
}

func (f *finishLine) crossed() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

func (f *finishLine) done() <-chan struct{} {
	return f.ch
}

func (f *finishLine) cancel() {
	f.cross()
}

// countingCompletionBarrier hands out exactly total iterations and
// finishes once all of them reported back.
type countingCompletionBarrier struct {
	finishLine
	total, grabbed, finished uint64
}

func newCountingCompletionBarrier(total uint64) completionBarrier {
	c := &countingCompletionBarrier{finishLine: newFinishLine(), total: total}
	if total == 0 {
		c.cross()
	}
	return c
}

func (c *countingCompletionBarrier) tryGrabWork() bool {
	if c.crossed() {
		return false
	}
	return atomic.AddUint64(&c.grabbed, 1) <= c.total
}

func (c *countingCompletionBarrier) jobDone() {
	if atomic.AddUint64(&c.finished, 1) >= c.total {
		c.cross()
	}
}

func (c *countingCompletionBarrier) completed() float64 {
	if c.crossed() {
		return 1.0
	}
	return float64(atomic.LoadUint64(&c.finished)) / float64(c.total)
}

// timedCompletionBarrier keeps handing out work until its deadline.
type timedCompletionBarrier struct {
	finishLine
	start    time.Time
	duration time.Duration
	timer    *time.Timer
}

func newTimedCompletionBarrier(duration time.Duration) completionBarrier {
	if duration < 0 {
		panic("timedCompletionBarrier: negative duration")
	}
	c := &timedCompletionBarrier{
		finishLine: newFinishLine(),
		start:      time.Now(),
		duration:   duration,
	}
	c.timer = time.AfterFunc(duration, c.cross)
	return c
}

func (c *timedCompletionBarrier) tryGrabWork() bool {
	return !c.crossed()
}

func (c *timedCompletionBarrier) jobDone() {}

func (c *timedCompletionBarrier) cancel() {
	c.timer.Stop()
	c.cross()
}

func (c *timedCompletionBarrier) completed() float64 {
	if c.crossed() {
		return 1.0
	}
	return float64(time.Since(c.start)) / float64(c.duration)
}
