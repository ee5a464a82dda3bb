package main

import (
	"sort"
	"sync"
	"sync/atomic"
)

// errorMap tallies session failures by their text. Counters are created
// once per distinct text and bumped atomically afterwards, so concurrent
// sessions only contend on the first occurrence of an error.
type errorMap struct {
	mu     sync.RWMutex
	counts map[string]*uint64
}

func newErrorMap() *errorMap {
	return &errorMap{counts: make(map[string]*uint64)}
}

func (e *errorMap) counter(text string) *uint64 {
	e.mu.RLock()
	c := e.counts[text]
	e.mu.RUnlock()
	if c != nil {
		return c
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if c = e.counts[text]; c == nil {
		c = new(uint64)
		e.counts[text] = c
	}
	return c
}

func (e *errorMap) add(err error) {
	atomic.AddUint64(e.counter(err.Error()), 1)
}

// reset forgets every tally; called between phases.
func (e *errorMap) reset() {
	e.mu.Lock()
	e.counts = make(map[string]*uint64)
	e.mu.Unlock()
}

type errorWithCount struct {
	error string
	count uint64
}

type errorsByFrequency []*errorWithCount

// byFrequency lists the tallies, most frequent first, ties broken by text.
func (e *errorMap) byFrequency() errorsByFrequency {
	e.mu.RLock()
	out := make(errorsByFrequency, 0, len(e.counts))
	for text, c := range e.counts {
		out = append(out, &errorWithCount{text, atomic.LoadUint64(c)})
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].error < out[j].error
	})
	return out
}
