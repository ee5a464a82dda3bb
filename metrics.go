package main

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codesenberg/pulse/internal"

	fhist "github.com/codesenberg/concurrent/float64/histogram"
	uhist "github.com/codesenberg/concurrent/uint64/histogram"
)

// metrics is shared by every session of a dispatcher. Counters are
// updated atomically; latency samples are appended under a lock. There
// is no atomicity across fields.
type metrics struct {
	bytesRead, bytesWritten int64

	totalRequests  uint64
	totalResponses uint64
	failed         uint64

	success      uint64
	clientErrors uint64
	serverErrors uint64
	others       uint64

	byStatus [numStatuses]uint64

	mu      sync.Mutex
	samples []time.Duration

	latencies *uhist.Histogram
	requests  *fhist.Histogram
	errors    *errorMap

	// RPS metrics
	rpl   sync.Mutex
	reqs  int64
	start time.Time
}

func newMetrics() *metrics {
	m := new(metrics)
	m.latencies = uhist.Default()
	m.requests = fhist.Default()
	m.errors = newErrorMap()
	m.start = time.Now()
	return m
}

func (m *metrics) recordRequest() {
	atomic.AddUint64(&m.totalRequests, 1)
}

func (m *metrics) recordResponse(latency time.Duration, s status) {
	m.mu.Lock()
	m.samples = append(m.samples, latency)
	m.mu.Unlock()
	m.latencies.Increment(uint64(latency / time.Microsecond))

	atomic.AddUint64(&m.totalResponses, 1)
	if s < 0 || s >= numStatuses {
		s = statusUnknownError
	}
	atomic.AddUint64(&m.byStatus[s], 1)
	var family *uint64
	switch s.family() {
	case familySuccess:
		family = &m.success
	case familyClientError:
		family = &m.clientErrors
	case familyServerError:
		family = &m.serverErrors
	default:
		family = &m.others
	}
	atomic.AddUint64(family, 1)
	m.tick()
}

func (m *metrics) recordFail(err error) {
	atomic.AddUint64(&m.failed, 1)
	if err != nil {
		m.errors.add(err)
	}
	m.tick()
}

func (m *metrics) tick() {
	m.rpl.Lock()
	m.reqs++
	m.rpl.Unlock()
}

// recordRps closes the current rate interval.
func (m *metrics) recordRps() {
	m.rpl.Lock()
	duration := time.Since(m.start)
	reqs := m.reqs
	m.reqs = 0
	m.start = time.Now()
	m.rpl.Unlock()

	if duration <= 0 {
		return
	}
	reqsf := float64(reqs) / duration.Seconds()
	m.requests.Increment(reqsf)
}

// clear resets everything the collector holds. The caller makes sure no
// session records concurrently.
func (m *metrics) clear() {
	atomic.StoreInt64(&m.bytesRead, 0)
	atomic.StoreInt64(&m.bytesWritten, 0)
	atomic.StoreUint64(&m.totalRequests, 0)
	atomic.StoreUint64(&m.totalResponses, 0)
	atomic.StoreUint64(&m.failed, 0)
	atomic.StoreUint64(&m.success, 0)
	atomic.StoreUint64(&m.clientErrors, 0)
	atomic.StoreUint64(&m.serverErrors, 0)
	atomic.StoreUint64(&m.others, 0)
	for i := range m.byStatus {
		atomic.StoreUint64(&m.byStatus[i], 0)
	}

	m.mu.Lock()
	m.samples = nil
	m.mu.Unlock()

	m.latencies = uhist.Default()
	m.requests = fhist.Default()
	m.errors.reset()
	m.restartInterval()
}

// restartInterval drops the open rate interval without recording it.
func (m *metrics) restartInterval() {
	m.rpl.Lock()
	m.reqs = 0
	m.start = time.Now()
	m.rpl.Unlock()
}

func (m *metrics) sortedSamples() []time.Duration {
	m.mu.Lock()
	res := make([]time.Duration, len(m.samples))
	copy(res, m.samples)
	m.mu.Unlock()
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func (m *metrics) snapshot() internal.Results {
	r := internal.Results{
		BytesRead:    atomic.LoadInt64(&m.bytesRead),
		BytesWritten: atomic.LoadInt64(&m.bytesWritten),

		TotalRequests:  atomic.LoadUint64(&m.totalRequests),
		TotalResponses: atomic.LoadUint64(&m.totalResponses),
		Failed:         atomic.LoadUint64(&m.failed),

		Success:      atomic.LoadUint64(&m.success),
		ClientErrors: atomic.LoadUint64(&m.clientErrors),
		ServerErrors: atomic.LoadUint64(&m.serverErrors),
		Others:       atomic.LoadUint64(&m.others),

		Samples:   m.sortedSamples(),
		Latencies: m.latencies,
		Requests:  m.requests,
	}
	for s := status(0); s < numStatuses; s++ {
		if c := atomic.LoadUint64(&m.byStatus[s]); c > 0 {
			r.Statuses = append(r.Statuses, internal.StatusCount{
				Status: s.String(),
				Count:  c,
			})
		}
	}
	for _, ewc := range m.errors.byFrequency() {
		r.Errors = append(r.Errors, internal.ErrorWithCount{
			Error: ewc.error,
			Count: ewc.count,
		})
	}
	return r
}
