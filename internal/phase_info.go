package internal

import (
	"net"
	"strconv"
	"time"
)

// PhaseInfo holds information about what specification was used
// to run a phase and the results the phase produced.
type PhaseInfo struct {
	Spec   Spec
	Result Results
}

// Header represents HTTP header.
type Header struct {
	Key, Value string
}

// Spec contains information about the phase performed.
type Spec struct {
	RunID string
	Name  string

	Host        string
	Port        uint16
	Target      string
	Method      string
	HTTPVersion uint

	NumberOfConnections uint64
	// Duration is the configured phase length. Dry runs without an
	// explicit runtime use one second.
	Duration time.Duration
	DryRun   bool
	Async    bool

	ConnectionMode string
	OnFailure      string
	AuthMethod     string

	Headers []Header
	Body    string

	CertPath string
	Timeout  time.Duration

	Rate *uint64
}

// URL is the address the phase was run against.
func (s Spec) URL() string {
	return "https://" + net.JoinHostPort(s.Host, strconv.FormatUint(uint64(s.Port), 10)) + s.Target
}

// Results holds results of the phase.
type Results struct {
	BytesRead, BytesWritten int64
	TimeTaken               time.Duration

	TotalRequests  uint64
	TotalResponses uint64
	Failed         uint64

	Success, ClientErrors, ServerErrors, Others uint64

	Statuses []StatusCount
	Errors   []ErrorWithCount

	// Samples are the recorded latencies in ascending order.
	Samples []time.Duration

	Latencies ReadonlyUint64Histogram
	Requests  ReadonlyFloat64Histogram
}

// StatusCount is the number of responses of one status class.
type StatusCount struct {
	Status string
	Count  uint64
}

// ErrorWithCount contains error description alongside with number of
// times this error occurred.
type ErrorWithCount struct {
	Error string
	Count uint64
}

// RequestsPerSecond divides every request issued by the configured
// phase duration.
func (p PhaseInfo) RequestsPerSecond() float64 {
	d := p.Spec.Duration
	if d <= 0 {
		d = time.Second
	}
	return float64(p.Result.TotalRequests) / d.Seconds()
}

// Throughput returns total throughput (read + write) in bytes per
// second
func (r Results) Throughput() float64 {
	if r.TimeTaken <= 0 {
		return 0
	}
	return float64(r.BytesRead+r.BytesWritten) / r.TimeTaken.Seconds()
}

// LatencyStats summarizes the exact latency samples of a phase.
type LatencyStats struct {
	Avg, Min, Max, P99 time.Duration
}

// LatencyStats returns nil when no response was received.
func (r Results) LatencyStats() *LatencyStats {
	n := len(r.Samples)
	if n == 0 {
		return nil
	}
	var sum time.Duration
	for _, s := range r.Samples {
		sum += s
	}
	return &LatencyStats{
		Avg: sum / time.Duration(n),
		Min: r.Samples[0],
		Max: r.Samples[n-1],
		P99: NearestRank(r.Samples, 99),
	}
}

// NearestRank returns the element at index floor(n*pc/100) of an
// ascending slice.
func NearestRank(sorted []time.Duration, pc int) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	i := n * pc / 100
	if i >= n {
		i = n - 1
	}
	return sorted[i]
}

// LatenciesStats contains statistical information about latencies.
type LatenciesStats struct {
	// These are in microseconds
	Mean   float64
	Stddev float64
	Max    float64

	// This is  map[0.0 <= p <= 1.0 (percentile)]microseconds
	Percentiles map[float64]uint64
}

// LatenciesStats performs various statistical calculations on
// the latency histogram.
func (r Results) LatenciesStats(percentiles []float64) *LatenciesStats {
	a, err := newAggregates(r.Latencies)
	if err != nil {
		return nil
	}
	mean := a.mean()
	return &LatenciesStats{
		Mean:   mean,
		Stddev: a.stddev(mean),
		Max:    float64(a.Max),

		Percentiles: a.percentilesMap(percentiles),
	}
}

// RequestsStats contains statistical information about requests.
type RequestsStats struct {
	// These are in requests per second.
	Mean   float64
	Stddev float64
	Max    float64

	// This is  map[0.0 <= p <= 1.0 (percentile)](req-s per second)
	Percentiles map[float64]float64
}

// RequestsStats performs various statistical calculations on
// per-interval request rates.
func (r Results) RequestsStats(percentiles []float64) *RequestsStats {
	a, err := newAggregates(r.Requests)
	if err != nil {
		return nil
	}
	mean := a.mean()
	return &RequestsStats{
		Mean:   mean,
		Stddev: a.stddev(mean),
		Max:    a.Max,

		Percentiles: a.percentilesMap(percentiles),
	}
}
