package internal

import (
	"errors"
	"math"
	"sort"
)

// HistogramKey is the set of key types the concurrent histograms use.
type HistogramKey interface {
	~uint64 | ~float64
}

// ReadonlyHistogram is a readonly view of a concurrent histogram.
type ReadonlyHistogram[K HistogramKey] interface {
	Get(K) uint64
	VisitAll(func(K, uint64) bool)
	Count() uint64
}

// ReadonlyUint64Histogram is a readonly histogram with uint64 keys.
type ReadonlyUint64Histogram = ReadonlyHistogram[uint64]

// ReadonlyFloat64Histogram is a readonly histogram with float64 keys.
type ReadonlyFloat64Histogram = ReadonlyHistogram[float64]

var errNotEnoughValues = errors.New("not enough values")

type bucket[K HistogramKey] struct {
	k K
	v uint64
}

// aggregates holds sums and sorted buckets of a histogram.
type aggregates[K HistogramKey] struct {
	Sum   float64
	Count uint64
	Max   K
	Pairs []bucket[K]
}

// newAggregates walks the histogram once. Infinite and NaN keys, which
// only appear in float histograms, are skipped.
func newAggregates[K HistogramKey](h ReadonlyHistogram[K]) (*aggregates[K], error) {
	if h == nil {
		return nil, errNotEnoughValues
	}
	a := new(aggregates[K])
	a.Pairs = make([]bucket[K], 0, h.Count())
	h.VisitAll(func(k K, c uint64) bool {
		f := float64(k)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return true
		}
		if k > a.Max {
			a.Max = k
		}
		a.Sum += f * float64(c)
		a.Count += c
		a.Pairs = append(a.Pairs, bucket[K]{k, c})
		return true
	})
	if a.Count < 1 {
		return nil, errNotEnoughValues
	}
	sort.Slice(a.Pairs, func(i, j int) bool {
		return a.Pairs[i].k < a.Pairs[j].k
	})
	return a, nil
}

func (a *aggregates[K]) mean() float64 {
	return a.Sum / float64(a.Count)
}

func (a *aggregates[K]) stddev(mean float64) float64 {
	if a.Count <= 2 {
		return 0.0
	}
	sumOfSquares := 0.0
	for _, p := range a.Pairs {
		sumOfSquares += math.Pow(float64(p.k)-mean, 2) * float64(p.v)
	}
	return math.Sqrt(sumOfSquares / float64(a.Count))
}

// percentilesMap gives the values for a list of percentiles given as input
func (a *aggregates[K]) percentilesMap(percentiles []float64) map[float64]K {
	percentilesMap := map[float64]K{}
	for _, pc := range percentiles {
		if _, calculated := percentilesMap[pc]; calculated {
			continue
		}
		if pc < 0 || pc > 1 {
			// Drop percentiles outside of [0, 1] range
			continue
		}
		rank := uint64(pc*float64(a.Count) + 0.5)
		total := uint64(0)
		for _, p := range a.Pairs {
			total += p.v
			if total >= rank {
				percentilesMap[pc] = p.k
				break
			}
		}
	}
	return percentilesMap
}
