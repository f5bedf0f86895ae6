package index

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Fractions maps a category to the percentage (0-100) of valid samples that
// fall into it. An empty mapping means there was no valid data.
type Fractions map[Bin]float64

// Get returns the percentage for b, or 0 when b is absent.
func (f Fractions) Get(b Bin) float64 { return f[b] }

// Statistics is the result of one pass over a Grid.
type Statistics struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`

	Fractions Fractions     `json:"fractions"`
	Counts    map[Bin]int64 `json:"counts"`

	ValidCount     int64 `json:"valid_count"`
	NoDataCount    int64 `json:"nodata_count"`
	NonFiniteCount int64 `json:"non_finite_count"`
}

// Empty reports whether no valid samples were found.
func (s Statistics) Empty() bool { return s.ValidCount == 0 }

// ErrStatisticsOverflow marks finite samples whose mean or spread does not
// fit in a float64, e.g. values near ±1e200.
var ErrStatisticsOverflow = eris.New("statistics overflow float64")

// Finite reports whether Mean and StdDev are finite numbers.
func (s Statistics) Finite() bool {
	return !math.IsInf(s.Mean, 0) && !math.IsNaN(s.Mean) &&
		!math.IsInf(s.StdDev, 0) && !math.IsNaN(s.StdDev)
}

// ComputeStatistics filters no-data cells from g using exact equality and
// returns the mean, population standard deviation and category fractions of
// the remaining samples. NaN and infinite samples are counted separately and
// excluded from every aggregate.
func ComputeStatistics(g Grid) Statistics {
	return ComputeStatisticsWithOptions(g, Options{})
}

// ComputeStatisticsWithOptions is ComputeStatistics with tunable no-data
// matching.
func ComputeStatisticsWithOptions(g Grid, opts Options) Statistics {
	var acc accumulator
	acc.addAll(g.Values, g.NoData, opts)
	return acc.result()
}

// ComputeStatisticsParallel splits g into row partitions, accumulates each
// partition concurrently and merges the partial results. The outcome matches
// ComputeStatisticsWithOptions up to floating-point rounding.
func ComputeStatisticsParallel(ctx context.Context, g Grid, opts Options) (Statistics, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > g.Height {
		workers = g.Height
	}
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return Statistics{}, eris.Wrap(err, "index: compute statistics")
		}
		return ComputeStatisticsWithOptions(g, opts), nil
	}

	partials := make([]accumulator, workers)
	rowsPer := (g.Height + workers - 1) / workers

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range partials {
		startRow := i * rowsPer
		endRow := min(startRow+rowsPer, g.Height)
		if startRow >= endRow {
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			partials[i].addAll(g.Values[startRow*g.Width:endRow*g.Width], g.NoData, opts)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Statistics{}, eris.Wrap(err, "index: compute statistics")
	}

	var total accumulator
	for i := range partials {
		total.merge(&partials[i])
	}
	return total.result(), nil
}

// accumulator holds running moments using Welford's update. Two
// accumulators combine with Chan's pairwise formula.
type accumulator struct {
	n         int64
	mean      float64
	m2        float64
	min       float64
	max       float64
	counts    [7]int64
	noData    int64
	nonFinite int64
}

func (a *accumulator) addAll(values []float64, noData float64, opts Options) {
	for _, v := range values {
		if opts.isNoData(v, noData) {
			a.noData++
			continue
		}
		a.add(v)
	}
}

func (a *accumulator) add(v float64) {
	idx := binIndex(v)
	if idx < 0 {
		a.nonFinite++
		return
	}
	a.counts[idx]++

	if a.n == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.n++
	delta := v - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (v - a.mean)
}

func (a *accumulator) merge(b *accumulator) {
	a.noData += b.noData
	a.nonFinite += b.nonFinite
	if b.n == 0 {
		return
	}
	for i := range a.counts {
		a.counts[i] += b.counts[i]
	}
	if a.n == 0 {
		a.n, a.mean, a.m2, a.min, a.max = b.n, b.mean, b.m2, b.min, b.max
		return
	}

	n := a.n + b.n
	delta := b.mean - a.mean
	na, nb, nt := float64(a.n), float64(b.n), float64(n)
	a.mean += delta * nb / nt
	a.m2 += b.m2 + delta*delta*na*nb/nt
	a.n = n
	a.min = math.Min(a.min, b.min)
	a.max = math.Max(a.max, b.max)
}

func (a *accumulator) result() Statistics {
	s := Statistics{
		Fractions:      Fractions{},
		Counts:         map[Bin]int64{},
		ValidCount:     a.n,
		NoDataCount:    a.noData,
		NonFiniteCount: a.nonFinite,
	}
	if a.n == 0 {
		return s
	}

	s.Mean = a.mean
	s.StdDev = math.Sqrt(a.m2 / float64(a.n))
	s.Min = a.min
	s.Max = a.max
	for i, b := range Bins {
		s.Counts[b] = a.counts[i]
		s.Fractions[b] = float64(a.counts[i]) / float64(a.n) * 100
	}
	return s
}
