// Package index computes descriptive statistics, category distribution,
// area breakdown and interpretation for single-band spectral index rasters.
package index

import "math"

// Bin identifies one of the seven fixed index value categories.
type Bin string

// Category identifiers. The ids and their order are a contract shared with
// every report sink.
const (
	BinMuyBajo   Bin = "muy_bajo"
	BinBajo      Bin = "bajo"
	BinMedioBajo Bin = "medio_bajo"
	BinMedio     Bin = "medio"
	BinMedioAlto Bin = "medio_alto"
	BinAlto      Bin = "alto"
	BinMuyAlto   Bin = "muy_alto"
)

// Bins lists every category in canonical order, lowest values first.
var Bins = []Bin{
	BinMuyBajo,
	BinBajo,
	BinMedioBajo,
	BinMedio,
	BinMedioAlto,
	BinAlto,
	BinMuyAlto,
}

// Lower bounds of bins 1..6. Bin i covers [binEdges[i-1], binEdges[i]).
var binEdges = [...]float64{-0.5, 0.0, 0.2, 0.4, 0.6, 0.8}

// Interval is the half-open value range [Min, Max) covered by a bin.
// The outer bins use -Inf and +Inf.
type Interval struct {
	Min float64
	Max float64
}

// Interval returns the value range covered by b.
func (b Bin) Interval() Interval {
	i := b.ordinal()
	switch {
	case i < 0:
		return Interval{Min: math.NaN(), Max: math.NaN()}
	case i == 0:
		return Interval{Min: math.Inf(-1), Max: binEdges[0]}
	case i == len(Bins)-1:
		return Interval{Min: binEdges[len(binEdges)-1], Max: math.Inf(1)}
	default:
		return Interval{Min: binEdges[i-1], Max: binEdges[i]}
	}
}

// Valid reports whether b is one of the seven known categories.
func (b Bin) Valid() bool { return b.ordinal() >= 0 }

func (b Bin) ordinal() int {
	for i, known := range Bins {
		if b == known {
			return i
		}
	}
	return -1
}

// binIndex returns the position in Bins for value v, or -1 when v is NaN
// or infinite.
func binIndex(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	for i, edge := range binEdges {
		if v < edge {
			return i
		}
	}
	return len(Bins) - 1
}

// BinFor returns the category containing v. ok is false for NaN and
// infinite values, which belong to no category.
func BinFor(v float64) (b Bin, ok bool) {
	i := binIndex(v)
	if i < 0 {
		return "", false
	}
	return Bins[i], true
}
