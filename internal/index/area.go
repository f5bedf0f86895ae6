package index

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrInvalidGeometry is returned when raster dimensions or resolution cannot
// describe a real ground extent.
var ErrInvalidGeometry = eris.New("invalid geometry")

// squareMetresPerHectare converts m² to ha.
const squareMetresPerHectare = 10000.0

// AreaReport breaks the raster extent down by category, in hectares.
type AreaReport struct {
	TotalHa  float64         `json:"total_ha"`
	PerBinHa map[Bin]float64 `json:"per_bin_ha"`
}

// AreaEntry is one row of an AreaReport in canonical category order.
type AreaEntry struct {
	Bin     Bin     `json:"bin"`
	Percent float64 `json:"percent"`
	AreaHa  float64 `json:"area_ha"`
}

// BuildAreaReport converts category fractions into hectares using the grid
// shape and the ground resolution (metres per pixel edge). The total area is
// reported even when stats holds no valid data.
func BuildAreaReport(stats Statistics, width, height int, resolution float64) (AreaReport, error) {
	if width < 0 || height < 0 {
		return AreaReport{}, eris.Wrapf(ErrInvalidGeometry, "index: dimensions %dx%d", width, height)
	}
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return AreaReport{}, eris.Wrapf(ErrInvalidGeometry, "index: resolution %v", resolution)
	}

	total := float64(width) * resolution * float64(height) * resolution / squareMetresPerHectare
	report := AreaReport{
		TotalHa:  total,
		PerBinHa: make(map[Bin]float64, len(stats.Fractions)),
	}
	for b, pct := range stats.Fractions {
		report.PerBinHa[b] = pct / 100 * total
	}
	return report, nil
}

// Entries returns the per-category rows in canonical order. fractions
// supplies the percentage column; categories missing from both maps are
// reported as zero. An empty report yields no rows.
func (r AreaReport) Entries(fractions Fractions) []AreaEntry {
	if len(r.PerBinHa) == 0 && len(fractions) == 0 {
		return nil
	}
	entries := make([]AreaEntry, 0, len(Bins))
	for _, b := range Bins {
		entries = append(entries, AreaEntry{
			Bin:     b,
			Percent: fractions.Get(b),
			AreaHa:  r.PerBinHa[b],
		})
	}
	return entries
}
