// Package analysis runs one raster layer through the statistics, area and
// interpretation stages and assembles the result record.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
	"github.com/sells-group/vegindex-cli/internal/raster"
)

// Options controls a single analysis.
type Options struct {
	// Kind selects the interpretation thresholds. Empty infers it from the
	// layer name.
	Kind index.Kind
	// Resolution overrides the resolution declared by the raster when > 0.
	Resolution float64
	// Stats tunes no-data matching and the worker count.
	Stats index.Options
	// ParallelMinPixels is the grid size from which statistics are computed
	// in parallel. Zero always uses the sequential path.
	ParallelMinPixels int
	// AdvisoryThresholdPct overrides index.DefaultAdvisoryThresholdPct when > 0.
	AdvisoryThresholdPct float64
}

// Run samples the raster and analyzes it. Sampler failures are returned
// unchanged so callers can match raster.ErrRasterUnavailable.
func Run(ctx context.Context, s raster.Sampler, opts Options) (*model.Analysis, error) {
	r, err := s.Sample(ctx)
	if err != nil {
		return nil, err
	}
	return Analyze(ctx, r, opts)
}

// Analyze computes statistics, the area report and the interpretation for r.
func Analyze(ctx context.Context, r *raster.Raster, opts Options) (*model.Analysis, error) {
	log := zap.L().With(zap.String("layer", r.Name))

	if opts.Resolution > 0 {
		cp := *r
		cp.Resolution = opts.Resolution
		r = &cp
	}
	kind := opts.Kind
	if kind == "" {
		kind = index.KindFromName(r.Name)
	}

	stats, err := computeStats(ctx, r.Grid, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: %s", r.Name)
	}
	if !stats.Finite() {
		return nil, eris.Wrapf(index.ErrStatisticsOverflow, "analysis: %s: mean %g, std dev %g", r.Name, stats.Mean, stats.StdDev)
	}

	area, err := index.BuildAreaReport(stats, r.Width(), r.Height(), r.Resolution)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: %s", r.Name)
	}

	threshold := opts.AdvisoryThresholdPct
	if threshold <= 0 {
		threshold = index.DefaultAdvisoryThresholdPct
	}
	interp := index.ClassifyWithThreshold(kind, stats.Mean, stats.Fractions, threshold)

	footprint, err := geojson.Marshal(raster.Footprint(r))
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: %s: encode footprint", r.Name)
	}

	status := model.AnalysisStatusComplete
	if stats.Empty() {
		status = model.AnalysisStatusNoData
		log.Warn("raster has no valid samples",
			zap.Int64("nodata", stats.NoDataCount),
			zap.Int64("non_finite", stats.NonFiniteCount),
		)
	}

	a := &model.Analysis{
		Layer:          r.Name,
		Path:           r.Path,
		Kind:           kind,
		Status:         status,
		Width:          r.Width(),
		Height:         r.Height(),
		Resolution:     r.Resolution,
		Stats:          stats,
		Area:           area,
		Interpretation: interp,
		Footprint:      footprint,
		CreatedAt:      time.Now().UTC(),
	}

	log.Info("analysis complete",
		zap.String("kind", string(kind)),
		zap.Float64("mean", stats.Mean),
		zap.Float64("std_dev", stats.StdDev),
		zap.Float64("area_ha", area.TotalHa),
		zap.String("state", string(interp.State)),
		zap.Bool("advisory", interp.Advisory != nil),
	)
	return a, nil
}

func computeStats(ctx context.Context, g index.Grid, opts Options) (index.Statistics, error) {
	if opts.ParallelMinPixels > 0 && opts.Stats.Workers > 1 && g.Len() >= opts.ParallelMinPixels {
		return index.ComputeStatisticsParallel(ctx, g, opts.Stats)
	}
	if err := ctx.Err(); err != nil {
		return index.Statistics{}, err
	}
	return index.ComputeStatisticsWithOptions(g, opts.Stats), nil
}
