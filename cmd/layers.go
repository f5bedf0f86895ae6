package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vegindex-cli/internal/analysis"
	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
	"github.com/sells-group/vegindex-cli/internal/raster"
	"github.com/sells-group/vegindex-cli/internal/report"
)

// errNoLayers is returned when a run could not load a single layer.
var errNoLayers = eris.New("no layers loaded")

// layerJob is one raster layer queued for analysis.
type layerJob struct {
	Name string
	// Open resolves the sampler. Missing files surface as
	// raster.ErrRasterUnavailable.
	Open func() (raster.Sampler, error)
	Opts analysis.Options
}

// analyzeFunc is the callback signature for analyzing one layer.
type analyzeFunc func(ctx context.Context, job layerJob) (*model.Analysis, error)

// runLayer samples and analyzes a job.
func runLayer(ctx context.Context, job layerJob) (*model.Analysis, error) {
	s, err := job.Open()
	if err != nil {
		return nil, err
	}
	return analysis.Run(ctx, s, job.Opts)
}

// layerResults holds the outcome of processLayers. Analyses keeps job order.
type layerResults struct {
	Analyses []*model.Analysis
	Skipped  int64
	Failed   int64
}

// processLayers analyzes jobs concurrently. Unavailable rasters are logged,
// reported on warn and skipped; other failures are counted and do not abort
// the run.
func processLayers(ctx context.Context, jobs []layerJob, concurrency int, warn io.Writer, analyze analyzeFunc) (layerResults, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing layers",
		zap.Int("layers", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]*model.Analysis, len(jobs))
	var skipped, failed atomic.Int64

	for i, job := range jobs {
		g.Go(func() error {
			log := zap.L().With(zap.String("layer", job.Name))

			a, err := analyze(gctx, job)
			switch {
			case err == nil:
				results[i] = a
			case errors.Is(err, raster.ErrRasterUnavailable):
				skipped.Add(1)
				log.Warn("layer unavailable", zap.Error(err))
				fmt.Fprintf(warn, "skipping %s: %v\n", job.Name, err)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				log.Error("layer analysis failed", zap.Error(err))
				fmt.Fprintf(warn, "failed %s: %v\n", job.Name, err)
			}
			return nil // don't abort the run on individual failure
		})
	}

	if err := g.Wait(); err != nil {
		return layerResults{}, eris.Wrap(err, "process layers")
	}

	out := layerResults{Skipped: skipped.Load(), Failed: failed.Load()}
	for _, a := range results {
		if a != nil {
			out.Analyses = append(out.Analyses, a)
		}
	}

	zap.L().Info("layers complete",
		zap.Int("loaded", len(out.Analyses)),
		zap.Int64("skipped", out.Skipped),
		zap.Int64("failed", out.Failed),
	)
	return out, nil
}

// baseOptions builds analysis options from configuration.
func baseOptions() (analysis.Options, error) {
	opts := analysis.Options{
		Stats: index.Options{
			NoDataTolerance: cfg.Analysis.NoDataTolerance,
			Workers:         cfg.Analysis.Workers,
		},
		ParallelMinPixels:    cfg.Analysis.ParallelMinPixels,
		AdvisoryThresholdPct: cfg.Analysis.AdvisoryThresholdPct,
	}
	if cfg.Raster.Kind != "" {
		k, ok := index.ParseKind(cfg.Raster.Kind)
		if !ok {
			return opts, eris.Errorf("unknown raster.kind %q", cfg.Raster.Kind)
		}
		opts.Kind = k
	}
	return opts, nil
}

// sourceJobs queues every layer of src, or only those named in only.
func sourceJobs(src *raster.Source, only []string, opts analysis.Options) []layerJob {
	names := src.Names()
	if len(only) > 0 {
		names = only
	}
	jobs := make([]layerJob, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, layerJob{
			Name: name,
			Open: func() (raster.Sampler, error) { return src.Sampler(name) },
			Opts: opts,
		})
	}
	return jobs
}

// configuredJobs queues the layers of raster.files, or only those named.
func configuredJobs(only []string, opts analysis.Options) []layerJob {
	return sourceJobs(raster.NewSource(cfg.Raster.Dir, cfg.Raster.FileMap()), only, opts)
}

// fileJobs queues explicit raster paths, naming each layer after its file.
// Paths sharing a base name are named by their path instead so each file
// gets its own job.
func fileJobs(paths []string, opts analysis.Options) []layerJob {
	taken := make(map[string]bool, len(paths))
	jobs := make([]layerJob, 0, len(paths))
	for _, p := range paths {
		ext := filepath.Ext(p)
		name := strings.TrimSuffix(filepath.Base(p), ext)
		if taken[name] {
			name = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(p)), ext)
		}
		taken[name] = true

		src := raster.NewSource("", map[string]string{name: p})
		jobs = append(jobs, sourceJobs(src, []string{name}, opts)...)
	}
	return jobs
}

// finishRun persists and renders the results of a run. It returns
// errNoLayers when nothing was analyzed.
func finishRun(ctx context.Context, out io.Writer, res layerResults, ropts report.Options, save bool) error {
	if len(res.Analyses) == 0 {
		_ = report.WriteConsoleLoaded(out, 0)
		return errNoLayers
	}

	if save {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		for _, a := range res.Analyses {
			if err := st.SaveAnalysis(ctx, a); err != nil {
				return eris.Wrapf(err, "save analysis %s", a.Layer)
			}
			zap.L().Debug("analysis saved", zap.String("id", a.ID), zap.String("layer", a.Layer))
		}
	}

	_, err := report.Render(out, res.Analyses, ropts)
	return err
}
