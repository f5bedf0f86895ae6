package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vegindex-cli/internal/analysis"
	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/raster"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Analyze every layer listed in a manifest concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ropts, save, err := reportFlags(cmd)
		if err != nil {
			return err
		}
		if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
			cfg.Batch.MaxConcurrent = n
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		m, err := raster.LoadManifest(args[0])
		if err != nil {
			return err
		}
		base, err := baseOptions()
		if err != nil {
			return err
		}
		jobs, err := manifestJobs(m, base)
		if err != nil {
			return err
		}

		res, err := processLayers(ctx, jobs, cfg.Batch.MaxConcurrent, cmd.ErrOrStderr(), runLayer)
		if err != nil {
			return err
		}
		return finishRun(ctx, cmd.OutOrStdout(), res, ropts, save)
	},
}

// manifestJobs queues the manifest layers in file order, applying per-layer
// kind and resolution overrides.
func manifestJobs(m *raster.Manifest, base analysis.Options) ([]layerJob, error) {
	src := m.Source()
	jobs := make([]layerJob, 0, len(m.Layers))
	for _, l := range m.Layers {
		opts := base
		if l.Kind != "" {
			k, ok := index.ParseKind(l.Kind)
			if !ok {
				return nil, eris.Errorf("layer %s: unknown kind %q", l.Name, l.Kind)
			}
			opts.Kind = k
		}
		if l.Resolution > 0 {
			opts.Resolution = l.Resolution
		}
		jobs = append(jobs, layerJob{
			Name: l.Name,
			Open: func() (raster.Sampler, error) { return src.Sampler(l.Name) },
			Opts: opts,
		})
	}
	return jobs, nil
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "max layers analyzed at once (default from config)")
	addReportFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}
