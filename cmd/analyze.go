package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the configured index rasters",
	Long: "Loads each layer from raster.dir/raster.files (or the --file paths), computes statistics, " +
		"area per category and an interpretation, and renders the report. Missing layers are skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ropts, save, err := reportFlags(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		opts, err := baseOptions()
		if err != nil {
			return err
		}
		if kind, _ := cmd.Flags().GetString("kind"); kind != "" {
			k, ok := index.ParseKind(kind)
			if !ok {
				return eris.Errorf("unknown --kind %q (want ndvi or other)", kind)
			}
			opts.Kind = k
		}
		opts.Resolution, _ = cmd.Flags().GetFloat64("resolution")

		files, _ := cmd.Flags().GetStringSlice("file")
		layers, _ := cmd.Flags().GetStringSlice("layer")

		var jobs []layerJob
		if len(files) > 0 {
			jobs = fileJobs(files, opts)
		} else {
			jobs = configuredJobs(layers, opts)
		}

		res, err := processLayers(ctx, jobs, 1, cmd.ErrOrStderr(), runLayer)
		if err != nil {
			return err
		}
		return finishRun(ctx, cmd.OutOrStdout(), res, ropts, save)
	},
}

// reportFlags reads the shared output flags, falling back to configuration.
func reportFlags(cmd *cobra.Command) (report.Options, bool, error) {
	format, _ := cmd.Flags().GetString("format")
	if format != "" {
		cfg.Report.Format = format
	}
	dir, _ := cmd.Flags().GetString("output-dir")
	if dir != "" {
		cfg.Report.OutputDir = dir
	}
	save, _ := cmd.Flags().GetBool("save")

	f, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return report.Options{}, false, err
	}
	return report.Options{Format: f, OutputDir: cfg.Report.OutputDir}, save, nil
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "output format: console, json, xlsx, png, shp (default from config)")
	cmd.Flags().String("output-dir", "", "directory for file outputs (default from config)")
	cmd.Flags().Bool("save", false, "persist analyses to the history store")
}

func init() {
	analyzeCmd.Flags().StringSlice("file", nil, "raster file(s) to analyze instead of the configured layers")
	analyzeCmd.Flags().StringSlice("layer", nil, "only analyze these configured layer names")
	analyzeCmd.Flags().String("kind", "", "force interpretation kind: ndvi or other")
	analyzeCmd.Flags().Float64("resolution", 0, "override pixel size in meters")
	addReportFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}
