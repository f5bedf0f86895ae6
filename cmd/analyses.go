package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
	"github.com/sells-group/vegindex-cli/internal/report"
	"github.com/sells-group/vegindex-cli/internal/store"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect analysis history",
	Long:  "Commands for listing, viewing, and deleting stored analyses.",
}

// -- analyses list --

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := listFilter(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		analyses, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses list")
		}

		if len(analyses) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No analyses found.")
			return nil
		}

		formatAnalysesList(cmd.OutOrStdout(), analyses)
		return nil
	},
}

// -- analyses show --

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show full details of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyses show")
		}

		if console, _ := cmd.Flags().GetBool("console"); console {
			return report.WriteConsole(cmd.OutOrStdout(), a)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report.NewDocument(a))
	},
}

// -- analyses delete --

var analysesDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteAnalysis(ctx, args[0]); err != nil {
			return eris.Wrap(err, "analyses delete")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	analysesListCmd.Flags().String("layer", "", "filter by layer name")
	analysesListCmd.Flags().String("kind", "", "filter by kind (ndvi, other)")
	analysesListCmd.Flags().String("status", "", "filter by status (complete, no_data)")
	analysesListCmd.Flags().String("bin", "", "only analyses where this category reaches --min-percent")
	analysesListCmd.Flags().Float64("min-percent", 0, "minimum share of --bin in percent")
	analysesListCmd.Flags().Duration("since", 0, "only analyses newer than this (e.g. 24h, 168h)")
	analysesListCmd.Flags().Int("limit", 50, "max number of analyses to display")

	analysesShowCmd.Flags().Bool("console", false, "render the text report instead of JSON")

	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	analysesCmd.AddCommand(analysesDeleteCmd)
	rootCmd.AddCommand(analysesCmd)
}

// listFilter builds a store filter from the list flags.
func listFilter(cmd *cobra.Command) (store.AnalysisFilter, error) {
	layer, _ := cmd.Flags().GetString("layer")
	kind, _ := cmd.Flags().GetString("kind")
	status, _ := cmd.Flags().GetString("status")
	bin, _ := cmd.Flags().GetString("bin")
	minPct, _ := cmd.Flags().GetFloat64("min-percent")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := store.AnalysisFilter{
		Layer:      layer,
		Status:     model.AnalysisStatus(status),
		MinPercent: minPct,
		Limit:      limit,
	}
	if kind != "" {
		k, ok := index.ParseKind(kind)
		if !ok {
			return filter, eris.Errorf("unknown --kind %q", kind)
		}
		filter.Kind = k
	}
	if bin != "" {
		b := index.Bin(bin)
		if !b.Valid() {
			return filter, eris.Errorf("unknown --bin %q", bin)
		}
		filter.Bin = b
	}
	if since > 0 {
		filter.CreatedAfter = time.Now().Add(-since)
	}
	return filter, nil
}

// formatAnalysesList writes a tabular list of analyses to w.
func formatAnalysesList(out io.Writer, analyses []model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLAYER\tKIND\tSTATUS\tMEAN\tAREA_HA\tSTATE\tADVISORY\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t------\t----\t-------\t-----\t--------\t-------")

	for _, a := range analyses {
		advisory := ""
		if adv := a.Interpretation.Advisory; adv != nil {
			advisory = fmt.Sprintf("%.1f%% low", adv.CriticalPct)
		}
		layer := a.Layer
		if r := []rune(layer); len(r) > 30 {
			layer = string(r[:27]) + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\t%.3f\t%s\t%s\t%s\n",
			truncateID(a.ID),
			layer,
			a.Kind,
			a.Status,
			a.Stats.Mean,
			a.Area.TotalHa,
			a.Interpretation.State,
			advisory,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
