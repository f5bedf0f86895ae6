package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

const (
	ruleWidth = 75
	barSymbol = "█"
	maxBar    = 50
)

var rule = strings.Repeat("=", ruleWidth)

// WriteConsoleHeader prints the run banner.
func WriteConsoleHeader(w io.Writer, now time.Time) error {
	_, err := fmt.Fprintf(w, "%s\nSPECTRAL INDEX ANALYSIS\n%s\n%s\n\n",
		rule, now.Format("02/01/2006 15:04:05"), rule)
	return err
}

// WriteConsoleLoaded prints how many layers were loaded, or the no-layers
// message when none were.
func WriteConsoleLoaded(w io.Writer, loaded int) error {
	if loaded == 0 {
		_, err := fmt.Fprintln(w, "No layers were loaded. Check raster.dir and raster.files in the configuration.")
		return err
	}
	_, err := fmt.Fprintf(w, "%d layer(s) loaded.\n\n", loaded)
	return err
}

// WriteConsoleFooter prints the completion banner.
func WriteConsoleFooter(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\nANALYSIS COMPLETE\n%s\n", rule, rule)
	return err
}

// WriteConsole prints the detailed text report for one analysis.
func WriteConsole(w io.Writer, a *model.Analysis) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nANALYSIS: %s\n%s\n", rule, a.Layer, rule)

	b.WriteString("\nSPATIAL INFO:\n")
	fmt.Fprintf(&b, "  • Resolution: %.4f m/pixel\n", a.Resolution)
	b.WriteString(p.Sprintf("  • Dimensions: %d x %d pixels (%d pixels)\n", a.Width, a.Height, a.Pixels()))
	fmt.Fprintf(&b, "  • Total area: %.3f ha\n", a.Area.TotalHa)

	b.WriteString("\nINDEX STATISTICS:\n")
	if a.Stats.Empty() {
		b.WriteString("  • No valid samples\n")
	} else {
		fmt.Fprintf(&b, "  • Value range: %.3f to %.3f\n", a.Stats.Min, a.Stats.Max)
		fmt.Fprintf(&b, "  • Mean: %.3f\n", a.Stats.Mean)
		fmt.Fprintf(&b, "  • Std dev: %.3f\n", a.Stats.StdDev)
	}
	if a.Stats.NoDataCount > 0 || a.Stats.NonFiniteCount > 0 {
		b.WriteString(p.Sprintf("  • Skipped: %d no-data, %d non-finite\n", a.Stats.NoDataCount, a.Stats.NonFiniteCount))
	}

	b.WriteString("\nDISTRIBUTION BY CATEGORY:\n")
	writeDistribution(&b, a)

	b.WriteString("\nINTERPRETATION:\n")
	fmt.Fprintf(&b, "  • Overall state (from mean): %s\n", StateLabel(a.Interpretation.State))
	if adv := a.Interpretation.Advisory; adv != nil {
		fmt.Fprintf(&b, "  • Attention: %s\n", adv.Message)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDistribution(b *strings.Builder, a *model.Analysis) {
	entries := a.Distribution()
	if len(entries) == 0 {
		b.WriteString("  No data available\n")
		return
	}
	labels := labelsFor(a.Layer)
	for _, e := range entries {
		fmt.Fprintf(b, "  %-35s %5.1f%% (%6.3f ha) %s\n", labels[e.Bin], e.Percent, e.AreaHa, bar(e.Percent))
	}
}

// bar renders one block per two percentage points, capped at 50.
func bar(pct float64) string {
	n := int(pct / 2)
	if n > maxBar {
		n = maxBar
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat(barSymbol, n)
}

// binLabel returns the console wording for b in the label set of layer.
func binLabel(layer string, b index.Bin) string {
	return labelsFor(layer)[b]
}
