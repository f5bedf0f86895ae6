package report

import (
	"strings"

	"github.com/sells-group/vegindex-cli/internal/index"
)

// categoryLabels maps each bin to the wording shown in console output.
type categoryLabels map[index.Bin]string

var vegetationLabels = categoryLabels{
	index.BinMuyBajo:   "Critical (<-0.5)",
	index.BinBajo:      "Very low (-0.5 to 0)",
	index.BinMedioBajo: "Low (0 to 0.2)",
	index.BinMedio:     "Moderate (0.2 to 0.4)",
	index.BinMedioAlto: "Good (0.4 to 0.6)",
	index.BinAlto:      "Very good (0.6 to 0.8)",
	index.BinMuyAlto:   "Excellent (>0.8)",
}

var moistureLabels = categoryLabels{
	index.BinMuyBajo:   "Very dry (<-0.5)",
	index.BinBajo:      "Dry (-0.5 to 0)",
	index.BinMedioBajo: "Low moisture (0 to 0.2)",
	index.BinMedio:     "Normal moisture (0.2 to 0.4)",
	index.BinMedioAlto: "Good moisture (0.4 to 0.6)",
	index.BinAlto:      "High moisture (0.6 to 0.8)",
	index.BinMuyAlto:   "Saturated/water (>0.8)",
}

// labelsFor picks vegetation wording for NDVI and NDRE layers and moisture
// wording for everything else.
func labelsFor(layer string) categoryLabels {
	upper := strings.ToUpper(layer)
	if strings.Contains(upper, "NDVI") || strings.Contains(upper, "NDRE") {
		return vegetationLabels
	}
	return moistureLabels
}

var stateLabels = map[index.State]string{
	index.StateScarce:   "SCARCE OR STRESSED VEGETATION",
	index.StateModerate: "MODERATE VEGETATION",
	index.StateVigorous: "VIGOROUS VEGETATION",
	index.StateCustom:   "Custom index",
}

// StateLabel returns the human-readable wording for s.
func StateLabel(s index.State) string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return string(s)
}
