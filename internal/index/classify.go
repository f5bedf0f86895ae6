package index

import (
	"fmt"
	"strings"
)

// Kind tells the classifier which thresholds apply to an index.
type Kind string

const (
	KindNDVILike Kind = "ndvi"
	KindOther    Kind = "other"
)

// KindFromName infers the index kind from a layer name. Only names that
// mention NDVI get vegetation thresholds.
func KindFromName(name string) Kind {
	if strings.Contains(strings.ToUpper(name), "NDVI") {
		return KindNDVILike
	}
	return KindOther
}

// ParseKind maps a configuration or request value onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ndvi", "ndvi_like", "ndvilike":
		return KindNDVILike, true
	case "other", "custom":
		return KindOther, true
	}
	return "", false
}

// State is the qualitative label derived from the mean index value.
type State string

const (
	StateScarce   State = "scarce"
	StateModerate State = "moderate"
	StateVigorous State = "vigorous"
	StateCustom   State = "custom"
)

// Vegetation thresholds on the mean value.
const (
	scarceBelow   = 0.2
	moderateBelow = 0.5
)

// DefaultAdvisoryThresholdPct is the critical share above which an advisory
// is raised.
const DefaultAdvisoryThresholdPct = 10.0

// Advisory flags a large share of critically low values.
type Advisory struct {
	CriticalPct float64 `json:"critical_pct"`
	Message     string  `json:"message"`
}

// Interpretation is the qualitative reading of a Statistics result.
type Interpretation struct {
	State    State     `json:"state"`
	Advisory *Advisory `json:"advisory,omitempty"`
}

// Classify labels mean according to kind and raises an advisory when the two
// lowest categories together exceed DefaultAdvisoryThresholdPct.
func Classify(kind Kind, mean float64, fractions Fractions) Interpretation {
	return ClassifyWithThreshold(kind, mean, fractions, DefaultAdvisoryThresholdPct)
}

// ClassifyWithThreshold is Classify with a configurable advisory threshold.
func ClassifyWithThreshold(kind Kind, mean float64, fractions Fractions, thresholdPct float64) Interpretation {
	in := Interpretation{State: stateFor(kind, mean)}
	if len(fractions) == 0 {
		return in
	}

	critical := fractions.Get(BinMuyBajo) + fractions.Get(BinBajo)
	if critical > thresholdPct {
		in.Advisory = &Advisory{
			CriticalPct: critical,
			Message:     fmt.Sprintf("%.1f%% of the area shows low vigor; field inspection recommended", critical),
		}
	}
	return in
}

func stateFor(kind Kind, mean float64) State {
	if kind != KindNDVILike {
		return StateCustom
	}
	switch {
	case mean < scarceBelow:
		return StateScarce
	case mean < moderateBelow:
		return StateModerate
	default:
		return StateVigorous
	}
}
