package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vegindex-cli/internal/model"
)

var (
	summaryHeader = []string{
		"Layer", "Kind", "Status", "Resolution (m)", "Width", "Height",
		"Total area (ha)", "Min", "Max", "Mean", "Std dev", "State", "Advisory",
	}
	distributionHeader = []string{"Layer", "Category", "Label", "Pixels", "Percent", "Area (ha)"}
)

// WriteXLSX saves a workbook with a Summary sheet holding one row per
// analysis and a Distribution sheet holding one row per layer category.
func WriteXLSX(path string, analyses []*model.Analysis) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addStringRow(summary, summaryHeader)

	dist, err := f.AddSheet("Distribution")
	if err != nil {
		return eris.Wrap(err, "report: add distribution sheet")
	}
	addStringRow(dist, distributionHeader)

	for _, a := range analyses {
		row := summary.AddRow()
		row.AddCell().SetString(a.Layer)
		row.AddCell().SetString(string(a.Kind))
		row.AddCell().SetString(string(a.Status))
		row.AddCell().SetFloat(a.Resolution)
		row.AddCell().SetInt(a.Width)
		row.AddCell().SetInt(a.Height)
		row.AddCell().SetFloat(a.Area.TotalHa)
		row.AddCell().SetFloat(a.Stats.Min)
		row.AddCell().SetFloat(a.Stats.Max)
		row.AddCell().SetFloat(a.Stats.Mean)
		row.AddCell().SetFloat(a.Stats.StdDev)
		row.AddCell().SetString(StateLabel(a.Interpretation.State))
		advisory := ""
		if a.Interpretation.Advisory != nil {
			advisory = a.Interpretation.Advisory.Message
		}
		row.AddCell().SetString(advisory)

		for _, e := range a.Distribution() {
			r := dist.AddRow()
			r.AddCell().SetString(a.Layer)
			r.AddCell().SetString(string(e.Bin))
			r.AddCell().SetString(binLabel(a.Layer, e.Bin))
			r.AddCell().SetInt64(a.Stats.Counts[e.Bin])
			r.AddCell().SetFloat(e.Percent)
			r.AddCell().SetFloat(e.AreaHa)
		}
	}

	return eris.Wrapf(f.Save(path), "report: save workbook %s", path)
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
