package report

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

func newAnalysis(t *testing.T, layer string, values []float64, w, h int, res float64) *model.Analysis {
	t.Helper()
	g, err := index.NewGrid(values, w, h, -9999)
	require.NoError(t, err)
	stats := index.ComputeStatistics(g)
	area, err := index.BuildAreaReport(stats, w, h, res)
	require.NoError(t, err)
	kind := index.KindFromName(layer)

	status := model.AnalysisStatusComplete
	if stats.Empty() {
		status = model.AnalysisStatusNoData
	}
	return &model.Analysis{
		ID:             "id-" + layer,
		Layer:          layer,
		Kind:           kind,
		Status:         status,
		Width:          w,
		Height:         h,
		Resolution:     res,
		Stats:          stats,
		Area:           area,
		Interpretation: index.Classify(kind, stats.Mean, stats.Fractions),
		Footprint:      []byte(`{"type":"Polygon","coordinates":[[[0,0],[200,0],[200,200],[0,200],[0,0]]]}`),
		CreatedAt:      time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
	}
}

func reference(t *testing.T) *model.Analysis {
	return newAnalysis(t, "NDVI", []float64{-1.0, 0.1, 0.5, -9999}, 2, 2, 100)
}

func empty(t *testing.T) *model.Analysis {
	return newAnalysis(t, "NDWI", []float64{-9999, -9999}, 2, 1, 10)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(0))
	assert.Equal(t, "", bar(1.9))
	assert.Equal(t, strings.Repeat(barSymbol, 16), bar(33.3))
	assert.Equal(t, strings.Repeat(barSymbol, 50), bar(100))
	assert.Equal(t, strings.Repeat(barSymbol, 50), bar(250))
}

func TestLabelsFor(t *testing.T) {
	assert.Equal(t, "Critical (<-0.5)", labelsFor("NDVI")[index.BinMuyBajo])
	assert.Equal(t, "Critical (<-0.5)", labelsFor("field_ndre")[index.BinMuyBajo])
	assert.Equal(t, "Very dry (<-0.5)", labelsFor("NDWI")[index.BinMuyBajo])
	for _, b := range index.Bins {
		assert.NotEmpty(t, vegetationLabels[b])
		assert.NotEmpty(t, moistureLabels[b])
	}
}

func TestStateLabel(t *testing.T) {
	assert.Equal(t, "VIGOROUS VEGETATION", StateLabel(index.StateVigorous))
	assert.Equal(t, "mystery", StateLabel(index.State("mystery")))
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, reference(t)))
	out := buf.String()

	assert.Contains(t, out, "ANALYSIS: NDVI")
	assert.Contains(t, out, "Resolution: 100.0000 m/pixel")
	assert.Contains(t, out, "Dimensions: 2 x 2 pixels (4 pixels)")
	assert.Contains(t, out, "Total area: 4.000 ha")
	assert.Contains(t, out, "Value range: -1.000 to 0.500")
	assert.Contains(t, out, "Mean: -0.133")
	assert.Contains(t, out, "Skipped: 1 no-data, 0 non-finite")
	assert.Contains(t, out, " 33.3% ( 1.333 ha) "+strings.Repeat(barSymbol, 16))
	assert.Contains(t, out, "Excellent (>0.8)")
	assert.Contains(t, out, "SCARCE OR STRESSED VEGETATION")
	assert.Contains(t, out, "33.3% of the area shows low vigor")
}

func TestWriteConsole_ThousandsSeparator(t *testing.T) {
	a := reference(t)
	a.Width, a.Height = 2000, 1500

	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, a))
	assert.Contains(t, buf.String(), "2,000 x 1,500 pixels (3,000,000 pixels)")
}

func TestWriteConsole_NoData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, empty(t)))
	out := buf.String()

	assert.Contains(t, out, "No data available")
	assert.Contains(t, out, "No valid samples")
	assert.Contains(t, out, "Custom index")
	assert.NotContains(t, out, "Attention")
}

func TestWriteConsoleLoaded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConsoleLoaded(&buf, 0))
	assert.Contains(t, buf.String(), "No layers were loaded")

	buf.Reset()
	require.NoError(t, WriteConsoleLoaded(&buf, 2))
	assert.Contains(t, buf.String(), "2 layer(s) loaded.")
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(reference(t))

	assert.Equal(t, "NDVI", doc.Layer)
	assert.Equal(t, 4, doc.Spatial.Pixels)
	require.Len(t, doc.Distribution, 7)
	for i, e := range doc.Distribution {
		assert.Equal(t, index.Bins[i], e.Bin)
	}
	first := doc.Distribution[0]
	assert.Nil(t, first.Min)
	require.NotNil(t, first.Max)
	assert.Equal(t, -0.5, *first.Max)
	assert.Equal(t, int64(1), first.Pixels)
	assert.Nil(t, doc.Distribution[6].Max)
	assert.Equal(t, "SCARCE OR STRESSED VEGETATION", doc.Interpretation.StateLabel)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []*model.Analysis{reference(t), empty(t)}))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)

	dist := docs[0]["distribution"].([]any)
	require.Len(t, dist, 7)
	assert.Equal(t, "muy_bajo", dist[0].(map[string]any)["bin"])
	assert.Equal(t, "muy_alto", dist[6].(map[string]any)["bin"])
	assert.NotNil(t, docs[0]["footprint"])

	assert.Equal(t, "no_data", docs[1]["status"])
	assert.Empty(t, docs[1]["distribution"])
}

func cellStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, []*model.Analysis{reference(t), empty(t)}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	summary, ok := f.Sheet["Summary"]
	require.True(t, ok)
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, summaryHeader, cellStrings(summary.Rows[0]))
	row := cellStrings(summary.Rows[1])
	assert.Equal(t, "NDVI", row[0])
	area, err := strconv.ParseFloat(row[6], 64)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, area, 1e-9)
	assert.Contains(t, row[12], "low vigor")

	dist, ok := f.Sheet["Distribution"]
	require.True(t, ok)
	require.Len(t, dist.Rows, 8, "header plus seven NDVI categories, none for the empty layer")
	assert.Equal(t, "muy_bajo", cellStrings(dist.Rows[1])[1])
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, reference(t)))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestWriteChart_NoData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, empty(t)))
	assert.NotZero(t, buf.Len())
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprints.shp")
	noFootprint := empty(t)
	noFootprint.Footprint = nil
	require.NoError(t, WriteShapefile(path, []*model.Analysis{reference(t), noFootprint}))

	_, err := os.Stat(filepath.Join(filepath.Dir(path), "footprints.dbf"))
	require.NoError(t, err)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var n int
	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		require.True(t, ok)
		assert.Equal(t, int32(5), poly.NumPoints)
		box := poly.BBox()
		assert.Equal(t, 200.0, box.MaxX)
		assert.Equal(t, "NDVI", strings.Trim(r.Attribute(0), "\x00 "))
		assert.Equal(t, "scarce", strings.Trim(r.Attribute(7), "\x00 "))
		n++
	}
	assert.Equal(t, 1, n)
}

func TestWriteShapefile_BadFootprint(t *testing.T) {
	a := reference(t)
	a.Footprint = []byte(`{"type":"Point","coordinates":[1,2]}`)
	err := WriteShapefile(filepath.Join(t.TempDir(), "bad"), []*model.Analysis{a})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRender_Console(t *testing.T) {
	var buf bytes.Buffer
	files, err := Render(&buf, []*model.Analysis{reference(t)}, Options{
		Now: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, files)

	out := buf.String()
	assert.Contains(t, out, "01/03/2024 08:30:00")
	assert.Contains(t, out, "1 layer(s) loaded.")
	assert.Contains(t, out, "ANALYSIS COMPLETE")
}

func TestRender_Files(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	analyses := []*model.Analysis{reference(t), empty(t)}

	for _, tc := range []struct {
		format Format
		want   []string
	}{
		{FormatXLSX, []string{"vegindex_report.xlsx"}},
		{FormatPNG, []string{"NDVI_distribution.png", "NDWI_distribution.png"}},
		{FormatSHP, []string{"vegindex_footprints.shp"}},
	} {
		t.Run(string(tc.format), func(t *testing.T) {
			var buf bytes.Buffer
			files, err := Render(&buf, analyses, Options{Format: tc.format, OutputDir: dir})
			require.NoError(t, err)
			require.Len(t, files, len(tc.want))
			for i, name := range tc.want {
				assert.Equal(t, filepath.Join(dir, name), files[i])
				_, err := os.Stat(files[i])
				assert.NoError(t, err)
				assert.Contains(t, buf.String(), "wrote "+files[i])
			}
		})
	}
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "field_1_NDVI", fileSafe("field 1/NDVI"))
}
