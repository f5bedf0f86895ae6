package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/vegindex-cli/internal/model"
)

// Attribute columns of the footprint shapefile. DBF names are limited to
// 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("LAYER", 64),
	shp.StringField("KIND", 8),
	shp.StringField("STATUS", 10),
	shp.FloatField("RES_M", 14, 4),
	shp.FloatField("AREA_HA", 16, 3),
	shp.FloatField("MEAN", 12, 4),
	shp.FloatField("STDDEV", 12, 4),
	shp.StringField("STATE", 10),
	shp.FloatField("CRIT_PCT", 8, 2),
}

// WriteShapefile writes one polygon per analysis footprint with summary
// attributes. Analyses without a footprint are skipped.
func WriteShapefile(path string, analyses []*model.Analysis) error {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		path += ".shp"
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "report: create shapefile %s", path)
	}
	if err := w.SetFields(shapeFields); err != nil {
		w.Close()
		return eris.Wrap(err, "report: set shapefile fields")
	}

	var skipped int
	for _, a := range analyses {
		poly, err := footprintPolygon(a)
		if err != nil {
			w.Close()
			return err
		}
		if poly == nil {
			skipped++
			continue
		}

		row := int(w.Write(poly))
		crit := 0.0
		if a.Interpretation.Advisory != nil {
			crit = a.Interpretation.Advisory.CriticalPct
		}
		values := []any{
			a.Layer,
			string(a.Kind),
			string(a.Status),
			a.Resolution,
			a.Area.TotalHa,
			a.Stats.Mean,
			a.Stats.StdDev,
			string(a.Interpretation.State),
			crit,
		}
		for i, v := range values {
			if err := w.WriteAttribute(row, i, v); err != nil {
				w.Close()
				return eris.Wrapf(err, "report: write attribute %s", shapeFields[i].String())
			}
		}
	}
	w.Close()

	// go-shp names the attribute table "<base>dbf"; readers expect "<base>.dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrap(err, "report: rename dbf")
	}

	if skipped > 0 {
		zap.L().Debug("report: skipped analyses without footprint", zap.Int("skipped", skipped))
	}
	return nil
}

// footprintPolygon converts the GeoJSON footprint into a shapefile polygon
// with a clockwise outer ring. It returns nil when a has no footprint.
func footprintPolygon(a *model.Analysis) (*shp.Polygon, error) {
	if len(a.Footprint) == 0 {
		return nil, nil
	}

	var g geom.T
	if err := geojson.Unmarshal(a.Footprint, &g); err != nil {
		return nil, eris.Wrapf(err, "report: decode footprint %s", a.Layer)
	}
	poly, ok := g.(*geom.Polygon)
	if !ok || poly.NumLinearRings() == 0 {
		return nil, eris.Errorf("report: footprint %s is not a polygon", a.Layer)
	}

	coords := poly.LinearRing(0).Coords()
	points := make([]shp.Point, 0, len(coords))
	for i := len(coords) - 1; i >= 0; i-- {
		points = append(points, shp.Point{X: coords[i].X(), Y: coords[i].Y()})
	}
	pl := shp.NewPolyLine([][]shp.Point{points})
	return (*shp.Polygon)(pl), nil
}
