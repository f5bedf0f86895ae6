package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// footprintEWKB converts a GeoJSON footprint into little-endian EWKB for
// the PostGIS-compatible footprint column. Empty input yields nil.
func footprintEWKB(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "store: decode footprint")
	}

	out, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode footprint WKB")
	}
	return out, nil
}
