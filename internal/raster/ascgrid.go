package raster

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vegindex-cli/internal/index"
)

// ASCIIGridFile samples an ESRI ASCII Grid (.asc) file from disk.
type ASCIIGridFile struct {
	Path string
	Name string
}

// Sample opens and decodes the file.
func (a ASCIIGridFile) Sample(ctx context.Context) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("raster: %s: %v", a.Path, err)
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, unavailable("raster: open %s: %v", a.Path, err)
	}
	defer f.Close() //nolint:errcheck

	name := a.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(a.Path), filepath.Ext(a.Path))
	}
	r, err := DecodeASCIIGrid(f, name)
	if err != nil {
		return nil, err
	}
	r.Path = a.Path
	return r, nil
}

type ascHeader struct {
	ncols, nrows int
	xll, yll     float64
	centered     bool
	dx, dy       float64
	noData       float64
	seen         map[string]bool
}

// DefaultMaxCells bounds the ncols x nrows a header may declare before any
// sample is read.
const DefaultMaxCells = 1 << 28

// initialCapacity caps the up-front allocation; larger grids grow as samples
// actually arrive.
const initialCapacity = 1 << 20

// GridTooLargeError reports a header whose declared size exceeds the limit.
// It matches ErrRasterUnavailable.
type GridTooLargeError struct {
	Cols, Rows int
	Max        int
}

func (e *GridTooLargeError) Error() string {
	return fmt.Sprintf("grid %dx%d exceeds %d cells", e.Cols, e.Rows, e.Max)
}

func (e *GridTooLargeError) Unwrap() error { return ErrRasterUnavailable }

// DecodeASCIIGrid parses an ESRI ASCII Grid of at most DefaultMaxCells cells.
// Rows are stored top to bottom, matching the file. A missing NODATA_value
// yields a NaN sentinel, which never matches any sample.
func DecodeASCIIGrid(r io.Reader, name string) (*Raster, error) {
	return DecodeASCIIGridLimit(r, name, DefaultMaxCells)
}

// DecodeASCIIGridLimit is DecodeASCIIGrid with an explicit cell limit.
func DecodeASCIIGridLimit(r io.Reader, name string, maxCells int) (*Raster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	h := ascHeader{noData: math.NaN(), seen: map[string]bool{}}
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, unavailable("raster: %s: header %s has no value", name, key)
		}
		if err := h.set(key, sc.Text()); err != nil {
			return nil, unavailable("raster: %s: %v", name, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: %s: read header", name)
	}
	if err := h.validate(); err != nil {
		return nil, unavailable("raster: %s: %v", name, err)
	}
	limit := maxCells
	if limit <= 0 {
		limit = math.MaxInt
	}
	// ncols > limit/nrows also catches products that overflow int.
	if h.nrows > 0 && h.ncols > limit/h.nrows {
		return nil, eris.Wrapf(&GridTooLargeError{Cols: h.ncols, Rows: h.nrows, Max: limit}, "raster: %s", name)
	}

	n := h.ncols * h.nrows
	values := make([]float64, 0, min(n, initialCapacity))
	if first != "" {
		v, err := strconv.ParseFloat(first, 64)
		if err != nil {
			return nil, unavailable("raster: %s: sample 0: %v", name, err)
		}
		values = append(values, v)
	}
	for len(values) < n && sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, unavailable("raster: %s: sample %d: %v", name, len(values), err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: %s: read samples", name)
	}
	if len(values) != n {
		return nil, unavailable("raster: %s: got %d samples, want %d", name, len(values), n)
	}

	grid, err := index.NewGrid(values, h.ncols, h.nrows, h.noData)
	if err != nil {
		return nil, unavailable("raster: %s: %v", name, err)
	}

	originX, originY := h.xll, h.yll
	if h.centered {
		originX -= h.dx / 2
		originY -= h.dy / 2
	}
	return &Raster{
		Name:       name,
		Grid:       grid,
		Resolution: h.dx,
		OriginX:    originX,
		OriginY:    originY,
	}, nil
}

func isHeaderKey(key string) bool {
	switch key {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter",
		"cellsize", "dx", "dy", "nodata_value":
		return true
	}
	return false
}

func (h *ascHeader) set(key, raw string) error {
	h.seen[key] = true
	switch key {
	case "ncols", "nrows":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		if key == "ncols" {
			h.ncols = n
		} else {
			h.nrows = n
		}
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	switch key {
	case "xllcorner":
		h.xll = v
	case "yllcorner":
		h.yll = v
	case "xllcenter":
		h.xll, h.centered = v, true
	case "yllcenter":
		h.yll, h.centered = v, true
	case "cellsize":
		h.dx, h.dy = v, v
	case "dx":
		h.dx = v
	case "dy":
		h.dy = v
	case "nodata_value":
		h.noData = v
	}
	return nil
}

func (h *ascHeader) validate() error {
	for _, required := range []string{"ncols", "nrows"} {
		if !h.seen[required] {
			return &headerError{field: required, reason: "missing"}
		}
	}
	if h.ncols < 0 || h.nrows < 0 {
		return &headerError{field: "ncols/nrows", reason: "negative"}
	}
	if !h.seen["cellsize"] && !(h.seen["dx"] && h.seen["dy"]) {
		return &headerError{field: "cellsize", reason: "missing"}
	}
	if !(h.dx > 0) || !(h.dy > 0) {
		return &headerError{field: "cellsize", reason: "must be positive"}
	}
	if h.dx != h.dy {
		return &headerError{field: "cellsize", reason: "pixels are not square"}
	}
	return nil
}

type headerError struct {
	field  string
	reason string
}

func (e *headerError) Error() string { return "header " + e.field + ": " + e.reason }
