// Package report renders analyses to the console, JSON, XLSX workbooks,
// PNG distribution charts and footprint shapefiles.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vegindex-cli/internal/model"
)

// Format selects an output sink.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
	FormatPNG     Format = "png"
	FormatSHP     Format = "shp"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatJSON, FormatXLSX, FormatPNG, FormatSHP:
		return f, nil
	}
	return "", eris.Errorf("report: unknown format %q", s)
}

// Options controls Render.
type Options struct {
	Format Format
	// OutputDir receives file outputs (xlsx, png, shp).
	OutputDir string
	// Now stamps the console header. Zero uses the current time.
	Now time.Time
}

// Render writes analyses with the selected sink. Stream formats go to w;
// file formats are written under OutputDir and a line naming each file is
// printed to w. It returns the paths of the files written.
func Render(w io.Writer, analyses []*model.Analysis, opts Options) ([]string, error) {
	switch opts.Format {
	case FormatConsole, "":
		return nil, renderConsole(w, analyses, opts)
	case FormatJSON:
		return nil, WriteJSON(w, analyses)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", dir)
	}

	var files []string
	switch opts.Format {
	case FormatXLSX:
		path := filepath.Join(dir, "vegindex_report.xlsx")
		if err := WriteXLSX(path, analyses); err != nil {
			return nil, err
		}
		files = append(files, path)
	case FormatPNG:
		for _, a := range analyses {
			path := filepath.Join(dir, fileSafe(a.Layer)+"_distribution.png")
			if err := SaveChart(path, a); err != nil {
				return files, err
			}
			files = append(files, path)
		}
	case FormatSHP:
		path := filepath.Join(dir, "vegindex_footprints.shp")
		if err := WriteShapefile(path, analyses); err != nil {
			return nil, err
		}
		files = append(files, path)
	default:
		return nil, eris.Errorf("report: unknown format %q", opts.Format)
	}

	for _, f := range files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	return files, nil
}

func renderConsole(w io.Writer, analyses []*model.Analysis, opts Options) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if err := WriteConsoleHeader(w, now); err != nil {
		return err
	}
	if err := WriteConsoleLoaded(w, len(analyses)); err != nil {
		return err
	}
	for _, a := range analyses {
		if err := WriteConsole(w, a); err != nil {
			return err
		}
	}
	return WriteConsoleFooter(w)
}

// fileSafe maps a layer name onto a portable file name stem.
func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
