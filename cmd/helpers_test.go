package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/vegindex-cli/internal/config"
)

// useTestConfig installs a default configuration backed by a SQLite file in
// a temp dir and restores the previous one on cleanup.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(dir, "test.db")
	c.Raster.Dir = dir
	c.Analysis.Workers = 1
	c.Analysis.AdvisoryThresholdPct = 10
	c.Report.Format = "console"
	c.Report.OutputDir = dir
	c.Batch.MaxConcurrent = 2
	c.Server.Port = 8080
	c.Server.MaxUploadMB = 1
	c.Server.AllowedOrigins = []string{"*"}

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

const ndviGrid = `ncols 2
nrows 2
xllcorner 0
yllcorner 0
cellsize 100
NODATA_value -9999
-1.0 0.1
0.5 -9999
`

// writeGrid writes an ASCII grid file and returns its path.
func writeGrid(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
