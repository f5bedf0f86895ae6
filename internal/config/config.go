package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Raster   RasterConfig   `yaml:"raster" mapstructure:"raster"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the analysis history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// ConnectAttempts bounds retries while the database is unreachable.
	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// RasterConfig locates the index layers to analyze.
type RasterConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Files lists the layers to load from Dir. A list keeps the layer
	// names' case, which viper drops from map keys.
	Files []LayerFile `yaml:"files" mapstructure:"files"`
	// Kind forces the interpretation kind for every layer ("ndvi" or
	// "other"). Empty infers it from the layer name.
	Kind string `yaml:"kind" mapstructure:"kind"`
}

// LayerFile names one raster file under RasterConfig.Dir.
type LayerFile struct {
	Name string `yaml:"name" mapstructure:"name"`
	File string `yaml:"file" mapstructure:"file"`
}

// FileMap returns the layers as layer name → file name.
func (r RasterConfig) FileMap() map[string]string {
	files := make(map[string]string, len(r.Files))
	for _, f := range r.Files {
		files[f.Name] = f.File
	}
	return files
}

// AnalysisConfig tunes the statistics engine.
type AnalysisConfig struct {
	Workers              int     `yaml:"workers" mapstructure:"workers"`
	ParallelMinPixels    int     `yaml:"parallel_min_pixels" mapstructure:"parallel_min_pixels"`
	NoDataTolerance      float64 `yaml:"nodata_tolerance" mapstructure:"nodata_tolerance"`
	AdvisoryThresholdPct float64 `yaml:"advisory_threshold_pct" mapstructure:"advisory_threshold_pct"`
}

// ReportConfig selects how results are rendered.
type ReportConfig struct {
	Format    string `yaml:"format" mapstructure:"format"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// BatchConfig configures multi-layer runs.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Report formats understood by the report package.
var reportFormats = map[string]bool{
	"console": true,
	"json":    true,
	"xlsx":    true,
	"png":     true,
	"shp":     true,
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VEGINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "vegindex.db")
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("raster.dir", ".")
	v.SetDefault("raster.files", []map[string]any{{"name": "NDVI", "file": "NDVI.asc"}})
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.parallel_min_pixels", 1_000_000)
	v.SetDefault("analysis.nodata_tolerance", 0.0)
	v.SetDefault("analysis.advisory_threshold_pct", 10.0)
	v.SetDefault("report.format", "console")
	v.SetDefault("report.output_dir", ".")
	v.SetDefault("batch.max_concurrent", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Known modes are
// "analyze", "batch" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Analysis.Workers < 1 {
		errs = append(errs, "analysis.workers must be >= 1")
	}
	if c.Analysis.NoDataTolerance < 0 {
		errs = append(errs, "analysis.nodata_tolerance must be >= 0")
	}
	if c.Analysis.AdvisoryThresholdPct < 0 || c.Analysis.AdvisoryThresholdPct > 100 {
		errs = append(errs, "analysis.advisory_threshold_pct must be between 0 and 100")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	for i, f := range c.Raster.Files {
		if f.Name == "" || f.File == "" {
			errs = append(errs, fmt.Sprintf("raster.files[%d] needs name and file", i))
		}
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	switch mode {
	case "analyze":
		if !reportFormats[c.Report.Format] {
			errs = append(errs, fmt.Sprintf("report.format %q is not supported", c.Report.Format))
		}
	case "batch":
		if c.Batch.MaxConcurrent < 1 {
			errs = append(errs, "batch.max_concurrent must be >= 1")
		}
		if !reportFormats[c.Report.Format] {
			errs = append(errs, fmt.Sprintf("report.format %q is not supported", c.Report.Format))
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.MaxUploadMB < 1 {
			errs = append(errs, "server.max_upload_mb must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
