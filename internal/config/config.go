package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process-wide build configuration. It is loaded once at
// startup and passed by pointer into component constructors; nothing mutates
// it after Validate.
type Config struct {
	// Paths
	DataPath       string // Scratch directory for extracts and intermediate files
	MapTargetPath  string // Output root for per-area map files and the index
	SourcePBF      string // Planet or region extract to cut areas from
	OsmconvertPath string // osmconvert binary used for area extraction
	FromFile       string // Use this PBF as-is instead of extracting

	// External databases
	StatsDBDSN string // Download statistics (used by the scheduler)
	DataDBDSN  string // PostGIS with pre-processed auxiliary layers

	// Pyramid
	MapStartZoom int // Zoom level of a map area root tile
	ZoomInterval int // Number of zoom levels below the root

	PreferredLanguages []string

	// Hillshade layer (built by a separate pipeline)
	HillshadePath    string
	HillshadeVersion int

	// Processing settings
	Workers int

	// Feature flags
	DryRun       bool // Build but do not promote the result
	Keep         bool // Keep scratch files
	Intermediate bool // Dump filtered elements to Parquet
	Verbose      bool

	// Logging and metrics
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataPath:           "./data",
		MapTargetPath:      "./maps",
		OsmconvertPath:     "osmconvert",
		MapStartZoom:       7,
		ZoomInterval:       7,
		PreferredLanguages: []string{"en", "de", "ru"},
		HillshadeVersion:   1,
		Workers:            runtime.NumCPU(),
		MetricsInterval:    30 * time.Second,
	}
}

// Load reads configuration from the environment and an optional
// osm2mtiles.yaml in the working directory, on top of DefaultConfig.
func Load() (*Config, error) {
	def := DefaultConfig()
	v := viper.New()

	v.SetConfigName("osm2mtiles")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("DATA_PATH", def.DataPath)
	v.SetDefault("MAP_TARGET_PATH", def.MapTargetPath)
	v.SetDefault("SOURCE_PBF", "")
	v.SetDefault("STATS_DB_DSN", "")
	v.SetDefault("DATA_DB_DSN", "")
	v.SetDefault("PREFERRED_LANGUAGES", strings.Join(def.PreferredLanguages, ","))
	v.SetDefault("OSMCONVERT_PATH", def.OsmconvertPath)
	v.SetDefault("MAP_START_ZOOM", def.MapStartZoom)
	v.SetDefault("ZOOM_INTERVAL", def.ZoomInterval)
	v.SetDefault("HILLSHADE_PATH", "")
	v.SetDefault("HILLSHADE_VERSION", def.HillshadeVersion)
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("WORKERS", def.Workers)
	v.SetDefault("METRICS_INTERVAL", def.MetricsInterval)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DataPath:           v.GetString("DATA_PATH"),
		MapTargetPath:      v.GetString("MAP_TARGET_PATH"),
		SourcePBF:          v.GetString("SOURCE_PBF"),
		OsmconvertPath:     v.GetString("OSMCONVERT_PATH"),
		StatsDBDSN:         v.GetString("STATS_DB_DSN"),
		DataDBDSN:          v.GetString("DATA_DB_DSN"),
		MapStartZoom:       v.GetInt("MAP_START_ZOOM"),
		ZoomInterval:       v.GetInt("ZOOM_INTERVAL"),
		PreferredLanguages: ParseLanguages(v.GetString("PREFERRED_LANGUAGES")),
		HillshadePath:      v.GetString("HILLSHADE_PATH"),
		HillshadeVersion:   v.GetInt("HILLSHADE_VERSION"),
		Workers:            v.GetInt("WORKERS"),
		LogFile:            v.GetString("LOG_PATH"),
		MetricsInterval:    v.GetDuration("METRICS_INTERVAL"),
	}
	return cfg, nil
}

// ParseLanguages splits a comma separated language list, dropping blanks.
func ParseLanguages(s string) []string {
	var langs []string
	for _, l := range strings.Split(s, ",") {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// LeafZoom returns the deepest zoom level built for an area.
func (c *Config) LeafZoom() int {
	return c.MapStartZoom + c.ZoomInterval
}

// AreaPath returns the final map file path for area (x, y).
func (c *Config) AreaPath(x, y int) string {
	return filepath.Join(c.MapTargetPath, fmt.Sprint(x), fmt.Sprintf("%d-%d.mtiles", x, y))
}

// IndexPath returns the path of the area index file.
func (c *Config) IndexPath() string {
	return filepath.Join(c.MapTargetPath, "index")
}

// BasemapPath returns the path of the world basemap file.
func (c *Config) BasemapPath() string {
	return filepath.Join(c.MapTargetPath, "basemap.mtiles")
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.SourcePBF == "" && c.FromFile == "" {
		return fmt.Errorf("source PBF is required (SOURCE_PBF or --from-file)")
	}
	if c.MapTargetPath == "" {
		return fmt.Errorf("map target path is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.MapStartZoom < 0 || c.ZoomInterval < 1 || c.LeafZoom() > 20 {
		return fmt.Errorf("invalid zoom range %d+%d", c.MapStartZoom, c.ZoomInterval)
	}
	return nil
}
