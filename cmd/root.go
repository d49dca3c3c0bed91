package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2mtiles-go/internal/auxquery"
	"github.com/wegman-software/osm2mtiles-go/internal/build"
	"github.com/wegman-software/osm2mtiles-go/internal/config"
	"github.com/wegman-software/osm2mtiles-go/internal/logger"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

// flag values, applied on top of the loaded configuration
var (
	dataPath        string
	fromFile        string
	schemaFile      string
	logFile         string
	workers         int
	metricsInterval time.Duration
	verbose         bool
	dryRun          bool
	keep            bool
	intermediate    bool
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "osm2mtiles",
	Short: "Compile OSM data into vector tile map files",
	Long: `osm2mtiles cuts the world into zoom-7 areas and compiles each one into
a self-contained map file holding vector tiles down to zoom 14 and a
searchable feature index.

Configuration is read from the environment (DATA_PATH, MAP_TARGET_PATH,
SOURCE_PBF, DATA_DB_DSN, PREFERRED_LANGUAGES, ...) and an optional
osm2mtiles.yaml; flags override both.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("data-path") {
			loaded.DataPath = dataPath
		}
		if flags.Changed("from-file") {
			loaded.FromFile = fromFile
		}
		if flags.Changed("log-file") {
			loaded.LogFile = logFile
		}
		if flags.Changed("workers") {
			loaded.Workers = workers
		}
		if flags.Changed("metrics-interval") {
			loaded.MetricsInterval = metricsInterval
		}
		loaded.Verbose = verbose
		loaded.DryRun = dryRun
		loaded.Keep = keep
		loaded.Intermediate = intermediate
		cfg = loaded

		logger.Init(cfg.Verbose, cfg.LogFile)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	def := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&dataPath, "data-path", def.DataPath, "Scratch directory for extracts and intermediate files")
	flags.StringVar(&fromFile, "from-file", "", "Build from this PBF instead of extracting the area")
	flags.StringVar(&schemaFile, "schema", "", "Tag schema YAML (default: built-in)")
	flags.IntVarP(&workers, "workers", "j", def.Workers, "Number of parallel workers")
	flags.BoolVar(&dryRun, "dry-run", false, "Build but do not replace the published map")
	flags.BoolVar(&keep, "keep", false, "Keep scratch files")
	flags.BoolVar(&intermediate, "intermediate", false, "Dump filtered elements to Parquet")

	flags.StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	flags.DurationVar(&metricsInterval, "metrics-interval", def.MetricsInterval, "Interval for system metrics logging (e.g., 10s, 1m)")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Get().Info("Received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func loadSchema() (*schema.Schema, error) {
	if schemaFile != "" {
		return schema.LoadFile(schemaFile)
	}
	return schema.Default()
}

// newDriver wires a build driver, connecting to the auxiliary database when
// one is configured. The returned func releases the connection.
func newDriver(ctx context.Context) (*build.Driver, func(), error) {
	s, err := loadSchema()
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get()
	if cfg.DataDBDSN == "" {
		log.Warn("DATA_DB_DSN not set, skipping auxiliary layers")
		return build.NewDriver(cfg, s, nil, log), func() {}, nil
	}
	pool, err := auxquery.Connect(ctx, cfg.DataDBDSN)
	if err != nil {
		return nil, nil, err
	}
	return build.NewDriver(cfg, s, pool, log), pool.Close, nil
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
