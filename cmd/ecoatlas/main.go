package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vjranagit/ecoatlas/internal/config"
	"github.com/vjranagit/ecoatlas/pkg/catalog"
	"github.com/vjranagit/ecoatlas/pkg/fetcher"
	"github.com/vjranagit/ecoatlas/pkg/pipeline"
	"github.com/vjranagit/ecoatlas/pkg/ranking"
	"github.com/vjranagit/ecoatlas/pkg/resolver"
	"github.com/vjranagit/ecoatlas/pkg/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.3.0"

// cli carries state shared by every subcommand of one invocation
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:     "ecoatlas",
		Short:   "Environmental and socio-economic indicator dashboard",
		Version: version,
		Long: `ecoatlas charts per-country indicators (vegetation, forest area, emissions,
disasters, governance, population) from a relational or embedded store.

Serve the HTTP API with "ecoatlas serve" or render a single chart from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			c.cfg = cfg

			c.logger, err = buildLogger(cfg.Logging, c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newChartCmd(c, pipeline.ViewTrend),
		newChartCmd(c, pipeline.ViewCompiled),
		newChartCmd(c, pipeline.ViewRegion),
		newChartCmd(c, pipeline.ViewRanking),
		newMetricsCmd(c),
		newImportCmd(c),
	)
	return root
}

func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// app is the wired dashboard over an open store
type app struct {
	store     storage.StoreWriter
	catalog   *catalog.Catalog
	resolver  *resolver.Resolver
	dashboard *pipeline.Dashboard
}

func (c *cli) openApp() (*app, error) {
	store, err := storage.NewStorage(c.cfg.ToStorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cat := catalog.Default()
	if c.cfg.Catalog.Path != "" {
		if cat, err = cat.LoadOverlayFile(c.cfg.Catalog.Path); err != nil {
			store.Close()
			return nil, err
		}
	}

	res := resolver.New(store,
		resolver.WithCache(resolver.NewEntityCache(c.cfg.Cache.Capacity, c.cfg.Cache.TTL)),
		resolver.WithLogger(c.logger.Named("resolver")))
	f := fetcher.New(store, fetcher.DefaultSchema())
	d := pipeline.New(cat, res, f, ranking.New(res, f, c.cfg.Ranking.DefaultN),
		pipeline.WithLogger(c.logger.Named("pipeline")),
		pipeline.WithConcurrency(c.cfg.Server.Concurrency))

	c.logger.Debug("Storage opened",
		zap.String("driver", c.cfg.Storage.Driver),
		zap.String("path", c.cfg.Storage.Path))

	return &app{store: store, catalog: cat, resolver: res, dashboard: d}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
