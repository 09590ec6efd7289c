package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/cfile"
	"github.com/discochess/cfile/internal/config"
	"github.com/discochess/cfile/internal/stats"
	"github.com/discochess/cfile/internal/stats/logger"
	promstats "github.com/discochess/cfile/internal/stats/prometheus"
)

var (
	// Global flags.
	configFile string
	verbose    bool
	sniff      bool

	// Set up by setup for the running command.
	arena    *cfile.Arena
	log      *zap.Logger
	registry *prometheus.Registry
)

var rootCmd = &cobra.Command{
	Use:   "cfile",
	Short: "Read and write plain, gzip, bzip2, xz, lzo, zstd and lz4 files alike",
	Long: `cfile opens files through the backend their name (or, with --sniff, their
content) calls for, and offers the same line and block operations for all
of them.

Examples:
  # Print a compressed log
  cfile cat access.log.bz2

  # Re-encode between formats
  cfile convert dump.sql.gz dump.sql.xz

  # Uncompressed sizes without decompressing where the format allows
  cfile size *.xz *.gz`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&sniff, "sniff", false, "pick read backends by file content")
}

// setup loads the configuration and builds the logger, stats collector and
// arena shared by every command.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if cmd.Flags().Changed("sniff") {
		cfg.IO.Sniffing = sniff
	}

	log, err = newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	registry = nil
	var collector stats.Collector = stats.NewNoop()
	switch cfg.Metrics.Sink {
	case "log":
		collector = logger.New(log.Named("stats"))
	case "prometheus":
		registry = prometheus.NewRegistry()
		collector = promstats.New(registry)
	}

	opts := append(cfg.Options(),
		cfile.WithLogger(log.Named("cfile")),
		cfile.WithStats(collector),
	)
	arena = cfile.NewArena(opts...)
	return nil
}

// teardown closes whatever the command left open and dumps metrics when
// the prometheus sink is selected.
func teardown(cmd *cobra.Command) error {
	var err error
	if arena != nil {
		err = arena.Close()
	}
	if registry != nil {
		families, gerr := registry.Gather()
		if gerr != nil {
			return gerr
		}
		for _, mf := range families {
			if _, werr := expfmt.MetricFamilyToText(cmd.ErrOrStderr(), mf); werr != nil {
				return werr
			}
		}
	}
	if log != nil {
		_ = log.Sync()
	}
	return err
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, err := lc.ZapLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
