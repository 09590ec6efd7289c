// Package cfilefx provides an fx module for a cfile arena.
package cfilefx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/cfile"
	"github.com/discochess/cfile/internal/config"
	"github.com/discochess/cfile/internal/stats"
	"github.com/discochess/cfile/internal/stats/logger"
	promstats "github.com/discochess/cfile/internal/stats/prometheus"
)

// Module provides a *cfile.Arena that is closed when the application
// stops, together with the stats.Collector it reports to.
// Requires a config.Config and a *zap.Logger to be provided. A
// prometheus.Registerer may be provided for the "prometheus" sink;
// otherwise the default registerer is used.
var Module = fx.Module("cfile",
	fx.Provide(
		newStatsCollector,
		newArena,
	),
)

// StatsParams holds dependencies for creating the collector.
type StatsParams struct {
	fx.In

	Config     config.Config
	Logger     *zap.Logger
	Registerer prometheus.Registerer `optional:"true"`
}

func newStatsCollector(p StatsParams) stats.Collector {
	switch p.Config.Metrics.Sink {
	case "log":
		return logger.New(p.Logger.Named("cfile.stats"))
	case "prometheus":
		reg := p.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		return promstats.New(reg)
	default:
		return stats.NewNoop()
	}
}

// Params holds dependencies for creating the arena.
type Params struct {
	fx.In

	Config    config.Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided arena.
type Result struct {
	fx.Out

	Arena *cfile.Arena
}

func newArena(p Params) (Result, error) {
	if err := p.Config.Validate(); err != nil {
		return Result{}, err
	}

	opts := append(p.Config.Options(),
		cfile.WithLogger(p.Logger.Named("cfile")),
		cfile.WithStats(p.Collector),
	)
	arena := cfile.NewArena(opts...)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return arena.Close()
		},
	})

	return Result{Arena: arena}, nil
}
