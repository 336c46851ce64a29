package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/vqs/internal/adapters/http/api"
	"github.com/okian/vqs/internal/adapters/source"
	app "github.com/okian/vqs/internal/app"
	"github.com/okian/vqs/internal/config"
	"github.com/okian/vqs/internal/domain/scoring"
	"github.com/okian/vqs/internal/fixtures"
	"github.com/okian/vqs/pkg/logger"
	"github.com/okian/vqs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var errNoSource = errors.New("no candidate source: set --db, --candidates, db_path or candidates_file")

var registerBuildInfo sync.Once

// runtimeEnv holds everything a ranking command needs.
type runtimeEnv struct {
	cfg     *config.Config
	log     logger.Logger
	svc     *app.Service
	closers []func(context.Context)
}

// setup loads configuration, initializes logging and metrics, opens the
// candidate source and builds the service.
func setup(cmd *cobra.Command, g *globalFlags, f *sourceFlags) (*runtimeEnv, error) {
	ctx := cmd.Context()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx, g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.metricsAddr != "" {
		cfg.MetricsAddr = g.metricsAddr
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if f.dbPath != "" {
		cfg.DBPath, cfg.CandidatesFile = f.dbPath, ""
	}
	if f.candidates != "" {
		cfg.CandidatesFile, cfg.DBPath = f.candidates, ""
	}
	if f.format != formatTable && f.format != formatJSON {
		return nil, fmt.Errorf("unknown format %q: want table or json", f.format)
	}

	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()
	env := &runtimeEnv{cfg: cfg, log: log}

	retriever, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := retriever.(interface{ Close() error }); ok {
		env.closers = append(env.closers, func(context.Context) { _ = closer.Close() })
	}

	scorer, err := scoring.New(scoring.WithConfig(cfg.Scoring.Config))
	if err != nil {
		env.close(ctx)
		return nil, fmt.Errorf("build scorer: %w", err)
	}

	svc, err := app.New(
		app.WithLogger(log),
		app.WithScorer(scorer),
		app.WithRetriever(retriever),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithTieBreak(cfg.TieBreak()),
		app.WithLimits(cfg.DefaultLimit, cfg.MaxLimit),
		app.WithRetrievalLimit(cfg.RetrievalLimit),
	)
	if err != nil {
		env.close(ctx)
		return nil, fmt.Errorf("build service: %w", err)
	}
	env.svc = svc

	if cfg.MetricsAddr != "" {
		registerBuildInfo.Do(func() {
			metrics.GetRegistry().MustRegister(collectors.NewBuildInfoCollector())
		})
		srv, err := api.Listen(ctx, cfg.MetricsAddr, api.NewServer(svc).Handler(), log)
		if err != nil {
			env.close(ctx)
			return nil, err
		}
		metricsCtx, stop := context.WithCancel(ctx)
		go startSystemMetricsUpdater(metricsCtx)
		env.closers = append(env.closers, func(ctx context.Context) {
			stop()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
			}
		})
	}
	return env, nil
}

// close releases resources in reverse order of acquisition.
func (e *runtimeEnv) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i](ctx)
	}
}

func openSource(ctx context.Context, cfg *config.Config) (source.Retriever, error) {
	switch {
	case cfg.DBPath != "":
		s, err := source.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return s, nil
	case cfg.CandidatesFile != "":
		s, err := source.OpenFile(cfg.CandidatesFile)
		if err != nil {
			return nil, fmt.Errorf("open candidates: %w", err)
		}
		return s, nil
	default:
		return nil, errNoSource
	}
}

func runRank(cmd *cobra.Command, g *globalFlags, f *sourceFlags, keyword string) error {
	env, err := setup(cmd, g, f)
	if err != nil {
		return err
	}
	defer env.close(cmd.Context())

	res := env.svc.Search(cmd.Context(), keyword, f.limit)
	if err := printResults(cmd.OutOrStdout(), f.format, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("rank %q: %s", res.Keyword, res.Message)
	}
	return nil
}

func runBatch(cmd *cobra.Command, g *globalFlags, f *sourceFlags, keywords []string) error {
	env, err := setup(cmd, g, f)
	if err != nil {
		return err
	}
	defer env.close(cmd.Context())

	ctx := cmd.Context()
	if err := env.svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := env.svc.Stop(stopCtx); err != nil {
			env.log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	results := env.svc.BatchSearch(ctx, keywords, f.limit)
	if err := printResults(cmd.OutOrStdout(), f.format, results...); err != nil {
		return err
	}

	var failed []string
	for _, res := range results {
		if !res.Success {
			failed = append(failed, res.Keyword)
		}
	}
	if len(failed) == len(results) {
		return fmt.Errorf("no keyword could be ranked: %s", strings.Join(failed, ", "))
	}
	return nil
}

func runGenerate(cmd *cobra.Command, f *generateFlags) error {
	ctx := cmd.Context()
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	videos, stats, err := fixtures.Generate(ctx, fixtures.Config{
		Keyword: f.keyword,
		Count:   f.count,
		Seed:    f.seed,
		Workers: f.workers,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return fmt.Errorf("create %s: %w", f.out, err)
		}
		defer file.Close()
		out = file
	}

	header := source.File{
		Keyword:     f.keyword,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := source.EncodeYAML(out, header, videos); err != nil {
		return err
	}

	if f.out != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d candidates for %q to %s\n", stats.Generated, f.keyword, f.out)
	}
	return nil
}

// startSystemMetricsUpdater periodically refreshes process metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
