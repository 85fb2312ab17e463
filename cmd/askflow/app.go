package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/askflow/agent"
	"github.com/BaSui01/askflow/config"
	"github.com/BaSui01/askflow/internal/cache"
	"github.com/BaSui01/askflow/internal/metrics"
	"github.com/BaSui01/askflow/internal/procexec"
	"github.com/BaSui01/askflow/internal/server"
	"github.com/BaSui01/askflow/internal/telemetry"
	"github.com/BaSui01/askflow/llm"
	"github.com/BaSui01/askflow/notify"
	"github.com/BaSui01/askflow/pipeline"
	"github.com/BaSui01/askflow/report"
	"github.com/BaSui01/askflow/search"
	"github.com/BaSui01/askflow/workflow"
)

// app 持有一次运行所需的全部组件
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers
	cache     *cache.Manager
	model     *llm.OllamaClient
	pipeline  *pipeline.Pipeline
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = providers

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.collector = metrics.NewCollectorWithRegistry(cfg.Metrics.Namespace, a.registry, logger)

	// 检索链：psearch → 可选缓存 → 带超时的执行器 → 扇出
	var searcher search.Searcher = search.NewCommandSearcher(cfg.Search.Command, procexec.NewRunner(0, logger), logger)
	if cfg.Cache.Enabled {
		mgr, err := cache.NewManager(cfg.Cache, logger)
		if err != nil {
			logger.Warn("search cache unavailable, continuing without it", zap.Error(err))
		} else {
			a.cache = mgr
			searcher = search.NewCachedSearcher(searcher, mgr, cfg.Search.CacheTTL, logger,
				search.WithCacheRecorder(a.collector))
		}
	}
	executor := search.NewExecutor(searcher, cfg.Search.TaskTimeout, logger, search.WithRecorder(a.collector))

	querier := agent.NewCLIQuerier(cfg.Agent, procexec.NewRunner(cfg.Agent.Timeout, logger), logger)

	fanoutOpts := []search.FanoutOption{search.WithFanoutRecorder(a.collector)}
	if cfg.Search.Fallback {
		fanoutOpts = append(fanoutOpts, search.WithFallback(agent.NewWebSearchFallback(querier, logger)))
	}
	fanout := search.NewFanout(executor, search.FanoutConfig{
		Workers:     cfg.Search.Workers,
		ResultLimit: cfg.Search.ResultLimit,
	}, logger, fanoutOpts...)

	a.model = llm.NewOllamaClient(cfg.LLM, nil, logger, llm.WithRequestRecorder(a.collector))

	deps := pipeline.Deps{
		Generator: a.model,
		Querier:   querier,
		Search:    fanout,
	}
	if cfg.Report.Dir != "" {
		deps.Sink = report.NewFileSink(cfg.Report.Dir, logger)
	}
	if cfg.Pipeline.Notify {
		deps.Deliverer = notify.New(cfg.Notify, logger, notify.WithRecorder(a.collector))
	}

	p, err := pipeline.New(cfg.Pipeline, deps, logger, workflow.WithStepRecorder(a.collector))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p
	return a, nil
}

// Run 运行流程；启用指标时同时在 errgroup 中提供 /metrics，
// 流程结束后关闭该端点。
func (a *app) Run(ctx context.Context, question string) (workflow.State, error) {
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	if a.cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = a.cfg.Metrics.ListenAddr
		health := func(ctx context.Context) error {
			_, err := a.model.CheckModel(ctx)
			return err
		}
		srv := server.NewManager(server.NewMetricsHandler(a.registry, health), srvCfg, a.logger)
		g.Go(func() error {
			return srv.Serve(serveCtx)
		})
	}

	var (
		state  workflow.State
		runErr error
	)
	g.Go(func() error {
		defer stopServing()
		state, runErr = a.pipeline.Run(gctx, question)
		return nil
	})

	if err := g.Wait(); err != nil {
		return state, errors.Join(runErr, err)
	}
	return state, runErr
}

// Close 释放外部连接并刷新遥测数据
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close cache", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

type healthCheck struct {
	Name   string
	Detail string
	Err    error
}

type healthReport []healthCheck

func (r healthReport) Healthy() bool {
	for _, c := range r {
		if c.Err != nil {
			return false
		}
	}
	return true
}

// checkHealth 检查模型是否已拉取以及外部工具是否在 PATH 中
func checkHealth(ctx context.Context, cfg *config.Config, logger *zap.Logger) healthReport {
	var results healthReport

	model := llm.NewOllamaClient(cfg.LLM, nil, logger)
	status, err := model.CheckModel(ctx)
	check := healthCheck{Name: "model", Err: err}
	if err == nil {
		check.Detail = fmt.Sprintf("%s (%s)", status.Model, status.Latency.Round(time.Millisecond))
	}
	results = append(results, check)

	for _, bin := range []struct{ name, path string }{
		{"search", cfg.Search.Command.Binary},
		{"agent", cfg.Agent.Binary},
	} {
		path, err := exec.LookPath(bin.path)
		results = append(results, healthCheck{Name: bin.name, Detail: path, Err: err})
	}

	if cfg.Cache.Enabled {
		check := healthCheck{Name: "cache", Detail: cfg.Cache.Addr}
		mgr, err := cache.NewManager(cfg.Cache, logger)
		if err == nil {
			err = mgr.Ping(ctx)
			_ = mgr.Close()
		}
		check.Err = err
		results = append(results, check)
	}
	return results
}
