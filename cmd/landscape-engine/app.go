// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/pdiddy/landscape-engine/internal/archive"
	"github.com/pdiddy/landscape-engine/internal/collect"
	"github.com/pdiddy/landscape-engine/internal/keywords"
	"github.com/pdiddy/landscape-engine/internal/llm"
	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/metrics"
	"github.com/pdiddy/landscape-engine/internal/normalize"
	"github.com/pdiddy/landscape-engine/internal/pipeline"
	"github.com/pdiddy/landscape-engine/internal/report"
	"github.com/pdiddy/landscape-engine/internal/source"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// app holds the components shared by every command.
type app struct {
	cfg      types.Config
	log      logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	breaker  *llm.Breaker

	// client is nil when no Anthropic API key is configured.
	client *llm.Client

	collector *collect.Collector
	keywords  *keywords.ModelProvider

	// archive is nil when output.archive_path is empty.
	archive *archive.Store
}

// newApp loads configuration and builds the shared components.
func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		metrics:  m,
		breaker:  llm.NewBreaker(m),
	}

	if cfg.AI.APIKey != "" {
		a.client, err = llm.NewClient(cfg.AI)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("no Anthropic API key configured; using basic analyses and statistical summaries")
	}

	a.collector = collect.New(source.FromConfig(cfg.Sources, log), normalize.Default().WithLog(log), log, m)
	a.keywords = keywords.NewModelProvider(a.client, a.breaker, keywords.DefaultDictionary(), log)

	if cfg.Output.ArchivePath != "" {
		a.archive, err = archive.Open(cfg.Output.ArchivePath, 0)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// runner builds a pipeline runner writing to the file sink and, when
// configured, the archive.
func (a *app) runner() (*pipeline.Runner, error) {
	var sink pipeline.ResultSink = report.NewFileSink(a.cfg.Output, a.log)
	if a.archive != nil {
		sink = report.MultiSink{sink, a.archive}
	}

	opts := pipeline.Options{
		Collector:   a.collector,
		Sink:        sink,
		AnalysisCap: a.cfg.Pipeline.AnalysisCap,
		Log:         a.log,
		Metrics:     a.metrics,
	}
	if a.client != nil {
		opts.Analyzer = llm.NewModelAnalyzer(a.client, a.breaker, a.log)
		opts.Summarizer = llm.WithBreaker(llm.NewModelSummarizer(a.client, a.log), a.breaker)
	}
	return pipeline.New(opts)
}

// close releases the archive and flushes the logger.
func (a *app) close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Warn("closing archive failed", logger.Err(err))
		}
	}
	_ = a.log.Sync()
}
