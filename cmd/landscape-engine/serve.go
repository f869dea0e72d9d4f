// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/progress"
	"github.com/pdiddy/landscape-engine/internal/server"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research API",
	Long: `Serve starts the HTTP API. POST /api/runs starts a run in the background;
poll GET /api/runs/{id} for progress, then fetch /result or /report.
Run state lives in memory or Redis (server.progress_backend) and expires
after server.retention.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}
	if !a.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openProgressStore(a.cfg.Server)
	if err != nil {
		return err
	}
	defer store.Close()
	if mem, ok := store.(*progress.MemoryStore); ok {
		go mem.Janitor(ctx, time.Minute)
	}

	runner, err := a.runner()
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{
		Runner:   runner,
		Keywords: a.keywords,
		Store:    store,
		Log:      a.log,
		Gatherer: a.registry,
		Status: func() server.Status {
			st := server.Status{
				Sources:        a.collector.Sources(),
				AIEnabled:      a.client != nil,
				BreakerTripped: a.breaker.Tripped(),
			}
			if a.client != nil {
				st.Model = a.client.Model()
			}
			return st
		},
	})
	if err != nil {
		return err
	}

	a.log.Info("starting server",
		logger.String("addr", a.cfg.Server.Addr),
		logger.String("progress_backend", string(a.cfg.Server.ProgressBackend)),
	)
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}

func openProgressStore(cfg types.ServerConfig) (progress.Store, error) {
	if cfg.ProgressBackend == types.ProgressRedis {
		return progress.DialRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Retention)
	}
	return progress.NewMemoryStore(cfg.Retention), nil
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
