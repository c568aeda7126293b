package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creastat/wallet/config"
	"github.com/creastat/wallet/httpapi"
	"github.com/creastat/wallet/logger"
	"github.com/creastat/wallet/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cfg, loadErr := config.Load()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session HTTP API",
		Long: `Run the session HTTP API.

Restores any stored session on startup, then serves:

  GET  /session             current session
  POST /session/connect     request wallet access
  POST /session/disconnect  drop the session
  GET  /session/route       "/" or "/dashboard" for page redirects
  GET  /session/events      WebSocket feed of session changes
  GET  /metrics             Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	bindFlags(cmd, &cfg)
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "development mode (log to stderr, skip WebSocket origin check)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Init(logger.Config{DataDir: cfg.DataDir, DevMode: cfg.DevMode, Command: "serve"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	if rp, ok := a.provider.(*provider.RPCProvider); ok {
		go func() {
			select {
			case <-rp.Done():
				log.Warn("wallet bridge connection closed; wallet calls will fail until restart")
			case <-ctx.Done():
			}
		}()
	}

	state := a.manager.State()
	log.Info("session ready", "connected", state.Connected, "account", state.Account)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewRouter(a.manager,
			httpapi.WithLogger(log),
			httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
			httpapi.WithInsecureWebSocket(cfg.DevMode),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Addr, "store", cfg.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
