package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"itchbook/internal/api/rest"
	"itchbook/internal/config"
	"itchbook/internal/infra/health"
	"itchbook/internal/infra/http/middleware"
	"itchbook/internal/infra/log"
	"itchbook/internal/infra/metrics"
	"itchbook/internal/infra/netutil"
	"itchbook/internal/infra/runner"
	"itchbook/internal/infra/version"
	"itchbook/internal/orderbook"
	"itchbook/internal/replay"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	book := orderbook.New(cfg.Book.Symbol,
		orderbook.WithTickSize(cfg.Book.TickSize),
		orderbook.WithQueueCapacity(cfg.Book.QueueCapacity),
		orderbook.WithIdleSleep(time.Duration(cfg.Book.IdleSleepUs)*time.Microsecond),
		orderbook.WithLogger(logger),
	)

	// Init metrics and start HTTP endpoint
	registry := metrics.Init(logger)
	mux := http.NewServeMux()
	mux.Handle("/book/", rest.New(book).Handler())
	// admin endpoints (metrics, pprof) behind IP allowlist gate
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	// wrap mux with middlewares (request id and logging)
	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	if err := book.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start book driver")
	}

	logger.Info().Str("symbol", book.Symbol()).Str("addr", cfg.Server.Addr).Msg("itchbook started")

	// replay worker, if a capture file is configured
	g := &runner.Group{}
	var workerErrCh <-chan error
	if cfg.Replay.File != "" {
		workerErrCh = g.Go(ctx, func(ctx context.Context) error {
			player := replay.New(cfg, book, logger)
			return player.Run(ctx)
		})
	}

	// mark ready once the driver is consuming
	health.SetReady(true)

	// Wait for termination signals or worker error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-workerErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("replay error")
			health.SetReady(false)
		} else {
			logger.Info().Msg("replay complete")
		}
	}

	// mark not ready, drain the book, then stop the admin plane
	health.SetReady(false)
	cancel()
	g.Wait()
	if err := book.Stop(); err != nil {
		logger.Error().Err(err).Msg("book stop failed")
	}
	if bid, ok := book.BestBid(); ok {
		logger.Info().Float64("best_bid", bid.Float64()).Msg("final top of book")
	}
	if ask, ok := book.BestAsk(); ok {
		logger.Info().Float64("best_ask", ask.Float64()).Msg("final top of book")
	}
	logger.Info().Int("resting_orders", book.Depth()).Msg("final book depth")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
