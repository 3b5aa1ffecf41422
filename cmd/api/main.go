package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/counseling-booking/internal/api/router"
	"github.com/wolfman30/counseling-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/counseling-booking/internal/config"
	"github.com/wolfman30/counseling-booking/internal/http/handlers"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting counseling-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"api_base_url", cfg.APIBaseURL,
	)

	ctx := context.Background()
	store, closeStore, err := bootstrap.BuildDraftStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize draft store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	metricsHandler, wizardMetrics := setupMetrics()
	wizardHandler := bootstrap.BuildWizardHandler(cfg, store, wizardMetrics, logger)

	// Setup router
	r := newRouter(cfg, wizardHandler, metricsHandler, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.HTTPTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// writeTimeout leaves room for one outbound call. A zero HTTPTimeout means
// outbound calls have no deadline, so responses get none either.
func writeTimeout(outbound time.Duration) time.Duration {
	if outbound <= 0 {
		return 0
	}
	return outbound + 15*time.Second
}

func setupMetrics() (http.Handler, *metrics.WizardMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewWizardMetrics(reg)
}

func newRouter(cfg *appconfig.Config, wh *handlers.WizardHandler, metricsHandler http.Handler, logger *logging.Logger) http.Handler {
	return router.New(&router.Config{
		Logger:             logger,
		WizardHandler:      wh,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
}
