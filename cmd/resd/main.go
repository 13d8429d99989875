package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/hydronet-sim/reservoir-core/internal/resd"
	"github.com/hydronet-sim/reservoir-core/pkg/logger"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

func main() {
	var addr string
	var logLevel string
	var logFormat string
	var webhookURL string
	var webhookSecret string
	var webhookBackoff string
	var corsOrigins string

	flag.StringVar(&addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	flag.StringVar(&webhookURL, "webhook-url", "", "default webhook URL notified when runs finish ({run_id} is substituted)")
	flag.StringVar(&webhookSecret, "webhook-secret", "", "secret sent in the X-Reservoir-Webhook-Secret header")
	flag.StringVar(&webhookBackoff, "webhook-backoff", "exponential", "webhook retry backoff (constant, linear, exponential)")
	flag.StringVar(&corsOrigins, "cors-origins", "*", "comma-separated list of allowed CORS origins")
	flag.Parse()

	if logFormat == "text" {
		logger.SetDefault(logger.NewText(logLevel, os.Stdout))
	} else {
		logger.SetDefault(logger.New(logLevel, os.Stdout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := resd.NewRunStore()
	notifier := resd.NewNotifierWithBackoff(utils.BackoffFromConfig(webhookBackoff, 1000, 30000))
	executor := resd.NewExecutor(store, notifier)
	if webhookURL != "" {
		executor.SetDefaultWebhook(webhookURL, webhookSecret)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(corsOrigins, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(resd.NewServer(store, executor).Router())

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	executor.Shutdown()
}
