package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"code-critics/internal/admission"
	"code-critics/internal/config"
	"code-critics/internal/diff"
	"code-critics/internal/githost"
	"code-critics/internal/health"
	"code-critics/internal/llm"
	"code-critics/internal/review"
	"code-critics/internal/storage"
	"code-critics/internal/webhook"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {

	// Local development convenience; absent .env is fine
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	// Shared clients; safe for concurrent use, never reconfigured after start
	host := githost.NewClient(cfg.GitHub.Token, config.StatusContext)
	gateway := llm.NewGateway(context.Background(), cfg)
	if !gateway.Available() {
		slog.Error("no llm provider available; reviews will fail until keys are fixed")
	}

	// Optional review history
	var history storage.Repository
	if cfg.Storage.Driver == "sqlite" {
		var err error
		history, err = storage.NewSQLiteRepository(cfg.Storage.DSN)
		if err != nil {
			slog.Error("init storage failed", "error", err)
			os.Exit(1)
		}
		defer history.Close()
	} else if cfg.Storage.Driver != "" {
		slog.Warn("unknown storage driver", "driver", cfg.Storage.Driver)
	}

	adm := admission.NewController(cfg)
	fetcher := diff.NewFetcher(host, cfg.Review.FetchTimeout,
		int(float64(cfg.Review.MaxDiffSize)*cfg.Review.LargeDiffMultiplier))
	processor := diff.NewProcessor(cfg.Review.MaxDiffSize, cfg.Review.LargeDiffMultiplier,
		cfg.Review.ChunkSize, cfg.AllowedExtensionSet())
	oracle := review.NewOracle(host, cfg.Review.DedupWindow)
	publisher := review.NewPublisher(host, cfg.Review.PostTimeout)

	orchestrator := review.NewOrchestrator(cfg, adm, host, fetcher, processor, gateway, oracle, publisher, history)
	dispatcher := webhook.NewDispatcher(cfg, orchestrator, publisher)
	healthHandler := health.NewHandler(cfg, host, gateway, version)

	mux := http.NewServeMux()
	mux.Handle("/api/webhooks", dispatcher)
	mux.HandleFunc("/health", healthHandler.ServeHealth)
	mux.HandleFunc("/api/info", healthHandler.ServeInfo)
	mux.Handle("/metrics", promhttp.Handler())

	// Root path handler to catch misconfigured webhook URLs. Logs a hint
	// but still returns 404 to be semantically correct.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			slog.Warn("received request at root path",
				"method", r.Method,
				"msg", "please configure webhook URL to path '/api/webhooks'",
			)
		}
		http.NotFound(w, r)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "provider", gateway.ProviderName())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server start failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("server stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown forced", "error", err)
		os.Exit(1)
	}

	// Wait for background review jobs
	slog.Info("waiting for review jobs")
	done := make(chan struct{})
	go func() {
		dispatcher.WaitForCompletion()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("review jobs completed")
	case <-time.After(30 * time.Second):
		slog.Warn("job timeout, exiting")
	}

	slog.Info("server stopped")
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer
	outputs := strings.Split(cfg.Log.Output, ",")

	for _, output := range outputs {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}

		var w io.Writer
		switch output {
		case "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			// Use lumberjack for log rotation
			l := &lumberjack.Logger{
				Filename:   output,
				MaxSize:    cfg.Log.Rotation.MaxSize,
				MaxBackups: cfg.Log.Rotation.MaxBackups,
				MaxAge:     cfg.Log.Rotation.MaxAge,
				Compress:   cfg.Log.Rotation.Compress,
			}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	multiWriter := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	return slog.New(handler), cleanup
}
