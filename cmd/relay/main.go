package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kpr17ch/aivoicechat/internal/realtime"
	"github.com/kpr17ch/aivoicechat/internal/store"
	"github.com/kpr17ch/aivoicechat/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	if cfg.openaiAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	if cfg.databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := store.Open(cfg.databaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	handler := ws.NewHandler(ws.HandlerConfig{
		Backend: db,
		Realtime: realtime.DialConfig{
			URL:    cfg.realtimeURL,
			APIKey: cfg.openaiAPIKey,
			Model:  cfg.realtimeModel,
		},
		RecordingsDir:   cfg.recordingsDir,
		EnableRecording: cfg.enableRecording,
		TranscriptsDir:  cfg.transcriptsDir,
		Temperature:     cfg.temperature,
		MaxConcurrent:   cfg.maxConcurrentCalls,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{cfg: cfg, wsHandler: handler})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("relay starting",
		"addr", addr,
		"model", cfg.realtimeModel,
		"max_concurrent", cfg.maxConcurrentCalls,
		"recording", cfg.enableRecording)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("relay stopped")
}
