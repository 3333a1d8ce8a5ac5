// Command seed inserts the default assistant settings row when the
// assistant_settings table is empty. Safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/kpr17ch/aivoicechat/internal/env"
	"github.com/kpr17ch/aivoicechat/internal/store"
)

func main() {
	databaseURL := flag.String("database-url", env.Str("DATABASE_URL", ""), "PostgreSQL connection string")
	voice := flag.String("voice", "", "assistant voice (default from built-in settings)")
	instructions := flag.String("instructions", "", "system instructions override")
	greeting := flag.String("greeting", "", "greeting message override")
	temperature := flag.Float64("temperature", 0, "sampling temperature override")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if *databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := store.Open(*databaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	settings := store.DefaultAssistantSettings()
	if *voice != "" {
		settings.Voice = *voice
	}
	if *instructions != "" {
		settings.SystemInstructions = *instructions
	}
	if *greeting != "" {
		settings.GreetingMessage = *greeting
	}
	if *temperature > 0 {
		settings.Temperature = *temperature
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inserted, err := db.SeedAssistantSettings(ctx, settings)
	if err != nil {
		slog.Error("seed assistant settings", "error", err)
		os.Exit(1)
	}
	if inserted {
		slog.Info("assistant settings seeded", "voice", settings.Voice, "temperature", settings.Temperature)
		return
	}
	slog.Info("assistant settings already present, skipping")
}
