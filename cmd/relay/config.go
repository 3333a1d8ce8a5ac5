package main

import "github.com/kpr17ch/aivoicechat/internal/env"

type config struct {
	port               string
	databaseURL        string
	openaiAPIKey       string
	realtimeURL        string
	realtimeModel      string
	temperature        float64
	enableRecording    bool
	recordingsDir      string
	transcriptsDir     string
	maxConcurrentCalls int
}

func loadConfig() config {
	return config{
		port:               env.Str("PORT", "5050"),
		databaseURL:        env.Str("DATABASE_URL", ""),
		openaiAPIKey:       env.Str("OPENAI_API_KEY", ""),
		realtimeURL:        env.Str("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		realtimeModel:      env.Str("OPENAI_REALTIME_MODEL", "gpt-realtime"),
		temperature:        env.Float("CONVERSATION_TEMPERATURE", 0.8),
		enableRecording:    env.Bool("ENABLE_AUDIO_RECORDING", false),
		recordingsDir:      env.Str("RECORDINGS_DIR", "recordings"),
		transcriptsDir:     env.Str("TRANSCRIPTS_DIR", "transcripts"),
		maxConcurrentCalls: env.Int("MAX_CONCURRENT_CALLS", 100),
	}
}
