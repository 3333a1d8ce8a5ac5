// Package ws accepts telephony media stream connections and hands each one
// to a relay session.
package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kpr17ch/aivoicechat/internal/audio"
	"github.com/kpr17ch/aivoicechat/internal/metrics"
	"github.com/kpr17ch/aivoicechat/internal/realtime"
	"github.com/kpr17ch/aivoicechat/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Backend bundles the persistence operations a session needs.
type Backend interface {
	relay.Persister
	relay.SettingsSupplier
}

// HandlerConfig holds the shared collaborators for all call sessions.
type HandlerConfig struct {
	Backend         Backend
	Realtime        realtime.DialConfig
	RecordingsDir   string
	EnableRecording bool
	TranscriptsDir  string
	Temperature     float64
	MaxConcurrent   int
}

// Handler manages media stream sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a handler with shared backends and a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// ServeHTTP upgrades the connection and runs the relay session.
// Returns 503 at max concurrent call capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	defer metrics.CallsActive.Dec()

	log := slog.With("conn_id", uuid.NewString())
	log.Info("call connected", "remote", r.RemoteAddr)

	sess := relay.New(relay.Deps{
		Logger:    log,
		Telephony: conn,
		DialGateway: func(ctx context.Context) (relay.Socket, error) {
			conn, err := realtime.Dial(ctx, h.cfg.Realtime)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		Settings:       h.cfg.Backend,
		Persister:      h.cfg.Backend,
		Recorder:       audio.NewSegmentRecorder(h.cfg.RecordingsDir, h.cfg.EnableRecording),
		TranscriptsDir: h.cfg.TranscriptsDir,
		Model:          h.cfg.Realtime.Model,
		Azure:          realtime.IsAzureHost(h.cfg.Realtime.URL),
		Temperature:    h.cfg.Temperature,
	})
	if err := sess.Run(r.Context()); err != nil {
		log.Error("session failed", "error", err)
		return
	}
	log.Info("call ended")
}
