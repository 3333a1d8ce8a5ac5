// Package relay bridges one telephony media stream with one conversational
// AI gateway session: two concurrent pumps, transcript reconciliation,
// barge-in handling, and per-turn usage accounting.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kpr17ch/aivoicechat/internal/audio"
	"github.com/kpr17ch/aivoicechat/internal/realtime"
	"github.com/kpr17ch/aivoicechat/internal/store"
	"github.com/kpr17ch/aivoicechat/internal/transcript"
	"github.com/kpr17ch/aivoicechat/internal/usage"
)

// Socket is the subset of *websocket.Conn the relay drives.
type Socket interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Persister receives conversation snapshots, idempotent by stream SID.
type Persister interface {
	UpsertSnapshot(ctx context.Context, snap store.Snapshot) error
}

// SettingsSupplier provides the assistant configuration at session start.
type SettingsSupplier interface {
	AssistantSettings(ctx context.Context) (store.AssistantSettings, error)
}

// Deps wires one session's collaborators.
type Deps struct {
	Logger         *slog.Logger
	Telephony      Socket
	DialGateway    func(ctx context.Context) (Socket, error)
	Settings       SettingsSupplier
	Persister      Persister
	Recorder       *audio.SegmentRecorder
	TranscriptsDir string
	Model          string
	Azure          bool

	// Temperature applies when the stored assistant settings carry none.
	Temperature float64
}

// Session lifecycle states.
const (
	stateInitialized = "initialized"
	stateActive      = "active"
	stateClosed      = "closed"
)

const transcriptionFailedText = "[Transkription fehlgeschlagen]"

// Session coordinates one call: it owns the session state, runs both pumps,
// and performs the final flush.
type Session struct {
	log       *slog.Logger
	deps      Deps
	telephony *sockWriter
	gateway   *sockWriter

	transcript *transcript.Aggregator
	usage      *usage.Accountant
	recorder   *audio.SegmentRecorder

	// latestMediaTS is the telephony clock in ms, written by the inbound
	// pump and read by the outbound pump for truncation math.
	latestMediaTS atomic.Int64

	mu                      sync.Mutex
	state                   string
	streamSID               string
	startedAt               time.Time
	lastUserText            string
	lastUserNormalized      string
	lastAssistantText       string
	lastAssistantNormalized string
	playingItemID           string
	baselineTS              int64
	marks                   []string

	finalOnce sync.Once
}

// New creates a session in the Initialized state.
func New(deps Deps) *Session {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = audio.NewSegmentRecorder("", false)
	}
	return &Session{
		log:        log,
		deps:       deps,
		telephony:  newSockWriter(deps.Telephony),
		transcript: transcript.NewAggregator(),
		usage:      usage.NewAccountant(),
		recorder:   deps.Recorder,
		state:      stateInitialized,
		baselineTS: -1,
	}
}

// Run configures the remote session and drives both pumps until either
// socket ends. It returns an error only for fatal startup conditions; once
// the pumps are running, failures degrade the relay but Run returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateInitialized {
		s.mu.Unlock()
		return fmt.Errorf("session already %s", s.state)
	}
	s.state = stateActive
	s.mu.Unlock()

	settings, err := s.deps.Settings.AssistantSettings(ctx)
	if err != nil {
		return fmt.Errorf("fetch assistant settings: %w", err)
	}

	gatewayConn, err := s.deps.DialGateway(ctx)
	if err != nil {
		return err
	}
	s.gateway = newSockWriter(gatewayConn)

	if err := s.configureGateway(settings); err != nil {
		s.gateway.close()
		return err
	}

	s.log.Info("session configured",
		"voice", settings.Voice,
		"temperature", settings.Temperature,
		"greeting", settings.GreetingMessage != "")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.pumpInbound()
		s.gateway.close()
	}()
	go func() {
		defer wg.Done()
		s.pumpOutbound()
		s.telephony.close()
	}()
	wg.Wait()

	s.gateway.close()
	s.telephony.close()

	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()

	s.recorder.Finalize("connection_closed")
	s.finalOnce.Do(func() {
		s.persistSnapshot(context.Background(), "connection_closed", true)
	})

	s.log.Info("session closed", "stream_sid", s.currentStreamSID())
	return nil
}

// configureGateway sends the session-configure command and, when a greeting
// is set, enqueues the initial greeting turn. Failure here is fatal: no
// pumps start without a configured remote session.
func (s *Session) configureGateway(settings store.AssistantSettings) error {
	temperature := settings.Temperature
	if temperature <= 0 {
		temperature = s.deps.Temperature
	}
	cmd, err := realtime.SessionUpdate(s.deps.Azure, s.deps.Model, realtime.SessionConfig{
		Voice:        settings.Voice,
		Instructions: settings.SystemInstructions,
		Temperature:  temperature,
	})
	if err != nil {
		return fmt.Errorf("build session update: %w", err)
	}
	if err := s.gateway.send(cmd); err != nil {
		return fmt.Errorf("configure gateway session: %w", err)
	}

	if settings.GreetingMessage == "" {
		return nil
	}
	item, err := realtime.GreetingItem(settings.GreetingMessage)
	if err != nil {
		return fmt.Errorf("build greeting item: %w", err)
	}
	if err := s.gateway.send(item); err != nil {
		return fmt.Errorf("send greeting item: %w", err)
	}
	create, err := realtime.ResponseCreate()
	if err != nil {
		return fmt.Errorf("build response create: %w", err)
	}
	if err := s.gateway.send(create); err != nil {
		return fmt.Errorf("request greeting response: %w", err)
	}
	return nil
}

func (s *Session) currentStreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// sockWriter serializes writes to one socket and tracks its closed state so
// both pumps can close the other side safely.
type sockWriter struct {
	mu     sync.Mutex
	conn   Socket
	closed atomic.Bool
}

func newSockWriter(conn Socket) *sockWriter {
	return &sockWriter{conn: conn}
}

var errSocketClosed = fmt.Errorf("socket closed")

func (w *sockWriter) send(data []byte) error {
	if w.closed.Load() {
		return errSocketClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *sockWriter) close() {
	if w.closed.CompareAndSwap(false, true) {
		w.conn.Close()
	}
}

func (w *sockWriter) open() bool {
	return !w.closed.Load()
}
