// Package store persists conversation snapshots and assistant settings to
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store wraps the conversation database.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL at connStr and applies pending migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot is one conversation state upsert, idempotent by stream SID.
// Empty strings and zero times mean "unknown, keep what is stored".
type Snapshot struct {
	StreamSID         string
	State             string
	TurnCount         int
	TranscriptJSON    []byte
	TranscriptText    string
	StartedAt         time.Time
	EndedAt           time.Time
	LastUserText      string
	LastAssistantText string
	UserPhone         string
	Metadata          []byte
}

// UpsertSnapshot creates or updates the stored conversation row. Merge
// rules: user_phone is only set while empty, started_at keeps the earliest
// value, latest texts and transcript blobs keep the stored value when the
// incoming one is empty, metadata is merged key-by-key.
func (s *Store) UpsertSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.StreamSID == "" {
		return errors.New("upsert snapshot: empty stream sid")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_sessions (
			stream_sid, state, turn_count, user_phone,
			latest_user_text, latest_assistant_text,
			transcript_json, transcript_text, metadata_json,
			started_at, ended_at, duration_seconds,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, NULLIF($4, ''),
			NULLIF($5, ''), NULLIF($6, ''),
			$7, NULLIF($8, ''), $9,
			COALESCE($10, now()), $11,
			CASE WHEN $11::timestamptz IS NOT NULL AND $10::timestamptz IS NOT NULL
				THEN GREATEST(EXTRACT(EPOCH FROM ($11::timestamptz - $10::timestamptz))::int, 0)
			END,
			now(), now()
		)
		ON CONFLICT (stream_sid) DO UPDATE SET
			state = EXCLUDED.state,
			turn_count = EXCLUDED.turn_count,
			user_phone = COALESCE(conversation_sessions.user_phone, EXCLUDED.user_phone),
			latest_user_text = COALESCE(EXCLUDED.latest_user_text, conversation_sessions.latest_user_text),
			latest_assistant_text = COALESCE(EXCLUDED.latest_assistant_text, conversation_sessions.latest_assistant_text),
			transcript_json = COALESCE(EXCLUDED.transcript_json, conversation_sessions.transcript_json),
			transcript_text = COALESCE(EXCLUDED.transcript_text, conversation_sessions.transcript_text),
			metadata_json = COALESCE(conversation_sessions.metadata_json, '{}'::jsonb) || COALESCE(EXCLUDED.metadata_json, '{}'::jsonb),
			started_at = LEAST(conversation_sessions.started_at, EXCLUDED.started_at),
			ended_at = COALESCE(EXCLUDED.ended_at, conversation_sessions.ended_at),
			duration_seconds = CASE
				WHEN COALESCE(EXCLUDED.ended_at, conversation_sessions.ended_at) IS NOT NULL
				THEN GREATEST(EXTRACT(EPOCH FROM (
					COALESCE(EXCLUDED.ended_at, conversation_sessions.ended_at)
					- LEAST(conversation_sessions.started_at, EXCLUDED.started_at)))::int, 0)
			END,
			updated_at = now()`,
		snap.StreamSID, snap.State, snap.TurnCount, snap.UserPhone,
		snap.LastUserText, snap.LastAssistantText,
		nullBytes(snap.TranscriptJSON), snap.TranscriptText, nullBytes(snap.Metadata),
		nullTime(snap.StartedAt), nullTime(snap.EndedAt))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snap.StreamSID, err)
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// AssistantSettings configures the remote session at call start.
type AssistantSettings struct {
	Voice              string
	SystemInstructions string
	GreetingMessage    string
	Temperature        float64
}

// DefaultAssistantSettings are used when no row has been seeded.
func DefaultAssistantSettings() AssistantSettings {
	return AssistantSettings{
		Voice:              "sage",
		SystemInstructions: "Du bist ein hilfreicher KI-Assistent.",
		Temperature:        0.8,
	}
}

// AssistantSettings returns the stored settings row, or defaults when the
// table is empty.
func (s *Store) AssistantSettings(ctx context.Context) (AssistantSettings, error) {
	var settings AssistantSettings
	row := s.db.QueryRowContext(ctx, `
		SELECT voice, system_instructions, COALESCE(greeting_message, ''), temperature
		FROM assistant_settings ORDER BY id LIMIT 1`)
	err := row.Scan(&settings.Voice, &settings.SystemInstructions, &settings.GreetingMessage, &settings.Temperature)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultAssistantSettings(), nil
	}
	if err != nil {
		return AssistantSettings{}, fmt.Errorf("load assistant settings: %w", err)
	}
	return settings, nil
}

// SeedAssistantSettings inserts settings when no row exists yet. Returns
// true when a row was created.
func (s *Store) SeedAssistantSettings(ctx context.Context, settings AssistantSettings) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assistant_settings (voice, system_instructions, greeting_message, temperature)
		SELECT $1, $2, NULLIF($3, ''), $4
		WHERE NOT EXISTS (SELECT 1 FROM assistant_settings)`,
		settings.Voice, settings.SystemInstructions, settings.GreetingMessage, settings.Temperature)
	if err != nil {
		return false, fmt.Errorf("seed assistant settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
