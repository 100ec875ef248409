// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/progress"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Keys of the JSON blobs in the kv table.
const (
	KeyProgress = "progress"
	KeySettings = "settings"
)

// ErrNotFound is returned when a blob has never been saved.
var ErrNotFound = errors.New("store: not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store wraps SQLite access for progress and the rounds log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single connection serializes writers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			sent TEXT NOT NULL,
			received TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			edit_distance INTEGER NOT NULL,
			unlocked_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			round_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			expected TEXT NOT NULL,
			answered TEXT NOT NULL,
			correct INTEGER NOT NULL,
			PRIMARY KEY (round_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_ended_at ON rounds(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_expected ON attempts(expected);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) getBlob(ctx context.Context, key string, dst any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.UnmarshalFromString(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) putBlob(ctx context.Context, key string, v any) error {
	raw, err := json.MarshalToString(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadProgress returns the saved progress. ErrNotFound means none was saved;
// a decode error means the blob is corrupt.
func (s *Store) LoadProgress(ctx context.Context) (*progress.State, error) {
	state := progress.NewState()
	if err := s.getBlob(ctx, KeyProgress, state); err != nil {
		return nil, err
	}
	state.Normalize()
	return state, nil
}

// SaveProgress replaces the saved progress.
func (s *Store) SaveProgress(ctx context.Context, state progress.State) error {
	return s.putBlob(ctx, KeyProgress, state)
}

// LoadSettings returns the saved settings on top of the defaults.
func (s *Store) LoadSettings(ctx context.Context) (model.Settings, error) {
	settings := model.DefaultSettings()
	if err := s.getBlob(ctx, KeySettings, &settings); err != nil {
		return model.DefaultSettings(), err
	}
	return settings, nil
}

// SaveSettings replaces the saved settings.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	return s.putBlob(ctx, KeySettings, settings)
}

// RecordRound appends a scored round and its attempts to the log.
func (s *Store) RecordRound(ctx context.Context, round model.RoundRecord) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO rounds (session_id, mode, started_at, ended_at, sent, received, correct, incorrect, edit_distance, unlocked_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.SessionID,
		string(round.Mode),
		round.StartedAt.UTC().Format(time.RFC3339Nano),
		round.EndedAt.UTC().Format(time.RFC3339Nano),
		round.Sent,
		round.Received,
		round.Correct,
		round.Incorrect,
		round.EditDistance,
		round.UnlockedCount,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(round.Attempts) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO attempts (round_id, position, expected, answered, correct) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, a := range round.Attempts {
			correct := 0
			if a.Correct {
				correct = 1
			}
			if _, err := stmt.ExecContext(ctx, id, a.Position, a.Expected, a.Answered, correct); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRounds returns round aggregates filtered by stats config, oldest first.
func (s *Store) ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(cfg.Mode))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, session_id, mode, ended_at, correct, incorrect, edit_distance, unlocked_count
		FROM rounds
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var rounds []model.RoundAggregate
	for rows.Next() {
		var agg model.RoundAggregate
		var mode, endedAt string
		if err := rows.Scan(&agg.RoundID, &agg.SessionID, &mode, &endedAt, &agg.Correct, &agg.Incorrect, &agg.EditDistance, &agg.UnlockedCount); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.Mode = model.Mode(mode)
		agg.EndedAt = parsed
		rounds = append(rounds, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

// LastRoundAt returns when the most recent round ended.
func (s *Store) LastRoundAt(ctx context.Context) (time.Time, error) {
	var endedAt string
	err := s.db.QueryRowContext(ctx, `SELECT ended_at FROM rounds ORDER BY ended_at DESC LIMIT 1`).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, endedAt)
}

// ListCharAggregatesForRounds aggregates per-glyph attempts across rounds.
func (s *Store) ListCharAggregatesForRounds(ctx context.Context, roundIDs []int64) ([]model.CharAggregate, error) {
	if len(roundIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(roundIDs)
	query := fmt.Sprintf(`SELECT expected, SUM(correct) AS correct, SUM(1 - correct) AS incorrect
		FROM attempts
		WHERE round_id IN (%s)
		GROUP BY expected`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CharAggregate
	for rows.Next() {
		var agg model.CharAggregate
		if err := rows.Scan(&agg.Char, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListCharStatsForRounds returns per-round stats for selected glyphs.
func (s *Store) ListCharStatsForRounds(ctx context.Context, roundIDs []int64, chars []string) (map[int64]map[string]model.CharAggregate, error) {
	if len(roundIDs) == 0 || len(chars) == 0 {
		return map[int64]map[string]model.CharAggregate{}, nil
	}
	idPlaceholders, args := inClause(roundIDs)
	charPlaceholders := make([]string, len(chars))
	for i, ch := range chars {
		charPlaceholders[i] = "?"
		args = append(args, ch)
	}

	query := fmt.Sprintf(`SELECT round_id, expected, SUM(correct), SUM(1 - correct)
		FROM attempts
		WHERE round_id IN (%s) AND expected IN (%s)
		GROUP BY round_id, expected`, idPlaceholders, strings.Join(charPlaceholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64]map[string]model.CharAggregate{}
	for rows.Next() {
		var roundID int64
		var agg model.CharAggregate
		if err := rows.Scan(&roundID, &agg.Char, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		if _, ok := result[roundID]; !ok {
			result[roundID] = map[string]model.CharAggregate{}
		}
		result[roundID][agg.Char] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteRounds clears the rounds log.
func (s *Store) DeleteRounds(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM attempts`, `DELETE FROM rounds`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
