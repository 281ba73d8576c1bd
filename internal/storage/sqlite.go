// Package storage records matches in SQLite so they can be listed and
// replayed. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/wire"
)

// ErrMatchNotFound is returned when a match id is unknown.
var ErrMatchNotFound = errors.New("storage: match not found")

// Store manages the SQLite database connection for match recordings.
type Store struct {
	db *sql.DB
}

// MatchInfo describes a match when recording starts.
type MatchInfo struct {
	MatchID     string
	Mode        string // "local", "online", "simulate"
	Fingerprint uint64
	Player1     string
	Player2     string
}

// MatchOutcome is written when a match ends.
type MatchOutcome struct {
	EndReason string
	Rounds    int
	Ticks     uint64
	FinalHash uint64
	Score1    int
	Score2    int
}

// MatchRecord is one row of the matches table.
type MatchRecord struct {
	ID          int64
	MatchID     string
	Mode        string
	Fingerprint uint64
	Player1     string
	Player2     string
	StartedAt   time.Time
	EndedAt     time.Time // zero while the match is running
	EndReason   string
	Rounds      int
	Ticks       uint64
	FinalHash   uint64
	Score1      int
	Score2      int
}

// Finished reports whether FinishMatch has been called for the match.
func (r MatchRecord) Finished() bool { return !r.EndedAt.IsZero() }

// TimedCommand is a command together with the tick it was applied at.
type TimedCommand struct {
	Tick    uint64
	Command game.Command
}

// Keyframe is a stored snapshot.
type Keyframe struct {
	Tick     uint64
	Hash     uint64
	Snapshot game.Snapshot
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
// Hashes and fingerprints are stored as hex text: SQLite integers are
// signed 64-bit.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			player1 TEXT NOT NULL DEFAULT '',
			player2 TEXT NOT NULL DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			end_reason TEXT NOT NULL DEFAULT '',
			rounds INTEGER NOT NULL DEFAULT 0,
			ticks INTEGER NOT NULL DEFAULT 0,
			final_hash TEXT NOT NULL DEFAULT '',
			score1 INTEGER NOT NULL DEFAULT 0,
			score2 INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_matches_started ON matches(started_at DESC);

		CREATE TABLE IF NOT EXISTS match_commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL REFERENCES matches(match_id),
			tick INTEGER NOT NULL,
			player INTEGER NOT NULL,
			field INTEGER NOT NULL,
			value INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_match_commands_match ON match_commands(match_id, tick, id);

		CREATE TABLE IF NOT EXISTS match_keyframes (
			match_id TEXT NOT NULL REFERENCES matches(match_id),
			tick INTEGER NOT NULL,
			hash TEXT NOT NULL,
			snapshot BLOB NOT NULL,
			PRIMARY KEY (match_id, tick)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateMatch starts a recording.
func (s *Store) CreateMatch(info MatchInfo) error {
	_, err := s.db.Exec(
		`INSERT INTO matches (match_id, mode, fingerprint, player1, player2)
		 VALUES (?, ?, ?, ?, ?)`,
		info.MatchID, info.Mode, formatHash(info.Fingerprint), info.Player1, info.Player2,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot create match %s: %w", info.MatchID, err)
	}
	return nil
}

// RecordCommand appends a command applied at tick. Commands for the same
// tick are replayed in the order they were recorded.
func (s *Store) RecordCommand(matchID string, tick uint64, cmd game.Command) error {
	_, err := s.db.Exec(
		`INSERT INTO match_commands (match_id, tick, player, field, value) VALUES (?, ?, ?, ?, ?)`,
		matchID, int64(tick), int(cmd.Player), int(cmd.Field), cmd.Value, //nolint:gosec // ticks stay far below 2^63
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record command: %w", err)
	}
	return nil
}

// RecordCommands appends many commands in one transaction.
func (s *Store) RecordCommands(matchID string, cmds []TimedCommand) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare(
		`INSERT INTO match_commands (match_id, tick, player, field, value) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cmds {
		//nolint:gosec // ticks stay far below 2^63
		if _, err := stmt.Exec(matchID, int64(c.Tick), int(c.Command.Player), int(c.Command.Field), c.Command.Value); err != nil {
			return fmt.Errorf("storage: cannot record command: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit commands: %w", err)
	}
	return nil
}

// SaveKeyframe stores a snapshot and its hash. Saving the same tick twice
// replaces the earlier keyframe.
func (s *Store) SaveKeyframe(matchID string, snap game.Snapshot) error {
	blob, err := wire.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO match_keyframes (match_id, tick, hash, snapshot) VALUES (?, ?, ?, ?)`,
		matchID, int64(snap.Tick), formatHash(snap.Hash()), blob, //nolint:gosec // ticks stay far below 2^63
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save keyframe: %w", err)
	}
	return nil
}

// FinishMatch writes the outcome of a match.
func (s *Store) FinishMatch(matchID string, out MatchOutcome) error {
	res, err := s.db.Exec(
		`UPDATE matches
		 SET ended_at = CURRENT_TIMESTAMP, end_reason = ?, rounds = ?, ticks = ?,
		     final_hash = ?, score1 = ?, score2 = ?
		 WHERE match_id = ?`,
		out.EndReason, out.Rounds, int64(out.Ticks), formatHash(out.FinalHash), //nolint:gosec // ticks stay far below 2^63
		out.Score1, out.Score2, matchID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot finish match: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return nil
}

const matchColumns = `id, match_id, mode, fingerprint, player1, player2, started_at, ended_at,
	end_reason, rounds, ticks, final_hash, score1, score2`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (MatchRecord, error) {
	var (
		r                      MatchRecord
		startedAt, endedAt     any
		fingerprint, finalHash string
		ticks                  int64
	)
	if err := row.Scan(
		&r.ID, &r.MatchID, &r.Mode, &fingerprint, &r.Player1, &r.Player2,
		&startedAt, &endedAt, &r.EndReason, &r.Rounds, &ticks, &finalHash,
		&r.Score1, &r.Score2,
	); err != nil {
		return MatchRecord{}, err
	}
	r.StartedAt = parseTime(startedAt)
	r.EndedAt = parseTime(endedAt)
	r.Ticks = uint64(ticks) //nolint:gosec // written from a uint64
	r.Fingerprint = parseHash(fingerprint)
	r.FinalHash = parseHash(finalHash)
	return r, nil
}

// Match retrieves a match by its match id.
func (s *Store) Match(matchID string) (MatchRecord, error) {
	r, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, matchID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return MatchRecord{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return MatchRecord{}, fmt.Errorf("storage: cannot query match: %w", err)
	}
	return r, nil
}

// RecentMatches retrieves the most recent matches, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		r, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// Commands returns a match's commands in replay order.
func (s *Store) Commands(matchID string) ([]TimedCommand, error) {
	rows, err := s.db.Query(
		`SELECT tick, player, field, value FROM match_commands
		 WHERE match_id = ? ORDER BY tick, id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query commands: %w", err)
	}
	defer rows.Close()

	var cmds []TimedCommand
	for rows.Next() {
		var (
			tick          int64
			player, field uint8
			value         bool
		)
		if err := rows.Scan(&tick, &player, &field, &value); err != nil {
			return nil, fmt.Errorf("storage: cannot scan command: %w", err)
		}
		cmds = append(cmds, TimedCommand{
			Tick:    uint64(tick), //nolint:gosec // written from a uint64
			Command: game.Input(game.PlayerID(player), game.InputField(field), value),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return cmds, nil
}

// Keyframes returns a match's keyframes in tick order.
func (s *Store) Keyframes(matchID string) ([]Keyframe, error) {
	rows, err := s.db.Query(
		`SELECT tick, hash, snapshot FROM match_keyframes WHERE match_id = ? ORDER BY tick`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query keyframes: %w", err)
	}
	defer rows.Close()

	var frames []Keyframe
	for rows.Next() {
		var (
			tick int64
			hash string
			blob []byte
		)
		if err := rows.Scan(&tick, &hash, &blob); err != nil {
			return nil, fmt.Errorf("storage: cannot scan keyframe: %w", err)
		}
		snap, err := wire.UnmarshalSnapshot(blob)
		if err != nil {
			return nil, fmt.Errorf("storage: keyframe at tick %d: %w", tick, err)
		}
		frames = append(frames, Keyframe{
			Tick:     uint64(tick), //nolint:gosec // written from a uint64
			Hash:     parseHash(hash),
			Snapshot: snap,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return frames, nil
}

// StartRecording implements multiplayer.MatchRecorder.
func (s *Store) StartRecording(data multiplayer.MatchStartData) error {
	return s.CreateMatch(MatchInfo{
		MatchID:     data.MatchID,
		Mode:        data.Mode,
		Fingerprint: data.Fingerprint,
		Player1:     data.Player1Session,
		Player2:     data.Player2Session,
	})
}

// SaveMatchResult implements multiplayer.MatchRecorder.
// This adapter lets the coordinator record matches without a direct storage dependency.
func (s *Store) SaveMatchResult(data multiplayer.MatchResultData) error {
	return s.FinishMatch(data.MatchID, MatchOutcome{
		EndReason: data.EndReason,
		Rounds:    data.Rounds,
		Ticks:     data.Ticks,
		FinalHash: data.FinalHash,
		Score1:    data.Score1,
		Score2:    data.Score2,
	})
}

// Ensure Store implements MatchRecorder
var _ multiplayer.MatchRecorder = (*Store)(nil)

func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func parseHash(s string) uint64 {
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return h
}

// parseTime handles both time.Time and string, depending on how the driver
// returns DATETIME columns.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
