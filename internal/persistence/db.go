// Package persistence stores game snapshots, the action log and round
// history in SQLite.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/holdco/internal/engine"
)

// ErrGameNotFound is returned when no saved game has the requested id.
var ErrGameNotFound = errors.New("game not found")

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		holdco_name TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		round INTEGER NOT NULL,
		max_rounds INTEGER NOT NULL,
		phase TEXT NOT NULL,
		game_over INTEGER NOT NULL,
		bankrupt INTEGER NOT NULL,
		grade TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS round_history (
		game_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		cash INTEGER NOT NULL,
		total_debt INTEGER NOT NULL,
		revenue INTEGER NOT NULL,
		ebitda INTEGER NOT NULL,
		opcos INTEGER NOT NULL,
		distress TEXT NOT NULL,
		event_kind TEXT NOT NULL,
		value_per_share REAL NOT NULL,
		actions INTEGER NOT NULL,
		PRIMARY KEY (game_id, round)
	);

	CREATE TABLE IF NOT EXISTS actions (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		round INTEGER NOT NULL,
		kind TEXT NOT NULL,
		record_json TEXT NOT NULL,
		PRIMARY KEY (game_id, seq)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_actions_round ON actions(game_id, round);
	CREATE INDEX IF NOT EXISTS idx_games_updated ON games(updated_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveGame writes the snapshot, appends new action-log entries and upserts
// the round history.
func (db *DB) SaveGame(st *engine.GameState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	grade := ""
	if st.FinalScore != nil {
		grade = st.FinalScore.Grade
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO games
		(id, seed, holdco_name, difficulty, round, max_rounds, phase, game_over, bankrupt, grade, version, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.GameID, st.Seed, st.HoldcoName, st.Difficulty, st.Round, st.MaxRounds, st.Phase,
		boolInt(st.GameOver), boolInt(st.Bankrupt), grade, st.Version, string(stateJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", st.GameID, err)
	}

	if err := saveRounds(tx, st); err != nil {
		return err
	}
	if err := saveActions(tx, st); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('last_game', ?)", st.GameID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Debug("game saved", "game", st.GameID, "round", st.Round, "actions", len(st.ActionLog))
	return nil
}

func saveRounds(tx *sqlx.Tx, st *engine.GameState) error {
	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO round_history
		(game_id, round, cash, total_debt, revenue, ebitda, opcos, distress, event_kind, value_per_share, actions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare round insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range st.RoundHistory {
		_, err := stmt.Exec(st.GameID, r.Round, r.Cash, r.TotalDebt, r.Revenue, r.Ebitda, r.Opcos,
			r.Distress.String(), string(r.EventKind), r.ValuePerShare, r.Actions)
		if err != nil {
			return fmt.Errorf("insert round %d: %w", r.Round, err)
		}
	}
	return nil
}

// saveActions inserts the tail of the action log not yet stored. The log is
// append-only, so the stored row count is the resume point.
func saveActions(tx *sqlx.Tx, st *engine.GameState) error {
	var stored int
	if err := tx.Get(&stored, "SELECT COUNT(*) FROM actions WHERE game_id = ?", st.GameID); err != nil {
		return fmt.Errorf("count actions: %w", err)
	}
	if stored >= len(st.ActionLog) {
		return nil
	}

	stmt, err := tx.Preparex("INSERT INTO actions (game_id, seq, round, kind, record_json) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare action insert: %w", err)
	}
	defer stmt.Close()

	for i := stored; i < len(st.ActionLog); i++ {
		rec := st.ActionLog[i]
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal action %d: %w", i, err)
		}
		if _, err := stmt.Exec(st.GameID, i, rec.Round, string(rec.Action.Kind()), string(data)); err != nil {
			return fmt.Errorf("insert action %d: %w", i, err)
		}
	}
	return nil
}

// LoadGame restores a saved game, migrating older snapshots.
func (db *DB) LoadGame(id string) (*engine.Game, error) {
	var stateJSON string
	err := db.conn.Get(&stateJSON, "SELECT state_json FROM games WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}

	var st engine.GameState
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", id, err)
	}

	var rows []string
	if err := db.conn.Select(&rows, "SELECT record_json FROM actions WHERE game_id = ? ORDER BY seq", id); err != nil {
		return nil, fmt.Errorf("load actions %s: %w", id, err)
	}
	st.ActionLog = make([]engine.ActionRecord, 0, len(rows))
	for i, raw := range rows {
		var rec engine.ActionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode action %d: %w", i, err)
		}
		st.ActionLog = append(st.ActionLog, rec)
	}

	return engine.Load(&st), nil
}

// LastGameID returns the id of the most recently saved game.
func (db *DB) LastGameID() (string, error) {
	var id string
	err := db.conn.Get(&id, "SELECT value FROM meta WHERE key = 'last_game'")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrGameNotFound
	}
	return id, err
}

// GameSummary is one row of the saved-games listing.
type GameSummary struct {
	ID         string `db:"id" json:"id"`
	Seed       int64  `db:"seed" json:"seed"`
	HoldcoName string `db:"holdco_name" json:"holdco_name"`
	Difficulty string `db:"difficulty" json:"difficulty"`
	Round      int    `db:"round" json:"round"`
	MaxRounds  int    `db:"max_rounds" json:"max_rounds"`
	Phase      string `db:"phase" json:"phase"`
	GameOver   bool   `db:"game_over" json:"game_over"`
	Bankrupt   bool   `db:"bankrupt" json:"bankrupt"`
	Grade      string `db:"grade" json:"grade,omitempty"`
	UpdatedAt  string `db:"updated_at" json:"updated_at"`
}

// ListGames returns saved games, most recently updated first.
func (db *DB) ListGames(limit int) ([]GameSummary, error) {
	var games []GameSummary
	err := db.conn.Select(&games, `SELECT id, seed, holdco_name, difficulty, round, max_rounds, phase,
		game_over, bankrupt, grade, updated_at FROM games ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// RoundRow is one stored round of a game's history.
type RoundRow struct {
	Round         int     `db:"round" json:"round"`
	Cash          int64   `db:"cash" json:"cash"`
	TotalDebt     int64   `db:"total_debt" json:"total_debt"`
	Revenue       int64   `db:"revenue" json:"revenue"`
	Ebitda        int64   `db:"ebitda" json:"ebitda"`
	Opcos         int     `db:"opcos" json:"opcos"`
	Distress      string  `db:"distress" json:"distress"`
	EventKind     string  `db:"event_kind" json:"event_kind,omitempty"`
	ValuePerShare float64 `db:"value_per_share" json:"value_per_share"`
	Actions       int     `db:"actions" json:"actions"`
}

// RoundHistory returns a game's stored rounds in order.
func (db *DB) RoundHistory(gameID string) ([]RoundRow, error) {
	var rows []RoundRow
	err := db.conn.Select(&rows, `SELECT round, cash, total_debt, revenue, ebitda, opcos, distress,
		event_kind, value_per_share, actions FROM round_history WHERE game_id = ? ORDER BY round`, gameID)
	if err != nil {
		return nil, fmt.Errorf("round history %s: %w", gameID, err)
	}
	return rows, nil
}

// ActionsForRound returns the decoded actions logged in one round.
func (db *DB) ActionsForRound(gameID string, round int) ([]engine.ActionRecord, error) {
	var raw []string
	if err := db.conn.Select(&raw, "SELECT record_json FROM actions WHERE game_id = ? AND round = ? ORDER BY seq", gameID, round); err != nil {
		return nil, fmt.Errorf("actions %s round %d: %w", gameID, round, err)
	}
	out := make([]engine.ActionRecord, 0, len(raw))
	for _, r := range raw {
		var rec engine.ActionRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
