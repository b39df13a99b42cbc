// Package store provides SQLite-based persistent storage for the reward
// engine. Grounded wholesale on the original infra/sqlite package: WAL
// mode, a single-connection pool (SQLite is single-writer), and an
// idempotent CREATE TABLE IF NOT EXISTS migration list — its
// models/node_info/tasks/peers schema is replaced with this engine's user,
// XP, RP, staking, referral-graph, effect, event-dedup, claim, and
// dead-letter tables.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/reward_engine.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "reward_engine.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Begin starts a transaction — the ledger and propagator need
// single-transaction semantics across multiple tables (claim's
// exactly-once rule, and the all-ancestor-credits-commit-or-none-do rule
// for referral propagation).
// The returned Tx exposes the user and claim methods (GetUser, UpsertUser,
// GetClaim, InsertClaim) so callers compose multi-table writes without
// duplicating SQL; the other per-entity methods exist only on DB.
func (d *DB) Begin() (*Tx, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Tx is a transaction-scoped handle. Commit or Rollback exactly once.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id               TEXT PRIMARY KEY,
			status                TEXT NOT NULL,
			kyc_verified          BOOLEAN NOT NULL DEFAULT 0,
			mining_phase_entry    INTEGER,
			cumulative_earned     INTEGER NOT NULL DEFAULT 0,
			pending_balance       INTEGER NOT NULL DEFAULT 0,
			last_accrual_ts       INTEGER,
			last_daily_reset_ts   INTEGER,
			daily_accrued_amount  INTEGER NOT NULL DEFAULT 0,
			streak_days           INTEGER NOT NULL DEFAULT 0,
			last_activity_ts      INTEGER,
			suspected_bot         BOOLEAN NOT NULL DEFAULT 0,
			created_at            INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_status ON users(status)`,

		`CREATE TABLE IF NOT EXISTS xp_state (
			user_id            TEXT PRIMARY KEY REFERENCES users(user_id),
			total_xp           INTEGER NOT NULL DEFAULT 0,
			level              INTEGER NOT NULL DEFAULT 1,
			streak_days        INTEGER NOT NULL DEFAULT 0,
			last_streak_date   TEXT NOT NULL DEFAULT '',
			daily_activity_tz  TEXT NOT NULL DEFAULT 'UTC',
			daily_counts_json  TEXT NOT NULL DEFAULT '{}',
			daily_count_date   TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS rp_state (
			user_id              TEXT PRIMARY KEY REFERENCES users(user_id),
			total_rp             INTEGER NOT NULL DEFAULT 0,
			tier                 TEXT NOT NULL DEFAULT 'EXPLORER',
			referrer_id          TEXT NOT NULL DEFAULT '',
			direct_count         INTEGER NOT NULL DEFAULT 0,
			indirect_count       INTEGER NOT NULL DEFAULT 0,
			great_indirect_count INTEGER NOT NULL DEFAULT 0,
			active_referrals     INTEGER NOT NULL DEFAULT 0,
			network_quality      REAL NOT NULL DEFAULT 0,
			direct_rp_raw        INTEGER NOT NULL DEFAULT 0,
			indirect_rp_raw      INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS referral_edges (
			user_id     TEXT PRIMARY KEY REFERENCES users(user_id),
			referrer_id TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referral_referrer ON referral_edges(referrer_id)`,

		`CREATE TABLE IF NOT EXISTS staking_state (
			user_id          TEXT PRIMARY KEY REFERENCES users(user_id),
			staked           INTEGER NOT NULL DEFAULT 0,
			tier             TEXT NOT NULL DEFAULT 'NONE',
			lifecycle        TEXT NOT NULL DEFAULT 'UNSTAKED',
			stake_start_ts   INTEGER,
			last_claim_ts    INTEGER,
			loyalty_months   INTEGER NOT NULL DEFAULT 0,
			pending_rewards  INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS effects (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     TEXT NOT NULL REFERENCES users(user_id),
			source      TEXT NOT NULL,
			class       TEXT NOT NULL,
			mining_num  INTEGER NOT NULL,
			mining_den  INTEGER NOT NULL,
			xp_num      INTEGER NOT NULL,
			xp_den      INTEGER NOT NULL,
			rp_num      INTEGER NOT NULL,
			rp_den      INTEGER NOT NULL,
			start_at    INTEGER NOT NULL,
			expiry      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_effects_user ON effects(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_effects_expiry ON effects(expiry)`,

		`CREATE TABLE IF NOT EXISTS events (
			user_id             TEXT NOT NULL,
			external_id         TEXT NOT NULL,
			platform            TEXT NOT NULL,
			activity_type       TEXT NOT NULL,
			timestamp           INTEGER NOT NULL,
			content_fingerprint TEXT NOT NULL DEFAULT '',
			likes               INTEGER NOT NULL DEFAULT 0,
			comments            INTEGER NOT NULL DEFAULT 0,
			shares              INTEGER NOT NULL DEFAULT 0,
			views               INTEGER NOT NULL DEFAULT 0,
			device_info         TEXT NOT NULL DEFAULT '',
			sequence            INTEGER NOT NULL,
			ingested_at         INTEGER NOT NULL,
			PRIMARY KEY (user_id, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_seq ON events(user_id, sequence)`,

		`CREATE TABLE IF NOT EXISTS claims (
			user_id      TEXT NOT NULL,
			claim_nonce  TEXT NOT NULL,
			amount       INTEGER NOT NULL,
			settled_at   INTEGER NOT NULL,
			PRIMARY KEY (user_id, claim_nonce)
		)`,

		`CREATE TABLE IF NOT EXISTS dead_letters (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			payload     TEXT NOT NULL,
			attempts    INTEGER NOT NULL,
			last_error  TEXT NOT NULL DEFAULT '',
			failed_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dead_letters_user ON dead_letters(user_id)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromNullable(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(n.Int64, 0).UTC()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation reports whether err came from a PRIMARY KEY/UNIQUE
// constraint failure. modernc.org/sqlite surfaces these as plain errors
// rather than a typed sentinel, so callers match on the SQLite message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
