package sched

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/sizieks/parsers/pkg/models"
)

// Queue is a durable local scheduler backed by SQLite. Units are keyed by
// a hash over (handler, canonical value JSON), so a continuation that was
// already planned — by this run or an earlier one — is silently dropped
// instead of being fetched twice.
type Queue struct {
	db *sql.DB
}

// OpenQueue opens (and if needed creates) the queue database.
func OpenQueue(path string) (*Queue, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS units(
	  id         INTEGER PRIMARY KEY,
	  hash       TEXT    NOT NULL UNIQUE,
	  handler    TEXT    NOT NULL,
	  value_json TEXT    NOT NULL CHECK (json_valid(value_json)),
	  state      TEXT    NOT NULL DEFAULT 'pending' CHECK (state IN ('pending','done')),
	  created_at TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_units_state ON units(state);
	CREATE INDEX IF NOT EXISTS idx_units_handler ON units(handler);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create queue tables: %w", err)
	}

	return &Queue{db: db}, nil
}

// Close releases the database.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Schedule implements Scheduler. Duplicate units are dropped.
func (q *Queue) Schedule(ctx context.Context, unit models.WorkUnit) error {
	valueJSON, hash, err := canonical(unit)
	if err != nil {
		return err
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO units(hash, handler, value_json, created_at) VALUES(?,?,?,?)`,
		hash, unit.Handler, valueJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("schedule unit: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		log.Debug().Str("handler", unit.Handler).Msg("Duplicate unit dropped")
	} else {
		log.Debug().Str("handler", unit.Handler).Msg("Unit queued")
	}
	return nil
}

// QueuedUnit is one persisted unit awaiting execution.
type QueuedUnit struct {
	ID      int64
	Unit    models.WorkUnit
	Created string
}

// Next returns the oldest pending unit, or nil when the queue is drained.
func (q *Queue) Next(ctx context.Context) (*QueuedUnit, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, handler, value_json, created_at FROM units WHERE state = 'pending' ORDER BY id LIMIT 1`)

	var qu QueuedUnit
	var valueJSON string
	err := row.Scan(&qu.ID, &qu.Unit.Handler, &valueJSON, &qu.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next unit: %w", err)
	}
	if err := json.Unmarshal([]byte(valueJSON), &qu.Unit.Value); err != nil {
		return nil, fmt.Errorf("next unit: %w", err)
	}
	return &qu, nil
}

// Done marks a unit executed.
func (q *Queue) Done(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE units SET state = 'done' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete unit: %w", err)
	}
	return nil
}

// Pending counts units awaiting execution.
func (q *Queue) Pending(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM units WHERE state = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// List returns up to limit units, newest first, for inspection.
func (q *Queue) List(ctx context.Context, limit int) ([]QueuedUnit, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, handler, value_json, created_at FROM units ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []QueuedUnit
	for rows.Next() {
		var qu QueuedUnit
		var valueJSON string
		if err := rows.Scan(&qu.ID, &qu.Unit.Handler, &valueJSON, &qu.Created); err != nil {
			return nil, fmt.Errorf("list units: %w", err)
		}
		if err := json.Unmarshal([]byte(valueJSON), &qu.Unit.Value); err != nil {
			return nil, fmt.Errorf("list units: %w", err)
		}
		units = append(units, qu)
	}
	return units, rows.Err()
}

// canonical serializes the unit value with sorted keys and hashes it
// together with the handler name.
func canonical(unit models.WorkUnit) (string, string, error) {
	// encoding/json sorts map keys, which is exactly the canonical form
	// the dedup hash needs.
	raw, err := json.Marshal(unit.Value)
	if err != nil {
		return "", "", fmt.Errorf("canonicalize unit: %w", err)
	}

	sum := sha256.Sum256([]byte(unit.Handler + "\x00" + string(raw)))
	return string(raw), hex.EncodeToString(sum[:]), nil
}
