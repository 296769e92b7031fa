package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/r3d91ll/urnlab/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence        INTEGER NOT NULL,
	participant_id  TEXT NOT NULL,
	completed       INTEGER NOT NULL,
	age             INTEGER,
	gender          TEXT,
	education_level TEXT,
	race            TEXT,
	recorded_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
	participant   INTEGER NOT NULL,
	slot          INTEGER NOT NULL,
	condition     TEXT NOT NULL,
	urn_positions TEXT NOT NULL,
	choice        TEXT NOT NULL,
	ball_color    TEXT NOT NULL,
	PRIMARY KEY (participant, slot),
	FOREIGN KEY (participant) REFERENCES participants(id)
);
`

// SQLiteMirror stores a copy of every ledger record in SQLite, one row per
// participant and one row per trial, so results can be queried directly.
// The CSV ledger stays the source of truth.
type SQLiteMirror struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the mirror database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteMirror, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to create mirror directory").
			WithContext("path", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to open sqlite mirror").
			WithContext("path", path)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.WrapIO(err, errors.ErrLedgerOpenFailed, "failed to migrate sqlite mirror").
				WithContext("path", path)
		}
	}
	return &SQLiteMirror{db: db}, nil
}

// Close closes the underlying database connection.
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}

// Append inserts rec and its trials in one transaction.
func (m *SQLiteMirror) Append(rec *Record) error {
	if err := m.insert(rec); err != nil {
		return errors.WrapIO(err, errors.ErrLedgerWriteFailed, "failed to mirror record").
			WithContext("sequence", fmt.Sprint(rec.Sequence))
	}
	return nil
}

func (m *SQLiteMirror) insert(rec *Record) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var age, gender, education, race any
	if d := rec.Demographics; d != nil {
		age, gender, education, race = d.Age, d.Gender, d.Education, d.Race
	}
	res, err := tx.Exec(
		`INSERT INTO participants (sequence, participant_id, completed, age, gender, education_level, race, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Sequence, rec.ID, rec.Completed, age, gender, education, race,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("participant id: %w", err)
	}

	for i, t := range rec.Trials {
		_, err := tx.Exec(
			`INSERT INTO trials (participant, slot, condition, urn_positions, choice, ball_color)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, i+1, t.Condition, t.URNPositions, t.Choice, t.BallColor,
		)
		if err != nil {
			return fmt.Errorf("insert trial %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of mirrored participants.
func (m *SQLiteMirror) Count() (int, error) {
	var n int
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM participants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// ChoiceCounts returns, per condition, how often each urn was chosen.
func (m *SQLiteMirror) ChoiceCounts() (map[string]map[string]int, error) {
	rows, err := m.db.Query(`SELECT condition, choice, COUNT(*) FROM trials GROUP BY condition, choice`)
	if err != nil {
		return nil, fmt.Errorf("query choices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var cond, choice string
		var n int
		if err := rows.Scan(&cond, &choice, &n); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		if out[cond] == nil {
			out[cond] = make(map[string]int)
		}
		out[cond][choice] = n
	}
	return out, rows.Err()
}

// MultiSink hands each record to every sink in order. Every sink is tried;
// the first error is returned.
type MultiSink []Sink

// Append implements Sink.
func (ms MultiSink) Append(rec *Record) error {
	var first error
	for _, s := range ms {
		if err := s.Append(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
