package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/openobs/obslink/device"
)

// SQLite stores every sample as a row of the samples table, with the values
// encoded as a JSON object keyed by column name. Header announcements are
// kept in the runs table.
type SQLite struct {
	db *sql.DB

	mu     sync.Mutex
	runID  int64
	closed bool
}

// OpenSQLite opens (or creates) the database at path in WAL mode and applies
// the schema.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("record: ping: %w", err)
	}
	// One writer; WAL still allows concurrent readers.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range []string{ddlRuns, ddlSamples} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("record: migrate: %w", err)
		}
	}
	return nil
}

const ddlRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    serial     TEXT    NOT NULL DEFAULT '',
    headers    TEXT    NOT NULL,          -- JSON array of column names
    started_at INTEGER NOT NULL           -- Unix milliseconds
);
`

const ddlSamples = `
CREATE TABLE IF NOT EXISTS samples (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER REFERENCES runs (id),
    serial      TEXT    NOT NULL DEFAULT '',
    received_at INTEGER NOT NULL,         -- Unix milliseconds
    vals        TEXT    NOT NULL          -- JSON object column -> value
);
CREATE INDEX IF NOT EXISTS idx_samples_received_at ON samples (received_at);
`

// WriteHeaders starts a new run; later samples belong to it.
func (s *SQLite) WriteHeaders(serial string, headers []string) error {
	encoded, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("record: encode headers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	res, err := s.db.Exec(
		`INSERT INTO runs (serial, headers, started_at) VALUES (?, ?, ?)`,
		serial, string(encoded), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record: insert run: %w", err)
	}
	if s.runID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("record: run id: %w", err)
	}
	return nil
}

func (s *SQLite) WriteSample(sample device.Sample) error {
	encoded, err := json.Marshal(sample.Map())
	if err != nil {
		return fmt.Errorf("record: encode sample: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var runID sql.NullInt64
	if s.runID != 0 {
		runID = sql.NullInt64{Int64: s.runID, Valid: true}
	}
	_, err = s.db.Exec(
		`INSERT INTO samples (run_id, serial, received_at, vals) VALUES (?, ?, ?, ?)`,
		runID, sample.Serial, sample.Time.UnixMilli(), string(encoded))
	if err != nil {
		return fmt.Errorf("record: insert sample: %w", err)
	}
	return nil
}

// Samples returns the stored samples received at or after since, oldest
// first.
func (s *SQLite) Samples(ctx context.Context, since time.Time) ([]device.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.serial, s.received_at, s.vals, COALESCE(r.headers, '[]')
FROM samples s LEFT JOIN runs r ON r.id = s.run_id
WHERE s.received_at >= ?
ORDER BY s.id`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("record: query samples: %w", err)
	}
	defer rows.Close()

	var samples []device.Sample
	for rows.Next() {
		var (
			serial           string
			receivedAt       int64
			vals, rawHeaders string
		)
		if err := rows.Scan(&serial, &receivedAt, &vals, &rawHeaders); err != nil {
			return nil, fmt.Errorf("record: scan sample: %w", err)
		}

		var byName map[string]float64
		if err := json.Unmarshal([]byte(vals), &byName); err != nil {
			return nil, fmt.Errorf("record: decode sample: %w", err)
		}
		var headers []string
		if err := json.Unmarshal([]byte(rawHeaders), &headers); err != nil {
			return nil, fmt.Errorf("record: decode headers: %w", err)
		}

		sample := device.Sample{Time: time.UnixMilli(receivedAt), Serial: serial}
		for _, h := range headers {
			if v, ok := byName[h]; ok {
				sample.Headers = append(sample.Headers, h)
				sample.Values = append(sample.Values, v)
			}
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
