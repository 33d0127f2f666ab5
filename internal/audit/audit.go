// Package audit keeps a history of ringctl runs in a sqlite database: what
// went in, what came out, and who touched the ring last.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"

	ringchan "github.com/kolayne/go-ringchan"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	mode        TEXT    NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	capacity    INTEGER NOT NULL,
	bytes_in    INTEGER NOT NULL,
	bytes_out   INTEGER NOT NULL,
	digest_in   TEXT    NOT NULL,
	digest_out  TEXT    NOT NULL,
	last_writer TEXT    NOT NULL,
	last_reader TEXT    NOT NULL,
	stats       TEXT    NOT NULL
)`

// Report is the outcome of one ringctl run.
type Report struct {
	ID         int64             `json:"id,omitempty"`
	Mode       string            `json:"mode"`
	Started    time.Time         `json:"started"`
	Duration   time.Duration     `json:"durationNs"`
	Capacity   int               `json:"capacity"`
	BytesIn    int64             `json:"bytesIn"`
	BytesOut   int64             `json:"bytesOut"`
	DigestIn   string            `json:"digestIn,omitempty"`
	DigestOut  string            `json:"digestOut,omitempty"`
	LastWriter ringchan.Identity `json:"lastWriter"`
	LastReader ringchan.Identity `json:"lastReader"`
	Stats      ringchan.Stats    `json:"stats"`
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record stores r and returns its row id.
func (s *Store) Record(ctx context.Context, r Report) (int64, error) {
	writer, err := sonnet.Marshal(r.LastWriter)
	if err != nil {
		return 0, err
	}
	reader, err := sonnet.Marshal(r.LastReader)
	if err != nil {
		return 0, err
	}
	stats, err := sonnet.Marshal(r.Stats)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (mode, started_at, duration_ns, capacity, bytes_in, bytes_out,
			digest_in, digest_out, last_writer, last_reader, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Mode, r.Started.UnixNano(), int64(r.Duration), r.Capacity, r.BytesIn, r.BytesOut,
		r.DigestIn, r.DigestOut, string(writer), string(reader), string(stats),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record %s run: %w", r.Mode, err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, started_at, duration_ns, capacity, bytes_in, bytes_out,
			digest_in, digest_out, last_writer, last_reader, stats
		FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var (
			r                     Report
			started, dur          int64
			writer, reader, stats string
		)
		if err := rows.Scan(
			&r.ID, &r.Mode, &started, &dur, &r.Capacity, &r.BytesIn, &r.BytesOut,
			&r.DigestIn, &r.DigestOut, &writer, &reader, &stats,
		); err != nil {
			return nil, err
		}
		r.Started = time.Unix(0, started)
		r.Duration = time.Duration(dur)
		if err := sonnet.Unmarshal([]byte(writer), &r.LastWriter); err != nil {
			return nil, fmt.Errorf("run %d: bad last_writer: %w", r.ID, err)
		}
		if err := sonnet.Unmarshal([]byte(reader), &r.LastReader); err != nil {
			return nil, fmt.Errorf("run %d: bad last_reader: %w", r.ID, err)
		}
		if err := sonnet.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, fmt.Errorf("run %d: bad stats: %w", r.ID, err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
