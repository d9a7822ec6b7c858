// Package audit is an append-only event log for the trade pipeline. It is
// kept in its own database so heavy pipeline traffic never contends with
// the position store.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Log struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	mint TEXT NOT NULL,
	detail TEXT,
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_events_trace ON pipeline_events(trace_id);
CREATE INDEX IF NOT EXISTS idx_pipeline_events_mint ON pipeline_events(mint);
`

func Open(path string) (*Log, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Record appends one pipeline event. Detail is stored as JSON text.
func (l *Log) Record(ctx context.Context, traceID, stage, mint string, detail map[string]any) error {
	var payload []byte
	if detail != nil {
		payload, _ = json.Marshal(detail)
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO pipeline_events(trace_id, stage, mint, detail, at) VALUES (?, ?, ?, ?, ?)`,
		traceID, stage, mint, string(payload), time.Now().UnixMilli())
	return err
}

// Event is one row of the pipeline log.
type Event struct {
	TraceID string
	Stage   string
	Mint    string
	Detail  string
	At      int64
}

// Trail returns every event for a trace in insertion order.
func (l *Log) Trail(ctx context.Context, traceID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT trace_id, stage, mint, detail, at FROM pipeline_events WHERE trace_id = ? ORDER BY id ASC`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.TraceID, &e.Stage, &e.Mint, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *Log) Close() error { return l.db.Close() }
