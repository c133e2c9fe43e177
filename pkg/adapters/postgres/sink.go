// Package postgres keeps an audit log of dispatch outcomes in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/aretw0/tessera/pkg/domain"
)

// Row is one audited outcome.
type Row struct {
	ID         int64          `json:"id"`
	Time       time.Time      `json:"ts"`
	Instance   string         `json:"instance"`
	Category   string         `json:"category"`
	Actor      string         `json:"actor,omitempty"`
	ScriptID   string         `json:"script_id"`
	Status     string         `json:"status"`
	Origin     string         `json:"origin,omitempty"`
	Message    string         `json:"msg,omitempty"`
	DurationMS float64        `json:"duration_ms"`
	Cancel     bool           `json:"cancel"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Sink implements ports.ReportSink.
type Sink struct {
	db       *sql.DB
	instance string
}

// Open connects to dsn, verifies the connection and creates the table.
func Open(ctx context.Context, dsn, instance string) (*Sink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := NewFromDB(db, instance)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create outcomes table: %w", err)
	}
	return s, nil
}

// NewFromDB wraps an open database handle.
func NewFromDB(db *sql.DB, instance string) *Sink {
	if instance == "" {
		instance = "default"
	}
	return &Sink{db: db, instance: instance}
}

// Migrate creates the outcomes table when missing.
func (s *Sink) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tessera_outcomes (
			id          BIGSERIAL PRIMARY KEY,
			ts          TIMESTAMPTZ NOT NULL,
			instance    TEXT NOT NULL,
			category    TEXT NOT NULL,
			actor       TEXT,
			script_id   TEXT NOT NULL,
			status      TEXT NOT NULL,
			origin      TEXT,
			msg         TEXT,
			duration_ms DOUBLE PRECISION NOT NULL,
			cancel      BOOLEAN NOT NULL,
			fields      JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_tessera_outcomes_ts ON tessera_outcomes(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_tessera_outcomes_script ON tessera_outcomes(script_id);
	`)
	return err
}

// Rows flattens a report into one row per outcome.
func Rows(instance string, report *domain.Report) []Row {
	rows := make([]Row, 0, len(report.Outcomes))
	actor := ""
	if report.Event.Actor != nil {
		actor = report.Event.Actor.ID
	}
	for _, o := range report.Outcomes {
		rows = append(rows, Row{
			Time:       report.Event.Time,
			Instance:   instance,
			Category:   report.Event.Category,
			Actor:      actor,
			ScriptID:   o.ScriptID,
			Status:     o.Status(),
			Origin:     o.Signal.Origin,
			Message:    o.Signal.Message,
			DurationMS: float64(o.Duration) / float64(time.Millisecond),
			Cancel:     report.Cancel,
			Fields:     report.Event.Fields,
		})
	}
	return rows
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Record inserts every outcome of the report in one transaction.
func (s *Sink) Record(ctx context.Context, report *domain.Report) error {
	rows := Rows(s.instance, report)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tessera_outcomes (ts, instance, category, actor, script_id, status, origin, msg, duration_ms, cancel, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var fields []byte
		if r.Fields != nil {
			if fields, err = json.Marshal(r.Fields); err != nil {
				return fmt.Errorf("failed to marshal fields: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx, r.Time, r.Instance, r.Category, nullable(r.Actor), r.ScriptID,
			r.Status, nullable(r.Origin), nullable(r.Message), r.DurationMS, r.Cancel, fields); err != nil {
			return fmt.Errorf("insert outcome %s: %w", r.ScriptID, err)
		}
	}
	return tx.Commit()
}

// Query returns the last rows of this instance, newest first.
func (s *Sink) Query(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, instance, category, actor, script_id, status, origin, msg, duration_ms, cancel, fields
		FROM tessera_outcomes
		WHERE instance = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2
	`, s.instance, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r                  Row
			actor, origin, msg sql.NullString
			fields             []byte
		)
		if err := rows.Scan(&r.ID, &r.Time, &r.Instance, &r.Category, &actor, &r.ScriptID, &r.Status,
			&origin, &msg, &r.DurationMS, &r.Cancel, &fields); err != nil {
			return nil, err
		}
		r.Actor, r.Origin, r.Message = actor.String, origin.String, msg.String
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &r.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
