package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS udplog_events (
	id       BIGSERIAL PRIMARY KEY,
	category TEXT NOT NULL,
	fields   JSONB NOT NULL,
	ts       DOUBLE PRECISION NOT NULL
)`

const pgInsert = `INSERT INTO udplog_events (category, fields, ts) VALUES ($1, $2, $3)`

// PGConfig holds settings for the Postgres sink.
type PGConfig struct {
	DSN string
}

// PGSink batch-inserts events into a Postgres table, one transaction per
// batch. The schema is created on first connect.
type PGSink struct {
	*runner
}

func NewPGSink(cfg PGConfig, rc RunnerConfig, m *metrics.Metrics) *PGSink {
	return &PGSink{runner: newRunner("postgres", &pgBackend{cfg: cfg}, rc, m)}
}

type pgBackend struct {
	cfg PGConfig
	db  *sql.DB
}

func (p *pgBackend) connect(ctx context.Context) error {
	db, err := sql.Open("postgres", p.cfg.DSN)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}
	p.db = db
	return nil
}

func (p *pgBackend) send(ctx context.Context, batch []*event.Event) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, pgInsert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	for _, e := range batch {
		fields, err := json.Marshal(e.Fields)
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("encode fields: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.Category, fields, e.Timestamp); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert: %w", err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *pgBackend) disconnect() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
