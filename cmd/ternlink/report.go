package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// auditWriter records per-symbol link outcomes in a DuckDB table so
// toolchain CI can query resolution history across engine builds.
type auditWriter struct {
	db       *sql.DB
	registry uint32
}

func openAudit(path string, registryVersion uint32) (*auditWriter, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS link_audit (
		unit VARCHAR NOT NULL,
		version VARCHAR NOT NULL,
		symbol VARCHAR NOT NULL,
		resolved BOOLEAN NOT NULL,
		registry INTEGER NOT NULL,
		checked_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit table: %w", err)
	}

	return &auditWriter{db: db, registry: registryVersion}, nil
}

// Record appends one resolution outcome
func (w *auditWriter) Record(unitName, version, symbol string, resolved bool) error {
	_, err := w.db.Exec(
		"INSERT INTO link_audit VALUES (?, ?, ?, ?, ?, ?)",
		unitName, version, symbol, resolved, w.registry, time.Now())
	if err != nil {
		return fmt.Errorf("recording audit row: %w", err)
	}
	return nil
}

func (w *auditWriter) Close() error {
	return w.db.Close()
}
