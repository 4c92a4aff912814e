package sink

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/lucasjlepore/healthparse/pipeline"
)

const duckdbSchema = `
CREATE TABLE IF NOT EXISTS health (
    type VARCHAR,
    value DOUBLE,
    value_category VARCHAR,
    unit VARCHAR,
    start_date TIMESTAMP,
    end_date TIMESTAMP,
    duration_min DOUBLE,
    distance_km DOUBLE,
    energy_kcal DOUBLE,
    source_name VARCHAR,
    start_lat DOUBLE,
    start_lon DOUBLE
)`

const duckdbInsert = `INSERT INTO health VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// DuckDB loads batches into one flat table of an embedded DuckDB database,
// suited to ad-hoc SQL over the finished export.
type DuckDB struct {
	db *sql.DB
}

// NewDuckDB opens (or creates) the database file at path.
func NewDuckDB(path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &DuckDB{db: db}, nil
}

// CreateSchema creates the health table if it does not exist.
func (s *DuckDB) CreateSchema() error {
	if _, err := s.db.Exec(duckdbSchema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// WriteBatch inserts one batch inside a single transaction, so a rejected
// batch leaves nothing behind.
func (s *DuckDB) WriteBatch(rows []pipeline.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.Prepare(duckdbInsert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	for i := range rows {
		r := &rows[i]
		if _, err := stmt.Exec(
			r.Type, r.Value, r.ValueCategory, r.Unit,
			r.StartDate, r.EndDate,
			r.DurationMin, r.DistanceKM, r.EnergyKcal,
			r.SourceName, r.StartLat, r.StartLon,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *DuckDB) Close() error {
	return s.db.Close()
}
