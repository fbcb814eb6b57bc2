package benchmark

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens the database and applies migrations. driver is "sqlite" or "postgres".
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLStore{db: db, driver: driver}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLStore) migrate() error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "DATETIME"
	if s.driver == "postgres" {
		id = "SERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
	}
	query := `
	CREATE TABLE IF NOT EXISTS benchmark_runs (
		id ` + id + `,
		created_at ` + timestamp + ` NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		baseline_fmu TEXT NOT NULL,
		monitor_fmu TEXT NOT NULL,
		runs INTEGER NOT NULL,
		step_size DOUBLE PRECISION NOT NULL,
		stop_time DOUBLE PRECISION NOT NULL,
		report TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Save(rec Record) error {
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	query := s.rebind(`INSERT INTO benchmark_runs
		(created_at, label, baseline_fmu, monitor_fmu, runs, step_size, stop_time, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.Exec(query, rec.Timestamp.UTC(), rec.Label, rec.BaselineFMU, rec.MonitorFMU,
		rec.Runs, rec.StepSize, rec.StopTime, string(report))
	if err != nil {
		return fmt.Errorf("failed to save benchmark run: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadAll() ([]Record, error) {
	rows, err := s.db.Query(`SELECT created_at, label, baseline_fmu, monitor_fmu, runs, step_size, stop_time, report
		FROM benchmark_runs ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var report string
		if err := rows.Scan(&rec.Timestamp, &rec.Label, &rec.BaselineFMU, &rec.MonitorFMU,
			&rec.Runs, &rec.StepSize, &rec.StopTime, &report); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(report), &rec.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

func (s *SQLStore) LoadLatest() (*Record, error) {
	return latest(s)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
