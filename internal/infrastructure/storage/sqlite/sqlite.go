// Package sqlite is the local fallback store used when no PostGIS database
// is reachable. Same tables as the postgres driver minus the spatial
// geometry column.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"crashpipe/internal/infrastructure/storage/tables"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

type Storage struct {
	db  *sql.DB
	log *slog.Logger
}

func New(path string, log *slog.Logger) (*Storage, error) {
	if path == "" {
		path = "crashpipe.db"
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	storage := &Storage{db: db, log: log.With("component", "sqlite_storage")}
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite tables: %w", err)
	}
	return storage, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Driver() string {
	return "sqlite"
}

func (s *Storage) initTables() error {
	stmts := []string{
		createStmt(tables.Crashes, tables.EventColumns, []string{"crash_record_id"}),
		createStmt(tables.People, tables.PersonColumns, []string{"crash_record_id", "person_id"}),
		createStmt(tables.Vehicles, tables.VehicleColumns, []string{"crash_unit_id"}),
		createStmt(tables.Fatalities, tables.FatalityColumns, []string{"person_id"}),
		`CREATE TABLE IF NOT EXISTS scheduled_jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			job_type TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 0,
			config TEXT NOT NULL DEFAULT '{}',
			recurrence_type TEXT NOT NULL,
			cron_expression TEXT NOT NULL DEFAULT '',
			next_run DATETIME,
			last_run DATETIME,
			timeout_minutes INTEGER NOT NULL DEFAULT 60,
			max_retries INTEGER NOT NULL DEFAULT 3,
			retry_delay_minutes INTEGER NOT NULL DEFAULT 5,
			created_by TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT NOT NULL UNIQUE,
			job_id INTEGER NOT NULL REFERENCES scheduled_jobs(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			started_at DATETIME,
			completed_at DATETIME,
			duration_seconds INTEGER,
			records_processed INTEGER NOT NULL DEFAULT 0,
			records_inserted INTEGER NOT NULL DEFAULT 0,
			records_updated INTEGER NOT NULL DEFAULT 0,
			records_skipped INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			error_details TEXT NOT NULL DEFAULT '{}',
			retry_count INTEGER NOT NULL DEFAULT 0,
			execution_context TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS data_deletion_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			records_count INTEGER NOT NULL DEFAULT 0,
			start_date DATETIME,
			end_date DATETIME,
			deleted_by TEXT NOT NULL DEFAULT '',
			deleted_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crashes_crash_date ON crashes(crash_date)`,
		`CREATE INDEX IF NOT EXISTS idx_crash_people_crash_date ON crash_people(crash_date)`,
		`CREATE INDEX IF NOT EXISTS idx_crash_vehicles_crash_date ON crash_vehicles(crash_date)`,
		`CREATE INDEX IF NOT EXISTS idx_job_executions_job_id ON job_executions(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_executions_status ON job_executions(status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func colType(name string) string {
	switch name {
	case "latitude", "longitude", "bac_result_value":
		return "REAL"
	case "posted_speed_limit", "street_no", "lane_cnt", "age",
		"num_passengers", "vehicle_year", "occupant_cnt":
		return "INTEGER"
	case "crash_date", "date_police_notified":
		return "DATETIME"
	}
	if strings.HasPrefix(name, "injuries_") {
		return "INTEGER"
	}
	return "TEXT"
}

func createStmt(table string, cols, keyCols []string) string {
	defs := make([]string, 0, len(cols)+3)
	for _, c := range cols {
		defs = append(defs, c+" "+colType(c))
	}
	defs = append(defs,
		"created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"PRIMARY KEY ("+strings.Join(keyCols, ", ")+")")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
}

func insertStmt(table string, cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders)
}

func updateStmt(table string, cols, keyCols []string) string {
	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	conds := make([]string, 0, len(keyCols))
	for _, k := range keyCols {
		conds = append(conds, k+" = ?")
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table, strings.Join(sets, ", "), strings.Join(conds, " AND "))
}

func existsStmt(table string, keyCols []string) string {
	conds := make([]string, 0, len(keyCols))
	for _, k := range keyCols {
		conds = append(conds, k+" = ?")
	}
	return fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)",
		table, strings.Join(conds, " AND "))
}
