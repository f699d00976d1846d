package sqlite

import (
	"context"
	"fmt"

	"crashpipe/internal/domain/crash"
	"crashpipe/internal/infrastructure/storage/tables"
)

// upsertRow is one pre-keyed row waiting to be written.
type upsertRow struct {
	args []any
	key  []any
}

func (s *Storage) UpsertEvents(ctx context.Context, records []crash.Event) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	rows := make([]upsertRow, 0, len(records))
	for _, rec := range records {
		if rec.CrashRecordID == nil {
			res.Skipped++
			continue
		}
		rows = append(rows, upsertRow{
			args: tables.EventArgs(rec),
			key:  []any{*rec.CrashRecordID},
		})
	}
	return s.upsert(ctx, tables.Crashes, tables.EventColumns, []string{"crash_record_id"}, rows, res)
}

func (s *Storage) UpsertPeople(ctx context.Context, records []crash.Person) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	rows := make([]upsertRow, 0, len(records))
	for _, rec := range records {
		if rec.CrashRecordID == nil || rec.PersonID == nil {
			res.Skipped++
			continue
		}
		rows = append(rows, upsertRow{
			args: tables.PersonArgs(rec),
			key:  []any{*rec.CrashRecordID, *rec.PersonID},
		})
	}
	return s.upsert(ctx, tables.People, tables.PersonColumns, []string{"crash_record_id", "person_id"}, rows, res)
}

func (s *Storage) UpsertVehicles(ctx context.Context, records []crash.Vehicle) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	rows := make([]upsertRow, 0, len(records))
	for _, rec := range records {
		if rec.CrashUnitID == nil {
			res.Skipped++
			continue
		}
		rows = append(rows, upsertRow{
			args: tables.VehicleArgs(rec),
			key:  []any{*rec.CrashUnitID},
		})
	}
	return s.upsert(ctx, tables.Vehicles, tables.VehicleColumns, []string{"crash_unit_id"}, rows, res)
}

func (s *Storage) UpsertFatalities(ctx context.Context, records []crash.Fatality) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	rows := make([]upsertRow, 0, len(records))
	for _, rec := range records {
		if rec.PersonID == nil {
			res.Skipped++
			continue
		}
		rows = append(rows, upsertRow{
			args: tables.FatalityArgs(rec),
			key:  []any{*rec.PersonID},
		})
	}
	return s.upsert(ctx, tables.Fatalities, tables.FatalityColumns, []string{"person_id"}, rows, res)
}

// upsert applies one batch atomically. Each row is checked for existence
// by natural key, then inserted or updated in place.
func (s *Storage) upsert(ctx context.Context, table string, cols, keyCols []string, rows []upsertRow, res crash.UpsertResult) (crash.UpsertResult, error) {
	if len(rows) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crash.UpsertResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	exists := existsStmt(table, keyCols)
	insert := insertStmt(table, cols)
	update := updateStmt(table, cols, keyCols)

	for _, row := range rows {
		var found bool
		if err := tx.QueryRowContext(ctx, exists, row.key...).Scan(&found); err != nil {
			return crash.UpsertResult{}, fmt.Errorf("check %s row: %w", table, err)
		}
		if found {
			if _, err := tx.ExecContext(ctx, update, append(row.args, row.key...)...); err != nil {
				s.log.Error("row update failed", "table", table, "error", err)
				return crash.UpsertResult{}, fmt.Errorf("update %s: %w", table, err)
			}
			res.Updated++
		} else {
			if _, err := tx.ExecContext(ctx, insert, row.args...); err != nil {
				s.log.Error("row insert failed", "table", table, "error", err)
				return crash.UpsertResult{}, fmt.Errorf("insert %s: %w", table, err)
			}
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return crash.UpsertResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}

func (s *Storage) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for _, table := range tables.CrashTables() {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
