package postgres

import (
	"context"
	"fmt"

	"crashpipe/internal/domain/crash"
	"crashpipe/internal/infrastructure/storage/tables"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

var (
	eventUpsert = upsertQuery(tables.Crashes, tables.EventColumns,
		[]string{"crash_record_id"}, "latitude", "longitude")
	personUpsert = upsertQuery(tables.People, tables.PersonColumns,
		[]string{"crash_record_id", "person_id"}, "", "")
	vehicleUpsert = upsertQuery(tables.Vehicles, tables.VehicleColumns,
		[]string{"crash_unit_id"}, "", "")
	fatalityUpsert = upsertQuery(tables.Fatalities, tables.FatalityColumns,
		[]string{"person_id"}, "latitude", "longitude")
)

// CrashRepository persists sanitized crash batches with one round trip per
// batch: queued statements go out as a pgx batch inside a transaction, so a
// batch commits fully or not at all.
type CrashRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewCrashRepository(pool *pgxpool.Pool, log *slog.Logger) *CrashRepository {
	return &CrashRepository{
		pool: pool,
		log:  log.With("component", "crash_repository"),
	}
}

func (r *CrashRepository) UpsertEvents(ctx context.Context, records []crash.Event) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.CrashRecordID == nil {
			res.Skipped++
			continue
		}
		batch.Queue(eventUpsert, tables.EventArgs(rec)...)
	}
	return r.sendBatch(ctx, tables.Crashes, batch, res)
}

func (r *CrashRepository) UpsertPeople(ctx context.Context, records []crash.Person) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.CrashRecordID == nil || rec.PersonID == nil {
			res.Skipped++
			continue
		}
		batch.Queue(personUpsert, tables.PersonArgs(rec)...)
	}
	return r.sendBatch(ctx, tables.People, batch, res)
}

func (r *CrashRepository) UpsertVehicles(ctx context.Context, records []crash.Vehicle) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.CrashUnitID == nil {
			res.Skipped++
			continue
		}
		batch.Queue(vehicleUpsert, tables.VehicleArgs(rec)...)
	}
	return r.sendBatch(ctx, tables.Vehicles, batch, res)
}

func (r *CrashRepository) UpsertFatalities(ctx context.Context, records []crash.Fatality) (crash.UpsertResult, error) {
	var res crash.UpsertResult
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.PersonID == nil {
			res.Skipped++
			continue
		}
		batch.Queue(fatalityUpsert, tables.FatalityArgs(rec)...)
	}
	return r.sendBatch(ctx, tables.Fatalities, batch, res)
}

func (r *CrashRepository) sendBatch(ctx context.Context, table string, batch *pgx.Batch, res crash.UpsertResult) (crash.UpsertResult, error) {
	if batch.Len() == 0 {
		return res, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return crash.UpsertResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		var inserted bool
		if err := br.QueryRow().Scan(&inserted); err != nil {
			br.Close()
			r.log.Error("batch upsert failed", "table", table, "error", err)
			return crash.UpsertResult{}, fmt.Errorf("upsert %s: %w", table, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	if err := br.Close(); err != nil {
		return crash.UpsertResult{}, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return crash.UpsertResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}

func (r *CrashRepository) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for _, table := range tables.CrashTables() {
		var n int64
		if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
