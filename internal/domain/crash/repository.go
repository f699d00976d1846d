package crash

import "context"

// UpsertResult reports the outcome of one batch upsert.
type UpsertResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Add accumulates another batch result into r.
func (r *UpsertResult) Add(other UpsertResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
}

// Upserter persists sanitized batches with insert-or-update-by-natural-key
// semantics. Each call is atomic: either the whole batch commits or none of
// it does. Records missing a key component are counted as skipped.
type Upserter interface {
	UpsertEvents(ctx context.Context, records []Event) (UpsertResult, error)
	UpsertPeople(ctx context.Context, records []Person) (UpsertResult, error)
	UpsertVehicles(ctx context.Context, records []Vehicle) (UpsertResult, error)
	UpsertFatalities(ctx context.Context, records []Fatality) (UpsertResult, error)

	// Counts returns current row counts keyed by table name.
	Counts(ctx context.Context) (map[string]int64, error)
}
