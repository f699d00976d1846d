package sync

import (
	"time"

	"crashpipe/internal/domain/crash"
)

// EndpointResult summarises one endpoint within a sync run.
type EndpointResult struct {
	Name             crash.Kind `json:"name"`
	BatchesProcessed int        `json:"batches_processed"`
	RecordsFetched   int        `json:"records_fetched"`
	RecordsInserted  int        `json:"records_inserted"`
	RecordsUpdated   int        `json:"records_updated"`
	RecordsSkipped   int        `json:"records_skipped"`
}

// Result aggregates a whole sync run. It is transient: callers persist what
// they need (job executions keep totals, the state register keeps counters).
type Result struct {
	StartedAt   time.Time                      `json:"started_at"`
	CompletedAt time.Time                      `json:"completed_at"`
	Endpoints   map[crash.Kind]*EndpointResult `json:"endpoints"`
}

func newResult() *Result {
	return &Result{
		StartedAt: time.Now().UTC(),
		Endpoints: make(map[crash.Kind]*EndpointResult),
	}
}

func (r *Result) TotalRecords() int {
	total := 0
	for _, er := range r.Endpoints {
		total += er.RecordsFetched
	}
	return total
}

func (r *Result) TotalInserted() int {
	total := 0
	for _, er := range r.Endpoints {
		total += er.RecordsInserted
	}
	return total
}

func (r *Result) TotalUpdated() int {
	total := 0
	for _, er := range r.Endpoints {
		total += er.RecordsUpdated
	}
	return total
}

func (r *Result) TotalSkipped() int {
	total := 0
	for _, er := range r.Endpoints {
		total += er.RecordsSkipped
	}
	return total
}

func (r *Result) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
