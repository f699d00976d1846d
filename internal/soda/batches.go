package soda

import (
	"context"

	"crashpipe/internal/domain/crash"
)

// BatchOptions control a streamed, date-windowed fetch.
type BatchOptions struct {
	BatchSize int
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive, YYYY-MM-DD
	DateField string
	OrderBy   string
}

// BatchStream yields successive pages of raw records. Next returns a nil
// batch with a nil error once the stream is exhausted. A stream is finite
// and not restartable.
type BatchStream interface {
	Next(ctx context.Context) ([]crash.RawRecord, error)
}

// Batches opens a streamed fetch over the dataset for kind. The total row
// count is computed once up front to derive the number of pages; a short
// page also terminates the stream. Pages are fetched one at a time so the
// full dataset is never buffered.
func (c *Client) Batches(ctx context.Context, kind crash.Kind, opts BatchOptions) (BatchStream, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50000
	}
	dateField := opts.DateField
	if dateField == "" {
		dateField = kind.DateField()
	}
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = dateField
	}

	where := buildDateWhere(opts.StartDate, opts.EndDate, dateField)

	total, err := c.CountRecords(ctx, kind, where)
	if err != nil {
		return nil, err
	}

	numBatches := 0
	if total > 0 {
		numBatches = (total + opts.BatchSize - 1) / opts.BatchSize
	}

	return &batchIterator{
		client:     c,
		kind:       kind,
		where:      where,
		orderBy:    orderBy,
		batchSize:  opts.BatchSize,
		numBatches: numBatches,
	}, nil
}

// FetchAll drains Batches into a single slice. Non-streaming callers (the
// CLI) use it; the orchestrator streams.
func (c *Client) FetchAll(ctx context.Context, kind crash.Kind, opts BatchOptions) ([]crash.RawRecord, error) {
	stream, err := c.Batches(ctx, kind, opts)
	if err != nil {
		return nil, err
	}

	var all []crash.RawRecord
	for {
		batch, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return all, nil
		}
		all = append(all, batch...)
	}
}

type batchIterator struct {
	client     *Client
	kind       crash.Kind
	where      string
	orderBy    string
	batchSize  int
	numBatches int
	nextBatch  int
	done       bool
}

func (it *batchIterator) Next(ctx context.Context) ([]crash.RawRecord, error) {
	if it.done || it.nextBatch >= it.numBatches {
		it.done = true
		return nil, nil
	}

	batch, err := it.client.FetchRecords(ctx, it.kind, FetchOptions{
		Limit:   it.batchSize,
		Offset:  it.nextBatch * it.batchSize,
		Where:   it.where,
		OrderBy: it.orderBy,
	})
	if err != nil {
		it.done = true
		return nil, err
	}
	it.nextBatch++

	if len(batch) == 0 {
		it.done = true
		return nil, nil
	}
	if len(batch) < it.batchSize {
		// Short page: end of data regardless of the up-front count.
		it.done = true
	}
	return batch, nil
}
