// Package sync orchestrates one synchronisation run: stream batches from the
// SODA client, sanitize them, upsert them, and roll the counts up into a
// Result. The orchestrator holds no durable state of its own.
package sync

import (
	"context"
	"fmt"
	"time"

	"crashpipe/internal/domain/crash"
	"crashpipe/internal/sanitize"
	"crashpipe/internal/soda"

	"golang.org/x/exp/slog"
)

// Fetcher is the minimal client contract: an eager fetch of a whole date
// window. Test doubles may implement only this.
type Fetcher interface {
	FetchAll(ctx context.Context, kind crash.Kind, opts soda.BatchOptions) ([]crash.RawRecord, error)
}

// StreamingFetcher is the production contract; the orchestrator streams
// batch-by-batch whenever the client supports it.
type StreamingFetcher interface {
	Fetcher
	Batches(ctx context.Context, kind crash.Kind, opts soda.BatchOptions) (soda.BatchStream, error)
}

// Options for one sync run. BatchCallback, when set, receives interim
// per-endpoint counters after every processed batch.
type Options struct {
	StartDate     string
	EndDate       string
	BatchCallback func(EndpointResult)
}

type Service struct {
	client    Fetcher
	sanitizer *sanitize.Sanitizer
	store     crash.Upserter
	batchSize int
	log       *slog.Logger
}

func NewService(client Fetcher, store crash.Upserter, batchSize int, log *slog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 50000
	}
	return &Service{
		client:    client,
		sanitizer: sanitize.New(log),
		store:     store,
		batchSize: batchSize,
		log:       log,
	}
}

// Sync processes the given endpoints strictly in order. The first
// infrastructure error aborts the remaining endpoints and propagates;
// data-quality problems never do (they surface as skip counts).
func (s *Service) Sync(ctx context.Context, kinds []crash.Kind, opts Options) (*Result, error) {
	result := newResult()

	for _, kind := range kinds {
		endpointResult, err := s.syncEndpoint(ctx, kind, opts)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", kind, err)
		}
		result.Endpoints[kind] = endpointResult
	}

	result.CompletedAt = time.Now().UTC()
	return result, nil
}

func (s *Service) syncEndpoint(ctx context.Context, kind crash.Kind, opts Options) (*EndpointResult, error) {
	er := &EndpointResult{Name: kind}

	batchOpts := soda.BatchOptions{
		BatchSize: s.batchSize,
		StartDate: opts.StartDate,
		EndDate:   opts.EndDate,
		DateField: kind.DateField(),
	}

	if streaming, ok := s.client.(StreamingFetcher); ok {
		stream, err := streaming.Batches(ctx, kind, batchOpts)
		if err != nil {
			return nil, err
		}
		for {
			batch, err := stream.Next(ctx)
			if err != nil {
				return nil, err
			}
			if batch == nil {
				break
			}
			if err := s.processBatch(ctx, kind, batch, er, opts.BatchCallback); err != nil {
				return nil, err
			}
		}
	} else {
		// Substitutability path for eager-only clients (test doubles).
		records, err := s.client.FetchAll(ctx, kind, batchOpts)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			if err := s.processBatch(ctx, kind, records, er, opts.BatchCallback); err != nil {
				return nil, err
			}
		}
	}

	s.log.Info("endpoint sync complete",
		"endpoint", kind,
		"batches", er.BatchesProcessed,
		"fetched", er.RecordsFetched,
		"inserted", er.RecordsInserted,
		"updated", er.RecordsUpdated,
		"skipped", er.RecordsSkipped)

	return er, nil
}

func (s *Service) processBatch(ctx context.Context, kind crash.Kind, batch []crash.RawRecord, er *EndpointResult, callback func(EndpointResult)) error {
	er.BatchesProcessed++
	er.RecordsFetched += len(batch)

	dbResult, err := s.persistBatch(ctx, kind, batch)
	if err != nil {
		return err
	}

	er.RecordsInserted += dbResult.Inserted
	er.RecordsUpdated += dbResult.Updated
	er.RecordsSkipped += dbResult.Skipped

	if callback != nil {
		callback(*er)
	}
	return nil
}

func (s *Service) persistBatch(ctx context.Context, kind crash.Kind, batch []crash.RawRecord) (crash.UpsertResult, error) {
	switch kind {
	case crash.KindCrashes:
		records := make([]crash.Event, 0, len(batch))
		for _, raw := range batch {
			records = append(records, s.sanitizer.CrashEvent(raw))
		}
		return s.store.UpsertEvents(ctx, records)

	case crash.KindPeople:
		records := make([]crash.Person, 0, len(batch))
		for _, raw := range batch {
			records = append(records, s.sanitizer.CrashPerson(raw))
		}
		return s.store.UpsertPeople(ctx, records)

	case crash.KindVehicles:
		records := make([]crash.Vehicle, 0, len(batch))
		for _, raw := range batch {
			records = append(records, s.sanitizer.CrashVehicle(raw))
		}
		return s.store.UpsertVehicles(ctx, records)

	case crash.KindFatalities:
		records := make([]crash.Fatality, 0, len(batch))
		for _, raw := range batch {
			records = append(records, s.sanitizer.Fatality(raw))
		}
		records = s.sanitizer.RemoveDuplicateFatalities(records)
		return s.store.UpsertFatalities(ctx, records)
	}

	s.log.Warn("unknown endpoint requested during sync", "endpoint", kind)
	return crash.UpsertResult{Skipped: len(batch)}, nil
}
