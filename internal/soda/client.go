// Package soda implements a client for the Socrata Open Data API serving the
// Chicago crash datasets.
package soda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crashpipe/internal/config"
	"crashpipe/internal/domain/crash"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const userAgent = "crashpipe/1.0"

// Production dataset resources on data.cityofchicago.org.
var defaultEndpoints = map[crash.Kind]string{
	crash.KindCrashes:    "https://data.cityofchicago.org/resource/85ca-t3if.json",
	crash.KindPeople:     "https://data.cityofchicago.org/resource/u6pd-qa9d.json",
	crash.KindVehicles:   "https://data.cityofchicago.org/resource/68nd-jvt3.json",
	crash.KindFatalities: "https://data.cityofchicago.org/resource/gzaz-isa6.json",
}

// ErrUnknownEndpoint is returned for kinds the client has no dataset URL for.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// StatusError is a non-2xx response surfaced after the retry budget is spent.
// Only 429 responses are retried; other statuses fail immediately.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("soda: unexpected status %d from %s", e.Code, e.URL)
}

// FetchOptions control a single page request.
type FetchOptions struct {
	Limit   int
	Offset  int
	Where   string
	OrderBy string
	Select  string
}

// Client fetches pages of raw records with bounded concurrency, client-side
// rate limiting and exponential-backoff retries.
type Client struct {
	http          *http.Client
	endpoints     map[crash.Kind]string
	appToken      string
	maxRetries    uint64
	backoffFactor float64
	limiter       *rate.Limiter
	sem           chan struct{}
	log           *slog.Logger
}

func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	ratePerHour := cfg.SODA.RatePerHour
	if ratePerHour <= 0 {
		ratePerHour = 1000
	}
	maxConcurrent := cfg.SODA.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	return &Client{
		http:          &http.Client{Timeout: cfg.SODA.Timeout},
		endpoints:     defaultEndpoints,
		appToken:      cfg.SODA.AppToken,
		maxRetries:    uint64(cfg.SODA.MaxRetries),
		backoffFactor: cfg.SODA.BackoffFactor,
		limiter:       rate.NewLimiter(rate.Every(time.Hour/time.Duration(ratePerHour)), ratePerHour),
		sem:           make(chan struct{}, maxConcurrent),
		log:           log,
	}
}

// WithEndpoints overrides the dataset URLs; used by tests and non-production
// portals.
func (c *Client) WithEndpoints(endpoints map[crash.Kind]string) *Client {
	c.endpoints = endpoints
	return c
}

func (c *Client) endpointURL(kind crash.Kind) (string, error) {
	u, ok := c.endpoints[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, kind)
	}
	return u, nil
}

// FetchRecords performs a single page fetch against the dataset for kind.
func (c *Client) FetchRecords(ctx context.Context, kind crash.Kind, opts FetchOptions) ([]crash.RawRecord, error) {
	endpoint, err := c.endpointURL(kind)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("$limit", strconv.Itoa(opts.Limit))
	params.Set("$offset", strconv.Itoa(opts.Offset))
	if opts.Where != "" {
		params.Set("$where", opts.Where)
	}
	if opts.OrderBy != "" {
		params.Set("$order", opts.OrderBy)
	}
	if opts.Select != "" {
		params.Set("$select", opts.Select)
	}

	body, err := c.get(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var records []crash.RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}

// CountRecords returns the dataset row count for the given filter. If the
// count query fails it falls back to an estimate from a probe fetch, so
// callers get a usable number on a best-effort basis.
func (c *Client) CountRecords(ctx context.Context, kind crash.Kind, where string) (int, error) {
	endpoint, err := c.endpointURL(kind)
	if err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("$select", "COUNT(*) as count")
	if where != "" {
		params.Set("$where", where)
	}

	body, err := c.get(ctx, endpoint+"?"+params.Encode())
	if err == nil {
		var rows []struct {
			Count string `json:"count"`
		}
		switch decErr := json.Unmarshal(body, &rows); {
		case decErr != nil:
			err = fmt.Errorf("decode count response: %w", decErr)
		case len(rows) == 0:
			err = errors.New("empty count response")
		default:
			n, parseErr := strconv.Atoi(rows[0].Count)
			if parseErr == nil {
				return n, nil
			}
			err = fmt.Errorf("parse count %q: %w", rows[0].Count, parseErr)
		}
	}

	c.log.Warn("could not get record count, using fallback estimate", "endpoint", kind, "error", err)

	probe, probeErr := c.FetchRecords(ctx, kind, FetchOptions{Limit: 1000, Where: where})
	if probeErr != nil {
		return 0, nil
	}
	if len(probe) == 1000 {
		// A full probe page means there are likely more rows; the estimate
		// only has to be good enough to size the batch loop.
		return len(probe) * 10, nil
	}
	return len(probe), nil
}

// get performs one HTTP round trip with the retry policy: 429 and transport
// errors back off as backoffFactor^attempt seconds up to maxRetries; any
// other error status is permanent.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = c.backoffFactor
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	var body []byte
	attempt := 0

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if c.appToken != "" {
			req.Header.Set("X-App-Token", c.appToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Warn("request failed, retrying", "attempt", attempt, "error", err)
			attempt++
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			c.log.Warn("rate limited, retrying", "attempt", attempt)
			attempt++
			return &StatusError{Code: resp.StatusCode, URL: rawURL}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&StatusError{Code: resp.StatusCode, URL: rawURL})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			attempt++
			return err
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// buildDateWhere assembles the SODA filter for an inclusive start date and an
// end-of-day end date.
func buildDateWhere(startDate, endDate, dateField string) string {
	var clause string
	if startDate != "" {
		clause = fmt.Sprintf("%s >= '%sT00:00:00'", dateField, startDate)
	}
	if endDate != "" {
		if clause != "" {
			clause += " AND "
		}
		clause += fmt.Sprintf("%s < '%sT23:59:59'", dateField, endDate)
	}
	return clause
}
