package sync

import (
	"crashpipe/internal/domain/sync"
)

type triggerInput struct {
	Body TriggerRequest
}

type triggerOutput struct {
	Body TriggerResponse
}

type TriggerRequest struct {
	Endpoints []string `json:"endpoints,omitempty" doc:"Endpoints to sync, defaults to all four"`
	StartDate string   `json:"start_date,omitempty" example:"2024-01-01" doc:"Inclusive window start, YYYY-MM-DD"`
	EndDate   string   `json:"end_date,omitempty" example:"2024-01-31" doc:"Inclusive window end, YYYY-MM-DD"`
	Force     bool     `json:"force,omitempty" doc:"Reserved flag carried through to the sync run"`
}

type TriggerResponse struct {
	SyncID    string   `json:"sync_id"`
	Status    string   `json:"status" example:"started"`
	Endpoints []string `json:"endpoints"`
	Message   string   `json:"message,omitempty"`
}

type statusInput struct{}

type statusOutput struct {
	Body sync.Snapshot
}

type testInput struct {
	Endpoint string `path:"endpoint" example:"crashes" doc:"Endpoint to probe"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"5"`
}

type testOutput struct {
	Body TestResponse
}

type TestResponse struct {
	Status       string         `json:"status"`
	Endpoint     string         `json:"endpoint"`
	SampleCount  int            `json:"sample_count"`
	SampleRecord map[string]any `json:"sample_record,omitempty"`
	Error        string         `json:"error,omitempty"`
}

type countsInput struct{}

type countsOutput struct {
	Body CountsResponse
}

type CountsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

type endpointsInput struct{}

type endpointsOutput struct {
	Body EndpointsResponse
}

type EndpointInfo struct {
	Name      string `json:"name"`
	Table     string `json:"table"`
	DateField string `json:"date_field"`
}

type EndpointsResponse struct {
	Endpoints []EndpointInfo `json:"endpoints"`
}
