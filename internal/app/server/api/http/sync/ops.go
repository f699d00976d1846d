package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) triggerOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-trigger",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/trigger",
		Summary:     "Trigger a manual sync",
		Description: "Starts a background sync of the requested endpoints. Returns 409 while another sync is running.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Current sync status",
		Description: "Returns the process-wide sync state: status, last sync, lifetime stats and uptime.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) testOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-test-endpoint",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/test/{endpoint}",
		Summary:     "Test one endpoint",
		Description: "Fetches a small sample from the Chicago Open Data Portal to verify connectivity.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) countsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-table-counts",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/counts",
		Summary:     "Current table row counts",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) endpointsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-list-endpoints",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/endpoints",
		Summary:     "List syncable endpoints",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
