package jobs

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listJobsOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List scheduled jobs",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createJobOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs",
		Summary:     "Create a scheduled job",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getJobOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Get one scheduled job",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateJobOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-update",
		Method:      http.MethodPut,
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Update a scheduled job",
		Description: "Applies a partial update and recomputes the next run time from the new schedule.",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteJobOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Delete a scheduled job",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) executeJobOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-execute",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/{id}/execute",
		Summary:     "Execute a job now",
		Description: "Queues one run of the job. Returns 409 while another execution of the same job is active, unless force is set.",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) recentExecutionsOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-recent-executions",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/executions/recent",
		Summary:     "Recent executions across all jobs",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) jobExecutionsOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-executions",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{id}/executions",
		Summary:     "Executions of one job",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getExecutionOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-get-execution",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/executions/{executionID}",
		Summary:     "Get one execution",
		Description: "Returns the execution row including its structured context blob.",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) summaryOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-summary",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/summary",
		Summary:     "Job and execution counters",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteDataOp() huma.Operation {
	return huma.Operation{
		OperationID: "jobs-delete-data",
		Method:      http.MethodDelete,
		Path:        "/api/v1/data/{table}",
		Summary:     "Purge table data",
		Description: "Deletes rows from one crash table, optionally bounded by a date window, and writes an audit row.",
		Tags:        []string{"jobs"},
		Middlewares: h.middleware,
	}
}
