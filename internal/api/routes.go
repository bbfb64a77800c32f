package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(),
	)

	// Job Masters
	mux.Handle("GET /api/v1/job-masters", chain(http.HandlerFunc(h.ListJobMasters)))
	mux.Handle("POST /api/v1/job-masters", chain(http.HandlerFunc(h.CreateJobMaster)))
	mux.Handle("GET /api/v1/job-masters/{id}", chain(http.HandlerFunc(h.GetJobMaster)))
	mux.Handle("PATCH /api/v1/job-masters/{id}", chain(http.HandlerFunc(h.UpdateJobMaster)))
	mux.Handle("DELETE /api/v1/job-masters/{id}", chain(http.HandlerFunc(h.DeleteJobMaster)))

	// Job Master Versions
	mux.Handle("GET /api/v1/job-masters/{id}/versions", chain(http.HandlerFunc(h.ListJobMasterVersions)))
	mux.Handle("GET /api/v1/job-masters/{id}/versions/{version}", chain(http.HandlerFunc(h.GetJobMasterVersion)))
	mux.Handle("POST /api/v1/job-masters/{id}/versions/{version}/masters", chain(http.HandlerFunc(h.CreateJobMasterFromVersion)))

	// Workflow
	mux.Handle("GET /api/v1/job-masters/{id}/workflow", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/job-masters/{id}/workflow", chain(http.HandlerFunc(h.ReplaceWorkflow)))
	mux.Handle("DELETE /api/v1/job-masters/{id}/workflow", chain(http.HandlerFunc(h.DeleteWorkflow)))
	mux.Handle("GET /api/v1/job-masters/{id}/workflow/validate", chain(http.HandlerFunc(h.ValidateWorkflow)))

	// Task Masters
	mux.Handle("GET /api/v1/task-masters", chain(http.HandlerFunc(h.ListTaskMasters)))
	mux.Handle("POST /api/v1/task-masters", chain(http.HandlerFunc(h.CreateTaskMaster)))
	mux.Handle("GET /api/v1/task-masters/{id}", chain(http.HandlerFunc(h.GetTaskMaster)))
	mux.Handle("PATCH /api/v1/task-masters/{id}", chain(http.HandlerFunc(h.UpdateTaskMaster)))
	mux.Handle("DELETE /api/v1/task-masters/{id}", chain(http.HandlerFunc(h.DeleteTaskMaster)))
	mux.Handle("GET /api/v1/task-masters/{id}/versions", chain(http.HandlerFunc(h.ListTaskMasterVersions)))
	mux.Handle("GET /api/v1/task-masters/{id}/versions/{version}", chain(http.HandlerFunc(h.GetTaskMasterVersion)))

	// Interfaces
	mux.Handle("GET /api/v1/interfaces", chain(http.HandlerFunc(h.ListInterfaces)))
	mux.Handle("POST /api/v1/interfaces", chain(http.HandlerFunc(h.CreateInterface)))
	mux.Handle("GET /api/v1/interfaces/{id}", chain(http.HandlerFunc(h.GetInterface)))
	mux.Handle("PATCH /api/v1/interfaces/{id}", chain(http.HandlerFunc(h.UpdateInterface)))
	mux.Handle("DELETE /api/v1/interfaces/{id}", chain(http.HandlerFunc(h.DeleteInterface)))

	// Jobs
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /api/v1/jobs", chain(http.HandlerFunc(h.CreateJob)))
	mux.Handle("POST /api/v1/job-masters/{id}/jobs", chain(http.HandlerFunc(h.SubmitFromMaster)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("POST /api/v1/jobs/{id}/cancel", chain(http.HandlerFunc(h.CancelJob)))
	mux.Handle("POST /api/v1/jobs/{id}/retry", chain(http.HandlerFunc(h.RetryJob)))
	mux.Handle("GET /api/v1/jobs/{id}/result", chain(http.HandlerFunc(h.GetJobResult)))
	mux.Handle("GET /api/v1/jobs/{id}/attempts", chain(http.HandlerFunc(h.ListJobAttempts)))
	mux.Handle("GET /api/v1/jobs/{id}/tasks", chain(http.HandlerFunc(h.ListJobTasks)))
	mux.Handle("GET /api/v1/jobs/{id}/tasks/{order}", chain(http.HandlerFunc(h.GetJobTask)))
	mux.Handle("POST /api/v1/jobs/{id}/tasks/{order}/retry", chain(http.HandlerFunc(h.RetryJobFromTask)))
}
