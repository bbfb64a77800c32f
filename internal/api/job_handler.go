package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/engine"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

// ListJobs возвращает список jobs с фильтрацией.
// GET /api/v1/jobs?status=...&master_id=...&tag=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := repo.JobFilter{Limit: 50}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = domain.JobStatus(s)
	}
	if s := r.URL.Query().Get("master_id"); s != "" {
		masterID, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid master_id")
			return
		}
		filter.MasterID = &masterID
	}
	filter.Tag = r.URL.Query().Get("tag")

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	jobs, err := h.jobRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		result[i] = JobFromDomain(j)
	}

	List(w, result, len(result))
}

// CreateJob создаёт job напрямую, без мастера.
// POST /api/v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Method == "" || req.URL == "" {
		BadRequest(w, "method and url are required")
		return
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:      uuid.New(),
		Name:    req.Name,
		Status:  domain.JobStatusQueued,
		Attempt: 1,

		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Params:  req.Params,
		Body:    req.Body,

		TimeoutSec:      req.TimeoutSec,
		MaxAttempts:     req.MaxAttempts,
		BackoffStrategy: domain.ParseBackoffStrategy(req.BackoffStrategy),
		BackoffSeconds:  defaultBackoffSeconds,
		Priority:        req.Priority,
		TTLSeconds:      req.TTLSeconds,
		Tags:            req.Tags,

		CreatedAt: now,
	}
	if req.MaxAttempts <= 0 {
		job.MaxAttempts = 1
	}
	if req.BackoffSeconds != nil {
		job.BackoffSeconds = *req.BackoffSeconds
	}
	if req.ScheduledAt != nil {
		job.ScheduledAt = req.ScheduledAt
		job.NextAttemptAt = req.ScheduledAt
	} else {
		job.NextAttemptAt = &now
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.submitted(r, job)
	Created(w, JobFromDomain(*job))
}

// SubmitFromMaster создаёт job из JobMaster с переопределениями
// вызывающего. Если у мастера есть workflow, вместе с job создаются
// tasks по его шагам.
// POST /api/v1/job-masters/{id}/jobs
func (h *Handler) SubmitFromMaster(w http.ResponseWriter, r *http.Request) {
	masterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	var req SubmitFromMasterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	master, err := h.jobMasterRepo.GetByID(r.Context(), masterID)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}
	if !master.IsActive {
		InvalidState(w, "job master is not active")
		return
	}

	job := engine.InstantiateJob(master, req.ToOverrides())

	steps, err := h.workflowRepo.ListSteps(r.Context(), masterID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	if len(steps) == 0 {
		if err := h.jobRepo.Create(r.Context(), job); err != nil {
			HandleRepoError(w, h.logger, err, "")
			return
		}
	} else {
		tasks := make([]*domain.Task, len(steps))
		for i, step := range steps {
			taskVersion := step.TaskMaster.CurrentVersion
			tasks[i] = &domain.Task{
				ID:            uuid.New(),
				JobID:         job.ID,
				MasterID:      step.TaskMasterID,
				MasterVersion: &taskVersion,
				Order:         step.Order,
				Status:        domain.TaskStatusQueued,
				CreatedAt:     job.CreatedAt,
				UpdatedAt:     job.CreatedAt,
			}
		}
		if err := h.jobRepo.CreateWithTasks(r.Context(), job, tasks); err != nil {
			HandleRepoError(w, h.logger, err, "")
			return
		}
	}

	h.submitted(r, job)
	Created(w, JobFromDomain(*job))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(*job))
}

// CancelJob отменяет job. Отменить можно только QUEUED или RUNNING job;
// для RUNNING отмена кооперативная — воркер заметит её при финализации.
// POST /api/v1/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobRepo.Cancel(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	h.logger.Info("job canceled", "job_id", job.ID)
	Success(w, JobFromDomain(*job))
}

// RetryJob возвращает терминальный job в очередь с первой попытки.
// POST /api/v1/jobs/{id}/retry
func (h *Handler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobRepo.Retry(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	h.logger.Info("job requeued", "job_id", job.ID)
	h.wakeWorkers(r, job.ID)
	Success(w, JobFromDomain(*job))
}

// GetJobResult возвращает последний результат job.
// GET /api/v1/jobs/{id}/result
func (h *Handler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	result, err := h.resultRepo.GetByJob(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job result not found") {
		return
	}

	Success(w, ResultFromDomain(*result))
}

// ListJobAttempts возвращает историю результатов всех попыток job.
// GET /api/v1/jobs/{id}/attempts
func (h *Handler) ListJobAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	_, err = h.jobRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	attempts, err := h.resultRepo.ListAttempts(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]AttemptResponse, len(attempts))
	for i, a := range attempts {
		result[i] = AttemptFromDomain(a)
	}

	List(w, result, len(result))
}

// ListJobTasks возвращает tasks (шаги workflow) job.
// GET /api/v1/jobs/{id}/tasks
func (h *Handler) ListJobTasks(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	_, err = h.jobRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	tasks, err := h.taskRepo.ListByJob(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t)
	}

	List(w, result, len(result))
}

// GetJobTask возвращает отдельный task job по позиции в цепочке.
// GET /api/v1/jobs/{id}/tasks/{order}
func (h *Handler) GetJobTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	order, err := strconv.Atoi(r.PathValue("order"))
	if err != nil || order < 0 {
		BadRequest(w, "invalid task order")
		return
	}

	task, err := h.taskRepo.GetByJobOrder(r.Context(), id, order)
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	Success(w, TaskFromDomain(*task))
}

// RetryJobFromTask сбрасывает цепочку tasks начиная с указанной позиции
// и возвращает терминальный job в очередь: шаги до позиции сохраняют
// свои результаты и не перевыполняются.
// POST /api/v1/jobs/{id}/tasks/{order}/retry
func (h *Handler) RetryJobFromTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	order, err := strconv.Atoi(r.PathValue("order"))
	if err != nil || order < 0 {
		BadRequest(w, "invalid task order")
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}
	if !job.IsFinished() {
		InvalidState(w, "job is not finished")
		return
	}

	if err := h.taskRepo.ResetFrom(r.Context(), id, order); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	job, err = h.jobRepo.Retry(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	h.logger.Info("job requeued from task", "job_id", job.ID, "order", order)
	h.wakeWorkers(r, job.ID)
	Success(w, JobFromDomain(*job))
}

// submitted фиксирует принятый job: метрика и wakeup-событие для воркеров.
func (h *Handler) submitted(r *http.Request, job *domain.Job) {
	telemetry.JobsSubmitted.Inc()
	h.logger.Info("job submitted",
		"job_id", job.ID,
		"master_id", job.MasterID,
		"priority", job.Priority,
	)
	h.wakeWorkers(r, job.ID)
}

// wakeWorkers публикует jobs.queued как подсказку воркерам.
// Доставка best-effort: захват всё равно идёт через хранилище.
func (h *Handler) wakeWorkers(r *http.Request, jobID uuid.UUID) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishJobQueued(r.Context(), jobID); err != nil {
		h.logger.Warn("failed to publish jobs.queued", "job_id", jobID, "error", err)
	}
}
