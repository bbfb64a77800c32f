package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/engine"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/version"
)

const initialVersionReason = "initial version"

// defaultBackoffSeconds — базовая задержка retry, если клиент её не задал.
const defaultBackoffSeconds = 5

// ListJobMasters возвращает список job masters.
// GET /api/v1/job-masters?is_active=...&tag=...&limit=...&offset=...
func (h *Handler) ListJobMasters(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseMasterFilter(w, r)
	if !ok {
		return
	}

	masters, err := h.jobMasterRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]JobMasterResponse, len(masters))
	for i, m := range masters {
		result[i] = JobMasterFromDomain(m)
	}

	List(w, result, len(result))
}

// CreateJobMaster создаёт новый job master версии 1 с начальным снапшотом.
// POST /api/v1/job-masters
func (h *Handler) CreateJobMaster(w http.ResponseWriter, r *http.Request) {
	var req CreateJobMasterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if req.Method == "" || req.URL == "" {
		BadRequest(w, "method and url are required")
		return
	}

	now := time.Now().UTC()
	master := &domain.JobMaster{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Method:      req.Method,
		URL:         req.URL,
		Headers:     req.Headers,
		Params:      req.Params,
		Body:        req.Body,

		TimeoutSec:      req.TimeoutSec,
		MaxAttempts:     req.MaxAttempts,
		BackoffStrategy: domain.ParseBackoffStrategy(req.BackoffStrategy),
		BackoffSeconds:  defaultBackoffSeconds,
		Priority:        req.Priority,
		TTLSeconds:      req.TTLSeconds,
		Tags:            req.Tags,

		InputInterfaceID:  req.InputInterfaceID,
		OutputInterfaceID: req.OutputInterfaceID,

		CurrentVersion: 1,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      req.CreatedBy,
	}
	if req.MaxAttempts <= 0 {
		master.MaxAttempts = 1
	}
	if req.BackoffSeconds != nil {
		master.BackoffSeconds = *req.BackoffSeconds
	}

	snapshot := master.SnapshotVersion(initialVersionReason, req.CreatedBy)
	if err := h.jobMasterRepo.CreateWithVersion(r.Context(), master, snapshot); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.logger.Info("job master created", "master_id", master.ID, "name", master.Name)
	Created(w, JobMasterFromDomain(*master))
}

// GetJobMaster возвращает job master по ID.
// GET /api/v1/job-masters/{id}
func (h *Handler) GetJobMaster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	master, err := h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	Success(w, JobMasterFromDomain(*master))
}

// UpdateJobMaster применяет частичное обновление job master.
//
// Изменения критичных полей оцениваются менеджером версий: если по
// мастеру уже были запуски, предыдущее состояние снапшотится под
// текущим номером версии, номер инкрементируется и изменения
// применяются — в одной транзакции.
//
// PATCH /api/v1/job-masters/{id}
func (h *Handler) UpdateJobMaster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	var req UpdateJobMasterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	upd := req.ToDomain()

	master, err := h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	decision, err := h.versions.ShouldVersionJobMaster(r.Context(), master, upd)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if decision.ShouldVersion {
		snapshot := master.SnapshotVersion(decision.Reason, upd.UpdatedBy)
		master.CurrentVersion++
		version.ApplyJobMasterUpdate(master, upd)

		if err := h.jobMasterRepo.UpdateWithVersion(r.Context(), master, snapshot); err != nil {
			HandleRepoError(w, h.logger, err, "job master not found")
			return
		}

		h.logger.Info("job master versioned",
			"master_id", master.ID,
			"version", master.CurrentVersion,
			"changed_fields", decision.ChangedFields,
		)
	} else {
		version.ApplyJobMasterUpdate(master, upd)
		if err := h.jobMasterRepo.Update(r.Context(), master); err != nil {
			HandleRepoError(w, h.logger, err, "job master not found")
			return
		}
	}

	Success(w, JobMasterFromDomain(*master))
}

// DeleteJobMaster удаляет job master.
// DELETE /api/v1/job-masters/{id}
func (h *Handler) DeleteJobMaster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	if err := h.jobMasterRepo.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "job master not found")
		return
	}

	NoContent(w)
}

// ListJobMasterVersions возвращает историю версий мастера. Каждая запись
// аннотируется полями, изменёнными относительно предыдущей версии.
// GET /api/v1/job-masters/{id}/versions
func (h *Handler) ListJobMasterVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	_, err = h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	versions, err := h.jobMasterRepo.ListVersions(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	// Список отсортирован по версии по убыванию: предыдущая версия —
	// следующий элемент.
	result := make([]JobMasterVersionResponse, len(versions))
	for i := range versions {
		var prev *domain.JobMasterVersion
		if i+1 < len(versions) {
			prev = &versions[i+1]
		}
		changed := version.CompareJobMasterVersions(prev, &versions[i])
		result[i] = JobMasterVersionFromDomain(versions[i], changed)
	}

	List(w, result, len(result))
}

// GetJobMasterVersion возвращает конкретную версию мастера.
// GET /api/v1/job-masters/{id}/versions/{version}
func (h *Handler) GetJobMasterVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		BadRequest(w, "invalid version number")
		return
	}

	v, err := h.jobMasterRepo.GetVersion(r.Context(), id, versionNum)
	if HandleRepoError(w, h.logger, err, "job master version not found") {
		return
	}

	Success(w, JobMasterVersionFromDomain(*v, nil))
}

// CreateJobMasterFromVersion создаёт новый мастер из снапшота версии.
// Новый мастер начинает собственную историю с версии 1.
// POST /api/v1/job-masters/{id}/versions/{version}/masters
func (h *Handler) CreateJobMasterFromVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		BadRequest(w, "invalid version number")
		return
	}

	var req CreateFromVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	v, err := h.jobMasterRepo.GetVersion(r.Context(), id, versionNum)
	if HandleRepoError(w, h.logger, err, "job master version not found") {
		return
	}

	source, err := h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	now := time.Now().UTC()
	master := &domain.JobMaster{
		ID:      uuid.New(),
		Name:    req.Name,
		Method:  v.Method,
		URL:     v.URL,
		Headers: v.Headers,
		Params:  v.Params,
		Body:    v.Body,

		TimeoutSec:      v.TimeoutSec,
		MaxAttempts:     v.MaxAttempts,
		BackoffStrategy: v.BackoffStrategy,
		BackoffSeconds:  v.BackoffSeconds,
		Priority:        source.Priority,
		TTLSeconds:      v.TTLSeconds,
		Tags:            v.Tags,

		CurrentVersion: 1,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      req.CreatedBy,
	}

	snapshot := master.SnapshotVersion(initialVersionReason, req.CreatedBy)
	if err := h.jobMasterRepo.CreateWithVersion(r.Context(), master, snapshot); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.logger.Info("job master created from version",
		"master_id", master.ID,
		"source_master_id", id,
		"source_version", versionNum,
	)
	Created(w, JobMasterFromDomain(*master))
}

// GetWorkflow возвращает цепочку шагов workflow мастера.
// GET /api/v1/job-masters/{id}/workflow
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	_, err = h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	steps, err := h.workflowRepo.ListSteps(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowStepResponse, len(steps))
	for i, s := range steps {
		result[i] = WorkflowStepFromDomain(s)
	}

	List(w, result, len(result))
}

// ReplaceWorkflow заменяет состав workflow мастера целиком.
// Перед записью цепочка проверяется на совместимость интерфейсов.
// PUT /api/v1/job-masters/{id}/workflow
func (h *Handler) ReplaceWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	var req ReplaceWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	master, err := h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	steps := make([]domain.WorkflowStep, len(req.Steps))
	for i, s := range req.Steps {
		taskMaster, err := h.taskMasterRepo.GetByID(r.Context(), s.TaskMasterID)
		if HandleRepoError(w, h.logger, err, "task master not found") {
			return
		}
		if !taskMaster.IsActive {
			InvalidState(w, "task master is not active: "+taskMaster.Name)
			return
		}

		isRequired := true
		if s.IsRequired != nil {
			isRequired = *s.IsRequired
		}

		steps[i] = domain.WorkflowStep{
			ID:                uuid.New(),
			JobMasterID:       id,
			TaskMasterID:      s.TaskMasterID,
			Order:             i,
			InputDataTemplate: s.InputDataTemplate,
			IsRequired:        isRequired,
			RetryOnFailure:    s.RetryOnFailure,
			TaskMaster:        taskMaster,
		}
	}

	if err := engine.ValidateWorkflow(master, steps); err != nil {
		var wfErr *engine.WorkflowError
		if errors.As(err, &wfErr) {
			BadRequestDetails(w, wfErr.Message, wfErr.Details)
			return
		}
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.ReplaceSteps(r.Context(), id, steps); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.logger.Info("workflow replaced", "master_id", id, "steps", len(steps))

	result := make([]WorkflowStepResponse, len(steps))
	for i, s := range steps {
		result[i] = WorkflowStepFromDomain(s)
	}
	List(w, result, len(result))
}

// DeleteWorkflow удаляет все шаги workflow мастера.
// DELETE /api/v1/job-masters/{id}/workflow
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	if err := h.workflowRepo.DeleteSteps(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	NoContent(w)
}

// ValidateWorkflow возвращает отчёт валидации цепочки workflow.
// Небросающая форма: ошибки совместимости попадают в тело отчёта.
// GET /api/v1/job-masters/{id}/workflow/validate
func (h *Handler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job master id")
		return
	}

	master, err := h.jobMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job master not found") {
		return
	}

	steps, err := h.workflowRepo.ListSteps(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Success(w, engine.BuildWorkflowReport(master, steps))
}

// parseMasterFilter читает общие query-параметры списков мастеров.
func parseMasterFilter(w http.ResponseWriter, r *http.Request) (filter repo.MasterFilter, ok bool) {
	filter.Limit = 50

	if s := r.URL.Query().Get("is_active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			BadRequest(w, "invalid is_active")
			return filter, false
		}
		filter.IsActive = &active
	}
	filter.Tag = r.URL.Query().Get("tag")

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			BadRequest(w, "invalid limit")
			return filter, false
		}
		filter.Limit = limit
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return filter, false
		}
		filter.Offset = offset
	}

	return filter, true
}
