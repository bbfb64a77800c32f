package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/version"
)

// ListTaskMasters возвращает список task masters.
// GET /api/v1/task-masters?is_active=...&limit=...&offset=...
func (h *Handler) ListTaskMasters(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseMasterFilter(w, r)
	if !ok {
		return
	}

	masters, err := h.taskMasterRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TaskMasterResponse, len(masters))
	for i, m := range masters {
		result[i] = TaskMasterFromDomain(m)
	}

	List(w, result, len(result))
}

// CreateTaskMaster создаёт новый task master версии 1 с начальным снапшотом.
// POST /api/v1/task-masters
func (h *Handler) CreateTaskMaster(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskMasterRequest
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
	master := &domain.TaskMaster{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Method:      req.Method,
		URL:         req.URL,
		Headers:     req.Headers,

		BodyTemplate: req.BodyTemplate,
		TimeoutSec:   req.TimeoutSec,

		InputInterfaceID:  req.InputInterfaceID,
		OutputInterfaceID: req.OutputInterfaceID,

		CurrentVersion: 1,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      req.CreatedBy,
	}

	snapshot := master.SnapshotVersion(initialVersionReason, req.CreatedBy)
	if err := h.taskMasterRepo.CreateWithVersion(r.Context(), master, snapshot); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.logger.Info("task master created", "master_id", master.ID, "name", master.Name)
	Created(w, TaskMasterFromDomain(*master))
}

// GetTaskMaster возвращает task master по ID.
// GET /api/v1/task-masters/{id}
func (h *Handler) GetTaskMaster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task master id")
		return
	}

	master, err := h.taskMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "task master not found") {
		return
	}

	Success(w, TaskMasterFromDomain(*master))
}

// UpdateTaskMaster применяет частичное обновление task master
// с той же политикой версионирования, что и для job master.
// PATCH /api/v1/task-masters/{id}
func (h *Handler) UpdateTaskMaster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task master id")
		return
	}

	var req UpdateTaskMasterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	upd := req.ToDomain()

	master, err := h.taskMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "task master not found") {
		return
	}

	decision, err := h.versions.ShouldVersionTaskMaster(r.Context(), master, upd)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if decision.ShouldVersion {
		snapshot := master.SnapshotVersion(decision.Reason, upd.UpdatedBy)
		master.CurrentVersion++
		version.ApplyTaskMasterUpdate(master, upd)

		if err := h.taskMasterRepo.UpdateWithVersion(r.Context(), master, snapshot); err != nil {
			HandleRepoError(w, h.logger, err, "task master not found")
			return
		}

		h.logger.Info("task master versioned",
			"master_id", master.ID,
			"version", master.CurrentVersion,
			"changed_fields", decision.ChangedFields,
		)
	} else {
		version.ApplyTaskMasterUpdate(master, upd)
		if err := h.taskMasterRepo.Update(r.Context(), master); err != nil {
			HandleRepoError(w, h.logger, err, "task master not found")
			return
		}
	}

	Success(w, TaskMasterFromDomain(*master))
}

// DeleteTaskMaster удаляет task master. Мастер, используемый в workflow,
// удалить нельзя.
// DELETE /api/v1/task-masters/{id}
func (h *Handler) DeleteTaskMaster(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task master id")
		return
	}

	used, err := h.workflowRepo.CountStepsForTaskMaster(r.Context(), id)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	if used > 0 {
		Conflict(w, "task master is used by workflow steps")
		return
	}

	if err := h.taskMasterRepo.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "task master not found")
		return
	}

	NoContent(w)
}

// ListTaskMasterVersions возвращает историю версий task master.
// GET /api/v1/task-masters/{id}/versions
func (h *Handler) ListTaskMasterVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task master id")
		return
	}

	_, err = h.taskMasterRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "task master not found") {
		return
	}

	versions, err := h.taskMasterRepo.ListVersions(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TaskMasterVersionResponse, len(versions))
	for i := range versions {
		var prev *domain.TaskMasterVersion
		if i+1 < len(versions) {
			prev = &versions[i+1]
		}
		changed := version.CompareTaskMasterVersions(prev, &versions[i])
		result[i] = TaskMasterVersionFromDomain(versions[i], changed)
	}

	List(w, result, len(result))
}

// GetTaskMasterVersion возвращает конкретную версию task master.
// GET /api/v1/task-masters/{id}/versions/{version}
func (h *Handler) GetTaskMasterVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task master id")
		return
	}

	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		BadRequest(w, "invalid version number")
		return
	}

	v, err := h.taskMasterRepo.GetVersion(r.Context(), id, versionNum)
	if HandleRepoError(w, h.logger, err, "task master version not found") {
		return
	}

	Success(w, TaskMasterVersionFromDomain(*v, nil))
}
