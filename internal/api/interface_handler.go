package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
)

// ListInterfaces возвращает список interface masters.
// GET /api/v1/interfaces?is_active=...&limit=...&offset=...
func (h *Handler) ListInterfaces(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseMasterFilter(w, r)
	if !ok {
		return
	}

	interfaces, err := h.interfaceRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]InterfaceResponse, len(interfaces))
	for i, m := range interfaces {
		result[i] = InterfaceFromDomain(m)
	}

	List(w, result, len(result))
}

// CreateInterface создаёт interface master.
// POST /api/v1/interfaces
func (h *Handler) CreateInterface(w http.ResponseWriter, r *http.Request) {
	var req CreateInterfaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now().UTC()
	m := &domain.InterfaceMaster{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		InputSchema:  req.InputSchema,
		OutputSchema: req.OutputSchema,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.interfaceRepo.Create(r.Context(), m); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, InterfaceFromDomain(*m))
}

// GetInterface возвращает interface master по ID.
// GET /api/v1/interfaces/{id}
func (h *Handler) GetInterface(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid interface id")
		return
	}

	m, err := h.interfaceRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "interface not found") {
		return
	}

	Success(w, InterfaceFromDomain(*m))
}

// UpdateInterface применяет частичное обновление interface master.
// PATCH /api/v1/interfaces/{id}
func (h *Handler) UpdateInterface(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid interface id")
		return
	}

	var req UpdateInterfaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	m, err := h.interfaceRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "interface not found") {
		return
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.InputSchema.Set {
		m.InputSchema = req.InputSchema.Value
	}
	if req.OutputSchema.Set {
		m.OutputSchema = req.OutputSchema.Value
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := h.interfaceRepo.Update(r.Context(), m); err != nil {
		HandleRepoError(w, h.logger, err, "interface not found")
		return
	}

	Success(w, InterfaceFromDomain(*m))
}

// DeleteInterface удаляет interface master.
// DELETE /api/v1/interfaces/{id}
func (h *Handler) DeleteInterface(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid interface id")
		return
	}

	if err := h.interfaceRepo.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "interface not found")
		return
	}

	NoContent(w)
}
