package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
)

// JobMaster DTOs

// CreateJobMasterRequest — запрос на создание JobMaster.
type CreateJobMasterRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	Headers     map[string]any `json:"headers,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Body        any            `json:"body,omitempty"`

	TimeoutSec      int      `json:"timeout_sec,omitempty"`
	MaxAttempts     int      `json:"max_attempts,omitempty"`
	BackoffStrategy string   `json:"backoff_strategy,omitempty"`
	BackoffSeconds  *float64 `json:"backoff_seconds,omitempty"`
	Priority        int      `json:"priority,omitempty"`
	TTLSeconds      *int     `json:"ttl_seconds,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
}

// UpdateJobMasterRequest — частичное обновление JobMaster.
//
// Для документных полей различаем "не передано" и "передан null":
// json.RawMessage присутствует в теле запроса, даже если равен null.
type UpdateJobMasterRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	Method  *string            `json:"method,omitempty"`
	URL     *string            `json:"url,omitempty"`
	Headers optionalDoc        `json:"headers"`
	Params  optionalDoc        `json:"params"`
	Body    optionalDoc        `json:"body"`
	Tags    optionalStringList `json:"tags"`

	TimeoutSec      *int        `json:"timeout_sec,omitempty"`
	MaxAttempts     *int        `json:"max_attempts,omitempty"`
	BackoffStrategy *string     `json:"backoff_strategy,omitempty"`
	BackoffSeconds  *float64    `json:"backoff_seconds,omitempty"`
	Priority        *int        `json:"priority,omitempty"`
	TTLSeconds      optionalInt `json:"ttl_seconds"`

	IsActive  *bool  `json:"is_active,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// ToDomain конвертирует запрос в domain.JobMasterUpdate.
func (r UpdateJobMasterRequest) ToDomain() domain.JobMasterUpdate {
	upd := domain.JobMasterUpdate{
		Name:        r.Name,
		Description: r.Description,
		Method:      r.Method,
		URL:         r.URL,

		TimeoutSec:     r.TimeoutSec,
		MaxAttempts:    r.MaxAttempts,
		BackoffSeconds: r.BackoffSeconds,
		Priority:       r.Priority,

		IsActive:  r.IsActive,
		UpdatedBy: r.UpdatedBy,
	}

	if r.BackoffStrategy != nil {
		strategy := domain.ParseBackoffStrategy(*r.BackoffStrategy)
		upd.BackoffStrategy = &strategy
	}

	if r.Headers.Set {
		upd.SetHeaders = true
		upd.Headers = r.Headers.Map()
	}
	if r.Params.Set {
		upd.SetParams = true
		upd.Params = r.Params.Map()
	}
	if r.Body.Set {
		upd.SetBody = true
		upd.Body = r.Body.Value
	}
	if r.Tags.Set {
		upd.SetTags = true
		upd.Tags = r.Tags.Values
	}
	if r.TTLSeconds.Set {
		upd.SetTTLSeconds = true
		upd.TTLSeconds = r.TTLSeconds.Value
	}

	return upd
}

// JobMasterResponse — ответ с JobMaster.
type JobMasterResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	Headers     map[string]any `json:"headers,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Body        any            `json:"body,omitempty"`

	TimeoutSec      int      `json:"timeout_sec"`
	MaxAttempts     int      `json:"max_attempts"`
	BackoffStrategy string   `json:"backoff_strategy"`
	BackoffSeconds  float64  `json:"backoff_seconds"`
	Priority        int      `json:"priority"`
	TTLSeconds      *int     `json:"ttl_seconds,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`

	CurrentVersion int       `json:"current_version"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedBy      string    `json:"created_by,omitempty"`
	UpdatedBy      string    `json:"updated_by,omitempty"`
}

// JobMasterFromDomain конвертирует domain.JobMaster в JobMasterResponse.
func JobMasterFromDomain(m domain.JobMaster) JobMasterResponse {
	return JobMasterResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Method:      m.Method,
		URL:         m.URL,
		Headers:     m.Headers,
		Params:      m.Params,
		Body:        m.Body,

		TimeoutSec:      m.TimeoutSec,
		MaxAttempts:     m.MaxAttempts,
		BackoffStrategy: string(m.BackoffStrategy),
		BackoffSeconds:  m.BackoffSeconds,
		Priority:        m.Priority,
		TTLSeconds:      m.TTLSeconds,
		Tags:            m.Tags,

		InputInterfaceID:  m.InputInterfaceID,
		OutputInterfaceID: m.OutputInterfaceID,

		CurrentVersion: m.CurrentVersion,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CreatedBy:      m.CreatedBy,
		UpdatedBy:      m.UpdatedBy,
	}
}

// JobMasterVersionResponse — ответ с версией JobMaster. HasChanges и
// ChangedFields вычисляются против предыдущей записи истории.
type JobMasterVersionResponse struct {
	MasterID uuid.UUID `json:"master_id"`
	Version  int       `json:"version"`

	Name    string         `json:"name"`
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`

	TimeoutSec      int      `json:"timeout_sec"`
	MaxAttempts     int      `json:"max_attempts"`
	BackoffStrategy string   `json:"backoff_strategy"`
	BackoffSeconds  float64  `json:"backoff_seconds"`
	TTLSeconds      *int     `json:"ttl_seconds,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	ChangeReason  string    `json:"change_reason,omitempty"`
	HasChanges    bool      `json:"has_changes"`
	ChangedFields []string  `json:"changed_fields,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// JobMasterVersionFromDomain конвертирует снапшот с аннотацией изменений.
func JobMasterVersionFromDomain(v domain.JobMasterVersion, changedFields []string) JobMasterVersionResponse {
	return JobMasterVersionResponse{
		MasterID: v.MasterID,
		Version:  v.Version,

		Name:    v.Name,
		Method:  v.Method,
		URL:     v.URL,
		Headers: v.Headers,
		Params:  v.Params,
		Body:    v.Body,

		TimeoutSec:      v.TimeoutSec,
		MaxAttempts:     v.MaxAttempts,
		BackoffStrategy: string(v.BackoffStrategy),
		BackoffSeconds:  v.BackoffSeconds,
		TTLSeconds:      v.TTLSeconds,
		Tags:            v.Tags,

		ChangeReason:  v.ChangeReason,
		HasChanges:    len(changedFields) > 0,
		ChangedFields: changedFields,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
}

// CreateFromVersionRequest — запрос на создание нового мастера из
// снапшота версии существующего.
type CreateFromVersionRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by,omitempty"`
}

// TaskMaster DTOs

// CreateTaskMasterRequest — запрос на создание TaskMaster.
type CreateTaskMasterRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	Headers     map[string]any `json:"headers,omitempty"`

	BodyTemplate any `json:"body_template,omitempty"`
	TimeoutSec   int `json:"timeout_sec,omitempty"`

	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
}

// UpdateTaskMasterRequest — частичное обновление TaskMaster.
type UpdateTaskMasterRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	Method       *string     `json:"method,omitempty"`
	URL          *string     `json:"url,omitempty"`
	Headers      optionalDoc `json:"headers"`
	BodyTemplate optionalDoc `json:"body_template"`
	TimeoutSec   *int        `json:"timeout_sec,omitempty"`

	IsActive  *bool  `json:"is_active,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// ToDomain конвертирует запрос в domain.TaskMasterUpdate.
func (r UpdateTaskMasterRequest) ToDomain() domain.TaskMasterUpdate {
	upd := domain.TaskMasterUpdate{
		Name:        r.Name,
		Description: r.Description,
		Method:      r.Method,
		URL:         r.URL,
		TimeoutSec:  r.TimeoutSec,
		IsActive:    r.IsActive,
		UpdatedBy:   r.UpdatedBy,
	}

	if r.Headers.Set {
		upd.SetHeaders = true
		upd.Headers = r.Headers.Map()
	}
	if r.BodyTemplate.Set {
		upd.SetBodyTemplate = true
		upd.BodyTemplate = r.BodyTemplate.Value
	}

	return upd
}

// TaskMasterResponse — ответ с TaskMaster.
type TaskMasterResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	Headers     map[string]any `json:"headers,omitempty"`

	BodyTemplate any `json:"body_template,omitempty"`
	TimeoutSec   int `json:"timeout_sec"`

	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`

	CurrentVersion int       `json:"current_version"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedBy      string    `json:"created_by,omitempty"`
	UpdatedBy      string    `json:"updated_by,omitempty"`
}

// TaskMasterFromDomain конвертирует domain.TaskMaster в TaskMasterResponse.
func TaskMasterFromDomain(m domain.TaskMaster) TaskMasterResponse {
	return TaskMasterResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Method:      m.Method,
		URL:         m.URL,
		Headers:     m.Headers,

		BodyTemplate: m.BodyTemplate,
		TimeoutSec:   m.TimeoutSec,

		InputInterfaceID:  m.InputInterfaceID,
		OutputInterfaceID: m.OutputInterfaceID,

		CurrentVersion: m.CurrentVersion,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CreatedBy:      m.CreatedBy,
		UpdatedBy:      m.UpdatedBy,
	}
}

// TaskMasterVersionResponse — ответ с версией TaskMaster.
type TaskMasterVersionResponse struct {
	MasterID uuid.UUID `json:"master_id"`
	Version  int       `json:"version"`

	Name         string         `json:"name"`
	Method       string         `json:"method"`
	URL          string         `json:"url"`
	Headers      map[string]any `json:"headers,omitempty"`
	BodyTemplate any            `json:"body_template,omitempty"`
	TimeoutSec   int            `json:"timeout_sec"`

	ChangeReason  string    `json:"change_reason,omitempty"`
	HasChanges    bool      `json:"has_changes"`
	ChangedFields []string  `json:"changed_fields,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskMasterVersionFromDomain конвертирует снапшот с аннотацией изменений.
func TaskMasterVersionFromDomain(v domain.TaskMasterVersion, changedFields []string) TaskMasterVersionResponse {
	return TaskMasterVersionResponse{
		MasterID: v.MasterID,
		Version:  v.Version,

		Name:         v.Name,
		Method:       v.Method,
		URL:          v.URL,
		Headers:      v.Headers,
		BodyTemplate: v.BodyTemplate,
		TimeoutSec:   v.TimeoutSec,

		ChangeReason:  v.ChangeReason,
		HasChanges:    len(changedFields) > 0,
		ChangedFields: changedFields,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
}

// InterfaceMaster DTOs

// CreateInterfaceRequest — запрос на создание InterfaceMaster.
type CreateInterfaceRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	InputSchema  any    `json:"input_schema,omitempty"`
	OutputSchema any    `json:"output_schema,omitempty"`
}

// UpdateInterfaceRequest — частичное обновление InterfaceMaster.
type UpdateInterfaceRequest struct {
	Name         *string     `json:"name,omitempty"`
	Description  *string     `json:"description,omitempty"`
	InputSchema  optionalDoc `json:"input_schema"`
	OutputSchema optionalDoc `json:"output_schema"`
	IsActive     *bool       `json:"is_active,omitempty"`
}

// InterfaceResponse — ответ с InterfaceMaster.
type InterfaceResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	InputSchema  any       `json:"input_schema,omitempty"`
	OutputSchema any       `json:"output_schema,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InterfaceFromDomain конвертирует domain.InterfaceMaster в InterfaceResponse.
func InterfaceFromDomain(m domain.InterfaceMaster) InterfaceResponse {
	return InterfaceResponse{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		InputSchema:  m.InputSchema,
		OutputSchema: m.OutputSchema,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Workflow DTOs

// WorkflowStepRequest — один шаг при замене состава workflow.
type WorkflowStepRequest struct {
	TaskMasterID      uuid.UUID `json:"task_master_id"`
	InputDataTemplate any       `json:"input_data_template,omitempty"`
	IsRequired        *bool     `json:"is_required,omitempty"`
	RetryOnFailure    bool      `json:"retry_on_failure,omitempty"`
}

// ReplaceWorkflowRequest — запрос на замену цепочки workflow.
type ReplaceWorkflowRequest struct {
	Steps []WorkflowStepRequest `json:"steps"`
}

// WorkflowStepResponse — ответ с шагом workflow.
type WorkflowStepResponse struct {
	ID                uuid.UUID `json:"id"`
	JobMasterID       uuid.UUID `json:"job_master_id"`
	TaskMasterID      uuid.UUID `json:"task_master_id"`
	Order             int       `json:"order"`
	InputDataTemplate any       `json:"input_data_template,omitempty"`
	IsRequired        bool      `json:"is_required"`
	RetryOnFailure    bool      `json:"retry_on_failure"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	TaskMaster *TaskMasterResponse `json:"task_master,omitempty"`
}

// WorkflowStepFromDomain конвертирует domain.WorkflowStep в ответ.
func WorkflowStepFromDomain(s domain.WorkflowStep) WorkflowStepResponse {
	resp := WorkflowStepResponse{
		ID:                s.ID,
		JobMasterID:       s.JobMasterID,
		TaskMasterID:      s.TaskMasterID,
		Order:             s.Order,
		InputDataTemplate: s.InputDataTemplate,
		IsRequired:        s.IsRequired,
		RetryOnFailure:    s.RetryOnFailure,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.TaskMaster != nil {
		tm := TaskMasterFromDomain(*s.TaskMaster)
		resp.TaskMaster = &tm
	}
	return resp
}

// Job DTOs

// CreateJobRequest — запрос на прямое создание job (без мастера).
type CreateJobRequest struct {
	Name    string         `json:"name,omitempty"`
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`

	TimeoutSec      int        `json:"timeout_sec,omitempty"`
	MaxAttempts     int        `json:"max_attempts,omitempty"`
	BackoffStrategy string     `json:"backoff_strategy,omitempty"`
	BackoffSeconds  *float64   `json:"backoff_seconds,omitempty"`
	Priority        int        `json:"priority,omitempty"`
	TTLSeconds      *int       `json:"ttl_seconds,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
}

// SubmitFromMasterRequest — запрос на создание job из JobMaster
// с переопределениями вызывающего.
type SubmitFromMasterRequest struct {
	Name    string         `json:"name,omitempty"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`
	Tags    []string       `json:"tags,omitempty"`

	TimeoutSec      *int       `json:"timeout_sec,omitempty"`
	MaxAttempts     *int       `json:"max_attempts,omitempty"`
	BackoffStrategy *string    `json:"backoff_strategy,omitempty"`
	BackoffSeconds  *float64   `json:"backoff_seconds,omitempty"`
	Priority        *int       `json:"priority,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
}

// ToOverrides конвертирует запрос в domain.JobOverrides.
func (r SubmitFromMasterRequest) ToOverrides() domain.JobOverrides {
	ov := domain.JobOverrides{
		Name:    r.Name,
		Headers: r.Headers,
		Params:  r.Params,
		Body:    r.Body,
		Tags:    r.Tags,

		TimeoutSec:     r.TimeoutSec,
		MaxAttempts:    r.MaxAttempts,
		BackoffSeconds: r.BackoffSeconds,
		Priority:       r.Priority,
		ScheduledAt:    r.ScheduledAt,
	}
	if r.BackoffStrategy != nil {
		strategy := domain.ParseBackoffStrategy(*r.BackoffStrategy)
		ov.BackoffStrategy = &strategy
	}
	return ov
}

// JobResponse — ответ с job.
type JobResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name,omitempty"`
	Status        string     `json:"status"`
	MasterID      *uuid.UUID `json:"master_id,omitempty"`
	MasterVersion *int       `json:"master_version,omitempty"`

	Attempt     int `json:"attempt"`
	MaxAttempts int `json:"max_attempts"`
	Priority    int `json:"priority"`

	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`

	TimeoutSec      int      `json:"timeout_sec"`
	BackoffStrategy string   `json:"backoff_strategy"`
	BackoffSeconds  float64  `json:"backoff_seconds"`
	TTLSeconds      *int     `json:"ttl_seconds,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j domain.Job) JobResponse {
	return JobResponse{
		ID:            j.ID,
		Name:          j.Name,
		Status:        string(j.Status),
		MasterID:      j.MasterID,
		MasterVersion: j.MasterVersion,

		Attempt:     j.Attempt,
		MaxAttempts: j.MaxAttempts,
		Priority:    j.Priority,

		Method:  j.Method,
		URL:     j.URL,
		Headers: j.Headers,
		Params:  j.Params,
		Body:    j.Body,

		TimeoutSec:      j.TimeoutSec,
		BackoffStrategy: string(j.BackoffStrategy),
		BackoffSeconds:  j.BackoffSeconds,
		TTLSeconds:      j.TTLSeconds,
		Tags:            j.Tags,

		ScheduledAt:   j.ScheduledAt,
		NextAttemptAt: j.NextAttemptAt,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
	}
}

// TaskResponse — ответ с task (шагом workflow).
type TaskResponse struct {
	ID            uuid.UUID `json:"id"`
	JobID         uuid.UUID `json:"job_id"`
	MasterID      uuid.UUID `json:"master_id"`
	MasterVersion *int      `json:"master_version,omitempty"`
	Order         int       `json:"order"`
	Status        string    `json:"status"`

	InputData  any    `json:"input_data,omitempty"`
	OutputData any    `json:"output_data,omitempty"`
	Attempt    int    `json:"attempt"`
	Error      string `json:"error,omitempty"`
	DurationMs *int   `json:"duration_ms,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TaskFromDomain конвертирует domain.Task в TaskResponse.
func TaskFromDomain(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		JobID:         t.JobID,
		MasterID:      t.MasterID,
		MasterVersion: t.MasterVersion,
		Order:         t.Order,
		Status:        string(t.Status),

		InputData:  t.InputData,
		OutputData: t.OutputData,
		Attempt:    t.Attempt,
		Error:      t.Error,
		DurationMs: t.DurationMs,

		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		CreatedAt:  t.CreatedAt,
	}
}

// Result DTOs

// ResultResponse — последний результат job.
type ResultResponse struct {
	JobID           uuid.UUID      `json:"job_id"`
	ResponseStatus  *int           `json:"response_status,omitempty"`
	ResponseHeaders map[string]any `json:"response_headers,omitempty"`
	ResponseBody    any            `json:"response_body,omitempty"`
	Error           string         `json:"error,omitempty"`
	DurationMs      int            `json:"duration_ms"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
}

// ResultFromDomain конвертирует domain.JobResult в ResultResponse.
func ResultFromDomain(r domain.JobResult) ResultResponse {
	return ResultResponse{
		JobID:           r.JobID,
		ResponseStatus:  r.ResponseStatus,
		ResponseHeaders: r.ResponseHeaders,
		ResponseBody:    r.ResponseBody,
		Error:           r.Error,
		DurationMs:      r.DurationMs,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// AttemptResponse — результат одной попытки job.
type AttemptResponse struct {
	JobID           uuid.UUID      `json:"job_id"`
	Attempt         int            `json:"attempt"`
	ResponseStatus  *int           `json:"response_status,omitempty"`
	ResponseHeaders map[string]any `json:"response_headers,omitempty"`
	ResponseBody    any            `json:"response_body,omitempty"`
	Error           string         `json:"error,omitempty"`
	DurationMs      int            `json:"duration_ms"`
	CreatedAt       time.Time      `json:"created_at"`
}

// AttemptFromDomain конвертирует domain.JobResultAttempt в AttemptResponse.
func AttemptFromDomain(a domain.JobResultAttempt) AttemptResponse {
	return AttemptResponse{
		JobID:           a.JobID,
		Attempt:         a.Attempt,
		ResponseStatus:  a.ResponseStatus,
		ResponseHeaders: a.ResponseHeaders,
		ResponseBody:    a.ResponseBody,
		Error:           a.Error,
		DurationMs:      a.DurationMs,
		CreatedAt:       a.CreatedAt,
	}
}
