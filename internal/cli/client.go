package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// JobMasterResponse — job master из API.
type JobMasterResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Method          string   `json:"method"`
	URL             string   `json:"url"`
	TimeoutSec      int      `json:"timeout_sec"`
	MaxAttempts     int      `json:"max_attempts"`
	BackoffStrategy string   `json:"backoff_strategy"`
	BackoffSeconds  float64  `json:"backoff_seconds"`
	Priority        int      `json:"priority"`
	Tags            []string `json:"tags,omitempty"`
	CurrentVersion  int      `json:"current_version"`
	IsActive        bool     `json:"is_active"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// TaskMasterResponse — task master из API.
type TaskMasterResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Method         string `json:"method"`
	URL            string `json:"url"`
	TimeoutSec     int    `json:"timeout_sec"`
	CurrentVersion int    `json:"current_version"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// MasterVersionResponse — снимок версии master из API.
// Общая форма для job masters и task masters.
type MasterVersionResponse struct {
	MasterID      string   `json:"master_id"`
	Version       int      `json:"version"`
	Name          string   `json:"name"`
	Method        string   `json:"method"`
	URL           string   `json:"url"`
	ChangeReason  string   `json:"change_reason,omitempty"`
	HasChanges    bool     `json:"has_changes"`
	ChangedFields []string `json:"changed_fields,omitempty"`
	CreatedBy     string   `json:"created_by,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// WorkflowStepResponse — шаг workflow из API.
type WorkflowStepResponse struct {
	ID                string              `json:"id"`
	JobMasterID       string              `json:"job_master_id"`
	TaskMasterID      string              `json:"task_master_id"`
	Order             int                 `json:"order"`
	InputDataTemplate any                 `json:"input_data_template,omitempty"`
	IsRequired        bool                `json:"is_required"`
	RetryOnFailure    bool                `json:"retry_on_failure"`
	TaskMaster        *TaskMasterResponse `json:"task_master,omitempty"`
}

// JobResponse — job из API.
type JobResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Status        string `json:"status"`
	MasterID      string `json:"master_id,omitempty"`
	MasterVersion *int   `json:"master_version,omitempty"`

	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Priority    int    `json:"priority"`
	Method      string `json:"method"`
	URL         string `json:"url"`

	BackoffStrategy string   `json:"backoff_strategy"`
	BackoffSeconds  float64  `json:"backoff_seconds"`
	Tags            []string `json:"tags,omitempty"`

	ScheduledAt   string `json:"scheduled_at,omitempty"`
	NextAttemptAt string `json:"next_attempt_at,omitempty"`
	CreatedAt     string `json:"created_at"`
	StartedAt     string `json:"started_at,omitempty"`
	FinishedAt    string `json:"finished_at,omitempty"`
}

// JobTaskResponse — task внутри job из API.
type JobTaskResponse struct {
	ID            string `json:"id"`
	JobID         string `json:"job_id"`
	MasterID      string `json:"master_id"`
	MasterVersion *int   `json:"master_version,omitempty"`
	Order         int    `json:"order"`
	Status        string `json:"status"`
	Attempt       int    `json:"attempt"`
	Error         string `json:"error,omitempty"`
	DurationMs    *int   `json:"duration_ms,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ResultResponse — итоговый результат job из API.
type ResultResponse struct {
	JobID           string         `json:"job_id"`
	ResponseStatus  *int           `json:"response_status,omitempty"`
	ResponseHeaders map[string]any `json:"response_headers,omitempty"`
	ResponseBody    any            `json:"response_body,omitempty"`
	Error           string         `json:"error,omitempty"`
	DurationMs      int            `json:"duration_ms"`
	CreatedAt       string         `json:"created_at"`
}

// AttemptResponse — результат отдельной попытки job из API.
type AttemptResponse struct {
	JobID          string `json:"job_id"`
	Attempt        int    `json:"attempt"`
	ResponseStatus *int   `json:"response_status,omitempty"`
	Error          string `json:"error,omitempty"`
	DurationMs     int    `json:"duration_ms"`
	CreatedAt      string `json:"created_at"`
}

// --- Request types ---

// CreateMasterRequest — создание job master.
type CreateMasterRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Method          string   `json:"method"`
	URL             string   `json:"url"`
	TimeoutSec      int      `json:"timeout_sec,omitempty"`
	MaxAttempts     int      `json:"max_attempts,omitempty"`
	BackoffStrategy string   `json:"backoff_strategy,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	CreatedBy       string   `json:"created_by,omitempty"`
}

// UpdateMasterRequest — частичное обновление job master.
type UpdateMasterRequest struct {
	Name            *string `json:"name,omitempty"`
	Method          *string `json:"method,omitempty"`
	URL             *string `json:"url,omitempty"`
	MaxAttempts     *int    `json:"max_attempts,omitempty"`
	BackoffStrategy *string `json:"backoff_strategy,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
	UpdatedBy       string  `json:"updated_by,omitempty"`
}

// CreateTaskMasterRequest — создание task master.
type CreateTaskMasterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method"`
	URL         string `json:"url"`
	TimeoutSec  int    `json:"timeout_sec,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// UpdateTaskMasterRequest — частичное обновление task master.
type UpdateTaskMasterRequest struct {
	Name       *string `json:"name,omitempty"`
	Method     *string `json:"method,omitempty"`
	URL        *string `json:"url,omitempty"`
	TimeoutSec *int    `json:"timeout_sec,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	UpdatedBy  string  `json:"updated_by,omitempty"`
}

// BranchVersionRequest — создание нового master из снимка версии.
type BranchVersionRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by,omitempty"`
}

// SubmitJobRequest — постановка job из master с переопределениями.
type SubmitJobRequest struct {
	Name        string         `json:"name,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Body        any            `json:"body,omitempty"`
	Priority    *int           `json:"priority,omitempty"`
	ScheduledAt *string        `json:"scheduled_at,omitempty"`
}

// ListMastersOpts — параметры фильтрации masters.
type ListMastersOpts struct {
	Active *bool
	Tag    string
	Limit  int
}

// ListJobsOpts — параметры фильтрации jobs.
type ListJobsOpts struct {
	Status   string
	MasterID string
	Tag      string
	Limit    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (o ListMastersOpts) values() url.Values {
	params := url.Values{}
	if o.Active != nil {
		params.Set("is_active", strconv.FormatBool(*o.Active))
	}
	if o.Tag != "" {
		params.Set("tag", o.Tag)
	}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	return params
}

// --- Client ---

// Client — HTTP-клиент для jobqueue API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Job masters ---

// ListJobMasters возвращает job masters с фильтрацией.
func (c *Client) ListJobMasters(opts ListMastersOpts) ([]JobMasterResponse, error) {
	var masters []JobMasterResponse
	err := c.list("/api/v1/job-masters", opts.values(), &masters)
	return masters, err
}

// CreateJobMaster создаёт новый job master.
func (c *Client) CreateJobMaster(req CreateMasterRequest) (*JobMasterResponse, error) {
	var master JobMasterResponse
	err := c.post("/api/v1/job-masters", req, &master)
	return &master, err
}

// GetJobMaster возвращает job master по ID.
func (c *Client) GetJobMaster(id string) (*JobMasterResponse, error) {
	var master JobMasterResponse
	err := c.get("/api/v1/job-masters/"+id, &master)
	return &master, err
}

// UpdateJobMaster частично обновляет job master.
func (c *Client) UpdateJobMaster(id string, req UpdateMasterRequest) (*JobMasterResponse, error) {
	var master JobMasterResponse
	err := c.patch("/api/v1/job-masters/"+id, req, &master)
	return &master, err
}

// DeleteJobMaster удаляет job master.
func (c *Client) DeleteJobMaster(id string) error {
	return c.delete("/api/v1/job-masters/" + id)
}

// ListJobMasterVersions возвращает историю версий job master.
func (c *Client) ListJobMasterVersions(id string) ([]MasterVersionResponse, error) {
	var versions []MasterVersionResponse
	err := c.list("/api/v1/job-masters/"+id+"/versions", nil, &versions)
	return versions, err
}

// GetJobMasterVersion возвращает снимок конкретной версии job master.
func (c *Client) GetJobMasterVersion(id string, version int) (*MasterVersionResponse, error) {
	var v MasterVersionResponse
	err := c.get("/api/v1/job-masters/"+id+"/versions/"+strconv.Itoa(version), &v)
	return &v, err
}

// BranchJobMaster создаёт новый job master из снимка версии.
func (c *Client) BranchJobMaster(id string, version int, req BranchVersionRequest) (*JobMasterResponse, error) {
	var master JobMasterResponse
	path := "/api/v1/job-masters/" + id + "/versions/" + strconv.Itoa(version) + "/masters"
	err := c.post(path, req, &master)
	return &master, err
}

// GetWorkflow возвращает цепочку шагов job master.
func (c *Client) GetWorkflow(id string) ([]WorkflowStepResponse, error) {
	var steps []WorkflowStepResponse
	err := c.list("/api/v1/job-masters/"+id+"/workflow", nil, &steps)
	return steps, err
}

// ReplaceWorkflow заменяет цепочку шагов job master.
// steps — JSON-массив шагов как в теле PUT /workflow.
// Ответ приходит в list-обёртке, поэтому не через doData.
func (c *Client) ReplaceWorkflow(id string, steps json.RawMessage) ([]WorkflowStepResponse, error) {
	body := map[string]json.RawMessage{"steps": steps}

	resp, err := c.do(http.MethodPut, "/api/v1/job-masters/"+id+"/workflow", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var result []WorkflowStepResponse
	err = json.Unmarshal(lr.Data, &result)
	return result, err
}

// DeleteWorkflow удаляет цепочку шагов job master.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/job-masters/" + id + "/workflow")
}

// ValidateWorkflow возвращает отчёт проверки цепочки шагов.
func (c *Client) ValidateWorkflow(id string) (map[string]any, error) {
	var report map[string]any
	err := c.get("/api/v1/job-masters/"+id+"/workflow/validate", &report)
	return report, err
}

// --- Task masters ---

// ListTaskMasters возвращает task masters с фильтрацией.
func (c *Client) ListTaskMasters(opts ListMastersOpts) ([]TaskMasterResponse, error) {
	var masters []TaskMasterResponse
	err := c.list("/api/v1/task-masters", opts.values(), &masters)
	return masters, err
}

// CreateTaskMaster создаёт новый task master.
func (c *Client) CreateTaskMaster(req CreateTaskMasterRequest) (*TaskMasterResponse, error) {
	var master TaskMasterResponse
	err := c.post("/api/v1/task-masters", req, &master)
	return &master, err
}

// GetTaskMaster возвращает task master по ID.
func (c *Client) GetTaskMaster(id string) (*TaskMasterResponse, error) {
	var master TaskMasterResponse
	err := c.get("/api/v1/task-masters/"+id, &master)
	return &master, err
}

// UpdateTaskMaster частично обновляет task master.
func (c *Client) UpdateTaskMaster(id string, req UpdateTaskMasterRequest) (*TaskMasterResponse, error) {
	var master TaskMasterResponse
	err := c.patch("/api/v1/task-masters/"+id, req, &master)
	return &master, err
}

// DeleteTaskMaster удаляет task master.
func (c *Client) DeleteTaskMaster(id string) error {
	return c.delete("/api/v1/task-masters/" + id)
}

// ListTaskMasterVersions возвращает историю версий task master.
func (c *Client) ListTaskMasterVersions(id string) ([]MasterVersionResponse, error) {
	var versions []MasterVersionResponse
	err := c.list("/api/v1/task-masters/"+id+"/versions", nil, &versions)
	return versions, err
}

// GetTaskMasterVersion возвращает снимок конкретной версии task master.
func (c *Client) GetTaskMasterVersion(id string, version int) (*MasterVersionResponse, error) {
	var v MasterVersionResponse
	err := c.get("/api/v1/task-masters/"+id+"/versions/"+strconv.Itoa(version), &v)
	return &v, err
}

// --- Jobs ---

// ListJobs возвращает список jobs с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.MasterID != "" {
		params.Set("master_id", opts.MasterID)
	}
	if opts.Tag != "" {
		params.Set("tag", opts.Tag)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// SubmitJob ставит job из master с переопределениями.
func (c *Client) SubmitJob(masterID string, req SubmitJobRequest) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/job-masters/"+masterID+"/jobs", req, &job)
	return &job, err
}

// GetJob возвращает job по ID.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+id, &job)
	return &job, err
}

// CancelJob отменяет job.
func (c *Client) CancelJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs/"+id+"/cancel", nil, &job)
	return &job, err
}

// RetryJob перезапускает завершённый job.
func (c *Client) RetryJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs/"+id+"/retry", nil, &job)
	return &job, err
}

// GetJobResult возвращает итоговый результат job.
func (c *Client) GetJobResult(id string) (*ResultResponse, error) {
	var result ResultResponse
	err := c.get("/api/v1/jobs/"+id+"/result", &result)
	return &result, err
}

// ListJobAttempts возвращает результаты всех попыток job.
func (c *Client) ListJobAttempts(id string) ([]AttemptResponse, error) {
	var attempts []AttemptResponse
	err := c.list("/api/v1/jobs/"+id+"/attempts", nil, &attempts)
	return attempts, err
}

// ListJobTasks возвращает tasks внутри job.
func (c *Client) ListJobTasks(id string) ([]JobTaskResponse, error) {
	var tasks []JobTaskResponse
	err := c.list("/api/v1/jobs/"+id+"/tasks", nil, &tasks)
	return tasks, err
}

// RetryJobFromTask перезапускает job начиная с task с указанным порядком.
func (c *Client) RetryJobFromTask(id string, order int) (*JobResponse, error) {
	var job JobResponse
	path := "/api/v1/jobs/" + id + "/tasks/" + strconv.Itoa(order) + "/retry"
	err := c.post(path, nil, &job)
	return &job, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) patch(path string, body any, result any) error {
	return c.doData(http.MethodPatch, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
