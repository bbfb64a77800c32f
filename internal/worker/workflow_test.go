package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
)

// memTaskStore — TaskStore в памяти для тестов цепочки.
type memTaskStore struct {
	mu      sync.Mutex
	updates []domain.Task
}

func (s *memTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, *task)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestChain(store TaskStore) *ChainRunner {
	return NewChainRunner(store, testExecutor(defaultMaxResultBytes), discardLogger())
}

func chainJob(attempt, maxAttempts int) *domain.Job {
	return &domain.Job{
		ID:          uuid.New(),
		Status:      domain.JobStatusRunning,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
	}
}

func chainTask(jobID uuid.UUID, order int) *domain.Task {
	return &domain.Task{
		ID:     uuid.New(),
		JobID:  jobID,
		Order:  order,
		Status: domain.TaskStatusQueued,
	}
}

func chainStep(order int, master *domain.TaskMaster) domain.WorkflowStep {
	return domain.WorkflowStep{
		ID:           uuid.New(),
		TaskMasterID: master.ID,
		Order:        order,
		IsRequired:   true,
		TaskMaster:   master,
	}
}

func stepMaster(method, url string) *domain.TaskMaster {
	return &domain.TaskMaster{
		ID:     uuid.New(),
		Name:   "test-step",
		Method: method,
		URL:    url,
	}
}

func TestChainRunner_TwoStepsWithResolution(t *testing.T) {
	var secondBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/create":
			json.NewEncoder(w).Encode(map[string]any{"id": "order-42"})
		case "/notify":
			json.NewDecoder(r.Body).Decode(&secondBody)
			json.NewEncoder(w).Encode(map[string]any{"sent": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	job := chainJob(1, 3)
	tasks := []*domain.Task{chainTask(job.ID, 0), chainTask(job.ID, 1)}

	step0 := chainStep(0, stepMaster("GET", server.URL+"/create"))
	step1 := chainStep(1, stepMaster("POST", server.URL+"/notify"))
	step1.InputDataTemplate = map[string]any{
		"order_id": "{{tasks[0].output_data.body.id}}",
	}

	store := &memTaskStore{}
	outcome := newTestChain(store).Run(context.Background(), job, tasks, []domain.WorkflowStep{step0, step1})

	if !outcome.Succeeded {
		t.Fatalf("chain should succeed: %s", outcome.Error)
	}
	if outcome.LastResult == nil {
		t.Fatal("expected last result")
	}

	// Второй шаг получил выход первого через шаблон.
	if secondBody["order_id"] != "order-42" {
		t.Errorf("expected resolved order_id, got %v", secondBody)
	}

	for _, task := range tasks {
		if task.Status != domain.TaskStatusSucceeded {
			t.Errorf("task %d should be SUCCEEDED, got %s", task.Order, task.Status)
		}
	}
	if tasks[0].OutputData == nil {
		t.Error("first task should have output_data")
	}
}

func TestChainRunner_SkipsSucceededTasks(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	job := chainJob(2, 3)
	done := chainTask(job.ID, 0)
	done.Status = domain.TaskStatusSucceeded
	done.OutputData = map[string]any{"body": map[string]any{"kept": true}}
	tasks := []*domain.Task{done, chainTask(job.ID, 1)}

	steps := []domain.WorkflowStep{
		chainStep(0, stepMaster("GET", server.URL)),
		chainStep(1, stepMaster("GET", server.URL)),
	}

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, steps)

	if !outcome.Succeeded {
		t.Fatalf("chain should succeed: %s", outcome.Error)
	}
	if calls != 1 {
		t.Errorf("SUCCEEDED task must be skipped, got %d HTTP calls", calls)
	}
}

func TestChainRunner_ResolveErrorNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	job := chainJob(1, 5)
	tasks := []*domain.Task{chainTask(job.ID, 0)}

	// Ссылка за границы цепочки: дефект конфигурации, retry_on_failure
	// не должен приводить к повтору.
	step := chainStep(0, stepMaster("GET", server.URL))
	step.RetryOnFailure = true
	step.InputDataTemplate = map[string]any{
		"value": "{{tasks[5].output_data.body.id}}",
	}

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, []domain.WorkflowStep{step})

	if outcome.Succeeded {
		t.Fatal("chain should fail on resolution error")
	}
	if outcome.Retryable {
		t.Error("resolution errors must not be retryable")
	}
	if outcome.FailedOrder != 0 {
		t.Errorf("expected failed order 0, got %d", outcome.FailedOrder)
	}
	if tasks[0].Status != domain.TaskStatusFailed {
		t.Errorf("task should be FAILED, got %s", tasks[0].Status)
	}
}

func TestChainRunner_RetryOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	job := chainJob(1, 3)
	tasks := []*domain.Task{chainTask(job.ID, 0), chainTask(job.ID, 1)}

	step0 := chainStep(0, stepMaster("GET", server.URL))
	step0.RetryOnFailure = true
	steps := []domain.WorkflowStep{step0, chainStep(1, stepMaster("GET", server.URL))}

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, steps)

	if outcome.Succeeded {
		t.Fatal("chain should fail")
	}
	if !outcome.Retryable {
		t.Error("retry_on_failure with budget left should be retryable")
	}
	if outcome.FailedOrder != 0 {
		t.Errorf("expected failed order 0, got %d", outcome.FailedOrder)
	}
	// Цепочка прервана: второй шаг не выполнялся.
	if tasks[1].Status != domain.TaskStatusQueued {
		t.Errorf("second task should stay QUEUED, got %s", tasks[1].Status)
	}
}

func TestChainRunner_RetryOnFailureBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	job := chainJob(3, 3) // попытки исчерпаны
	tasks := []*domain.Task{chainTask(job.ID, 0)}

	step := chainStep(0, stepMaster("GET", server.URL))
	step.RetryOnFailure = true

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, []domain.WorkflowStep{step})

	if outcome.Succeeded {
		t.Fatal("chain should fail")
	}
	if outcome.Retryable {
		t.Error("exhausted attempt budget must not be retryable")
	}
}

func TestChainRunner_OptionalStepFailureContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/flaky" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	job := chainJob(1, 1)
	tasks := []*domain.Task{chainTask(job.ID, 0), chainTask(job.ID, 1)}

	optional := chainStep(0, stepMaster("GET", server.URL+"/flaky"))
	optional.IsRequired = false
	steps := []domain.WorkflowStep{optional, chainStep(1, stepMaster("GET", server.URL+"/ok"))}

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, steps)

	if !outcome.Succeeded {
		t.Fatalf("optional step failure must not fail the chain: %s", outcome.Error)
	}
	if tasks[0].Status != domain.TaskStatusFailed {
		t.Errorf("optional task should be FAILED, got %s", tasks[0].Status)
	}
	if tasks[1].Status != domain.TaskStatusSucceeded {
		t.Errorf("second task should be SUCCEEDED, got %s", tasks[1].Status)
	}
}

func TestChainRunner_RequiredStepFailureStops(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	job := chainJob(1, 1)
	tasks := []*domain.Task{chainTask(job.ID, 0), chainTask(job.ID, 1)}

	steps := []domain.WorkflowStep{
		chainStep(0, stepMaster("GET", server.URL+"/broken")),
		chainStep(1, stepMaster("GET", server.URL+"/ok")),
	}

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, steps)

	if outcome.Succeeded {
		t.Fatal("required step failure must fail the chain")
	}
	if outcome.Retryable {
		t.Error("no retry_on_failure: must not be retryable")
	}
	if outcome.Error == "" {
		t.Error("expected chain error message")
	}
	if calls != 1 {
		t.Errorf("chain must stop after required failure, got %d HTTP calls", calls)
	}
	if tasks[1].Status != domain.TaskStatusQueued {
		t.Errorf("second task should stay QUEUED, got %s", tasks[1].Status)
	}
}

func TestChainRunner_MissingStepTemplate(t *testing.T) {
	job := chainJob(1, 1)
	tasks := []*domain.Task{chainTask(job.ID, 0)}

	outcome := newTestChain(&memTaskStore{}).Run(context.Background(), job, tasks, nil)

	if outcome.Succeeded {
		t.Fatal("task without matching step must fail the chain")
	}
	if outcome.Retryable {
		t.Error("missing step template must not be retryable")
	}
}
