package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

// memJobStore — JobStore в памяти для тестов processJob.
type memJobStore struct {
	mu      sync.Mutex
	job     *domain.Job
	updates []domain.Job
	counts  map[domain.JobStatus]int
}

func (s *memJobStore) ClaimNext(context.Context) (*domain.Job, error) {
	return nil, repo.ErrNotFound
}

func (s *memJobStore) GetByID(context.Context, uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.job
	return &copied, nil
}

func (s *memJobStore) Update(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = job
	s.updates = append(s.updates, *job)
	return nil
}

func (s *memJobStore) CountByStatus(context.Context) (map[domain.JobStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts, nil
}

// memJobTaskStore дополняет memTaskStore до JobTaskStore.
type memJobTaskStore struct {
	memTaskStore
	resets []int
}

func (s *memJobTaskStore) ListByJob(context.Context, uuid.UUID) ([]domain.Task, error) {
	return nil, nil
}

func (s *memJobTaskStore) ResetFrom(_ context.Context, _ uuid.UUID, fromOrder int) error {
	s.resets = append(s.resets, fromOrder)
	return nil
}

type memWorkflowStore struct{}

func (memWorkflowStore) ListSteps(context.Context, uuid.UUID) ([]domain.WorkflowStep, error) {
	return nil, nil
}

type savedResult struct {
	result  domain.JobResult
	attempt int
}

type memResultStore struct {
	mu    sync.Mutex
	saves []savedResult
}

func (s *memResultStore) Save(_ context.Context, result *domain.JobResult, attempt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, savedResult{result: *result, attempt: attempt})
	return nil
}

func newTestWorker(jobs *memJobStore, tasks *memJobTaskStore, results *memResultStore) *Worker {
	executor := testExecutor(defaultMaxResultBytes)
	logger := discardLogger()
	return &Worker{
		jobRepo:      jobs,
		taskRepo:     tasks,
		workflowRepo: memWorkflowStore{},
		resultRepo:   results,
		executor:     executor,
		chain:        NewChainRunner(tasks, executor, logger),
		wake:         make(chan struct{}, 1),
		logger:       logger,
	}
}

// Сценарий: две неудачные попытки с exponential backoff (base=2s),
// третья успешна. После первого провала attempt=2 и next_attempt_at
// примерно через 4s, после второго attempt=3 и примерно через 8s,
// после успеха job терминален и окно следующей попытки снято.
func TestProcessJob_RetrySequenceExponential(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	job := &domain.Job{
		ID:              uuid.New(),
		Name:            "flaky-call",
		Status:          domain.JobStatusRunning,
		Attempt:         1,
		MaxAttempts:     3,
		Method:          http.MethodGet,
		URL:             server.URL,
		BackoffStrategy: domain.BackoffExponential,
		BackoffSeconds:  2,
	}

	jobs := &memJobStore{job: job}
	results := &memResultStore{}
	w := newTestWorker(jobs, &memJobTaskStore{}, results)
	ctx := context.Background()

	runAttempt := func(wantAttempt int, wantDelay time.Duration) {
		t.Helper()

		job.Status = domain.JobStatusRunning
		before := time.Now()
		if err := w.processJob(ctx, job); err != nil {
			t.Fatalf("processJob: %v", err)
		}
		if job.Status != domain.JobStatusQueued {
			t.Fatalf("status = %s, want QUEUED", job.Status)
		}
		if job.Attempt != wantAttempt {
			t.Fatalf("attempt = %d, want %d", job.Attempt, wantAttempt)
		}
		if job.NextAttemptAt == nil {
			t.Fatal("next_attempt_at not set after retryable failure")
		}
		delay := job.NextAttemptAt.Sub(before)
		if delay < wantDelay-100*time.Millisecond || delay > wantDelay+2*time.Second {
			t.Fatalf("retry delay = %v, want ~%v", delay, wantDelay)
		}
	}

	runAttempt(2, 4*time.Second)
	runAttempt(3, 8*time.Second)

	job.Status = domain.JobStatusRunning
	if err := w.processJob(ctx, job); err != nil {
		t.Fatalf("processJob: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", job.Status)
	}
	if job.NextAttemptAt != nil {
		t.Error("next_attempt_at still set after success")
	}
	if job.FinishedAt == nil {
		t.Error("finished_at not set after success")
	}

	if len(results.saves) != 3 {
		t.Fatalf("saved %d results, want 3", len(results.saves))
	}
	for i, want := range []int{1, 2, 3} {
		if results.saves[i].attempt != want {
			t.Errorf("result %d recorded for attempt %d, want %d", i, results.saves[i].attempt, want)
		}
	}
	if results.saves[0].result.Error == "" || results.saves[1].result.Error == "" {
		t.Error("failed attempts saved without error text")
	}
	last := results.saves[2].result
	if last.Error != "" || last.ResponseStatus == nil || *last.ResponseStatus != http.StatusOK {
		t.Errorf("final result = status %v error %q, want 200 and no error", last.ResponseStatus, last.Error)
	}
}

func TestProcessJob_ExhaustedAttemptsFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	job := &domain.Job{
		ID:              uuid.New(),
		Status:          domain.JobStatusRunning,
		Attempt:         2,
		MaxAttempts:     2,
		Method:          http.MethodGet,
		URL:             server.URL,
		BackoffStrategy: domain.BackoffFixed,
		BackoffSeconds:  1,
	}

	jobs := &memJobStore{job: job}
	w := newTestWorker(jobs, &memJobTaskStore{}, &memResultStore{})

	if err := w.processJob(context.Background(), job); err != nil {
		t.Fatalf("processJob: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want FAILED", job.Status)
	}
	if job.NextAttemptAt != nil {
		t.Error("next_attempt_at set on terminal failure")
	}
	if job.FinishedAt == nil {
		t.Error("finished_at not set on terminal failure")
	}
}

func TestProcessJob_SkipsFinalizeWhenCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	job := &domain.Job{
		ID:          uuid.New(),
		Status:      domain.JobStatusRunning,
		Attempt:     1,
		MaxAttempts: 3,
		Method:      http.MethodGet,
		URL:         server.URL,
	}

	// В БД job уже отменён: воркер не должен перезаписать статус.
	canceled := *job
	canceled.MarkCanceled()
	jobs := &memJobStore{job: &canceled}
	results := &memResultStore{}
	w := newTestWorker(jobs, &memJobTaskStore{}, results)

	if err := w.processJob(context.Background(), job); err != nil {
		t.Fatalf("processJob: %v", err)
	}
	if len(jobs.updates) != 0 {
		t.Errorf("job updated %d times after cancel, want 0", len(jobs.updates))
	}
	if len(results.saves) != 1 {
		t.Errorf("saved %d results, want 1", len(results.saves))
	}
}

func TestWorker_StopMarksStopped(t *testing.T) {
	w := newTestWorker(&memJobStore{job: &domain.Job{}}, &memJobTaskStore{}, &memResultStore{})
	if w.IsStopped() {
		t.Fatal("worker reports stopped before Stop")
	}
	w.Stop()
	if !w.IsStopped() {
		t.Fatal("worker does not report stopped after Stop")
	}
}

func TestWorker_UpdateQueueDepth(t *testing.T) {
	jobs := &memJobStore{
		job: &domain.Job{},
		counts: map[domain.JobStatus]int{
			domain.JobStatusQueued:  3,
			domain.JobStatusRunning: 1,
		},
	}
	w := newTestWorker(jobs, &memJobTaskStore{}, &memResultStore{})
	ctx := context.Background()

	w.updateQueueDepth(ctx)
	if got := testutil.ToFloat64(telemetry.QueueDepth.WithLabelValues(string(domain.JobStatusQueued))); got != 3 {
		t.Errorf("QUEUED depth = %v, want 3", got)
	}
	if got := testutil.ToFloat64(telemetry.QueueDepth.WithLabelValues(string(domain.JobStatusFailed))); got != 0 {
		t.Errorf("FAILED depth = %v, want 0", got)
	}

	// Опустевшая очередь обнуляет gauge, а не оставляет старое значение.
	jobs.counts = map[domain.JobStatus]int{}
	w.updateQueueDepth(ctx)
	if got := testutil.ToFloat64(telemetry.QueueDepth.WithLabelValues(string(domain.JobStatusQueued))); got != 0 {
		t.Errorf("QUEUED depth after drain = %v, want 0", got)
	}
}
