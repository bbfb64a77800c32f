package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/mq"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 5 * time.Second
	defaultConcurrency  = 4
	defaultPrefetch     = 5

	// queueDepthInterval — период обновления gauge глубины очереди.
	queueDepthInterval = 30 * time.Second
)

// JobStore — контракт персистентности jobs, используемый воркером.
// *repo.JobRepo удовлетворяет ему.
type JobStore interface {
	ClaimNext(ctx context.Context) (*domain.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}

// JobTaskStore расширяет TaskStore операциями над цепочкой tasks job.
type JobTaskStore interface {
	TaskStore
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Task, error)
	ResetFrom(ctx context.Context, jobID uuid.UUID, fromOrder int) error
}

// WorkflowStore — чтение шагов workflow шаблона.
type WorkflowStore interface {
	ListSteps(ctx context.Context, jobMasterID uuid.UUID) ([]domain.WorkflowStep, error)
}

// ResultStore — запись результатов попыток.
type ResultStore interface {
	Save(ctx context.Context, result *domain.JobResult, attempt int) error
}

// Worker выполняет jobs из очереди.
//
// Worker — stateless компонент системы, который:
//   - Захватывает готовые jobs из Postgres атомарным условным UPDATE
//   - Слушает события jobs.queued из RabbitMQ для раннего пробуждения
//   - Выполняет HTTP-вызов job либо цепочку tasks его workflow
//   - Реализует retry с configurable backoff (fixed/linear/exponential)
//   - Сохраняет результат и публикует событие jobs.completed
//
// Workers масштабируются горизонтально — атомарный захват гарантирует,
// что каждый job достанется ровно одному воркеру.
type Worker struct {
	// Stores
	jobRepo      JobStore
	taskRepo     JobTaskStore
	workflowRepo WorkflowStore
	resultRepo   ResultStore

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection
	consumer  *mq.Consumer

	// Execution
	executor *HTTPExecutor
	chain    *ChainRunner

	// Configuration
	concurrency  int
	pollInterval time.Duration

	// wake будит спящие claim-циклы при событии jobs.queued.
	wake chan struct{}

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Stores (конкретные *repo.* репозитории удовлетворяют контрактам)
	JobRepo      JobStore
	TaskRepo     JobTaskStore
	WorkflowRepo WorkflowStore
	ResultRepo   ResultStore

	// MQ (опционально; без него воркер работает в polling-only режиме)
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Concurrency — размер пула горутин-воркеров (default: 4).
	Concurrency int

	// PollInterval — интервал опроса БД при пустой очереди (default: 5s).
	PollInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := NewHTTPExecutor()

	return &Worker{
		jobRepo:      cfg.JobRepo,
		taskRepo:     cfg.TaskRepo,
		workflowRepo: cfg.WorkflowRepo,
		resultRepo:   cfg.ResultRepo,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		executor:     executor,
		chain:        NewChainRunner(cfg.TaskRepo, executor, logger),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		logger:       logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Пул из concurrency claim-циклов
//   - Consumer для jobs.queued (если MQ доступен)
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"concurrency", w.concurrency,
		"poll_interval", w.pollInterval,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueJobsQueued),
			Handler:  w.handleJobQueued,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.claimLoop(ctx, n)
		}(i)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.monitorQueueDepth(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// jobStatuses — полный набор статусов; нужен, чтобы обнулять gauge
// для статусов, отсутствующих в выборке.
var jobStatuses = []domain.JobStatus{
	domain.JobStatusQueued,
	domain.JobStatusRunning,
	domain.JobStatusSucceeded,
	domain.JobStatusFailed,
	domain.JobStatusCanceled,
}

// monitorQueueDepth периодически публикует количество jobs по статусам
// в gauge telemetry.QueueDepth.
func (w *Worker) monitorQueueDepth(ctx context.Context) {
	w.updateQueueDepth(ctx)

	ticker := time.NewTicker(queueDepthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.updateQueueDepth(ctx)
		}
	}
}

func (w *Worker) updateQueueDepth(ctx context.Context) {
	counts, err := w.jobRepo.CountByStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("failed to count jobs by status", "error", err)
		}
		return
	}

	for _, status := range jobStatuses {
		telemetry.QueueDepth.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// handleJobQueued будит claim-циклы при появлении нового job.
// Сам job из события не берётся — источник истины всегда БД.
func (w *Worker) handleJobQueued(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobQueuedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.queued payload", "error", err)
		return err
	}

	w.logger.Debug("received job.queued event", "job_id", payload.JobID)

	select {
	case w.wake <- struct{}{}:
	default:
	}

	return nil
}

// claimLoop — основной цикл одного воркера пула: захват и выполнение
// jobs, сон при пустой очереди.
func (w *Worker) claimLoop(ctx context.Context, n int) {
	logger := w.logger.With("worker", n)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobRepo.ClaimNext(ctx)
		if errors.Is(err, repo.ErrNotFound) {
			// Очередь пуста: ждём события или очередного poll.
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
			case <-time.After(w.pollInterval):
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		if err := w.processJob(ctx, job); err != nil {
			logger.Error("failed to process job", "job_id", job.ID, "error", err)
		}
	}
}
