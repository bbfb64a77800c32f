package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/mq"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

// attemptOutcome — итог одной попытки выполнения job.
type attemptOutcome struct {
	succeeded   bool
	retryable   bool
	errMsg      string
	result      *Result
	failedOrder int // для workflow: откуда сбрасывать tasks при retry
	isWorkflow  bool
}

// processJob выполняет захваченный job: одиночный HTTP-вызов либо
// цепочку tasks workflow, затем финализирует статус и сохраняет результат.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) error {
	telemetry.JobsClaimed.Inc()

	w.logger.Info("job started",
		"job_id", job.ID,
		"name", job.Name,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
	)

	started := time.Now()
	outcome := w.executeAttempt(ctx, job)
	telemetry.JobDuration.Observe(time.Since(started).Seconds())

	// Попытка, номер которой фиксируется в истории результатов;
	// ScheduleRetry ниже инкрементирует счётчик.
	attempt := job.Attempt

	result := w.buildJobResult(job, outcome, started)

	// Кооперативная отмена: job могли отменить, пока выполнялся вызов.
	// Терминальный статус не перезаписываем, но результат сохраняем.
	fresh, err := w.jobRepo.GetByID(ctx, job.ID)
	if err == nil && fresh.Status == domain.JobStatusCanceled {
		w.logger.Info("job canceled during execution, skipping finalize", "job_id", job.ID)
		if err := w.resultRepo.Save(ctx, result, attempt); err != nil {
			w.logger.Warn("failed to save result of canceled job", "job_id", job.ID, "error", err)
		}
		return nil
	}

	if outcome.succeeded {
		job.MarkSucceeded()
		if err := w.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("update job to succeeded: %w", err)
		}
		if err := w.resultRepo.Save(ctx, result, attempt); err != nil {
			w.logger.Warn("failed to save job result", "job_id", job.ID, "error", err)
		}
		telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusSucceeded)).Inc()

		w.logger.Info("job succeeded",
			"job_id", job.ID,
			"attempt", attempt,
			"duration_ms", result.DurationMs,
		)
		return w.publishCompletion(ctx, job)
	}

	// Провал попытки: retry в рамках бюджета либо терминальный FAILED.
	if outcome.retryable && job.CanRetry() {
		delay := Backoff(job.BackoffStrategy, job.BackoffSeconds, job.Attempt)

		if outcome.isWorkflow {
			if err := w.taskRepo.ResetFrom(ctx, job.ID, outcome.failedOrder); err != nil {
				w.logger.Error("failed to reset tasks for retry", "job_id", job.ID, "error", err)
			}
		}

		job.ScheduleRetry(delay)
		if err := w.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("update job for retry: %w", err)
		}
		if err := w.resultRepo.Save(ctx, result, attempt); err != nil {
			w.logger.Warn("failed to save job result", "job_id", job.ID, "error", err)
		}
		telemetry.JobRetries.Inc()

		w.logger.Warn("job attempt failed, retry scheduled",
			"job_id", job.ID,
			"attempt", attempt,
			"next_attempt", job.Attempt,
			"delay", delay,
			"error", outcome.errMsg,
		)
		return nil
	}

	job.MarkFailed()
	if err := w.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to failed: %w", err)
	}
	if err := w.resultRepo.Save(ctx, result, attempt); err != nil {
		w.logger.Warn("failed to save job result", "job_id", job.ID, "error", err)
	}
	telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()

	w.logger.Warn("job failed",
		"job_id", job.ID,
		"attempt", attempt,
		"error", outcome.errMsg,
	)
	return w.publishCompletion(ctx, job)
}

// executeAttempt выполняет одну попытку job.
func (w *Worker) executeAttempt(ctx context.Context, job *domain.Job) attemptOutcome {
	tasks, err := w.listTasks(ctx, job)
	if err != nil {
		return attemptOutcome{errMsg: err.Error(), retryable: true}
	}

	if len(tasks) > 0 {
		return w.executeWorkflow(ctx, job, tasks)
	}
	return w.executeSingle(ctx, job)
}

// executeSingle выполняет одиночный HTTP job.
func (w *Worker) executeSingle(ctx context.Context, job *domain.Job) attemptOutcome {
	result, execErr := w.executor.Execute(ctx, Request{
		Method:  job.Method,
		URL:     job.URL,
		Headers: job.Headers,
		Params:  job.Params,
		Body:    job.Body,
		Timeout: job.Timeout(),
	})

	if execErr == nil && result.Error == "" {
		return attemptOutcome{succeeded: true, result: result}
	}

	// Не-2xx и транспортные ошибки повторяемы в рамках бюджета попыток.
	return attemptOutcome{
		retryable: true,
		errMsg:    resultError(result, execErr),
		result:    result,
	}
}

// executeWorkflow прогоняет цепочку tasks job.
func (w *Worker) executeWorkflow(ctx context.Context, job *domain.Job, tasks []*domain.Task) attemptOutcome {
	if job.MasterID == nil {
		return attemptOutcome{errMsg: ErrNoWorkflowSteps.Error()}
	}

	steps, err := w.workflowRepo.ListSteps(ctx, *job.MasterID)
	if err != nil {
		return attemptOutcome{errMsg: fmt.Sprintf("load workflow steps: %v", err), retryable: true}
	}
	if len(steps) == 0 {
		return attemptOutcome{errMsg: ErrNoWorkflowSteps.Error()}
	}

	chain := w.chain.Run(ctx, job, tasks, steps)

	return attemptOutcome{
		succeeded:   chain.Succeeded,
		retryable:   chain.Retryable,
		errMsg:      chain.Error,
		result:      chain.LastResult,
		failedOrder: chain.FailedOrder,
		isWorkflow:  true,
	}
}

// listTasks загружает tasks job (пустой срез для одиночных jobs).
func (w *Worker) listTasks(ctx context.Context, job *domain.Job) ([]*domain.Task, error) {
	list, err := w.taskRepo.ListByJob(ctx, job.ID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*domain.Task, len(list))
	for i := range list {
		tasks[i] = &list[i]
	}
	return tasks, nil
}

// buildJobResult собирает запись результата попытки.
func (w *Worker) buildJobResult(job *domain.Job, outcome attemptOutcome, started time.Time) *domain.JobResult {
	result := &domain.JobResult{
		JobID:      job.ID,
		DurationMs: int(time.Since(started).Milliseconds()),
	}

	if outcome.result != nil {
		result.ResponseStatus = outcome.result.StatusCode
		result.ResponseHeaders = outcome.result.Headers
		result.ResponseBody = outcome.result.Body
		if outcome.result.DurationMs > 0 {
			result.DurationMs = outcome.result.DurationMs
		}
	}
	if !outcome.succeeded {
		result.Error = outcome.errMsg
	}

	return result
}

// publishCompletion публикует событие jobs.completed.
func (w *Worker) publishCompletion(ctx context.Context, job *domain.Job) error {
	if w.publisher == nil {
		return nil
	}

	payload := mq.JobCompletedPayload{
		JobID:   job.ID,
		Status:  string(job.Status),
		Attempt: job.Attempt,
	}

	if err := w.publisher.PublishJobCompleted(ctx, payload); err != nil {
		// Не возвращаем ошибку: статус уже в БД, событие — best effort.
		w.logger.Warn("failed to publish job.completed", "job_id", job.ID, "error", err)
	}

	return nil
}
