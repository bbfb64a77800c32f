package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/jobqueue/internal/domain"
	"github.com/shaiso/jobqueue/internal/engine"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

// TaskStore — минимальный контракт персистентности для прогона цепочки.
type TaskStore interface {
	Update(ctx context.Context, task *domain.Task) error
}

// ChainOutcome — итог прогона цепочки workflow.
type ChainOutcome struct {
	// Succeeded — все обязательные шаги завершились успешно.
	Succeeded bool

	// Retryable — провал допускает повторную попытку job
	// (retry_on_failure у проваленного шага).
	Retryable bool

	// FailedOrder — позиция проваленного шага (имеет смысл при !Succeeded).
	FailedOrder int

	// Error — текст ошибки проваленного шага.
	Error string

	// LastResult — результат последнего выполненного HTTP-вызова.
	// Используется как итоговый результат job.
	LastResult *Result
}

// ChainRunner последовательно выполняет tasks одного job.
//
// Для каждого QUEUED task: резолвит input_data_template по выходам
// предыдущих шагов, рендерит тело запроса из body_template шаблона
// шага, выполняет HTTP-вызов и сохраняет результат. SUCCEEDED tasks
// пропускаются — при повторной попытке job их результаты остаются
// доступными резолверу.
type ChainRunner struct {
	tasks    TaskStore
	executor *HTTPExecutor
	resolver *engine.Resolver
	logger   *slog.Logger
}

// NewChainRunner создаёт ChainRunner.
func NewChainRunner(tasks TaskStore, executor *HTTPExecutor, logger *slog.Logger) *ChainRunner {
	return &ChainRunner{
		tasks:    tasks,
		executor: executor,
		resolver: engine.NewResolver(logger),
		logger:   logger,
	}
}

// Run выполняет цепочку tasks в порядке order.
//
// Политика провала шага:
//   - ошибка резолвинга шаблона — дефект конфигурации workflow,
//     никогда не повторяется;
//   - retry_on_failure и оставшийся бюджет попыток job — цепочка
//     прерывается с Retryable=true, job вернётся в очередь;
//   - is_required — цепочка провалена;
//   - необязательный шаг — провал фиксируется на task, цепочка
//     продолжается.
func (c *ChainRunner) Run(ctx context.Context, job *domain.Job, tasks []*domain.Task, steps []domain.WorkflowStep) ChainOutcome {
	stepByOrder := make(map[int]*domain.WorkflowStep, len(steps))
	for i := range steps {
		stepByOrder[steps[i].Order] = &steps[i]
	}

	var outcome ChainOutcome
	outcome.Succeeded = true

	for _, task := range tasks {
		if task.Status == domain.TaskStatusSucceeded {
			continue
		}

		step := stepByOrder[task.Order]
		if step == nil || step.TaskMaster == nil {
			outcome.Succeeded = false
			outcome.FailedOrder = task.Order
			outcome.Error = fmt.Sprintf("workflow step %d has no template", task.Order)
			return outcome
		}

		task.MarkRunning()
		if err := c.tasks.Update(ctx, task); err != nil {
			outcome.Succeeded = false
			outcome.FailedOrder = task.Order
			outcome.Error = fmt.Sprintf("persist task: %v", err)
			outcome.Retryable = true
			return outcome
		}

		c.logger.Info("task started",
			"job_id", job.ID,
			"task_id", task.ID,
			"order", task.Order,
			"attempt", task.Attempt,
		)

		result, execErr := c.runStep(ctx, task, step, tasks)

		if execErr == nil && result.Error == "" {
			task.MarkSucceeded(taskOutput(result))
			if err := c.tasks.Update(ctx, task); err != nil {
				outcome.Succeeded = false
				outcome.FailedOrder = task.Order
				outcome.Error = fmt.Sprintf("persist task: %v", err)
				outcome.Retryable = true
				return outcome
			}
			telemetry.TasksFinished.WithLabelValues(string(domain.TaskStatusSucceeded)).Inc()
			outcome.LastResult = result

			c.logger.Info("task succeeded",
				"job_id", job.ID,
				"task_id", task.ID,
				"order", task.Order,
			)
			continue
		}

		// Провал шага
		errMsg := resultError(result, execErr)
		var output any
		if result != nil {
			output = taskOutput(result)
			outcome.LastResult = result
		}
		task.MarkFailed(errMsg, output)
		if err := c.tasks.Update(ctx, task); err != nil {
			c.logger.Error("failed to persist failed task", "task_id", task.ID, "error", err)
		}
		telemetry.TasksFinished.WithLabelValues(string(domain.TaskStatusFailed)).Inc()

		c.logger.Warn("task failed",
			"job_id", job.ID,
			"task_id", task.ID,
			"order", task.Order,
			"attempt", task.Attempt,
			"error", errMsg,
		)

		// Ошибка резолвинга — дефект шаблона, повтор бессмыслен.
		var resolveErr *engine.ResolveError
		isResolveErr := errors.As(execErr, &resolveErr)

		if !isResolveErr && step.RetryOnFailure && job.CanRetry() {
			outcome.Succeeded = false
			outcome.Retryable = true
			outcome.FailedOrder = task.Order
			outcome.Error = errMsg
			return outcome
		}

		if step.IsRequired {
			outcome.Succeeded = false
			outcome.FailedOrder = task.Order
			outcome.Error = errMsg
			return outcome
		}

		// Необязательный шаг: провал зафиксирован, цепочка продолжается.
		c.logger.Info("optional task failed, continuing chain",
			"job_id", job.ID,
			"task_id", task.ID,
			"order", task.Order,
		)
	}

	return outcome
}

// runStep резолвит шаблоны шага и выполняет HTTP-вызов.
func (c *ChainRunner) runStep(ctx context.Context, task *domain.Task, step *domain.WorkflowStep, tasks []*domain.Task) (*Result, error) {
	// Входные данные шага: резолвим ссылки на предыдущие шаги.
	if step.InputDataTemplate != nil {
		input, err := c.resolver.Resolve(step.InputDataTemplate, tasks)
		if err != nil {
			return nil, err
		}
		task.InputData = input
	}

	master := step.TaskMaster

	// Тело запроса: body_template мастера, иначе input_data шага.
	body := task.InputData
	if master.BodyTemplate != nil {
		rendered, err := c.resolver.Resolve(master.BodyTemplate, tasks)
		if err != nil {
			return nil, err
		}
		body = rendered
	}

	return c.executor.Execute(ctx, Request{
		Method:  master.Method,
		URL:     master.URL,
		Headers: master.Headers,
		Body:    body,
		Timeout: master.Timeout(),
	})
}

// taskOutput формирует output_data шага из HTTP-результата.
// Форма фиксирована: на эти поля ссылаются шаблоны следующих шагов
// ({{tasks[N].output_data.body...}}).
func taskOutput(result *Result) map[string]any {
	output := map[string]any{
		"headers": result.Headers,
		"body":    result.Body,
	}
	if result.StatusCode != nil {
		output["status_code"] = *result.StatusCode
	}
	return output
}

// resultError выбирает сообщение об ошибке из результата или execution error.
func resultError(result *Result, execErr error) string {
	if execErr != nil {
		return execErr.Error()
	}
	if result != nil {
		return result.Error
	}
	return "unknown error"
}
