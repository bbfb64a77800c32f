package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCEEDED
//	                 ↘ FAILED (retry возвращает в QUEUED)
//	(из любого нетерминального) → CANCELED
type JobStatus string

const (
	// JobStatusQueued — job в очереди, ожидает воркера.
	JobStatusQueued JobStatus = "QUEUED"

	// JobStatusRunning — job захвачен воркером и выполняется.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — job успешно завершён (HTTP 2xx).
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершился с ошибкой после всех попыток.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusCanceled — job отменён пользователем.
	JobStatusCanceled JobStatus = "CANCELED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// TaskStatus — статус выполнения task (шага workflow).
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCEEDED
//	                 ↘ FAILED (retry сбрасывает в QUEUED)
type TaskStatus string

const (
	// TaskStatusQueued — task ожидает своей очереди в цепочке.
	TaskStatusQueued TaskStatus = "QUEUED"

	// TaskStatusRunning — task выполняется.
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusSucceeded — task успешно завершён.
	TaskStatusSucceeded TaskStatus = "SUCCEEDED"

	// TaskStatusFailed — task завершился с ошибкой.
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// BackoffStrategy — стратегия вычисления задержки между попытками.
type BackoffStrategy string

const (
	// BackoffFixed — постоянная задержка: delay = backoff_seconds.
	BackoffFixed BackoffStrategy = "fixed"

	// BackoffLinear — линейный рост: delay = backoff_seconds * n.
	BackoffLinear BackoffStrategy = "linear"

	// BackoffExponential — экспоненциальный рост: delay = backoff_seconds * 2^n.
	BackoffExponential BackoffStrategy = "exponential"
)

// ParseBackoffStrategy парсит строку в BackoffStrategy.
// Неизвестные значения трактуются как exponential (значение по умолчанию).
func ParseBackoffStrategy(s string) BackoffStrategy {
	switch s {
	case "fixed":
		return BackoffFixed
	case "linear":
		return BackoffLinear
	default:
		return BackoffExponential
	}
}
