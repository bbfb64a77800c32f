package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — один запуск HTTP-вызова (или workflow из tasks).
//
// Job создаётся при сабмите: либо напрямую из запроса, либо из
// JobMaster с переопределениями (см. engine.InstantiateJob).
// После создания job мутируется только воркером и операциями
// cancel/retry; записи никогда не удаляются до истечения TTL.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя (опционально).
	Name string `json:"name,omitempty"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// MasterID — ссылка на JobMaster, если job создан из шаблона.
	MasterID *uuid.UUID `json:"master_id,omitempty"`

	// MasterVersion — версия шаблона на момент создания job.
	MasterVersion *int `json:"master_version,omitempty"`

	// Attempt — номер текущей попытки (начиная с 1).
	Attempt int `json:"attempt"`

	// MaxAttempts — максимальное количество попыток.
	MaxAttempts int `json:"max_attempts"`

	// Priority — приоритет планирования. Меньшее число — выше приоритет.
	Priority int `json:"priority"`

	// HTTP-параметры запроса.
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`

	// TimeoutSec — таймаут HTTP-вызова в секундах.
	TimeoutSec int `json:"timeout_sec"`

	// BackoffStrategy — стратегия задержки между попытками.
	BackoffStrategy BackoffStrategy `json:"backoff_strategy"`

	// BackoffSeconds — базовая задержка в секундах.
	BackoffSeconds float64 `json:"backoff_seconds"`

	// ScheduledAt — отложенный запуск: job не выполняется раньше этого времени.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// TTLSeconds — время жизни записи после завершения (для внешней очистки).
	TTLSeconds *int `json:"ttl_seconds,omitempty"`

	// Tags — произвольные метки для фильтрации.
	Tags []string `json:"tags,omitempty"`

	// NextAttemptAt — время, раньше которого job не должен быть захвачен.
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	// Timestamps.
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Timeout возвращает таймаут HTTP-вызова как time.Duration.
func (j *Job) Timeout() time.Duration {
	if j.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(j.TimeoutSec) * time.Second
}

// IsFinished возвращает true, если job завершён.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// CanRetry проверяет, остались ли попытки.
func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// MarkSucceeded переводит job в статус SUCCEEDED.
func (j *Job) MarkSucceeded() {
	now := time.Now().UTC()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.NextAttemptAt = nil
}

// MarkFailed переводит job в терминальный статус FAILED.
func (j *Job) MarkFailed() {
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.NextAttemptAt = nil
}

// MarkCanceled переводит job в статус CANCELED.
func (j *Job) MarkCanceled() {
	now := time.Now().UTC()
	j.Status = JobStatusCanceled
	j.FinishedAt = &now
	j.NextAttemptAt = nil
}

// ScheduleRetry увеличивает счётчик попыток и возвращает job в очередь
// с задержкой delay.
func (j *Job) ScheduleRetry(delay time.Duration) {
	next := time.Now().UTC().Add(delay)
	j.Attempt++
	j.Status = JobStatusQueued
	j.NextAttemptAt = &next
}

// ResetForRetry подготавливает FAILED job к повторному запуску
// (операция retry, инициированная пользователем).
func (j *Job) ResetForRetry() {
	now := time.Now().UTC()
	j.Status = JobStatusQueued
	j.Attempt = 1
	j.StartedAt = nil
	j.FinishedAt = nil
	j.NextAttemptAt = &now
}
