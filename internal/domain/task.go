package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — один шаг workflow внутри job.
//
// Tasks создаются при сабмите job из JobMaster с workflow: по одному
// на каждый WorkflowStep, в порядке order. Пара (job_id, order)
// уникальна. Воркер выполняет tasks строго последовательно.
type Task struct {
	// ID — уникальный идентификатор task.
	ID uuid.UUID `json:"id"`

	// JobID — ссылка на родительский job.
	JobID uuid.UUID `json:"job_id"`

	// MasterID — ссылка на TaskMaster, по которому выполняется шаг.
	MasterID uuid.UUID `json:"master_id"`

	// MasterVersion — версия TaskMaster на момент создания.
	MasterVersion *int `json:"master_version,omitempty"`

	// Order — позиция шага в цепочке (0-based).
	Order int `json:"order"`

	// Status — текущий статус task.
	Status TaskStatus `json:"status"`

	// InputData — входные данные шага. Заполняется воркером из
	// input_data_template после резолвинга ссылок на предыдущие шаги.
	InputData any `json:"input_data,omitempty"`

	// OutputData — результат шага: status_code, headers, body.
	OutputData any `json:"output_data,omitempty"`

	// Attempt — количество выполненных попыток.
	Attempt int `json:"attempt"`

	// Error — текст ошибки последней неудачной попытки.
	Error string `json:"error,omitempty"`

	// DurationMs — длительность последней попытки в миллисекундах.
	DurationMs *int `json:"duration_ms,omitempty"`

	// Timestamps.
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsFinished возвращает true, если task завершён.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkRunning переводит task в статус RUNNING и открывает новую попытку.
func (t *Task) MarkRunning() {
	now := time.Now().UTC()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
	t.FinishedAt = nil
	t.Attempt++
}

// MarkSucceeded переводит task в статус SUCCEEDED с результатом.
func (t *Task) MarkSucceeded(output any) {
	now := time.Now().UTC()
	t.Status = TaskStatusSucceeded
	t.FinishedAt = &now
	t.OutputData = output
	t.Error = ""
	t.setDuration(now)
}

// MarkFailed переводит task в статус FAILED с ошибкой.
// output может содержать частичный результат (например, тело HTTP-ошибки).
func (t *Task) MarkFailed(errMsg string, output any) {
	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.FinishedAt = &now
	t.Error = errMsg
	if output != nil {
		t.OutputData = output
	}
	t.setDuration(now)
}

// ResetForRetry сбрасывает task в QUEUED для повторного прохода цепочки.
// Счётчик попыток сохраняется.
func (t *Task) ResetForRetry() {
	t.Status = TaskStatusQueued
	t.OutputData = nil
	t.Error = ""
	t.StartedAt = nil
	t.FinishedAt = nil
	t.DurationMs = nil
}

func (t *Task) setDuration(finished time.Time) {
	if t.StartedAt == nil {
		return
	}
	ms := int(finished.Sub(*t.StartedAt).Milliseconds())
	t.DurationMs = &ms
}
