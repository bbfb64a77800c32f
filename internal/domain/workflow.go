package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStep — ребро workflow: привязка TaskMaster к JobMaster.
//
// Последовательность шагов одного JobMaster образует линейную цепочку.
// Инвариант: order уникален и непрерывен в рамках JobMaster (0..n-1).
type WorkflowStep struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// JobMasterID — workflow, к которому принадлежит шаг.
	JobMasterID uuid.UUID `json:"job_master_id"`

	// TaskMasterID — шаблон шага.
	TaskMasterID uuid.UUID `json:"task_master_id"`

	// Order — позиция в цепочке (0-based).
	Order int `json:"order"`

	// InputDataTemplate — шаблон входных данных шага. Может ссылаться
	// на выходы предыдущих шагов: {{tasks[N].output_data.field}}.
	InputDataTemplate any `json:"input_data_template,omitempty"`

	// IsRequired — обязателен ли шаг для успеха job. Терминальный
	// провал необязательного шага не прерывает цепочку.
	IsRequired bool `json:"is_required"`

	// RetryOnFailure — повторять ли проваленный шаг автоматически
	// (в рамках бюджета попыток job).
	RetryOnFailure bool `json:"retry_on_failure"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TaskMaster — загруженный шаблон шага (заполняется репозиторием
	// при чтении цепочки).
	TaskMaster *TaskMaster `json:"task_master,omitempty"`
}
