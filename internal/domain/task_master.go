package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskMaster — шаблон шага workflow.
//
// Описывает HTTP-вызов одного шага. Версионируется так же, как
// JobMaster, но с меньшим набором критичных полей.
type TaskMaster struct {
	// ID — уникальный идентификатор мастера.
	ID uuid.UUID `json:"id"`

	// Name — имя шаблона шага.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// HTTP-параметры шага.
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`

	// BodyTemplate — шаблон тела запроса. Может содержать ссылки
	// вида {{tasks[N].output_data.field}} на предыдущие шаги.
	BodyTemplate any `json:"body_template,omitempty"`

	// TimeoutSec — таймаут HTTP-вызова в секундах.
	TimeoutSec int `json:"timeout_sec"`

	// Интерфейсы шага: декларируемые схемы входа/выхода для проверки
	// совместимости цепочки.
	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`

	// CurrentVersion — номер текущей версии.
	CurrentVersion int `json:"current_version"`

	// IsActive — неактивные мастера не участвуют в новых workflow.
	IsActive bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// TaskMasterVersion — иммутабельный снапшот критичных полей TaskMaster.
// Пара (master_id, version) уникальна, записи append-only.
type TaskMasterVersion struct {
	MasterID uuid.UUID `json:"master_id"`
	Version  int       `json:"version"`

	Name         string         `json:"name"`
	Method       string         `json:"method"`
	URL          string         `json:"url"`
	Headers      map[string]any `json:"headers,omitempty"`
	BodyTemplate any            `json:"body_template,omitempty"`
	TimeoutSec   int            `json:"timeout_sec"`

	ChangeReason string    `json:"change_reason,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnapshotVersion создаёт снапшот текущего состояния мастера
// под его текущим номером версии.
func (m *TaskMaster) SnapshotVersion(reason, actor string) *TaskMasterVersion {
	return &TaskMasterVersion{
		MasterID:     m.ID,
		Version:      m.CurrentVersion,
		Name:         m.Name,
		Method:       m.Method,
		URL:          m.URL,
		Headers:      m.Headers,
		BodyTemplate: m.BodyTemplate,
		TimeoutSec:   m.TimeoutSec,
		ChangeReason: reason,
		CreatedBy:    actor,
		CreatedAt:    time.Now().UTC(),
	}
}

// Timeout возвращает таймаут шага как time.Duration.
func (m *TaskMaster) Timeout() time.Duration {
	if m.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.TimeoutSec) * time.Second
}
