package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobMaster — шаблон job ("мастер").
//
// Хранит HTTP-дефолты, настройки retry и планирования. Из мастера
// создаются конкретные jobs (значения мастера + переопределения
// вызывающего). Мастер мутабелен, но каждое изменение критичных
// полей оценивается менеджером версий: если по мастеру уже были
// запуски, перед изменением состояние снапшотится в JobMasterVersion.
type JobMaster struct {
	// ID — уникальный идентификатор мастера.
	ID uuid.UUID `json:"id"`

	// Name — имя шаблона.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// HTTP-дефолты.
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`

	// TimeoutSec — таймаут HTTP-вызова в секундах.
	TimeoutSec int `json:"timeout_sec"`

	// Retry-дефолты.
	MaxAttempts     int             `json:"max_attempts"`
	BackoffStrategy BackoffStrategy `json:"backoff_strategy"`
	BackoffSeconds  float64         `json:"backoff_seconds"`

	// Дефолты планирования.
	Priority   int      `json:"priority"`
	TTLSeconds *int     `json:"ttl_seconds,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	// Интерфейсы workflow (опционально): ожидаемые схемы входа/выхода.
	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`

	// CurrentVersion — номер текущей версии. Инкрементируется
	// менеджером версий при критичных изменениях.
	CurrentVersion int `json:"current_version"`

	// IsActive — неактивные мастера не инстанцируются.
	IsActive bool `json:"is_active"`

	// Timestamps и аудит.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// JobMasterVersion — иммутабельный снапшот критичных полей JobMaster.
//
// Записи append-only; пара (master_id, version) уникальна.
type JobMasterVersion struct {
	MasterID uuid.UUID `json:"master_id"`
	Version  int       `json:"version"`

	Name    string         `json:"name"`
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Body    any            `json:"body,omitempty"`

	TimeoutSec      int             `json:"timeout_sec"`
	MaxAttempts     int             `json:"max_attempts"`
	BackoffStrategy BackoffStrategy `json:"backoff_strategy"`
	BackoffSeconds  float64         `json:"backoff_seconds"`
	TTLSeconds      *int            `json:"ttl_seconds,omitempty"`
	Tags            []string        `json:"tags,omitempty"`

	// ChangeReason — причина создания версии (человекочитаемая).
	ChangeReason string `json:"change_reason,omitempty"`

	// CreatedBy — актор, инициировавший изменение.
	CreatedBy string `json:"created_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SnapshotVersion создаёт снапшот текущего состояния мастера
// под его текущим номером версии.
func (m *JobMaster) SnapshotVersion(reason, actor string) *JobMasterVersion {
	return &JobMasterVersion{
		MasterID:        m.ID,
		Version:         m.CurrentVersion,
		Name:            m.Name,
		Method:          m.Method,
		URL:             m.URL,
		Headers:         m.Headers,
		Params:          m.Params,
		Body:            m.Body,
		TimeoutSec:      m.TimeoutSec,
		MaxAttempts:     m.MaxAttempts,
		BackoffStrategy: m.BackoffStrategy,
		BackoffSeconds:  m.BackoffSeconds,
		TTLSeconds:      m.TTLSeconds,
		Tags:            m.Tags,
		ChangeReason:    reason,
		CreatedBy:       actor,
		CreatedAt:       time.Now().UTC(),
	}
}
