package domain

import "time"

// JobMasterUpdate — частичное обновление JobMaster.
// nil-поле означает "не менять". Для документных полей (Headers,
// Params, Body) используется отдельный флаг Set*, чтобы отличать
// "не передано" от "сбросить в null".
type JobMasterUpdate struct {
	Name        *string
	Description *string

	Method     *string
	URL        *string
	Headers    map[string]any
	SetHeaders bool
	Params     map[string]any
	SetParams  bool
	Body       any
	SetBody    bool

	TimeoutSec      *int
	MaxAttempts     *int
	BackoffStrategy *BackoffStrategy
	BackoffSeconds  *float64
	Priority        *int
	TTLSeconds      *int
	SetTTLSeconds   bool
	Tags            []string
	SetTags         bool

	IsActive  *bool
	UpdatedBy string
}

// TaskMasterUpdate — частичное обновление TaskMaster.
type TaskMasterUpdate struct {
	Name        *string
	Description *string

	Method          *string
	URL             *string
	Headers         map[string]any
	SetHeaders      bool
	BodyTemplate    any
	SetBodyTemplate bool
	TimeoutSec      *int

	IsActive  *bool
	UpdatedBy string
}

// JobOverrides — переопределения вызывающего при создании job из мастера.
// Документные поля мержатся с дефолтами мастера, скаляры замещают их.
type JobOverrides struct {
	Name    string
	Headers map[string]any
	Params  map[string]any
	Body    any
	Tags    []string

	TimeoutSec      *int
	MaxAttempts     *int
	BackoffStrategy *BackoffStrategy
	BackoffSeconds  *float64
	Priority        *int
	ScheduledAt     *time.Time
}
