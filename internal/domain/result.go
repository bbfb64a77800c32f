package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobResult — последний снимок ответа по job. Одна запись на job,
// перезаписывается при каждой попытке.
type JobResult struct {
	JobID uuid.UUID `json:"job_id"`

	// ResponseStatus — HTTP-код ответа (nil при транспортной ошибке).
	ResponseStatus *int `json:"response_status,omitempty"`

	// ResponseHeaders / ResponseBody — заголовки и тело ответа.
	// Тело обрезается по лимиту байт: сверх лимита сохраняется
	// маркер {"truncated": true, "size": N}.
	ResponseHeaders map[string]any `json:"response_headers,omitempty"`
	ResponseBody    any            `json:"response_body,omitempty"`

	// Error — текст ошибки (не-2xx статус или транспортная ошибка).
	Error string `json:"error,omitempty"`

	// DurationMs — длительность вызова в миллисекундах.
	DurationMs int `json:"duration_ms"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// JobResultAttempt — запись истории: ответ одной конкретной попытки.
// Append-only, пара (job_id, attempt) уникальна.
type JobResultAttempt struct {
	JobID   uuid.UUID `json:"job_id"`
	Attempt int       `json:"attempt"`

	ResponseStatus  *int           `json:"response_status,omitempty"`
	ResponseHeaders map[string]any `json:"response_headers,omitempty"`
	ResponseBody    any            `json:"response_body,omitempty"`
	Error           string         `json:"error,omitempty"`
	DurationMs      int            `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at"`
}
