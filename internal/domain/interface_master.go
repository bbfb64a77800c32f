package domain

import (
	"time"

	"github.com/google/uuid"
)

// InterfaceMaster — именованная пара схем входа/выхода.
//
// Используется только для проверки совместимости соседних шагов
// workflow: сравниваются идентификаторы интерфейсов, содержимое схем
// в рантайме не применяется.
type InterfaceMaster struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	// InputSchema / OutputSchema — JSON Schema документы (произвольной формы).
	InputSchema  any `json:"input_schema,omitempty"`
	OutputSchema any `json:"output_schema,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
