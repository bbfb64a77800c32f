package engine

import (
	"errors"
	"fmt"
)

// Ошибки резолвинга шаблонов.
var (
	// ErrTaskIndexOutOfRange — ссылка на несуществующий индекс task.
	ErrTaskIndexOutOfRange = errors.New("task index out of range")

	// ErrNonMappingTraversal — попытка пройти путь через не-mapping значение.
	ErrNonMappingTraversal = errors.New("cannot traverse non-mapping value")
)

// ResolveError — ошибка резолвинга ссылки шаблона.
//
// Возникает при ссылке на несуществующий индекс task или при проходе
// пути через значение, не являющееся mapping. Трактуется как дефект
// авторинга workflow: не ретраится.
type ResolveError struct {
	// Reference — исходный текст ссылки ({{tasks[N]...}}).
	Reference string

	// TaskIndex — индекс task из ссылки.
	TaskIndex int

	// Field — поле пути, на котором резолвинг остановился (если применимо).
	Field string

	Err error
}

// Error реализует интерфейс error.
func (e *ResolveError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("resolve %s: field %q: %v", e.Reference, e.Field, e.Err)
	}
	return fmt.Sprintf("resolve %s: %v", e.Reference, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// WorkflowError — ошибка совместимости интерфейсов workflow.
//
// Details содержит имена и позиции задействованных шагов и
// идентификаторы интерфейсов — для структурированного ответа API.
type WorkflowError struct {
	Message string
	Details map[string]any
}

// Error реализует интерфейс error.
func (e *WorkflowError) Error() string {
	return e.Message
}

// NewWorkflowError создаёт ошибку валидации workflow.
func NewWorkflowError(message string, details map[string]any) *WorkflowError {
	if details == nil {
		details = map[string]any{}
	}
	return &WorkflowError{Message: message, Details: details}
}
