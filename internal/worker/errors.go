package worker

import "errors"

// Ошибки воркера.
var (
	// ErrHTTPRequest — HTTP-вызов завершился транспортной ошибкой
	// или запрос не удалось сконструировать.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrJobCanceled — job отменён между захватом и финализацией.
	ErrJobCanceled = errors.New("job canceled")

	// ErrNoWorkflowSteps — у job с tasks не найдена цепочка шагов мастера.
	ErrNoWorkflowSteps = errors.New("workflow steps not found")
)
