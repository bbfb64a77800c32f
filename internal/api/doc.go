// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go             — Handler с DI (репозитории, версии, publisher)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (logging, recovery, metrics)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go / optional.go   — Data Transfer Objects (request/response)
//   - job_master_handler.go  — /job-masters, версии и workflow
//   - task_master_handler.go — /task-masters и версии
//   - interface_handler.go   — /interfaces
//   - job_handler.go         — /jobs: сабмит, отмена, retry, результаты
//
// API предоставляет REST endpoints для управления мастерами, workflow
// и jobs.
package api
