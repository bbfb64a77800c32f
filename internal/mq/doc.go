// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - job.queued    — job поставлен в очередь (сигнал воркерам)
//   - job.completed — job завершён
//
// RabbitMQ здесь — ускоритель, а не источник истины: очередь jobs
// живёт в Postgres, и воркеры в любом случае добирают готовые jobs
// через polling. События только снижают латентность между сабмитом
// и началом выполнения.
//
// Exchanges:
//   - jobqueue.jobs — события jobs
//   - jobqueue.dlq  — dead letter queue
package mq
