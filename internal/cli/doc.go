// Package cli реализует инструмент командной строки jobqueue.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с jobqueue API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления job masters, task masters,
// версиями и jobs.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для jobqueue API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	masters, err := client.ListJobMasters(cli.ListMastersOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: jobqueue job list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - master: list, create, show, update, delete, workflow, set-workflow, validate
//   - task-master: list, create, show, update, delete
//   - version: list, show, branch
//   - job: list, submit, show, cancel, retry, result, attempts, tasks
//
// Каждая группа создаётся через фабричную функцию (NewMasterCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
