// Package engine содержит чистое ядро очереди jobs.
//
// Включает:
//   - merge.go       — слияние шаблона и переопределений (shallow/deep/tags)
//   - instantiate.go — создание Job из JobMaster + переопределений
//   - resolver.go    — резолвинг ссылок {{tasks[N].output_data.x}} в шаблонах
//   - validator.go   — проверка совместимости интерфейсов цепочки workflow
//
// Все функции пакета работают над загруженными доменными структурами
// и не обращаются к хранилищу.
package engine
