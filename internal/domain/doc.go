// Package domain содержит доменные сущности очереди jobs.
//
// Основные сущности:
//   - JobMaster / TaskMaster — версионируемые шаблоны ("мастера")
//   - JobMasterVersion / TaskMasterVersion — иммутабельные снапшоты
//   - WorkflowStep — привязка TaskMaster к JobMaster (линейная цепочка)
//   - InterfaceMaster — пара схем для проверки совместимости шагов
//   - Job / Task — запускаемые экземпляры
//   - JobResult / JobResultAttempt — последний ответ и история попыток
//
// Документные поля (headers, body, шаблоны, схемы) представлены как any
// поверх JSON-форм: map[string]any, []any, string, float64, bool, nil.
package domain
