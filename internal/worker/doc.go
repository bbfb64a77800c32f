// Package worker выполняет jobs из очереди.
//
// # Обзор
//
// Worker — stateless компонент, который забирает готовые jobs из
// Postgres и выполняет их. Worker отвечает за:
//
//   - Атомарный захват jobs (условный UPDATE, ровно один победитель)
//   - Раннее пробуждение по событиям jobs.queued из RabbitMQ
//   - Выполнение HTTP-вызова job либо цепочки tasks его workflow
//   - Retry с backoff (fixed / linear / exponential)
//   - Сохранение результата и публикацию события jobs.completed
//
// Workers масштабируются горизонтально: несколько процессов (и
// несколько горутин внутри каждого) конкурируют за одну очередь в БД.
//
// # Захват
//
// Цикл claimLoop выбирает кандидатов (status = QUEUED, время
// next_attempt_at наступило, по приоритету и FIFO) и пытается
// захватить каждого условным UPDATE ... WHERE status = 'QUEUED'
// RETURNING. Проигравший конкуренту воркер просто переходит к
// следующему кандидату. Пустая очередь — сон до poll interval или
// события jobs.queued.
//
// # Выполнение
//
// Одиночный job — один HTTP-вызов с method/url/headers/params/body и
// таймаутом job. Workflow job — последовательный прогон tasks через
// ChainRunner: для каждого шага резолвятся шаблоны входных данных
// ({{tasks[N].output_data...}}), выполняется вызов по TaskMaster шага,
// результат сохраняется как output_data и доступен следующим шагам.
//
// # Retry
//
// Провал попытки (не-2xx, транспортная ошибка, провал обязательного
// шага с retry_on_failure) возвращает job в QUEUED с задержкой:
//
//   - fixed:       base
//   - linear:      base * attempt
//   - exponential: base * 2^attempt
//
// Ошибки резолвинга шаблонов — дефект конфигурации workflow и не
// повторяются. После исчерпания max_attempts job терминально FAILED.
//
// # Отмена
//
// Отмена кооперативная: выполнение захваченного job не прерывается,
// но перед финализацией воркер перечитывает статус и не перезаписывает
// CANCELED. Результат попытки при этом сохраняется.
package worker
