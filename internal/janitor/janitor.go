package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

// defaultCronExpr — расписание очистки по умолчанию (каждые 5 минут).
const defaultCronExpr = "*/5 * * * *"

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Janitor периодически удаляет терминальные jobs, у которых истёк TTL.
//
// Jobs без ttl_seconds живут бессрочно. Удаление каскадное: вместе с
// job уходят его tasks и результаты.
type Janitor struct {
	jobRepo  *repo.JobRepo
	schedule cron.Schedule
	logger   *slog.Logger
}

// Config — конфигурация Janitor.
type Config struct {
	JobRepo  *repo.JobRepo
	CronExpr string // cron-выражение расписания (default: каждые 5 минут)
	Logger   *slog.Logger
}

// New создаёт Janitor. Невалидное cron-выражение — ошибка конфигурации.
func New(cfg Config) (*Janitor, error) {
	expr := cfg.CronExpr
	if expr == "" {
		expr = defaultCronExpr
	}

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	return &Janitor{
		jobRepo:  cfg.JobRepo,
		schedule: schedule,
		logger:   cfg.Logger,
	}, nil
}

// Run выполняет очистку по расписанию до отмены контекста.
func (j *Janitor) Run(ctx context.Context) error {
	for {
		next := j.schedule.Next(time.Now())
		j.logger.Debug("next purge scheduled", "at", next)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		if err := j.Tick(ctx); err != nil {
			j.logger.Error("purge tick failed", "error", err)
		}
	}
}

// Tick выполняет один проход очистки.
func (j *Janitor) Tick(ctx context.Context) error {
	purged, err := j.jobRepo.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired jobs: %w", err)
	}

	if purged > 0 {
		telemetry.PurgedJobs.Add(float64(purged))
		j.logger.Info("purged expired jobs", "count", purged)
	}

	return nil
}
