package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

// InstantiateJob создаёт конкретный Job из JobMaster и переопределений
// вызывающего.
//
// Документные поля мержатся: headers и params — shallow, body — deep,
// tags — union. Скалярные поля берутся из переопределений, иначе —
// дефолты мастера. Method и URL всегда берутся из мастера.
func InstantiateJob(master *domain.JobMaster, ov domain.JobOverrides) *domain.Job {
	now := time.Now().UTC()
	masterVersion := master.CurrentVersion

	job := &domain.Job{
		ID:            uuid.New(),
		Name:          master.Name,
		Status:        domain.JobStatusQueued,
		MasterID:      &master.ID,
		MasterVersion: &masterVersion,
		Attempt:       1,

		Method:  master.Method,
		URL:     master.URL,
		Headers: MergeShallow(master.Headers, ov.Headers),
		Params:  MergeShallow(master.Params, ov.Params),
		Body:    mergeBody(master.Body, ov.Body),

		TimeoutSec:      master.TimeoutSec,
		MaxAttempts:     master.MaxAttempts,
		BackoffStrategy: master.BackoffStrategy,
		BackoffSeconds:  master.BackoffSeconds,
		Priority:        master.Priority,
		TTLSeconds:      master.TTLSeconds,
		Tags:            MergeTags(master.Tags, ov.Tags),

		CreatedAt: now,
	}

	if ov.Name != "" {
		job.Name = ov.Name
	}
	if ov.TimeoutSec != nil {
		job.TimeoutSec = *ov.TimeoutSec
	}
	if ov.MaxAttempts != nil {
		job.MaxAttempts = *ov.MaxAttempts
	}
	if ov.BackoffStrategy != nil {
		job.BackoffStrategy = *ov.BackoffStrategy
	}
	if ov.BackoffSeconds != nil {
		job.BackoffSeconds = *ov.BackoffSeconds
	}
	if ov.Priority != nil {
		job.Priority = *ov.Priority
	}

	// Отложенный запуск: job не подхватывается раньше scheduled_at.
	if ov.ScheduledAt != nil {
		job.ScheduledAt = ov.ScheduledAt
		job.NextAttemptAt = ov.ScheduledAt
	} else {
		job.NextAttemptAt = &now
	}

	return job
}

// mergeBody мержит тела запросов: mapping с mapping — deep merge,
// любое другое переопределение замещает дефолт мастера целиком.
func mergeBody(base, override any) any {
	baseMap, baseOK := base.(map[string]any)
	overrideMap, overrideOK := override.(map[string]any)
	if baseOK && overrideOK {
		merged := MergeDeep(baseMap, overrideMap)
		if merged == nil {
			return nil
		}
		return merged
	}
	if override != nil {
		return override
	}
	return base
}
