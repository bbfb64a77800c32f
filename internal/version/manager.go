package version

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

// Критичные поля: их изменение требует новой версии мастера.
var (
	jobMasterCriticalFields = []string{
		"method", "url", "headers", "params", "body", "timeout_sec",
		"max_attempts", "backoff_strategy", "backoff_seconds", "ttl_seconds",
	}

	taskMasterCriticalFields = []string{
		"method", "url", "headers", "body_template", "timeout_sec",
	}
)

// JobExecutionCounter считает jobs, созданные по мастеру.
type JobExecutionCounter interface {
	CountJobsForMaster(ctx context.Context, masterID uuid.UUID) (int, error)
}

// TaskExecutionCounter считает tasks, выполненные по мастеру.
type TaskExecutionCounter interface {
	CountTasksForMaster(ctx context.Context, masterID uuid.UUID) (int, error)
}

// Decision — решение менеджера версий по предложенному изменению.
type Decision struct {
	// ShouldVersion — требуется ли снапшот и инкремент версии.
	ShouldVersion bool

	// Reason — человекочитаемое объяснение решения.
	Reason string

	// ChangedFields — критичные поля, значения которых меняются.
	ChangedFields []string
}

// Manager решает, когда изменение мастера требует новой версии.
//
// Версия создаётся только если выполнены оба условия: хотя бы одно
// критичное поле реально меняется И по мастеру уже есть история
// запусков. Шаблоны без истории правятся на месте.
type Manager struct {
	jobs  JobExecutionCounter
	tasks TaskExecutionCounter
}

// NewManager создаёт Manager.
func NewManager(jobs JobExecutionCounter, tasks TaskExecutionCounter) *Manager {
	return &Manager{jobs: jobs, tasks: tasks}
}

// ShouldVersionJobMaster решает, нужна ли новая версия JobMaster.
func (m *Manager) ShouldVersionJobMaster(ctx context.Context, master *domain.JobMaster, upd domain.JobMasterUpdate) (Decision, error) {
	changed := JobMasterChangedFields(master, upd)
	if len(changed) == 0 {
		return Decision{Reason: "no critical field changes, version bump not required"}, nil
	}

	count, err := m.jobs.CountJobsForMaster(ctx, master.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("count jobs for master: %w", err)
	}
	if count == 0 {
		return Decision{
			Reason:        "no execution history, version bump not required",
			ChangedFields: changed,
		}, nil
	}

	return Decision{
		ShouldVersion: true,
		Reason: fmt.Sprintf("execution history exists and %s changed, automatic version bump",
			strings.Join(changed, ", ")),
		ChangedFields: changed,
	}, nil
}

// ShouldVersionTaskMaster решает, нужна ли новая версия TaskMaster.
func (m *Manager) ShouldVersionTaskMaster(ctx context.Context, master *domain.TaskMaster, upd domain.TaskMasterUpdate) (Decision, error) {
	changed := TaskMasterChangedFields(master, upd)
	if len(changed) == 0 {
		return Decision{Reason: "no critical field changes, version bump not required"}, nil
	}

	count, err := m.tasks.CountTasksForMaster(ctx, master.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("count tasks for master: %w", err)
	}
	if count == 0 {
		return Decision{
			Reason:        "no execution history, version bump not required",
			ChangedFields: changed,
		}, nil
	}

	return Decision{
		ShouldVersion: true,
		Reason: fmt.Sprintf("execution history exists and %s changed, automatic version bump",
			strings.Join(changed, ", ")),
		ChangedFields: changed,
	}, nil
}

// JobMasterChangedFields возвращает критичные поля, которые update
// реально меняет (в порядке jobMasterCriticalFields).
func JobMasterChangedFields(master *domain.JobMaster, upd domain.JobMasterUpdate) []string {
	var changed []string
	for _, field := range jobMasterCriticalFields {
		if jobMasterFieldChanged(master, upd, field) {
			changed = append(changed, field)
		}
	}
	return changed
}

func jobMasterFieldChanged(m *domain.JobMaster, u domain.JobMasterUpdate, field string) bool {
	switch field {
	case "method":
		return u.Method != nil && *u.Method != m.Method
	case "url":
		return u.URL != nil && *u.URL != m.URL
	case "headers":
		return u.SetHeaders && !reflect.DeepEqual(u.Headers, m.Headers)
	case "params":
		return u.SetParams && !reflect.DeepEqual(u.Params, m.Params)
	case "body":
		return u.SetBody && !reflect.DeepEqual(u.Body, m.Body)
	case "timeout_sec":
		return u.TimeoutSec != nil && *u.TimeoutSec != m.TimeoutSec
	case "max_attempts":
		return u.MaxAttempts != nil && *u.MaxAttempts != m.MaxAttempts
	case "backoff_strategy":
		return u.BackoffStrategy != nil && *u.BackoffStrategy != m.BackoffStrategy
	case "backoff_seconds":
		return u.BackoffSeconds != nil && *u.BackoffSeconds != m.BackoffSeconds
	case "ttl_seconds":
		return u.SetTTLSeconds && !reflect.DeepEqual(u.TTLSeconds, m.TTLSeconds)
	default:
		return false
	}
}

// TaskMasterChangedFields возвращает критичные поля, которые update
// реально меняет.
func TaskMasterChangedFields(master *domain.TaskMaster, upd domain.TaskMasterUpdate) []string {
	var changed []string
	for _, field := range taskMasterCriticalFields {
		switch field {
		case "method":
			if upd.Method != nil && *upd.Method != master.Method {
				changed = append(changed, field)
			}
		case "url":
			if upd.URL != nil && *upd.URL != master.URL {
				changed = append(changed, field)
			}
		case "headers":
			if upd.SetHeaders && !reflect.DeepEqual(upd.Headers, master.Headers) {
				changed = append(changed, field)
			}
		case "body_template":
			if upd.SetBodyTemplate && !reflect.DeepEqual(upd.BodyTemplate, master.BodyTemplate) {
				changed = append(changed, field)
			}
		case "timeout_sec":
			if upd.TimeoutSec != nil && *upd.TimeoutSec != master.TimeoutSec {
				changed = append(changed, field)
			}
		}
	}
	return changed
}

// CompareJobMasterVersions возвращает список критичных полей,
// различающихся между двумя версиями. Используется для аннотации
// списков истории ("has changes" / "changed fields").
// При prev == nil (самая первая версия) возвращает пустой список.
func CompareJobMasterVersions(prev, curr *domain.JobMasterVersion) []string {
	if prev == nil {
		return nil
	}

	var changed []string
	for _, field := range jobMasterCriticalFields {
		if !reflect.DeepEqual(jobVersionField(prev, field), jobVersionField(curr, field)) {
			changed = append(changed, field)
		}
	}
	return changed
}

func jobVersionField(v *domain.JobMasterVersion, field string) any {
	switch field {
	case "method":
		return v.Method
	case "url":
		return v.URL
	case "headers":
		return v.Headers
	case "params":
		return v.Params
	case "body":
		return v.Body
	case "timeout_sec":
		return v.TimeoutSec
	case "max_attempts":
		return v.MaxAttempts
	case "backoff_strategy":
		return v.BackoffStrategy
	case "backoff_seconds":
		return v.BackoffSeconds
	case "ttl_seconds":
		return v.TTLSeconds
	default:
		return nil
	}
}

// CompareTaskMasterVersions — то же для версий TaskMaster.
func CompareTaskMasterVersions(prev, curr *domain.TaskMasterVersion) []string {
	if prev == nil {
		return nil
	}

	var changed []string
	for _, field := range taskMasterCriticalFields {
		if !reflect.DeepEqual(taskVersionField(prev, field), taskVersionField(curr, field)) {
			changed = append(changed, field)
		}
	}
	return changed
}

func taskVersionField(v *domain.TaskMasterVersion, field string) any {
	switch field {
	case "method":
		return v.Method
	case "url":
		return v.URL
	case "headers":
		return v.Headers
	case "body_template":
		return v.BodyTemplate
	case "timeout_sec":
		return v.TimeoutSec
	default:
		return nil
	}
}

// ApplyJobMasterUpdate применяет частичное обновление к мастеру.
// Вызывается после решения о версионировании: снапшот делается
// с состояния до применения.
func ApplyJobMasterUpdate(m *domain.JobMaster, u domain.JobMasterUpdate) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.Method != nil {
		m.Method = *u.Method
	}
	if u.URL != nil {
		m.URL = *u.URL
	}
	if u.SetHeaders {
		m.Headers = u.Headers
	}
	if u.SetParams {
		m.Params = u.Params
	}
	if u.SetBody {
		m.Body = u.Body
	}
	if u.TimeoutSec != nil {
		m.TimeoutSec = *u.TimeoutSec
	}
	if u.MaxAttempts != nil {
		m.MaxAttempts = *u.MaxAttempts
	}
	if u.BackoffStrategy != nil {
		m.BackoffStrategy = *u.BackoffStrategy
	}
	if u.BackoffSeconds != nil {
		m.BackoffSeconds = *u.BackoffSeconds
	}
	if u.Priority != nil {
		m.Priority = *u.Priority
	}
	if u.SetTTLSeconds {
		m.TTLSeconds = u.TTLSeconds
	}
	if u.SetTags {
		m.Tags = u.Tags
	}
	if u.IsActive != nil {
		m.IsActive = *u.IsActive
	}
	if u.UpdatedBy != "" {
		m.UpdatedBy = u.UpdatedBy
	}
}

// ApplyTaskMasterUpdate применяет частичное обновление к TaskMaster.
func ApplyTaskMasterUpdate(m *domain.TaskMaster, u domain.TaskMasterUpdate) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.Method != nil {
		m.Method = *u.Method
	}
	if u.URL != nil {
		m.URL = *u.URL
	}
	if u.SetHeaders {
		m.Headers = u.Headers
	}
	if u.SetBodyTemplate {
		m.BodyTemplate = u.BodyTemplate
	}
	if u.TimeoutSec != nil {
		m.TimeoutSec = *u.TimeoutSec
	}
	if u.IsActive != nil {
		m.IsActive = *u.IsActive
	}
	if u.UpdatedBy != "" {
		m.UpdatedBy = u.UpdatedBy
	}
}
