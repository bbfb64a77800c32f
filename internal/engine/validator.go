package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

// Правила совместимости интерфейсов линейной цепочки workflow:
//
//  1. Входной интерфейс JobMaster (если объявлен) совпадает с входным
//     интерфейсом первого шага.
//  2. Выходной интерфейс каждого шага совпадает со входным интерфейсом
//     следующего.
//  3. Выходной интерфейс JobMaster (если объявлен) совпадает с выходным
//     интерфейсом последнего шага.
//
// Пустой workflow валиден (с предупреждением).

// ValidationIssue — одна ошибка или предупреждение отчёта.
type ValidationIssue struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// TaskChainEntry — элемент цепочки для визуализации в отчёте.
type TaskChainEntry struct {
	Order             int        `json:"order"`
	TaskName          string     `json:"task_name"`
	InputInterfaceID  *uuid.UUID `json:"input_interface_id,omitempty"`
	OutputInterfaceID *uuid.UUID `json:"output_interface_id,omitempty"`
}

// WorkflowReport — результат небросающей формы валидации.
type WorkflowReport struct {
	IsValid   bool              `json:"is_valid"`
	Errors    []ValidationIssue `json:"errors"`
	Warnings  []ValidationIssue `json:"warnings"`
	TaskChain []TaskChainEntry  `json:"task_chain"`
}

// ValidateWorkflow проверяет совместимость интерфейсов цепочки.
// Бросающая форма: используется на путях записи (включение workflow,
// изменение состава шагов). steps должны быть отсортированы по order
// и иметь загруженные TaskMaster.
func ValidateWorkflow(master *domain.JobMaster, steps []domain.WorkflowStep) error {
	if len(steps) == 0 {
		return nil
	}

	for i := range steps {
		if steps[i].TaskMaster == nil {
			return NewWorkflowError("workflow step has no task master loaded", map[string]any{
				"order": steps[i].Order,
			})
		}
	}

	// Правило 1: вход JobMaster совпадает со входом первого шага.
	first := steps[0]
	if master.InputInterfaceID != nil {
		if !interfaceEqual(master.InputInterfaceID, first.TaskMaster.InputInterfaceID) {
			return NewWorkflowError("job master input interface does not match first task", map[string]any{
				"job_master_input_interface_id": master.InputInterfaceID,
				"first_task_input_interface_id": first.TaskMaster.InputInterfaceID,
				"first_task_name":               first.TaskMaster.Name,
				"first_task_order":              first.Order,
			})
		}
	}

	// Правило 2: выход каждого шага совпадает со входом следующего.
	for i := 0; i < len(steps)-1; i++ {
		current, next := steps[i], steps[i+1]
		if !interfaceEqual(current.TaskMaster.OutputInterfaceID, next.TaskMaster.InputInterfaceID) {
			return NewWorkflowError(
				fmt.Sprintf("interface mismatch between tasks at order %d and %d", current.Order, next.Order),
				map[string]any{
					"current_task_name":                current.TaskMaster.Name,
					"current_task_order":               current.Order,
					"current_task_output_interface_id": current.TaskMaster.OutputInterfaceID,
					"next_task_name":                   next.TaskMaster.Name,
					"next_task_order":                  next.Order,
					"next_task_input_interface_id":     next.TaskMaster.InputInterfaceID,
				})
		}
	}

	// Правило 3: выход JobMaster совпадает с выходом последнего шага.
	last := steps[len(steps)-1]
	if master.OutputInterfaceID != nil {
		if !interfaceEqual(master.OutputInterfaceID, last.TaskMaster.OutputInterfaceID) {
			return NewWorkflowError("last task output interface does not match job master output", map[string]any{
				"job_master_output_interface_id": master.OutputInterfaceID,
				"last_task_output_interface_id":  last.TaskMaster.OutputInterfaceID,
				"last_task_name":                 last.TaskMaster.Name,
				"last_task_order":                last.Order,
			})
		}
	}

	return nil
}

// BuildWorkflowReport — небросающая форма валидации для диагностики и UI.
func BuildWorkflowReport(master *domain.JobMaster, steps []domain.WorkflowStep) *WorkflowReport {
	report := &WorkflowReport{
		IsValid:   true,
		Errors:    []ValidationIssue{},
		Warnings:  []ValidationIssue{},
		TaskChain: []TaskChainEntry{},
	}

	if len(steps) == 0 {
		report.Warnings = append(report.Warnings, ValidationIssue{
			Type:    "empty_workflow",
			Message: "workflow has no tasks",
		})
		return report
	}

	for _, step := range steps {
		entry := TaskChainEntry{Order: step.Order}
		if step.TaskMaster != nil {
			entry.TaskName = step.TaskMaster.Name
			entry.InputInterfaceID = step.TaskMaster.InputInterfaceID
			entry.OutputInterfaceID = step.TaskMaster.OutputInterfaceID
		}
		report.TaskChain = append(report.TaskChain, entry)
	}

	if err := ValidateWorkflow(master, steps); err != nil {
		report.IsValid = false
		issue := ValidationIssue{
			Type:    "interface_mismatch",
			Message: err.Error(),
		}
		if wfErr, ok := err.(*WorkflowError); ok {
			issue.Details = wfErr.Details
		}
		report.Errors = append(report.Errors, issue)
	}

	return report
}

// interfaceEqual сравнивает ссылки на интерфейсы: nil == nil.
func interfaceEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
