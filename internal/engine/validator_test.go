package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

// chain собирает цепочку шагов из task masters.
func chain(masters ...*domain.TaskMaster) []domain.WorkflowStep {
	steps := make([]domain.WorkflowStep, len(masters))
	for i, m := range masters {
		steps[i] = domain.WorkflowStep{
			ID:           uuid.New(),
			TaskMasterID: m.ID,
			Order:        i,
			IsRequired:   true,
			TaskMaster:   m,
		}
	}
	return steps
}

func taskMaster(name string, input, output *uuid.UUID) *domain.TaskMaster {
	return &domain.TaskMaster{
		ID:                uuid.New(),
		Name:              name,
		InputInterfaceID:  input,
		OutputInterfaceID: output,
	}
}

func TestValidateWorkflow_ValidChain(t *testing.T) {
	ifaceA := uuid.New()
	ifaceB := uuid.New()
	ifaceC := uuid.New()

	master := &domain.JobMaster{
		ID:                uuid.New(),
		InputInterfaceID:  &ifaceA,
		OutputInterfaceID: &ifaceC,
	}
	steps := chain(
		taskMaster("search", &ifaceA, &ifaceB),
		taskMaster("analyze", &ifaceB, &ifaceC),
	)

	if err := ValidateWorkflow(master, steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWorkflow_AdjacentMismatch(t *testing.T) {
	ifaceA := uuid.New()
	ifaceB := uuid.New()
	ifaceX := uuid.New()

	master := &domain.JobMaster{ID: uuid.New()}
	steps := chain(
		taskMaster("search", &ifaceA, &ifaceB),
		taskMaster("analyze", &ifaceX, &ifaceB), // вход не совпадает с выходом search
		taskMaster("report", &ifaceB, nil),
	)

	err := ValidateWorkflow(master, steps)
	if err == nil {
		t.Fatal("expected error")
	}

	var wfErr *WorkflowError
	if !errors.As(err, &wfErr) {
		t.Fatalf("expected *WorkflowError, got %T", err)
	}
	if wfErr.Details["current_task_name"] != "search" {
		t.Errorf("expected offending task search, got %v", wfErr.Details["current_task_name"])
	}
	if wfErr.Details["next_task_name"] != "analyze" {
		t.Errorf("expected next task analyze, got %v", wfErr.Details["next_task_name"])
	}
	if wfErr.Details["current_task_order"] != 0 || wfErr.Details["next_task_order"] != 1 {
		t.Errorf("expected orders 0 and 1, got %v and %v",
			wfErr.Details["current_task_order"], wfErr.Details["next_task_order"])
	}
}

func TestValidateWorkflow_MasterInputMismatch(t *testing.T) {
	ifaceA := uuid.New()
	ifaceOther := uuid.New()

	master := &domain.JobMaster{ID: uuid.New(), InputInterfaceID: &ifaceOther}
	steps := chain(taskMaster("only", &ifaceA, nil))

	err := ValidateWorkflow(master, steps)
	if err == nil {
		t.Fatal("expected error")
	}
	var wfErr *WorkflowError
	if !errors.As(err, &wfErr) {
		t.Fatalf("expected *WorkflowError, got %T", err)
	}
	if wfErr.Details["first_task_name"] != "only" {
		t.Errorf("details should name the first task, got %v", wfErr.Details)
	}
}

func TestValidateWorkflow_MasterOutputMismatch(t *testing.T) {
	ifaceB := uuid.New()
	ifaceOther := uuid.New()

	master := &domain.JobMaster{ID: uuid.New(), OutputInterfaceID: &ifaceOther}
	steps := chain(taskMaster("only", nil, &ifaceB))

	if err := ValidateWorkflow(master, steps); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateWorkflow_UndeclaredMasterInterfacesSkipRules(t *testing.T) {
	ifaceB := uuid.New()

	// Мастер без объявленных интерфейсов: правила 1 и 3 не применяются.
	master := &domain.JobMaster{ID: uuid.New()}
	steps := chain(
		taskMaster("a", nil, &ifaceB),
		taskMaster("b", &ifaceB, nil),
	)

	if err := ValidateWorkflow(master, steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildWorkflowReport_EmptyWorkflow(t *testing.T) {
	master := &domain.JobMaster{ID: uuid.New()}

	report := BuildWorkflowReport(master, nil)
	if !report.IsValid {
		t.Error("empty workflow should be valid")
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected zero errors, got %d", len(report.Errors))
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(report.Warnings))
	}
	if report.Warnings[0].Type != "empty_workflow" {
		t.Errorf("expected empty_workflow warning, got %s", report.Warnings[0].Type)
	}
}

func TestBuildWorkflowReport_MismatchReportsSingleError(t *testing.T) {
	ifaceA := uuid.New()
	ifaceB := uuid.New()
	ifaceX := uuid.New()

	master := &domain.JobMaster{ID: uuid.New()}
	steps := chain(
		taskMaster("t1", &ifaceA, &ifaceB),
		taskMaster("t2", &ifaceX, nil),
		taskMaster("t3", nil, nil),
	)

	report := BuildWorkflowReport(master, steps)
	if report.IsValid {
		t.Error("report should be invalid")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(report.Errors))
	}
	if report.Errors[0].Type != "interface_mismatch" {
		t.Errorf("expected interface_mismatch, got %s", report.Errors[0].Type)
	}
	if len(report.TaskChain) != 3 {
		t.Fatalf("expected task chain of 3 entries, got %d", len(report.TaskChain))
	}
	if report.TaskChain[1].TaskName != "t2" || report.TaskChain[1].Order != 1 {
		t.Errorf("task chain entry mismatch: %+v", report.TaskChain[1])
	}
}
