package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/jobqueue/internal/domain"
)

// WorkflowRepo — репозиторий для работы с workflow_steps.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// ListSteps возвращает цепочку шагов мастера по возрастанию order,
// с загруженными TaskMaster каждого шага.
func (r *WorkflowRepo) ListSteps(ctx context.Context, jobMasterID uuid.UUID) ([]domain.WorkflowStep, error) {
	query := `
		SELECT s.id, s.job_master_id, s.task_master_id, s.step_order,
		       s.input_data_template, s.is_required, s.retry_on_failure,
		       s.created_at, s.updated_at,
		       ` + taskMasterJoinedColumns + `
		FROM workflow_steps s
		JOIN task_masters t ON t.id = s.task_master_id
		WHERE s.job_master_id = $1
		ORDER BY s.step_order ASC
	`
	rows, err := r.pool.Query(ctx, query, jobMasterID)
	if err != nil {
		return nil, fmt.Errorf("list workflow steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.WorkflowStep
	for rows.Next() {
		step, err := scanWorkflowStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *step)
	}
	return steps, rows.Err()
}

// ReplaceSteps атомарно заменяет цепочку шагов мастера.
// Инвариант непрерывности order (0..n-1) нормализуется по позиции
// в переданном срезе.
func (r *WorkflowRepo) ReplaceSteps(ctx context.Context, jobMasterID uuid.UUID, steps []domain.WorkflowStep) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM workflow_steps WHERE job_master_id = $1`, jobMasterID,
	); err != nil {
		return fmt.Errorf("delete workflow steps: %w", err)
	}

	for i := range steps {
		step := &steps[i]
		step.JobMasterID = jobMasterID
		step.Order = i
		if step.ID == uuid.Nil {
			step.ID = uuid.New()
		}

		var templateJSON []byte
		if step.InputDataTemplate != nil {
			if templateJSON, err = json.Marshal(step.InputDataTemplate); err != nil {
				return fmt.Errorf("marshal input data template: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO workflow_steps (
				id, job_master_id, task_master_id, step_order,
				input_data_template, is_required, retry_on_failure,
				created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		`,
			step.ID,
			step.JobMasterID,
			step.TaskMasterID,
			step.Order,
			templateJSON,
			step.IsRequired,
			step.RetryOnFailure,
		); err != nil {
			return fmt.Errorf("insert workflow step: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteSteps удаляет всю цепочку мастера.
func (r *WorkflowRepo) DeleteSteps(ctx context.Context, jobMasterID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM workflow_steps WHERE job_master_id = $1`, jobMasterID,
	)
	if err != nil {
		return fmt.Errorf("delete workflow steps: %w", err)
	}
	return nil
}

// CountStepsForTaskMaster возвращает число шагов, ссылающихся на task master.
// Используется при удалении task master для проверки зависимостей.
func (r *WorkflowRepo) CountStepsForTaskMaster(ctx context.Context, taskMasterID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM workflow_steps WHERE task_master_id = $1`, taskMasterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count workflow steps: %w", err)
	}
	return count, nil
}

const taskMasterJoinedColumns = `
	t.id, t.name, t.description, t.method, t.url, t.headers, t.body_template,
	t.timeout_sec, t.input_interface_id, t.output_interface_id,
	t.current_version, t.is_active, t.created_at, t.updated_at,
	t.created_by, t.updated_by
`

func scanWorkflowStep(row pgx.Row) (*domain.WorkflowStep, error) {
	var step domain.WorkflowStep
	var templateJSON []byte

	var tm domain.TaskMaster
	var tmDescription, tmCreatedBy, tmUpdatedBy *string
	var tmHeadersJSON, tmTemplateJSON []byte

	err := row.Scan(
		&step.ID,
		&step.JobMasterID,
		&step.TaskMasterID,
		&step.Order,
		&templateJSON,
		&step.IsRequired,
		&step.RetryOnFailure,
		&step.CreatedAt,
		&step.UpdatedAt,
		&tm.ID,
		&tm.Name,
		&tmDescription,
		&tm.Method,
		&tm.URL,
		&tmHeadersJSON,
		&tmTemplateJSON,
		&tm.TimeoutSec,
		&tm.InputInterfaceID,
		&tm.OutputInterfaceID,
		&tm.CurrentVersion,
		&tm.IsActive,
		&tm.CreatedAt,
		&tm.UpdatedAt,
		&tmCreatedBy,
		&tmUpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow step: %w", err)
	}

	if templateJSON != nil {
		if err := json.Unmarshal(templateJSON, &step.InputDataTemplate); err != nil {
			return nil, fmt.Errorf("unmarshal input data template: %w", err)
		}
	}
	if tmHeadersJSON != nil {
		if err := json.Unmarshal(tmHeadersJSON, &tm.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if tmTemplateJSON != nil {
		if err := json.Unmarshal(tmTemplateJSON, &tm.BodyTemplate); err != nil {
			return nil, fmt.Errorf("unmarshal body template: %w", err)
		}
	}
	tm.Description = deref(tmDescription)
	tm.CreatedBy = deref(tmCreatedBy)
	tm.UpdatedBy = deref(tmUpdatedBy)

	step.TaskMaster = &tm
	return &step, nil
}
