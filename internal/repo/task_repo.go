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

// TaskRepo — репозиторий для работы с tasks (шагами workflow внутри job).
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `
	id, job_id, master_id, master_version, task_order, status,
	input_data, output_data, attempt, error, duration_ms,
	started_at, finished_at, created_at, updated_at
`

// Create создаёт новый task.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	return insertTask(ctx, r.pool, task)
}

// GetByID возвращает task по ID.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

// GetByJobOrder возвращает task job по его позиции в цепочке.
func (r *TaskRepo) GetByJobOrder(ctx context.Context, jobID uuid.UUID, order int) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE job_id = $1 AND task_order = $2`
	return scanTask(r.pool.QueryRow(ctx, query, jobID, order))
}

// ListByJob возвращает tasks job по возрастанию order.
func (r *TaskRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE job_id = $1
		ORDER BY task_order ASC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// Update обновляет мутабельные поля task.
func (r *TaskRepo) Update(ctx context.Context, task *domain.Task) error {
	inputJSON, outputJSON, err := marshalTaskData(task.InputData, task.OutputData)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET status = $2, input_data = $3, output_data = $4, attempt = $5,
		    error = $6, duration_ms = $7, started_at = $8, finished_at = $9,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Status,
		inputJSON,
		outputJSON,
		task.Attempt,
		nullString(task.Error),
		task.DurationMs,
		task.StartedAt,
		task.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetFrom сбрасывает в QUEUED все tasks job начиная с позиции
// fromOrder. Используется при повторной попытке job: успешные шаги до
// точки провала сохраняют результаты, остальные выполняются заново.
func (r *TaskRepo) ResetFrom(ctx context.Context, jobID uuid.UUID, fromOrder int) error {
	query := `
		UPDATE tasks
		SET status = 'QUEUED', output_data = NULL, error = NULL,
		    duration_ms = NULL, started_at = NULL, finished_at = NULL,
		    updated_at = NOW()
		WHERE job_id = $1 AND task_order >= $2
	`
	_, err := r.pool.Exec(ctx, query, jobID, fromOrder)
	if err != nil {
		return fmt.Errorf("reset tasks: %w", err)
	}
	return nil
}

// --- Helpers ---

func insertTask(ctx context.Context, q execer, task *domain.Task) error {
	inputJSON, outputJSON, err := marshalTaskData(task.InputData, task.OutputData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = q.Exec(ctx, query,
		task.ID,
		task.JobID,
		task.MasterID,
		task.MasterVersion,
		task.Order,
		task.Status,
		inputJSON,
		outputJSON,
		task.Attempt,
		nullString(task.Error),
		task.DurationMs,
		task.StartedAt,
		task.FinishedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var taskError *string
	var inputJSON, outputJSON []byte

	err := row.Scan(
		&task.ID,
		&task.JobID,
		&task.MasterID,
		&task.MasterVersion,
		&task.Order,
		&task.Status,
		&inputJSON,
		&outputJSON,
		&task.Attempt,
		&taskError,
		&task.DurationMs,
		&task.StartedAt,
		&task.FinishedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &task.InputData); err != nil {
			return nil, fmt.Errorf("unmarshal input data: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &task.OutputData); err != nil {
			return nil, fmt.Errorf("unmarshal output data: %w", err)
		}
	}
	task.Error = deref(taskError)

	return &task, nil
}

func marshalTaskData(input, output any) (inputJSON, outputJSON []byte, err error) {
	if input != nil {
		if inputJSON, err = json.Marshal(input); err != nil {
			return nil, nil, fmt.Errorf("marshal input data: %w", err)
		}
	}
	if output != nil {
		if outputJSON, err = json.Marshal(output); err != nil {
			return nil, nil, fmt.Errorf("marshal output data: %w", err)
		}
	}
	return inputJSON, outputJSON, nil
}
