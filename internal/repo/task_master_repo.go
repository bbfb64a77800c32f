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

// TaskMasterRepo — репозиторий для работы с task_masters и task_master_versions.
type TaskMasterRepo struct {
	pool *pgxpool.Pool
}

// NewTaskMasterRepo создаёт новый TaskMasterRepo.
func NewTaskMasterRepo(pool *pgxpool.Pool) *TaskMasterRepo {
	return &TaskMasterRepo{pool: pool}
}

const taskMasterColumns = `
	id, name, description, method, url, headers, body_template, timeout_sec,
	input_interface_id, output_interface_id, current_version, is_active,
	created_at, updated_at, created_by, updated_by
`

// Create создаёт новый task master.
func (r *TaskMasterRepo) Create(ctx context.Context, m *domain.TaskMaster) error {
	return insertTaskMaster(ctx, r.pool, m)
}

// CreateWithVersion в одной транзакции создаёт мастер и начальный
// снапшот его первой версии.
func (r *TaskMasterRepo) CreateWithVersion(ctx context.Context, m *domain.TaskMaster, snapshot *domain.TaskMasterVersion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertTaskMaster(ctx, tx, m); err != nil {
		return err
	}
	if err := insertTaskMasterVersion(ctx, tx, snapshot); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertTaskMaster(ctx context.Context, q execer, m *domain.TaskMaster) error {
	headersJSON, templateJSON, err := marshalTaskMasterDocs(m.Headers, m.BodyTemplate)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_masters (` + taskMasterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = q.Exec(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Description),
		m.Method,
		m.URL,
		headersJSON,
		templateJSON,
		m.TimeoutSec,
		nullUUID(m.InputInterfaceID),
		nullUUID(m.OutputInterfaceID),
		m.CurrentVersion,
		m.IsActive,
		m.CreatedAt,
		m.UpdatedAt,
		nullString(m.CreatedBy),
		nullString(m.UpdatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert task master: %w", err)
	}
	return nil
}

// GetByID возвращает task master по ID.
func (r *TaskMasterRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskMaster, error) {
	query := `SELECT ` + taskMasterColumns + ` FROM task_masters WHERE id = $1`
	return scanTaskMaster(r.pool.QueryRow(ctx, query, id))
}

// List возвращает task masters с фильтрацией по активности.
func (r *TaskMasterRepo) List(ctx context.Context, filter MasterFilter) ([]domain.TaskMaster, error) {
	query := `
		SELECT ` + taskMasterColumns + `
		FROM task_masters
		WHERE ($1::boolean IS NULL OR is_active = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.IsActive, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list task masters: %w", err)
	}
	defer rows.Close()

	var masters []domain.TaskMaster
	for rows.Next() {
		m, err := scanTaskMaster(rows)
		if err != nil {
			return nil, err
		}
		masters = append(masters, *m)
	}
	return masters, rows.Err()
}

// Update обновляет task master на месте, без создания версии.
func (r *TaskMasterRepo) Update(ctx context.Context, m *domain.TaskMaster) error {
	return r.update(ctx, r.pool, m)
}

// UpdateWithVersion в одной транзакции снапшотит предыдущее состояние
// в task_master_versions и записывает обновлённое состояние.
func (r *TaskMasterRepo) UpdateWithVersion(ctx context.Context, m *domain.TaskMaster, snapshot *domain.TaskMasterVersion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertTaskMasterVersion(ctx, tx, snapshot); err != nil {
		return err
	}
	if err := r.update(ctx, tx, m); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete удаляет task master.
func (r *TaskMasterRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM task_masters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task master: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTasksForMaster возвращает число tasks, созданных по мастеру.
func (r *TaskMasterRepo) CountTasksForMaster(ctx context.Context, masterID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE master_id = $1`, masterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks for master: %w", err)
	}
	return count, nil
}

// GetVersion возвращает конкретную версию task master.
func (r *TaskMasterRepo) GetVersion(ctx context.Context, masterID uuid.UUID, version int) (*domain.TaskMasterVersion, error) {
	query := `
		SELECT master_id, version, name, method, url, headers, body_template,
		       timeout_sec, change_reason, created_by, created_at
		FROM task_master_versions
		WHERE master_id = $1 AND version = $2
	`
	return scanTaskMasterVersion(r.pool.QueryRow(ctx, query, masterID, version))
}

// ListVersions возвращает все версии task master (новые первыми).
func (r *TaskMasterRepo) ListVersions(ctx context.Context, masterID uuid.UUID) ([]domain.TaskMasterVersion, error) {
	query := `
		SELECT master_id, version, name, method, url, headers, body_template,
		       timeout_sec, change_reason, created_by, created_at
		FROM task_master_versions
		WHERE master_id = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, masterID)
	if err != nil {
		return nil, fmt.Errorf("list task master versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.TaskMasterVersion
	for rows.Next() {
		v, err := scanTaskMasterVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// --- Helpers ---

func (r *TaskMasterRepo) update(ctx context.Context, q execer, m *domain.TaskMaster) error {
	headersJSON, templateJSON, err := marshalTaskMasterDocs(m.Headers, m.BodyTemplate)
	if err != nil {
		return err
	}

	query := `
		UPDATE task_masters
		SET name = $2, description = $3, method = $4, url = $5,
		    headers = $6, body_template = $7, timeout_sec = $8,
		    input_interface_id = $9, output_interface_id = $10,
		    current_version = $11, is_active = $12,
		    updated_at = NOW(), updated_by = $13
		WHERE id = $1
	`
	result, err := q.Exec(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Description),
		m.Method,
		m.URL,
		headersJSON,
		templateJSON,
		m.TimeoutSec,
		nullUUID(m.InputInterfaceID),
		nullUUID(m.OutputInterfaceID),
		m.CurrentVersion,
		m.IsActive,
		nullString(m.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("update task master: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertTaskMasterVersion(ctx context.Context, q execer, v *domain.TaskMasterVersion) error {
	headersJSON, templateJSON, err := marshalTaskMasterDocs(v.Headers, v.BodyTemplate)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_master_versions (
			master_id, version, name, method, url, headers, body_template,
			timeout_sec, change_reason, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = q.Exec(ctx, query,
		v.MasterID,
		v.Version,
		v.Name,
		v.Method,
		v.URL,
		headersJSON,
		templateJSON,
		v.TimeoutSec,
		nullString(v.ChangeReason),
		nullString(v.CreatedBy),
		v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert task master version: %w", err)
	}
	return nil
}

func scanTaskMaster(row pgx.Row) (*domain.TaskMaster, error) {
	var m domain.TaskMaster
	var description, createdBy, updatedBy *string
	var headersJSON, templateJSON []byte

	err := row.Scan(
		&m.ID,
		&m.Name,
		&description,
		&m.Method,
		&m.URL,
		&headersJSON,
		&templateJSON,
		&m.TimeoutSec,
		&m.InputInterfaceID,
		&m.OutputInterfaceID,
		&m.CurrentVersion,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
		&createdBy,
		&updatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task master: %w", err)
	}

	if headersJSON != nil {
		if err := json.Unmarshal(headersJSON, &m.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if templateJSON != nil {
		if err := json.Unmarshal(templateJSON, &m.BodyTemplate); err != nil {
			return nil, fmt.Errorf("unmarshal body template: %w", err)
		}
	}
	m.Description = deref(description)
	m.CreatedBy = deref(createdBy)
	m.UpdatedBy = deref(updatedBy)

	return &m, nil
}

func scanTaskMasterVersion(row pgx.Row) (*domain.TaskMasterVersion, error) {
	var v domain.TaskMasterVersion
	var changeReason, createdBy *string
	var headersJSON, templateJSON []byte

	err := row.Scan(
		&v.MasterID,
		&v.Version,
		&v.Name,
		&v.Method,
		&v.URL,
		&headersJSON,
		&templateJSON,
		&v.TimeoutSec,
		&changeReason,
		&createdBy,
		&v.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task master version: %w", err)
	}

	if headersJSON != nil {
		if err := json.Unmarshal(headersJSON, &v.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if templateJSON != nil {
		if err := json.Unmarshal(templateJSON, &v.BodyTemplate); err != nil {
			return nil, fmt.Errorf("unmarshal body template: %w", err)
		}
	}
	v.ChangeReason = deref(changeReason)
	v.CreatedBy = deref(createdBy)

	return &v, nil
}

func marshalTaskMasterDocs(headers map[string]any, template any) (headersJSON, templateJSON []byte, err error) {
	if headers != nil {
		if headersJSON, err = json.Marshal(headers); err != nil {
			return nil, nil, fmt.Errorf("marshal headers: %w", err)
		}
	}
	if template != nil {
		if templateJSON, err = json.Marshal(template); err != nil {
			return nil, nil, fmt.Errorf("marshal body template: %w", err)
		}
	}
	return headersJSON, templateJSON, nil
}
