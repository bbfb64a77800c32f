package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/jobqueue/internal/domain"
)

// JobMasterRepo — репозиторий для работы с job_masters и job_master_versions.
type JobMasterRepo struct {
	pool *pgxpool.Pool
}

// NewJobMasterRepo создаёт новый JobMasterRepo.
func NewJobMasterRepo(pool *pgxpool.Pool) *JobMasterRepo {
	return &JobMasterRepo{pool: pool}
}

const jobMasterColumns = `
	id, name, description, method, url, headers, params, body,
	timeout_sec, max_attempts, backoff_strategy, backoff_seconds,
	priority, ttl_seconds, tags, input_interface_id, output_interface_id,
	current_version, is_active, created_at, updated_at, created_by, updated_by
`

// --- JobMaster CRUD ---

// Create создаёт новый job master.
func (r *JobMasterRepo) Create(ctx context.Context, m *domain.JobMaster) error {
	return insertJobMaster(ctx, r.pool, m)
}

// CreateWithVersion в одной транзакции создаёт мастер и начальный
// снапшот его первой версии.
func (r *JobMasterRepo) CreateWithVersion(ctx context.Context, m *domain.JobMaster, snapshot *domain.JobMasterVersion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertJobMaster(ctx, tx, m); err != nil {
		return err
	}
	if err := insertJobMasterVersion(ctx, tx, snapshot); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertJobMaster(ctx context.Context, q execer, m *domain.JobMaster) error {
	headersJSON, paramsJSON, bodyJSON, err := marshalHTTPDocs(m.Headers, m.Params, m.Body)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO job_masters (` + jobMasterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err = q.Exec(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Description),
		m.Method,
		m.URL,
		headersJSON,
		paramsJSON,
		bodyJSON,
		m.TimeoutSec,
		m.MaxAttempts,
		m.BackoffStrategy,
		m.BackoffSeconds,
		m.Priority,
		m.TTLSeconds,
		m.Tags,
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
		return fmt.Errorf("insert job master: %w", err)
	}
	return nil
}

// GetByID возвращает job master по ID.
func (r *JobMasterRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.JobMaster, error) {
	query := `SELECT ` + jobMasterColumns + ` FROM job_masters WHERE id = $1`
	return scanJobMaster(r.pool.QueryRow(ctx, query, id))
}

// List возвращает job masters с фильтрацией по активности и тегу.
func (r *JobMasterRepo) List(ctx context.Context, filter MasterFilter) ([]domain.JobMaster, error) {
	query := `
		SELECT ` + jobMasterColumns + `
		FROM job_masters
		WHERE ($1::boolean IS NULL OR is_active = $1)
		  AND ($2::text IS NULL OR $2 = ANY(tags))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		filter.IsActive,
		nullString(filter.Tag),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list job masters: %w", err)
	}
	defer rows.Close()

	var masters []domain.JobMaster
	for rows.Next() {
		m, err := scanJobMaster(rows)
		if err != nil {
			return nil, err
		}
		masters = append(masters, *m)
	}
	return masters, rows.Err()
}

// Update обновляет job master на месте, без создания версии.
func (r *JobMasterRepo) Update(ctx context.Context, m *domain.JobMaster) error {
	return r.update(ctx, r.pool, m)
}

// UpdateWithVersion в одной транзакции снапшотит предыдущее состояние
// мастера в job_master_versions и записывает обновлённое состояние с
// новым номером версии. Снапшот передаётся вызывающим и сделан до
// применения изменений.
func (r *JobMasterRepo) UpdateWithVersion(ctx context.Context, m *domain.JobMaster, snapshot *domain.JobMasterVersion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertJobMasterVersion(ctx, tx, snapshot); err != nil {
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

// Delete удаляет job master (каскадно удалит versions и workflow steps).
func (r *JobMasterRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM job_masters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job master: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountJobsForMaster возвращает число jobs, созданных по мастеру.
// Менеджер версий использует его как признак истории запусков.
func (r *JobMasterRepo) CountJobsForMaster(ctx context.Context, masterID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE master_id = $1`, masterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs for master: %w", err)
	}
	return count, nil
}

// --- JobMasterVersion ---

// GetVersion возвращает конкретную версию мастера.
func (r *JobMasterRepo) GetVersion(ctx context.Context, masterID uuid.UUID, version int) (*domain.JobMasterVersion, error) {
	query := `
		SELECT master_id, version, name, method, url, headers, params, body,
		       timeout_sec, max_attempts, backoff_strategy, backoff_seconds,
		       ttl_seconds, tags, change_reason, created_by, created_at
		FROM job_master_versions
		WHERE master_id = $1 AND version = $2
	`
	return scanJobMasterVersion(r.pool.QueryRow(ctx, query, masterID, version))
}

// ListVersions возвращает все версии мастера (новые первыми).
func (r *JobMasterRepo) ListVersions(ctx context.Context, masterID uuid.UUID) ([]domain.JobMasterVersion, error) {
	query := `
		SELECT master_id, version, name, method, url, headers, params, body,
		       timeout_sec, max_attempts, backoff_strategy, backoff_seconds,
		       ttl_seconds, tags, change_reason, created_by, created_at
		FROM job_master_versions
		WHERE master_id = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, masterID)
	if err != nil {
		return nil, fmt.Errorf("list job master versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.JobMasterVersion
	for rows.Next() {
		v, err := scanJobMasterVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// --- Helpers ---

// MasterFilter — параметры фильтрации списков мастеров.
type MasterFilter struct {
	IsActive *bool
	Tag      string
	Limit    int
	Offset   int
}

// execer покрывает pool и tx, чтобы переиспользовать UPDATE внутри
// и вне транзакции.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *JobMasterRepo) update(ctx context.Context, q execer, m *domain.JobMaster) error {
	headersJSON, paramsJSON, bodyJSON, err := marshalHTTPDocs(m.Headers, m.Params, m.Body)
	if err != nil {
		return err
	}

	query := `
		UPDATE job_masters
		SET name = $2, description = $3, method = $4, url = $5,
		    headers = $6, params = $7, body = $8,
		    timeout_sec = $9, max_attempts = $10,
		    backoff_strategy = $11, backoff_seconds = $12,
		    priority = $13, ttl_seconds = $14, tags = $15,
		    input_interface_id = $16, output_interface_id = $17,
		    current_version = $18, is_active = $19,
		    updated_at = NOW(), updated_by = $20
		WHERE id = $1
	`
	result, err := q.Exec(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Description),
		m.Method,
		m.URL,
		headersJSON,
		paramsJSON,
		bodyJSON,
		m.TimeoutSec,
		m.MaxAttempts,
		m.BackoffStrategy,
		m.BackoffSeconds,
		m.Priority,
		m.TTLSeconds,
		m.Tags,
		nullUUID(m.InputInterfaceID),
		nullUUID(m.OutputInterfaceID),
		m.CurrentVersion,
		m.IsActive,
		nullString(m.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("update job master: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertJobMasterVersion(ctx context.Context, q execer, v *domain.JobMasterVersion) error {
	headersJSON, paramsJSON, bodyJSON, err := marshalHTTPDocs(v.Headers, v.Params, v.Body)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO job_master_versions (
			master_id, version, name, method, url, headers, params, body,
			timeout_sec, max_attempts, backoff_strategy, backoff_seconds,
			ttl_seconds, tags, change_reason, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = q.Exec(ctx, query,
		v.MasterID,
		v.Version,
		v.Name,
		v.Method,
		v.URL,
		headersJSON,
		paramsJSON,
		bodyJSON,
		v.TimeoutSec,
		v.MaxAttempts,
		v.BackoffStrategy,
		v.BackoffSeconds,
		v.TTLSeconds,
		v.Tags,
		nullString(v.ChangeReason),
		nullString(v.CreatedBy),
		v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert job master version: %w", err)
	}
	return nil
}

func scanJobMaster(row pgx.Row) (*domain.JobMaster, error) {
	var m domain.JobMaster
	var description, createdBy, updatedBy *string
	var headersJSON, paramsJSON, bodyJSON []byte

	err := row.Scan(
		&m.ID,
		&m.Name,
		&description,
		&m.Method,
		&m.URL,
		&headersJSON,
		&paramsJSON,
		&bodyJSON,
		&m.TimeoutSec,
		&m.MaxAttempts,
		&m.BackoffStrategy,
		&m.BackoffSeconds,
		&m.Priority,
		&m.TTLSeconds,
		&m.Tags,
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
		return nil, fmt.Errorf("scan job master: %w", err)
	}

	if err := unmarshalHTTPDocs(headersJSON, paramsJSON, bodyJSON, &m.Headers, &m.Params, &m.Body); err != nil {
		return nil, err
	}
	m.Description = deref(description)
	m.CreatedBy = deref(createdBy)
	m.UpdatedBy = deref(updatedBy)

	return &m, nil
}

func scanJobMasterVersion(row pgx.Row) (*domain.JobMasterVersion, error) {
	var v domain.JobMasterVersion
	var changeReason, createdBy *string
	var headersJSON, paramsJSON, bodyJSON []byte

	err := row.Scan(
		&v.MasterID,
		&v.Version,
		&v.Name,
		&v.Method,
		&v.URL,
		&headersJSON,
		&paramsJSON,
		&bodyJSON,
		&v.TimeoutSec,
		&v.MaxAttempts,
		&v.BackoffStrategy,
		&v.BackoffSeconds,
		&v.TTLSeconds,
		&v.Tags,
		&changeReason,
		&createdBy,
		&v.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job master version: %w", err)
	}

	if err := unmarshalHTTPDocs(headersJSON, paramsJSON, bodyJSON, &v.Headers, &v.Params, &v.Body); err != nil {
		return nil, err
	}
	v.ChangeReason = deref(changeReason)
	v.CreatedBy = deref(createdBy)

	return &v, nil
}

// marshalHTTPDocs сериализует документные HTTP-поля, сохраняя nil как NULL.
func marshalHTTPDocs(headers, params map[string]any, body any) (headersJSON, paramsJSON, bodyJSON []byte, err error) {
	if headers != nil {
		if headersJSON, err = json.Marshal(headers); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal headers: %w", err)
		}
	}
	if params != nil {
		if paramsJSON, err = json.Marshal(params); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal params: %w", err)
		}
	}
	if body != nil {
		if bodyJSON, err = json.Marshal(body); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal body: %w", err)
		}
	}
	return headersJSON, paramsJSON, bodyJSON, nil
}

func unmarshalHTTPDocs(headersJSON, paramsJSON, bodyJSON []byte, headers, params *map[string]any, body *any) error {
	if headersJSON != nil {
		if err := json.Unmarshal(headersJSON, headers); err != nil {
			return fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, params); err != nil {
			return fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if bodyJSON != nil {
		if err := json.Unmarshal(bodyJSON, body); err != nil {
			return fmt.Errorf("unmarshal body: %w", err)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
