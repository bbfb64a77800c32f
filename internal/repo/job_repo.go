package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/jobqueue/internal/domain"
)

// JobRepo — репозиторий для работы с jobs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `
	id, name, status, master_id, master_version, attempt, max_attempts,
	priority, method, url, headers, params, body, timeout_sec,
	backoff_strategy, backoff_seconds, scheduled_at, ttl_seconds, tags,
	next_attempt_at, created_at, started_at, finished_at
`

// Create создаёт новый job.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	return insertJob(ctx, r.pool, job)
}

// CreateWithTasks атомарно создаёт job и его tasks (шаги workflow).
func (r *JobRepo) CreateWithTasks(ctx context.Context, job *domain.Job, tasks []*domain.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertJob(ctx, tx, job); err != nil {
		return err
	}
	for _, task := range tasks {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(r.pool.QueryRow(ctx, query, id))
}

// List возвращает jobs с фильтрацией.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ($1::text IS NULL OR status = $1::job_status)
		  AND ($2::uuid IS NULL OR master_id = $2)
		  AND ($3::text IS NULL OR $3 = ANY(tags))
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullUUID(filter.MasterID),
		nullString(filter.Tag),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// claimBatchSize — сколько кандидатов выбирается за один проход захвата.
const claimBatchSize = 5

// ClaimNext атомарно захватывает следующий готовый job.
//
// Захват двухфазный: сначала выборка кандидатов (QUEUED, время
// наступило, по приоритету и FIFO), затем условный UPDATE по каждому.
// UPDATE с WHERE status = 'QUEUED' гарантирует, что job достанется
// ровно одному воркеру: проигравший конкурент получит 0 строк и
// перейдёт к следующему кандидату. Возвращает ErrNotFound, если
// готовых jobs нет.
func (r *JobRepo) ClaimNext(ctx context.Context) (*domain.Job, error) {
	candidateQuery := `
		SELECT id FROM jobs
		WHERE status = 'QUEUED'
		  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
		ORDER BY priority ASC, created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, candidateQuery, claimBatchSize)
	if err != nil {
		return nil, fmt.Errorf("select claim candidates: %w", err)
	}
	var candidates []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	for _, id := range candidates {
		job, err := r.tryClaim(ctx, id)
		if errors.Is(err, ErrClaimLost) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return job, nil
	}
	return nil, ErrNotFound
}

// tryClaim пытается атомарно перевести конкретный job в RUNNING.
func (r *JobRepo) tryClaim(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'RUNNING', started_at = NOW()
		WHERE id = $1 AND status = 'QUEUED'
		RETURNING ` + jobColumns
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrClaimLost
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Update обновляет мутабельные поля job.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, attempt = $3, next_attempt_at = $4,
		    started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.Attempt,
		job.NextAttemptAt,
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Cancel переводит незавершённый job в CANCELED.
// Для уже терминального job возвращает ErrInvalidState.
func (r *JobRepo) Cancel(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'CANCELED', finished_at = NOW(), next_attempt_at = NULL
		WHERE id = $1 AND status IN ('QUEUED', 'RUNNING')
		RETURNING ` + jobColumns
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, ErrNotFound) {
		// различаем "нет такого job" и "job уже терминален"
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, ErrInvalidState
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	return job, nil
}

// Retry возвращает терминально проваленный или отменённый job в очередь
// с первой попыткой.
func (r *JobRepo) Retry(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'QUEUED', attempt = 1, started_at = NULL,
		    finished_at = NULL, next_attempt_at = NOW()
		WHERE id = $1 AND status IN ('FAILED', 'CANCELED')
		RETURNING ` + jobColumns
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, ErrInvalidState
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retry job: %w", err)
	}
	return job, nil
}

// PurgeExpired удаляет завершённые jobs с истёкшим TTL (каскадно
// вместе с tasks и results). Возвращает число удалённых записей.
func (r *JobRepo) PurgeExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM jobs
		WHERE finished_at IS NOT NULL
		  AND ttl_seconds IS NOT NULL
		  AND finished_at + make_interval(secs => ttl_seconds) < NOW()
	`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("purge expired jobs: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountByStatus возвращает распределение jobs по статусам (для метрик).
func (r *JobRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status domain.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// --- Helpers ---

// JobFilter — параметры фильтрации jobs.
type JobFilter struct {
	Status   domain.JobStatus
	MasterID *uuid.UUID
	Tag      string
	Limit    int
	Offset   int
}

func insertJob(ctx context.Context, q execer, job *domain.Job) error {
	headersJSON, paramsJSON, bodyJSON, err := marshalHTTPDocs(job.Headers, job.Params, job.Body)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err = q.Exec(ctx, query,
		job.ID,
		nullString(job.Name),
		job.Status,
		nullUUID(job.MasterID),
		job.MasterVersion,
		job.Attempt,
		job.MaxAttempts,
		job.Priority,
		job.Method,
		job.URL,
		headersJSON,
		paramsJSON,
		bodyJSON,
		job.TimeoutSec,
		job.BackoffStrategy,
		job.BackoffSeconds,
		job.ScheduledAt,
		job.TTLSeconds,
		job.Tags,
		job.NextAttemptAt,
		job.CreatedAt,
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var name *string
	var headersJSON, paramsJSON, bodyJSON []byte

	err := row.Scan(
		&job.ID,
		&name,
		&job.Status,
		&job.MasterID,
		&job.MasterVersion,
		&job.Attempt,
		&job.MaxAttempts,
		&job.Priority,
		&job.Method,
		&job.URL,
		&headersJSON,
		&paramsJSON,
		&bodyJSON,
		&job.TimeoutSec,
		&job.BackoffStrategy,
		&job.BackoffSeconds,
		&job.ScheduledAt,
		&job.TTLSeconds,
		&job.Tags,
		&job.NextAttemptAt,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := unmarshalHTTPDocs(headersJSON, paramsJSON, bodyJSON, &job.Headers, &job.Params, &job.Body); err != nil {
		return nil, err
	}
	job.Name = deref(name)

	return &job, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
