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

// ResultRepo — репозиторий для работы с job_results и job_result_attempts.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo создаёт новый ResultRepo.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// Save в одной транзакции перезаписывает последний результат job
// (upsert по job_id) и добавляет запись истории текущей попытки.
func (r *ResultRepo) Save(ctx context.Context, result *domain.JobResult, attempt int) error {
	headersJSON, bodyJSON, err := marshalResponseDocs(result.ResponseHeaders, result.ResponseBody)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO job_results (job_id, response_status, response_headers, response_body, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (job_id) DO UPDATE
		SET response_status = EXCLUDED.response_status,
		    response_headers = EXCLUDED.response_headers,
		    response_body = EXCLUDED.response_body,
		    error = EXCLUDED.error,
		    duration_ms = EXCLUDED.duration_ms,
		    updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, upsert,
		result.JobID,
		result.ResponseStatus,
		headersJSON,
		bodyJSON,
		nullString(result.Error),
		result.DurationMs,
	); err != nil {
		return fmt.Errorf("upsert job result: %w", err)
	}

	history := `
		INSERT INTO job_result_attempts (job_id, attempt, response_status, response_headers, response_body, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (job_id, attempt) DO NOTHING
	`
	if _, err := tx.Exec(ctx, history,
		result.JobID,
		attempt,
		result.ResponseStatus,
		headersJSON,
		bodyJSON,
		nullString(result.Error),
		result.DurationMs,
	); err != nil {
		return fmt.Errorf("insert job result attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByJob возвращает последний результат job.
func (r *ResultRepo) GetByJob(ctx context.Context, jobID uuid.UUID) (*domain.JobResult, error) {
	query := `
		SELECT job_id, response_status, response_headers, response_body,
		       error, duration_ms, created_at, updated_at
		FROM job_results
		WHERE job_id = $1
	`
	var result domain.JobResult
	var resultError *string
	var headersJSON, bodyJSON []byte

	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&result.JobID,
		&result.ResponseStatus,
		&headersJSON,
		&bodyJSON,
		&resultError,
		&result.DurationMs,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job result: %w", err)
	}

	if err := unmarshalResponseDocs(headersJSON, bodyJSON, &result.ResponseHeaders, &result.ResponseBody); err != nil {
		return nil, err
	}
	result.Error = deref(resultError)

	return &result, nil
}

// ListAttempts возвращает историю результатов job по возрастанию попыток.
func (r *ResultRepo) ListAttempts(ctx context.Context, jobID uuid.UUID) ([]domain.JobResultAttempt, error) {
	query := `
		SELECT job_id, attempt, response_status, response_headers,
		       response_body, error, duration_ms, created_at
		FROM job_result_attempts
		WHERE job_id = $1
		ORDER BY attempt ASC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job result attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.JobResultAttempt
	for rows.Next() {
		var a domain.JobResultAttempt
		var attemptError *string
		var headersJSON, bodyJSON []byte

		if err := rows.Scan(
			&a.JobID,
			&a.Attempt,
			&a.ResponseStatus,
			&headersJSON,
			&bodyJSON,
			&attemptError,
			&a.DurationMs,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job result attempt: %w", err)
		}

		if err := unmarshalResponseDocs(headersJSON, bodyJSON, &a.ResponseHeaders, &a.ResponseBody); err != nil {
			return nil, err
		}
		a.Error = deref(attemptError)

		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func marshalResponseDocs(headers map[string]any, body any) (headersJSON, bodyJSON []byte, err error) {
	if headers != nil {
		if headersJSON, err = json.Marshal(headers); err != nil {
			return nil, nil, fmt.Errorf("marshal response headers: %w", err)
		}
	}
	if body != nil {
		if bodyJSON, err = json.Marshal(body); err != nil {
			return nil, nil, fmt.Errorf("marshal response body: %w", err)
		}
	}
	return headersJSON, bodyJSON, nil
}

func unmarshalResponseDocs(headersJSON, bodyJSON []byte, headers *map[string]any, body *any) error {
	if headersJSON != nil {
		if err := json.Unmarshal(headersJSON, headers); err != nil {
			return fmt.Errorf("unmarshal response headers: %w", err)
		}
	}
	if bodyJSON != nil {
		if err := json.Unmarshal(bodyJSON, body); err != nil {
			return fmt.Errorf("unmarshal response body: %w", err)
		}
	}
	return nil
}
