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

// InterfaceRepo — репозиторий для работы с interface_masters.
type InterfaceRepo struct {
	pool *pgxpool.Pool
}

// NewInterfaceRepo создаёт новый InterfaceRepo.
func NewInterfaceRepo(pool *pgxpool.Pool) *InterfaceRepo {
	return &InterfaceRepo{pool: pool}
}

// Create создаёт новый interface master.
func (r *InterfaceRepo) Create(ctx context.Context, m *domain.InterfaceMaster) error {
	inputJSON, outputJSON, err := marshalSchemas(m.InputSchema, m.OutputSchema)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO interface_masters (id, name, description, input_schema, output_schema, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Description),
		inputJSON,
		outputJSON,
		m.IsActive,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert interface master: %w", err)
	}
	return nil
}

// GetByID возвращает interface master по ID.
func (r *InterfaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InterfaceMaster, error) {
	query := `
		SELECT id, name, description, input_schema, output_schema, is_active, created_at, updated_at
		FROM interface_masters
		WHERE id = $1
	`
	return scanInterfaceMaster(r.pool.QueryRow(ctx, query, id))
}

// List возвращает все interface masters.
func (r *InterfaceRepo) List(ctx context.Context, filter MasterFilter) ([]domain.InterfaceMaster, error) {
	query := `
		SELECT id, name, description, input_schema, output_schema, is_active, created_at, updated_at
		FROM interface_masters
		WHERE ($1::boolean IS NULL OR is_active = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.IsActive, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list interface masters: %w", err)
	}
	defer rows.Close()

	var masters []domain.InterfaceMaster
	for rows.Next() {
		m, err := scanInterfaceMaster(rows)
		if err != nil {
			return nil, err
		}
		masters = append(masters, *m)
	}
	return masters, rows.Err()
}

// Update обновляет interface master.
func (r *InterfaceRepo) Update(ctx context.Context, m *domain.InterfaceMaster) error {
	inputJSON, outputJSON, err := marshalSchemas(m.InputSchema, m.OutputSchema)
	if err != nil {
		return err
	}

	query := `
		UPDATE interface_masters
		SET name = $2, description = $3, input_schema = $4, output_schema = $5,
		    is_active = $6, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Description),
		inputJSON,
		outputJSON,
		m.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update interface master: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет interface master. Ссылки из мастеров обнуляются (SET NULL).
func (r *InterfaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM interface_masters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete interface master: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInterfaceMaster(row pgx.Row) (*domain.InterfaceMaster, error) {
	var m domain.InterfaceMaster
	var description *string
	var inputJSON, outputJSON []byte

	err := row.Scan(
		&m.ID,
		&m.Name,
		&description,
		&inputJSON,
		&outputJSON,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan interface master: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &m.InputSchema); err != nil {
			return nil, fmt.Errorf("unmarshal input schema: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &m.OutputSchema); err != nil {
			return nil, fmt.Errorf("unmarshal output schema: %w", err)
		}
	}
	m.Description = deref(description)

	return &m, nil
}

func marshalSchemas(input, output any) (inputJSON, outputJSON []byte, err error) {
	if input != nil {
		if inputJSON, err = json.Marshal(input); err != nil {
			return nil, nil, fmt.Errorf("marshal input schema: %w", err)
		}
	}
	if output != nil {
		if outputJSON, err = json.Marshal(output); err != nil {
			return nil, nil, fmt.Errorf("marshal output schema: %w", err)
		}
	}
	return inputJSON, outputJSON, nil
}
