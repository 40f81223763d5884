package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

type uploadBatchRepo struct {
	pool *pgxpool.Pool
}

func NewUploadBatchRepository(pool *pgxpool.Pool) ports.UploadBatchRepository {
	return &uploadBatchRepo{pool: pool}
}

func (r *uploadBatchRepo) Create(ctx context.Context, batch *domain.UploadBatch) error {
	query := `
		INSERT INTO upload_batch
			(id, created_at, updated_at, workspace, project,
			 source_dir, suffix, split, batch_name, retries,
			 total, uploaded, failed, state, error,
			 started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err := r.pool.Exec(ctx, query,
		batch.ID, batch.CreatedAt, batch.UpdatedAt, batch.Workspace, batch.Project,
		batch.SourceDir, batch.Suffix, string(batch.Split), batch.BatchName, batch.Retries,
		batch.Total, batch.Uploaded, batch.Failed, string(batch.State), batch.Error,
		batch.StartedAt, batch.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

func (r *uploadBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadBatch, error) {
	query := uploadBatchSelect + ` WHERE id = $1`
	batch, err := scanUploadBatch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUploadBatchNotFound
		}
		return nil, fmt.Errorf("get upload batch by id: %w", err)
	}
	return batch, nil
}

func (r *uploadBatchRepo) Update(ctx context.Context, batch *domain.UploadBatch) error {
	query := `
		UPDATE upload_batch
		SET total=$1, uploaded=$2, failed=$3, state=$4, error=$5,
			started_at=$6, finished_at=$7, updated_at=NOW()
		WHERE id=$8
	`
	result, err := r.pool.Exec(ctx, query,
		batch.Total, batch.Uploaded, batch.Failed, string(batch.State), batch.Error,
		batch.StartedAt, batch.FinishedAt, batch.ID,
	)
	if err != nil {
		return fmt.Errorf("update upload batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrUploadBatchNotFound
	}
	return nil
}

func (r *uploadBatchRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.UploadBatch, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argPos))
		args = append(args, filter.State)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(project ILIKE $%d OR batch_name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM upload_batch WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count upload batches: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, uploadBatchSelect, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list upload batches: %w", err)
	}
	defer rows.Close()

	var batches []*domain.UploadBatch
	for rows.Next() {
		batch, err := scanUploadBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan upload batch row: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate upload batch rows: %w", err)
	}

	return batches, total, nil
}

const uploadBatchSelect = `
	SELECT id, created_at, updated_at, workspace, project,
		   source_dir, suffix, split, batch_name, retries,
		   total, uploaded, failed, state, error,
		   started_at, finished_at
	FROM upload_batch
`

func scanUploadBatch(row pgx.Row) (*domain.UploadBatch, error) {
	batch := &domain.UploadBatch{}
	err := row.Scan(
		&batch.ID, &batch.CreatedAt, &batch.UpdatedAt, &batch.Workspace, &batch.Project,
		&batch.SourceDir, &batch.Suffix, &batch.Split, &batch.BatchName, &batch.Retries,
		&batch.Total, &batch.Uploaded, &batch.Failed, &batch.State, &batch.Error,
		&batch.StartedAt, &batch.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

var _ ports.UploadBatchRepository = (*uploadBatchRepo)(nil)
