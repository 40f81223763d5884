package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

func (s *Store) UploadBatches() ports.UploadBatchRepository {
	return &uploadBatchStore{db: s.db}
}

type uploadBatchStore struct {
	db *sql.DB
}

func (r *uploadBatchStore) Create(ctx context.Context, batch *domain.UploadBatch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO upload_batch
  (id, created_at, updated_at, workspace, project, source_dir, suffix, split,
   batch_name, retries, total, uploaded, failed, state, error,
   started_at, finished_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		batch.ID.String(), batch.CreatedAt, batch.UpdatedAt, batch.Workspace, batch.Project,
		batch.SourceDir, batch.Suffix, string(batch.Split), batch.BatchName, batch.Retries,
		batch.Total, batch.Uploaded, batch.Failed, string(batch.State), batch.Error,
		nullTime(batch.StartedAt), nullTime(batch.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

func (r *uploadBatchStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadBatch, error) {
	row := r.db.QueryRowContext(ctx, uploadBatchSelect+` WHERE id=?;`, id.String())
	batch, err := scanUploadBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUploadBatchNotFound
		}
		return nil, fmt.Errorf("get upload batch by id: %w", err)
	}
	return batch, nil
}

func (r *uploadBatchStore) Update(ctx context.Context, batch *domain.UploadBatch) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE upload_batch
SET total=?, uploaded=?, failed=?, state=?, error=?,
    started_at=?, finished_at=?, updated_at=CURRENT_TIMESTAMP
WHERE id=?;
`,
		batch.Total, batch.Uploaded, batch.Failed, string(batch.State), batch.Error,
		nullTime(batch.StartedAt), nullTime(batch.FinishedAt), batch.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update upload batch: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrUploadBatchNotFound
	}
	return nil
}

func (r *uploadBatchStore) List(ctx context.Context, filter ports.ListFilter) ([]*domain.UploadBatch, int, error) {
	where, args := listWhere(filter, "project", "batch_name")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM upload_batch WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count upload batches: %w", err)
	}

	query := uploadBatchSelect + ` WHERE ` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
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
	return batches, total, rows.Err()
}

const uploadBatchSelect = `
SELECT id, created_at, updated_at, workspace, project, source_dir, suffix, split,
       batch_name, retries, total, uploaded, failed, state, error,
       started_at, finished_at
FROM upload_batch
`

func scanUploadBatch(row rowScanner) (*domain.UploadBatch, error) {
	batch := &domain.UploadBatch{}
	var id string
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&id, &batch.CreatedAt, &batch.UpdatedAt, &batch.Workspace, &batch.Project,
		&batch.SourceDir, &batch.Suffix, &batch.Split, &batch.BatchName, &batch.Retries,
		&batch.Total, &batch.Uploaded, &batch.Failed, &batch.State, &batch.Error,
		&startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	if batch.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse upload batch id: %w", err)
	}
	batch.StartedAt = timePtr(startedAt)
	batch.FinishedAt = timePtr(finishedAt)
	return batch, nil
}

var _ ports.UploadBatchRepository = (*uploadBatchStore)(nil)
