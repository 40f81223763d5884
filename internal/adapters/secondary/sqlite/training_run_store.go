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

func (s *Store) TrainingRuns() ports.TrainingRunRepository {
	return &trainingRunStore{db: s.db}
}

type trainingRunStore struct {
	db *sql.DB
}

func (r *trainingRunStore) Create(ctx context.Context, run *domain.TrainingRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO training_run
  (id, created_at, updated_at, dataset_id, name, base_weights, image_size,
   batch_size, epochs, device, runner, state, error, output_dir, weights_path,
   started_at, finished_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		run.ID.String(), run.CreatedAt, run.UpdatedAt, run.DatasetID.String(), run.Name,
		run.BaseWeights, run.ImageSize, run.BatchSize, run.Epochs, run.Device,
		string(run.Runner), string(run.State), run.Error, run.OutputDir, run.WeightsPath,
		nullTime(run.StartedAt), nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("create training run: %w", err)
	}
	return nil
}

func (r *trainingRunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	row := r.db.QueryRowContext(ctx, trainingRunSelect+` WHERE id=?;`, id.String())
	run, err := scanTrainingRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTrainingRunNotFound
		}
		return nil, fmt.Errorf("get training run by id: %w", err)
	}
	return run, nil
}

func (r *trainingRunStore) Update(ctx context.Context, run *domain.TrainingRun) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE training_run
SET state=?, error=?, output_dir=?, weights_path=?,
    started_at=?, finished_at=?, updated_at=CURRENT_TIMESTAMP
WHERE id=?;
`,
		string(run.State), run.Error, run.OutputDir, run.WeightsPath,
		nullTime(run.StartedAt), nullTime(run.FinishedAt), run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update training run: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrTrainingRunNotFound
	}
	return nil
}

func (r *trainingRunStore) List(ctx context.Context, filter ports.ListFilter) ([]*domain.TrainingRun, int, error) {
	where, args := listWhere(filter, "name")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM training_run WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count training runs: %w", err)
	}

	query := trainingRunSelect + ` WHERE ` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list training runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.TrainingRun
	for rows.Next() {
		run, err := scanTrainingRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan training run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (r *trainingRunStore) CountByDataset(ctx context.Context, datasetID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM training_run WHERE dataset_id=?;`, datasetID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count training runs by dataset: %w", err)
	}
	return count, nil
}

const trainingRunSelect = `
SELECT id, created_at, updated_at, dataset_id, name, base_weights, image_size,
       batch_size, epochs, device, runner, state, error, output_dir, weights_path,
       started_at, finished_at
FROM training_run
`

func scanTrainingRun(row rowScanner) (*domain.TrainingRun, error) {
	run := &domain.TrainingRun{}
	var id, datasetID string
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&id, &run.CreatedAt, &run.UpdatedAt, &datasetID, &run.Name,
		&run.BaseWeights, &run.ImageSize, &run.BatchSize, &run.Epochs, &run.Device,
		&run.Runner, &run.State, &run.Error, &run.OutputDir, &run.WeightsPath,
		&startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse training run id: %w", err)
	}
	if run.DatasetID, err = uuid.Parse(datasetID); err != nil {
		return nil, fmt.Errorf("parse dataset id: %w", err)
	}
	run.StartedAt = timePtr(startedAt)
	run.FinishedAt = timePtr(finishedAt)
	return run, nil
}

var _ ports.TrainingRunRepository = (*trainingRunStore)(nil)
