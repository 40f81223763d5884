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

type trainingRunRepo struct {
	pool *pgxpool.Pool
}

func NewTrainingRunRepository(pool *pgxpool.Pool) ports.TrainingRunRepository {
	return &trainingRunRepo{pool: pool}
}

func (r *trainingRunRepo) Create(ctx context.Context, run *domain.TrainingRun) error {
	query := `
		INSERT INTO training_run
			(id, created_at, updated_at, dataset_id, name,
			 base_weights, image_size, batch_size, epochs, device,
			 runner, state, error, output_dir, weights_path,
			 started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID, run.CreatedAt, run.UpdatedAt, run.DatasetID, run.Name,
		run.BaseWeights, run.ImageSize, run.BatchSize, run.Epochs, run.Device,
		string(run.Runner), string(run.State), run.Error,
		run.OutputDir, run.WeightsPath, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("create training run: %w", err)
	}
	return nil
}

func (r *trainingRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	query := trainingRunSelect + ` WHERE id = $1`
	run, err := scanTrainingRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrainingRunNotFound
		}
		return nil, fmt.Errorf("get training run by id: %w", err)
	}
	return run, nil
}

func (r *trainingRunRepo) Update(ctx context.Context, run *domain.TrainingRun) error {
	query := `
		UPDATE training_run
		SET state=$1, error=$2, output_dir=$3, weights_path=$4,
			started_at=$5, finished_at=$6, updated_at=NOW()
		WHERE id=$7
	`
	result, err := r.pool.Exec(ctx, query,
		string(run.State), run.Error, run.OutputDir, run.WeightsPath,
		run.StartedAt, run.FinishedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update training run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTrainingRunNotFound
	}
	return nil
}

func (r *trainingRunRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.TrainingRun, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argPos))
		args = append(args, filter.State)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM training_run WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count training runs: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, trainingRunSelect, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate training run rows: %w", err)
	}

	return runs, total, nil
}

func (r *trainingRunRepo) CountByDataset(ctx context.Context, datasetID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM training_run WHERE dataset_id = $1`, datasetID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count training runs by dataset: %w", err)
	}
	return count, nil
}

const trainingRunSelect = `
	SELECT id, created_at, updated_at, dataset_id, name,
		   base_weights, image_size, batch_size, epochs, device,
		   runner, state, error, output_dir, weights_path,
		   started_at, finished_at
	FROM training_run
`

func scanTrainingRun(row pgx.Row) (*domain.TrainingRun, error) {
	run := &domain.TrainingRun{}
	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt, &run.DatasetID, &run.Name,
		&run.BaseWeights, &run.ImageSize, &run.BatchSize, &run.Epochs, &run.Device,
		&run.Runner, &run.State, &run.Error, &run.OutputDir, &run.WeightsPath,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

var _ ports.TrainingRunRepository = (*trainingRunRepo)(nil)
