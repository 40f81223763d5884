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

type generationJobRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationJobRepository(pool *pgxpool.Pool) ports.GenerationJobRepository {
	return &generationJobRepo{pool: pool}
}

func (r *generationJobRepo) Create(ctx context.Context, job *domain.GenerationJob) error {
	query := `
		INSERT INTO generation_job
			(id, created_at, updated_at, name, slug,
			 prompt, negative_prompt, total_images, batch_size, steps,
			 guidance_scale, seed, output_dir, produced, state, error,
			 started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID, job.CreatedAt, job.UpdatedAt, job.Name, job.Slug,
		job.Prompt, job.NegativePrompt, job.TotalImages, job.BatchSize, job.Steps,
		job.GuidanceScale, job.Seed, job.OutputDir, job.Produced,
		string(job.State), job.Error, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("create generation job: %w", err)
	}
	return nil
}

func (r *generationJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	query := generationJobSelect + ` WHERE id = $1`
	job, err := scanGenerationJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGenerationJobNotFound
		}
		return nil, fmt.Errorf("get generation job by id: %w", err)
	}
	return job, nil
}

func (r *generationJobRepo) Update(ctx context.Context, job *domain.GenerationJob) error {
	query := `
		UPDATE generation_job
		SET produced=$1, state=$2, error=$3,
			started_at=$4, finished_at=$5, updated_at=NOW()
		WHERE id=$6
	`
	result, err := r.pool.Exec(ctx, query,
		job.Produced, string(job.State), job.Error,
		job.StartedAt, job.FinishedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update generation job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrGenerationJobNotFound
	}
	return nil
}

func (r *generationJobRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.GenerationJob, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argPos))
		args = append(args, filter.State)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR prompt ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM generation_job WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count generation jobs: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, generationJobSelect, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list generation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.GenerationJob
	for rows.Next() {
		job, err := scanGenerationJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan generation job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate generation job rows: %w", err)
	}

	return jobs, total, nil
}

const generationJobSelect = `
	SELECT id, created_at, updated_at, name, slug,
		   prompt, negative_prompt, total_images, batch_size, steps,
		   guidance_scale, seed, output_dir, produced, state, error,
		   started_at, finished_at
	FROM generation_job
`

func scanGenerationJob(row pgx.Row) (*domain.GenerationJob, error) {
	job := &domain.GenerationJob{}
	err := row.Scan(
		&job.ID, &job.CreatedAt, &job.UpdatedAt, &job.Name, &job.Slug,
		&job.Prompt, &job.NegativePrompt, &job.TotalImages, &job.BatchSize, &job.Steps,
		&job.GuidanceScale, &job.Seed, &job.OutputDir, &job.Produced,
		&job.State, &job.Error, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

var _ ports.GenerationJobRepository = (*generationJobRepo)(nil)
