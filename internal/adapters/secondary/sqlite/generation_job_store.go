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

func (s *Store) GenerationJobs() ports.GenerationJobRepository {
	return &generationJobStore{db: s.db}
}

type generationJobStore struct {
	db *sql.DB
}

func (r *generationJobStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO generation_job
  (id, created_at, updated_at, name, slug, prompt, negative_prompt,
   total_images, batch_size, steps, guidance_scale, seed, output_dir,
   produced, state, error, started_at, finished_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		job.ID.String(), job.CreatedAt, job.UpdatedAt, job.Name, job.Slug,
		job.Prompt, job.NegativePrompt, job.TotalImages, job.BatchSize, job.Steps,
		job.GuidanceScale, job.Seed, job.OutputDir, job.Produced,
		string(job.State), job.Error, nullTime(job.StartedAt), nullTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("create generation job: %w", err)
	}
	return nil
}

func (r *generationJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	row := r.db.QueryRowContext(ctx, generationJobSelect+` WHERE id=?;`, id.String())
	job, err := scanGenerationJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGenerationJobNotFound
		}
		return nil, fmt.Errorf("get generation job by id: %w", err)
	}
	return job, nil
}

func (r *generationJobStore) Update(ctx context.Context, job *domain.GenerationJob) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE generation_job
SET produced=?, state=?, error=?, started_at=?, finished_at=?, updated_at=CURRENT_TIMESTAMP
WHERE id=?;
`,
		job.Produced, string(job.State), job.Error,
		nullTime(job.StartedAt), nullTime(job.FinishedAt), job.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update generation job: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrGenerationJobNotFound
	}
	return nil
}

func (r *generationJobStore) List(ctx context.Context, filter ports.ListFilter) ([]*domain.GenerationJob, int, error) {
	where, args := listWhere(filter, "name", "prompt")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generation_job WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count generation jobs: %w", err)
	}

	query := generationJobSelect + ` WHERE ` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
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
	return jobs, total, rows.Err()
}

const generationJobSelect = `
SELECT id, created_at, updated_at, name, slug, prompt, negative_prompt,
       total_images, batch_size, steps, guidance_scale, seed, output_dir,
       produced, state, error, started_at, finished_at
FROM generation_job
`

func scanGenerationJob(row rowScanner) (*domain.GenerationJob, error) {
	job := &domain.GenerationJob{}
	var id string
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&id, &job.CreatedAt, &job.UpdatedAt, &job.Name, &job.Slug,
		&job.Prompt, &job.NegativePrompt, &job.TotalImages, &job.BatchSize, &job.Steps,
		&job.GuidanceScale, &job.Seed, &job.OutputDir, &job.Produced,
		&job.State, &job.Error, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse generation job id: %w", err)
	}
	job.StartedAt = timePtr(startedAt)
	job.FinishedAt = timePtr(finishedAt)
	return job, nil
}

var _ ports.GenerationJobRepository = (*generationJobStore)(nil)
