package ports

import (
	"context"

	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
)

type ListFilter struct {
	State  string
	Search string
	Limit  int
	Offset int
}

type DatasetRepository interface {
	Create(ctx context.Context, ds *domain.Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error)
	Update(ctx context.Context, ds *domain.Dataset) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*domain.Dataset, int, error)
}

type TrainingRunRepository interface {
	Create(ctx context.Context, run *domain.TrainingRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error)
	Update(ctx context.Context, run *domain.TrainingRun) error
	List(ctx context.Context, filter ListFilter) ([]*domain.TrainingRun, int, error)
	CountByDataset(ctx context.Context, datasetID uuid.UUID) (int, error)
}

type GenerationJobRepository interface {
	Create(ctx context.Context, job *domain.GenerationJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error)
	Update(ctx context.Context, job *domain.GenerationJob) error
	List(ctx context.Context, filter ListFilter) ([]*domain.GenerationJob, int, error)
}

type UploadBatchRepository interface {
	Create(ctx context.Context, batch *domain.UploadBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadBatch, error)
	Update(ctx context.Context, batch *domain.UploadBatch) error
	List(ctx context.Context, filter ListFilter) ([]*domain.UploadBatch, int, error)
}
