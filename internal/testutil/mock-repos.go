package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

// MockDatasetRepo is a mock of DatasetRepository.
type MockDatasetRepo struct {
	mock.Mock
}

func (m *MockDatasetRepo) Create(ctx context.Context, ds *domain.Dataset) error {
	args := m.Called(ctx, ds)
	return args.Error(0)
}

func (m *MockDatasetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetRepo) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetRepo) Update(ctx context.Context, ds *domain.Dataset) error {
	args := m.Called(ctx, ds)
	return args.Error(0)
}

func (m *MockDatasetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatasetRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Dataset, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Dataset), args.Int(1), args.Error(2)
}

// MockTrainingRunRepo is a mock of TrainingRunRepository.
type MockTrainingRunRepo struct {
	mock.Mock
}

func (m *MockTrainingRunRepo) Create(ctx context.Context, run *domain.TrainingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingRun), args.Error(1)
}

func (m *MockTrainingRunRepo) Update(ctx context.Context, run *domain.TrainingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.TrainingRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.TrainingRun), args.Int(1), args.Error(2)
}

func (m *MockTrainingRunRepo) CountByDataset(ctx context.Context, datasetID uuid.UUID) (int, error) {
	args := m.Called(ctx, datasetID)
	return args.Int(0), args.Error(1)
}

// MockGenerationJobRepo is a mock of GenerationJobRepository.
type MockGenerationJobRepo struct {
	mock.Mock
}

func (m *MockGenerationJobRepo) Create(ctx context.Context, job *domain.GenerationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockGenerationJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerationJob), args.Error(1)
}

func (m *MockGenerationJobRepo) Update(ctx context.Context, job *domain.GenerationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockGenerationJobRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.GenerationJob, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.GenerationJob), args.Int(1), args.Error(2)
}

// MockUploadBatchRepo is a mock of UploadBatchRepository.
type MockUploadBatchRepo struct {
	mock.Mock
}

func (m *MockUploadBatchRepo) Create(ctx context.Context, batch *domain.UploadBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockUploadBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadBatch), args.Error(1)
}

func (m *MockUploadBatchRepo) Update(ctx context.Context, batch *domain.UploadBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockUploadBatchRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.UploadBatch, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.UploadBatch), args.Int(1), args.Error(2)
}
