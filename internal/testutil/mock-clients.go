package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

// MockHubClient is a mock of HubClient.
type MockHubClient struct {
	mock.Mock
}

func (m *MockHubClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockHubClient) DownloadExport(ctx context.Context, req ports.ExportRequest, destDir string) (*ports.ExportResult, error) {
	args := m.Called(ctx, req, destDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ExportResult), args.Error(1)
}

func (m *MockHubClient) Upload(ctx context.Context, req ports.UploadRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockDiffusionClient is a mock of DiffusionClient.
type MockDiffusionClient struct {
	mock.Mock
}

func (m *MockDiffusionClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDiffusionClient) Generate(ctx context.Context, req ports.Txt2ImgRequest) ([][]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}

// MockTrainer is a mock of Trainer.
type MockTrainer struct {
	mock.Mock
	RunnerKind domain.RunnerKind
}

func (m *MockTrainer) Kind() domain.RunnerKind {
	if m.RunnerKind != "" {
		return m.RunnerKind
	}
	return domain.RunnerLocal
}

func (m *MockTrainer) Train(ctx context.Context, spec domain.TrainingSpec) (*ports.TrainResult, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TrainResult), args.Error(1)
}
