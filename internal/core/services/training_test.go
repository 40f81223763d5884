package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
	"vision-pipeline-service/internal/testutil"
)

func readyDataset(t *testing.T) *domain.Dataset {
	t.Helper()
	return &domain.Dataset{
		ID:       uuid.New(),
		Name:     "hard hats",
		Slug:     "hard-hats",
		Location: t.TempDir(),
		State:    domain.DatasetStateReady,
	}
}

func TestTrainingService_Create_DatasetNotReady(t *testing.T) {
	runRepo := new(testutil.MockTrainingRunRepo)
	dsRepo := new(testutil.MockDatasetRepo)
	trainer := new(testutil.MockTrainer)

	ds := &domain.Dataset{ID: uuid.New(), State: domain.DatasetStatePending}
	dsRepo.On("GetByID", mock.Anything, ds.ID).Return(ds, nil)

	svc := NewTrainingService(runRepo, dsRepo, []ports.Trainer{trainer}, NewRunner(1), t.TempDir())
	_, err := svc.Create(context.Background(), TrainingParams{DatasetID: ds.ID})
	assert.ErrorIs(t, err, domain.ErrDatasetNotReady)
}

func TestTrainingService_Create_UnknownRunner(t *testing.T) {
	runRepo := new(testutil.MockTrainingRunRepo)
	dsRepo := new(testutil.MockDatasetRepo)
	trainer := new(testutil.MockTrainer)

	svc := NewTrainingService(runRepo, dsRepo, []ports.Trainer{trainer}, NewRunner(1), t.TempDir())
	_, err := svc.Create(context.Background(), TrainingParams{
		DatasetID: uuid.New(),
		Runner:    domain.RunnerKubernetes,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownRunner)
}

func TestTrainingService_RunSucceeds(t *testing.T) {
	runRepo := new(testutil.MockTrainingRunRepo)
	dsRepo := new(testutil.MockDatasetRepo)
	trainer := new(testutil.MockTrainer)

	ds := readyDataset(t)
	dsRepo.On("GetByID", mock.Anything, ds.ID).Return(ds, nil)

	weights := filepath.Join(t.TempDir(), "best.pt")
	trainer.On("Train", mock.Anything, mock.MatchedBy(func(spec domain.TrainingSpec) bool {
		return spec.DataYAML == filepath.Join(ds.Location, "data.yaml") &&
			spec.ImageSize == 640 && spec.BatchSize == 16 && spec.Epochs == 100
	})).Return(&ports.TrainResult{OutputDir: filepath.Dir(weights), WeightsPath: weights}, nil)

	var run *domain.TrainingRun
	done := make(chan struct{})
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return(nil).
		Run(func(args mock.Arguments) { run = args.Get(1).(*domain.TrainingRun) })
	runRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return(nil).
		Run(terminalSignal(done, func() domain.RunState { return run.State }))

	svc := NewTrainingService(runRepo, dsRepo, []ports.Trainer{trainer}, NewRunner(1), t.TempDir())
	_, err := svc.Create(context.Background(), TrainingParams{DatasetID: ds.ID})
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, domain.RunStateSucceeded, run.State)
	assert.Equal(t, weights, run.WeightsPath)
	assert.Equal(t, "yolov5s.pt", run.BaseWeights)
	trainer.AssertExpectations(t)
}

func TestTrainingService_CreateReturnsDetachedCopy(t *testing.T) {
	runRepo := new(testutil.MockTrainingRunRepo)
	dsRepo := new(testutil.MockDatasetRepo)
	trainer := new(testutil.MockTrainer)

	ds := readyDataset(t)
	dsRepo.On("GetByID", mock.Anything, ds.ID).Return(ds, nil)
	weights := filepath.Join(t.TempDir(), "best.pt")
	trainer.On("Train", mock.Anything, mock.Anything).
		Return(&ports.TrainResult{OutputDir: filepath.Dir(weights), WeightsPath: weights}, nil)

	var run *domain.TrainingRun
	done := make(chan struct{})
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return(nil).
		Run(func(args mock.Arguments) { run = args.Get(1).(*domain.TrainingRun) })
	runRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return(nil).
		Run(terminalSignal(done, func() domain.RunState { return run.State }))

	svc := NewTrainingService(runRepo, dsRepo, []ports.Trainer{trainer}, NewRunner(1), t.TempDir())
	returned, err := svc.Create(context.Background(), TrainingParams{DatasetID: ds.ID})
	require.NoError(t, err)
	waitDone(t, done)

	// The run goroutine must not write into the entity handed back to the
	// caller: it stays a queued-state snapshot even after the run finished.
	assert.Equal(t, domain.RunStateSucceeded, run.State)
	assert.NotSame(t, run, returned)
	assert.Equal(t, domain.RunStateQueued, returned.State)
	assert.Empty(t, returned.WeightsPath)
	assert.Nil(t, returned.StartedAt)
}

func TestTrainingService_RunFails(t *testing.T) {
	runRepo := new(testutil.MockTrainingRunRepo)
	dsRepo := new(testutil.MockDatasetRepo)
	trainer := new(testutil.MockTrainer)

	ds := readyDataset(t)
	dsRepo.On("GetByID", mock.Anything, ds.ID).Return(ds, nil)
	trainer.On("Train", mock.Anything, mock.Anything).Return(nil, errors.New("train.py exited with code 1"))

	var run *domain.TrainingRun
	done := make(chan struct{})
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return(nil).
		Run(func(args mock.Arguments) { run = args.Get(1).(*domain.TrainingRun) })
	runRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return(nil).
		Run(terminalSignal(done, func() domain.RunState { return run.State }))

	svc := NewTrainingService(runRepo, dsRepo, []ports.Trainer{trainer}, NewRunner(1), t.TempDir())
	_, err := svc.Create(context.Background(), TrainingParams{DatasetID: ds.ID, Epochs: 5})
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, domain.RunStateFailed, run.State)
	assert.Contains(t, run.Error, "exited with code 1")
}

func TestTrainingService_Cancel_Terminal(t *testing.T) {
	runRepo := new(testutil.MockTrainingRunRepo)
	dsRepo := new(testutil.MockDatasetRepo)

	run := &domain.TrainingRun{ID: uuid.New(), State: domain.RunStateFailed}
	runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	svc := NewTrainingService(runRepo, dsRepo, nil, NewRunner(1), t.TempDir())
	_, err := svc.Cancel(context.Background(), run.ID)
	assert.ErrorIs(t, err, domain.ErrRunAlreadyFinished)
}
