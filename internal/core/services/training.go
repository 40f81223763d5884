package services

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

// TrainingService queues fine-tuning runs and hands them to a trainer. The
// training loop itself belongs to the external detector scripts; this service
// only sequences the invocation and records the outcome.
type TrainingService struct {
	repo        ports.TrainingRunRepository
	datasetRepo ports.DatasetRepository
	trainers    map[domain.RunnerKind]ports.Trainer
	runner      *Runner
	dataDir     string
}

func NewTrainingService(repo ports.TrainingRunRepository, datasetRepo ports.DatasetRepository, trainers []ports.Trainer, runner *Runner, dataDir string) *TrainingService {
	byKind := make(map[domain.RunnerKind]ports.Trainer, len(trainers))
	for _, t := range trainers {
		if t != nil {
			byKind[t.Kind()] = t
		}
	}
	return &TrainingService{
		repo:        repo,
		datasetRepo: datasetRepo,
		trainers:    byKind,
		runner:      runner,
		dataDir:     dataDir,
	}
}

type TrainingParams struct {
	DatasetID   uuid.UUID
	Name        string
	BaseWeights string
	ImageSize   int
	BatchSize   int
	Epochs      int
	Device      string
	Runner      domain.RunnerKind
}

func (s *TrainingService) Create(ctx context.Context, p TrainingParams) (*domain.TrainingRun, error) {
	if p.BaseWeights == "" {
		p.BaseWeights = "yolov5s.pt"
	}
	if p.ImageSize == 0 {
		p.ImageSize = 640
	}
	if p.BatchSize == 0 {
		p.BatchSize = 16
	}
	if p.Epochs == 0 {
		p.Epochs = 100
	}
	if p.ImageSize < 0 {
		return nil, domain.ErrInvalidImageSize
	}
	if p.BatchSize < 0 {
		return nil, domain.ErrInvalidBatchSize
	}
	if p.Epochs < 0 {
		return nil, domain.ErrInvalidEpochs
	}
	if p.Runner == "" {
		p.Runner = domain.RunnerLocal
	}
	trainer, ok := s.trainers[p.Runner]
	if !ok {
		return nil, domain.ErrUnknownRunner
	}

	ds, err := s.datasetRepo.GetByID(ctx, p.DatasetID)
	if err != nil {
		return nil, err
	}
	if !ds.Ready() {
		return nil, domain.ErrDatasetNotReady
	}

	now := time.Now()
	run := &domain.TrainingRun{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		DatasetID:   ds.ID,
		Name:        p.Name,
		BaseWeights: p.BaseWeights,
		ImageSize:   p.ImageSize,
		BatchSize:   p.BatchSize,
		Epochs:      p.Epochs,
		Device:      p.Device,
		Runner:      p.Runner,
		State:       domain.RunStateQueued,
	}
	if run.Name == "" {
		run.Name = ds.Slug + "-finetune"
	}
	run.OutputDir = filepath.Join(s.dataDir, "runs", "train", run.Name+"-"+run.ID.String()[:8])

	if err := s.repo.Create(ctx, run); err != nil {
		return nil, err
	}

	spec := domain.TrainingSpec{
		RunID:       run.ID,
		DataYAML:    filepath.Join(ds.Location, "data.yaml"),
		BaseWeights: run.BaseWeights,
		ImageSize:   run.ImageSize,
		BatchSize:   run.BatchSize,
		Epochs:      run.Epochs,
		Device:      run.Device,
		OutputDir:   run.OutputDir,
		RunName:     run.Name,
	}
	// The run goroutine owns run from here; hand the caller its own copy.
	snapshot := *run
	s.runner.Go(run.ID, func(runCtx context.Context) {
		s.run(runCtx, trainer, run, spec)
	})
	return &snapshot, nil
}

func (s *TrainingService) Get(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TrainingService) List(ctx context.Context, filter ports.ListFilter) ([]*domain.TrainingRun, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *TrainingService) Cancel(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.State.Terminal() {
		return nil, domain.ErrRunAlreadyFinished
	}
	if !s.runner.Cancel(id) {
		run.State = domain.RunStateCanceled
		now := time.Now()
		run.FinishedAt = &now
		if err := s.repo.Update(ctx, run); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *TrainingService) run(ctx context.Context, trainer ports.Trainer, run *domain.TrainingRun, spec domain.TrainingSpec) {
	logger := log.WithFields(log.Fields{
		"run":     run.Name,
		"runner":  run.Runner,
		"weights": run.BaseWeights,
		"epochs":  run.Epochs,
	})

	now := time.Now()
	run.State = domain.RunStateRunning
	run.StartedAt = &now
	if err := s.repo.Update(context.Background(), run); err != nil {
		logger.WithError(err).Error("persist running training run")
	}
	logger.Info("training started")

	result, err := trainer.Train(ctx, spec)
	finished := time.Now()
	run.FinishedAt = &finished

	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		run.State = domain.RunStateCanceled
		logger.Info("training canceled")
	case err != nil:
		run.State = domain.RunStateFailed
		run.Error = err.Error()
		logger.WithError(err).Error("training failed")
	default:
		run.State = domain.RunStateSucceeded
		run.OutputDir = result.OutputDir
		run.WeightsPath = result.WeightsPath
		logger.WithField("weights_path", run.WeightsPath).Info("training finished")
	}

	if err := s.repo.Update(context.Background(), run); err != nil {
		logger.WithError(err).Error("persist training run state")
	}
}
